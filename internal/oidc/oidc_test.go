package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// setupTestServer creates a test HTTP server that returns the specified response code and body.
func setupTestServer(responseCode int, responseBody string, headers map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, value := range headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(responseCode)
		_, _ = w.Write([]byte(responseBody))
	}))
}

func TestFetchDocument(t *testing.T) {
	tests := []struct {
		name         string
		responseCode int
		responseBody string
		headers      map[string]string
		expectError  bool
		wantIssuer   string
		wantJWKSURI  string
	}{
		{
			name:         "Successful 200 response with valid JSON",
			responseCode: http.StatusOK,
			responseBody: `{"issuer":"https://example.com","jwks_uri":"https://example.com/jwks"}`,
			headers:      map[string]string{"Content-Type": "application/json"},
			wantIssuer:   "https://example.com",
			wantJWKSURI:  "https://example.com/jwks",
		},
		{
			name:         "Document without issuer",
			responseCode: http.StatusOK,
			responseBody: `{"jwks_uri":"https://example.com/jwks"}`,
			wantJWKSURI:  "https://example.com/jwks",
		},
		{
			name:         "404 Not Found response",
			responseCode: http.StatusNotFound,
			responseBody: `{"error": "not found"}`,
			expectError:  true,
		},
		{
			name:         "500 Internal Server Error response",
			responseCode: http.StatusInternalServerError,
			responseBody: `Internal Server Error`,
			expectError:  true,
		},
		{
			name:         "Malformed JSON response",
			responseCode: http.StatusOK,
			responseBody: `{"jwks_uri": "https://example.com/jwks"`,
			expectError:  true,
		},
		{
			name:         "Empty response",
			responseCode: http.StatusOK,
			responseBody: ``,
			expectError:  true,
		},
		{
			name:         "Non-JSON response",
			responseCode: http.StatusOK,
			responseBody: `<html><body>Error</body></html>`,
			headers:      map[string]string{"Content-Type": "text/html"},
			expectError:  true,
		},
		{
			name:         "Unauthorized response",
			responseCode: http.StatusUnauthorized,
			responseBody: `{"error": "unauthorized"}`,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(tt.responseCode, tt.responseBody, tt.headers)
			defer server.Close()

			doc, err := FetchDocument(context.Background(), &http.Client{}, server.URL)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if doc.Issuer != tt.wantIssuer {
				t.Errorf("Expected issuer %q, got %q", tt.wantIssuer, doc.Issuer)
			}
			if doc.JWKSURI != tt.wantJWKSURI {
				t.Errorf("Expected jwks_uri %q, got %q", tt.wantJWKSURI, doc.JWKSURI)
			}
		})
	}
}

func TestFetchDocument_NetworkError(t *testing.T) {
	_, err := FetchDocument(context.Background(), &http.Client{}, "http://invalid.local")

	if err == nil || !strings.Contains(err.Error(), "could not get discovery document") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestFetchDocument_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 1 * time.Second}
	_, err := FetchDocument(context.Background(), client, server.URL)

	if err == nil || !strings.Contains(err.Error(), "context deadline exceeded") {
		t.Errorf("Expected timeout error, got: %v", err)
	}
}

func TestFetchDocument_InvalidRequest(t *testing.T) {
	_, err := FetchDocument(context.Background(), &http.Client{}, "://missing-scheme")

	if err == nil || !strings.Contains(err.Error(), "could not build request") {
		t.Errorf("Expected request creation error, got: %v", err)
	}
}

func TestDiscoveryURL(t *testing.T) {
	tests := []struct {
		name   string
		issuer string
		want   string
	}{
		{
			name:   "Bare host",
			issuer: "https://issuer.example.com",
			want:   "https://issuer.example.com/.well-known/openid-configuration",
		},
		{
			name:   "Trailing slash",
			issuer: "https://issuer.example.com/",
			want:   "https://issuer.example.com/.well-known/openid-configuration",
		},
		{
			name:   "Tenant path",
			issuer: "https://issuer.example.com/tenants/a",
			want:   "https://issuer.example.com/tenants/a/.well-known/openid-configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuerURL, err := url.Parse(tt.issuer)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := DiscoveryURL(*issuerURL); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
