package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// maxDocumentSize caps how much of a discovery response body is decoded.
const maxDocumentSize = 1 << 20 // 1 MB

// Document holds the fields of an OIDC discovery document the key set
// loaders care about.
type Document struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoveryURL returns the well-known discovery document URL for the
// passed in issuer url.
func DiscoveryURL(issuerURL url.URL) string {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")
	return issuerURL.String()
}

// FetchDocument retrieves and decodes the discovery document at rawURL.
func FetchDocument(ctx context.Context, client *http.Client, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get discovery document: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get discovery document from url %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d getting discovery document from url %s", resp.StatusCode, rawURL)
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not decode json body of discovery document: %w", err)
	}

	return &doc, nil
}
