package jwtgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor extracts a raw token from the incoming gRPC metadata.
// An empty string with a nil error means no token was sent.
type TokenExtractor func(ctx context.Context) (string, error)

var (
	// ErrMultipleAuthHeaders indicates multiple authorization metadata
	// entries were provided.
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata format
	// is invalid.
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")

	// ErrUnsupportedScheme indicates an unsupported authorization
	// scheme was used.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme, expected: Bearer")
)

// MetadataTokenExtractor reads a bearer token from the "authorization"
// metadata key.
//
// gRPC normalizes incoming metadata keys to lowercase, so only the
// lowercase key is checked.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", nil
	}
	if len(authHeaders) > 1 {
		return "", ErrMultipleAuthHeaders
	}

	parts := strings.Fields(authHeaders[0])
	if len(parts) != 2 {
		return "", ErrInvalidAuthFormat
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrUnsupportedScheme
	}

	return parts[1], nil
}
