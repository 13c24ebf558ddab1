package jwtgrpc

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	jwtguard "github.com/keyward/go-jwt-guard"
)

// ErrorHandler converts validation failures into the error returned to
// the gRPC client, usually a status error.
type ErrorHandler func(err error) error

// DefaultErrorHandler maps validation failures to gRPC status codes.
// Malformed credentials are InvalidArgument, issuer and audience
// mismatches PermissionDenied, and everything else Unauthenticated, so
// token contents never leak into client-visible messages.
func DefaultErrorHandler(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwtguard.ErrJWTMissing):
		return status.Error(codes.Unauthenticated, "missing credentials")
	case errors.Is(err, ErrMultipleAuthHeaders),
		errors.Is(err, ErrInvalidAuthFormat),
		errors.Is(err, ErrUnsupportedScheme):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return status.Error(codes.Unauthenticated, "token not yet valid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return status.Error(codes.PermissionDenied, "invalid issuer")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return status.Error(codes.PermissionDenied, "invalid audience")
	default:
		return status.Error(codes.Unauthenticated, "invalid or malformed token")
	}
}
