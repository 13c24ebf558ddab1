package jwtgrpc

import (
	"context"

	jwtguard "github.com/keyward/go-jwt-guard"
)

// GetClaims retrieves claims from the context with type safety using
// generics.
//
// Example:
//
//	claims, err := jwtgrpc.GetClaims[*validator.ValidatedClaims](ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get claims")
//	}
//	fmt.Println(claims.RegisteredClaims.Subject)
func GetClaims[T any](ctx context.Context) (T, error) {
	return jwtguard.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics. Use only
// when claims are certain to exist, such as behind an interceptor with
// required credentials.
func MustGetClaims[T any](ctx context.Context) T {
	return jwtguard.MustGetClaims[T](ctx)
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return jwtguard.HasClaims(ctx)
}
