package jwtguard

import (
	"context"
	"errors"
	"fmt"
)

// ErrClaimsNotFound is returned by GetClaims when the context carries no
// claims or claims of a different type than requested.
var ErrClaimsNotFound = errors.New("claims not found in context")

// contextKey is an unexported type for context keys so no other package
// can collide with the claims entry.
type contextKey int

const claimsKey contextKey = iota

// SetClaims stores validated claims in the context. The middleware calls
// this after successful validation; framework adapters use it to bridge
// their own context types.
func SetClaims(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims retrieves claims from the context with type safety using
// generics.
//
//	claims, err := jwtguard.GetClaims[*validator.ValidatedClaims](r.Context())
//	if err != nil {
//	    // no claims on this request
//	}
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	val := ctx.Value(claimsKey)
	if val == nil {
		return zero, ErrClaimsNotFound
	}

	claims, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: claims are of type %T", ErrClaimsNotFound, val)
	}

	return claims, nil
}

// MustGetClaims retrieves claims from the context or panics. Use only
// when claims are certain to exist, such as in handlers behind the
// middleware with required credentials.
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context without retrieving
// them.
func HasClaims(ctx context.Context) bool {
	return ctx.Value(claimsKey) != nil
}
