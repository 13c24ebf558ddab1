package jwtguard

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrJWTMissing is returned when no token was found on the request.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is returned when a token was found but failed
	// validation.
	ErrJWTInvalid = errors.New("jwt invalid")
)

// ErrorHandler is called when an error occurs in the middleware. Among
// some general errors, this handler also determines the response of the
// middleware when a token is not found or is invalid. The err can be
// checked against ErrJWTMissing and ErrJWTInvalid with errors.Is. The
// default handler returns 400 for ErrJWTMissing, 401 for ErrJWTInvalid
// and 500 for everything else; a custom handler should take these error
// types into consideration as well.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the error handler used when none is configured
// via WithErrorHandler.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.Is(err, ErrJWTMissing):
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"JWT is missing."}`))
	case errors.Is(err, ErrJWTInvalid):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"JWT is invalid."}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Something went wrong while checking the JWT."}`))
	}
}

// invalidError wraps a validation error so it compares equal to
// ErrJWTInvalid while keeping the underlying cause reachable through
// Unwrap. It is not exposed publicly because Is and Unwrap give callers
// all they need.
type invalidError struct {
	details error
}

// Is allows the error to support equality to ErrJWTInvalid.
func (e *invalidError) Is(target error) bool {
	return target == ErrJWTInvalid
}

// Error returns a string representation of the error.
func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJWTInvalid, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrJWTInvalid.
func (e *invalidError) Unwrap() error {
	return e.details
}
