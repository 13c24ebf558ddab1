package jwtgrpc

import (
	"errors"

	jwtguard "github.com/keyward/go-jwt-guard"
)

// Option configures the interceptor.
type Option func(*JWTInterceptor) error

// WithValidator sets the token validator. This is a required option.
func WithValidator(validator jwtguard.TokenValidator) Option {
	return func(i *JWTInterceptor) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		i.validator = validator
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor. The default reads
// the "authorization" metadata key.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler. The default maps
// failures to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through; their
// context carries no claims.
func WithCredentialsOptional(optional bool) Option {
	return func(i *JWTInterceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger for the interceptor's own logging.
func WithLogger(logger jwtguard.Logger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithExcludedMethods excludes full gRPC method names from validation,
// in the "/package.Service/Method" form.
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
