package jwtechohandler

import (
	jwtguard "github.com/keyward/go-jwt-guard"
)

// Option is a function that configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler. The default replies
// with a 401 JSON body.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(cfg *config) {
		cfg.errorHandler = handler
	}
}

// WithContextKey sets the echo context key claims are stored under.
func WithContextKey(key string) Option {
	return func(cfg *config) {
		cfg.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor. The default reads
// the Authorization header.
func WithTokenExtractor(extractor jwtguard.TokenExtractor) Option {
	return func(cfg *config) {
		cfg.tokenExtractor = extractor
	}
}
