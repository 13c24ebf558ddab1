package jwtfiberhandler

// Option is a function that configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler. The default replies
// with the same JSON bodies as the net/http middleware.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(cfg *config) {
		cfg.errorHandler = handler
	}
}

// WithContextKey sets the locals key claims are stored under.
func WithContextKey(key string) Option {
	return func(cfg *config) {
		cfg.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor. The default reads
// the Authorization header.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(cfg *config) {
		cfg.tokenExtractor = extractor
	}
}

// WithCredentialsOptional lets requests without a token through; no
// claims are stored for them.
func WithCredentialsOptional(value bool) Option {
	return func(cfg *config) {
		cfg.credentialsOptional = value
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are validated.
// Defaults to true.
func WithValidateOnOptions(value bool) Option {
	return func(cfg *config) {
		cfg.validateOnOptions = value
	}
}
