package jwtguard

import (
	"errors"
	"net/http"
)

// Option configures the JWTMiddleware. Options return an error for
// invalid values so misconfiguration fails at construction.
type Option func(*JWTMiddleware) error

// Sentinel errors for configuration validation.
var (
	ErrValidatorNil       = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionURLsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
	ErrTracerNil          = errors.New("tracer cannot be nil")
)

// WithValidator sets the token validator (REQUIRED).
//
//	v, err := validator.New(
//	    validator.WithKeyProvider(provider),
//	    validator.WithIssuer("https://issuer.example.com"),
//	    validator.WithAudiences("my-api"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := jwtguard.New(
//	    jwtguard.WithValidator(v),
//	)
func WithValidator(v TokenValidator) Option {
	return func(m *JWTMiddleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		m.validator = v
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional. If set
// to true, requests without a token pass through without claims.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their
// JWT validated.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when errors occur during
// token validation. See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the JWT from the
// request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *JWTMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URL patterns to exclude from token
// validation. Entries match either the full request URL or just its
// path.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *JWTMiddleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionURLsEmpty
		}
		m.exclusionHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithExclusionURLHandler sets a custom predicate deciding which
// requests skip token validation. It wins over WithExclusionUrls when
// both are given.
func WithExclusionURLHandler(h ExclusionURLHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return errors.New("exclusion URL handler cannot be nil")
		}
		m.exclusionHandler = h
		return nil
	}
}

// WithLogger sets the logger used throughout the validation flow.
//
// Default: nothing is logged.
func WithLogger(logger Logger) Option {
	return func(m *JWTMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for validation counters and timing.
//
// Default: no metrics are emitted.
func WithMetrics(metrics Metrics) Option {
	return func(m *JWTMiddleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer wrapping each token validation in a span.
//
// Default: no spans are created.
func WithTracer(tracer Tracer) Option {
	return func(m *JWTMiddleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}
