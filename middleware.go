package jwtguard

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TokenValidator validates a raw token string and returns the validated
// claims. It is implemented by *validator.Validator; any implementation
// with the same method works.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// ExclusionURLHandler reports whether a request should skip token
// validation entirely.
type ExclusionURLHandler func(r *http.Request) bool

// JWTMiddleware validates JWTs on incoming requests and stores the
// resulting claims in the request context. Instances are immutable after
// New and safe for concurrent use.
type JWTMiddleware struct {
	validator           TokenValidator
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	validateOnOptions   bool
	exclusionHandler    ExclusionURLHandler
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// New constructs a new JWTMiddleware instance with the supplied options.
// WithValidator is required; everything else has defaults.
//
//	middleware, err := jwtguard.New(
//	    jwtguard.WithValidator(jwtValidator),
//	    jwtguard.WithCredentialsOptional(false),
//	)
func New(opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		errorHandler:      DefaultErrorHandler,
		tokenExtractor:    AuthHeaderTokenExtractor,
		validateOnOptions: true,
		logger:            NoopLogger{},
		metrics:           &NoopMetrics{},
		tracer:            &NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.validator == nil {
		return nil, ErrValidatorNil
	}

	return m, nil
}

// CheckJWT wraps next so the request only reaches it with a validated
// token, or without one when credentials are optional or the request is
// excluded. Validated claims are stored in the request context and
// retrievable with GetClaims.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionHandler != nil && m.exclusionHandler(r) {
			m.logger.Debugf("skipping token validation for excluded %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		// If we don't validate on OPTIONS and this is OPTIONS then
		// continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			// This is not ErrJWTMissing because an error here means that
			// the tokenExtractor had an error and _not_ that the token
			// was missing.
			m.logger.Errorf("failed to extract token from %s %s: %v", r.Method, r.URL.Path, err)
			m.countValidation("extraction_error")
			m.errorHandler(w, r, fmt.Errorf("error extracting token: %w", err))
			return
		}

		if token == "" {
			if m.credentialsOptional {
				m.logger.Debugf("no credentials on %s %s, continuing without claims", r.Method, r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			m.countValidation("missing")
			m.errorHandler(w, r, ErrJWTMissing)
			return
		}

		ctx, span := m.tracer.StartSpan(r.Context(), "jwtguard.validate")
		start := time.Now()
		claims, err := m.validator.ValidateToken(ctx, token)
		m.metrics.ObserveHistogram(metricValidationDuration, time.Since(start).Seconds(), map[string]string{})
		if err != nil {
			span.SetTag("error", true)
			span.Finish()
			m.logger.Warnf("token validation failed on %s %s: %v", r.Method, r.URL.Path, err)
			m.countValidation("invalid")
			m.errorHandler(w, r, &invalidError{details: err})
			return
		}
		span.Finish()

		m.countValidation("ok")
		r = r.Clone(SetClaims(ctx, claims))
		next.ServeHTTP(w, r)
	})
}

func (m *JWTMiddleware) countValidation(result string) {
	m.metrics.IncCounter(metricValidationTotal, map[string]string{"result": result})
}
