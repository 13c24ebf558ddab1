package jwtginhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	jwtguard "github.com/keyward/go-jwt-guard"
	"github.com/keyward/go-jwt-guard/validator"
)

// DefaultClaimsKey is the gin context key claims are stored under when
// WithContextKey is not used.
const DefaultClaimsKey = "jwt"

var (
	ErrMissingClaims = errors.New("no JWT claims found in context")
	ErrInvalidClaims = errors.New("invalid JWT claims type")
)

// ErrorHandler handles validation failures inside the gin context.
type ErrorHandler func(c *gin.Context, err error)

type config struct {
	errorHandler   ErrorHandler
	contextKey     string
	tokenExtractor jwtguard.TokenExtractor
}

// ginContextKey carries the *gin.Context through the request context so
// the error handler can reply in gin terms.
type ginContextKey struct{}

// New builds a gin middleware that validates tokens with the given
// validator and stores the resulting claims in the gin context.
//
// On a validation failure the error handler writes the response and the
// chain is aborted.
func New(tokenValidator jwtguard.TokenValidator, opts ...Option) (gin.HandlerFunc, error) {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	guardOpts := []jwtguard.Option{
		jwtguard.WithValidator(tokenValidator),
		jwtguard.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			if c, ok := r.Context().Value(ginContextKey{}).(*gin.Context); ok {
				cfg.errorHandler(c, err)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(err.Error()))
		}),
	}
	if cfg.tokenExtractor != nil {
		guardOpts = append(guardOpts, jwtguard.WithTokenExtractor(cfg.tokenExtractor))
	}

	middleware, err := jwtguard.New(guardOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		handled := false

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handled = true
			c.Request = r

			if claims, err := jwtguard.GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
				c.Set(cfg.contextKey, claims)
			}

			c.Next()
		})

		request := c.Request.WithContext(
			context.WithValue(c.Request.Context(), ginContextKey{}, c),
		)
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, request)

		if !handled {
			c.Abort()
		}
	}, nil
}

func defaultErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": err.Error(),
	})
}

// GetClaims extracts the validated claims from the gin context. An
// empty contextKey falls back to DefaultClaimsKey.
func GetClaims(c *gin.Context, contextKey string) (*validator.ValidatedClaims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}

	claims, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return validatedClaims, nil
}
