package jwtechohandler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jwtguard "github.com/keyward/go-jwt-guard"
	"github.com/keyward/go-jwt-guard/validator"
)

// DefaultClaimsKey is the echo context key claims are stored under when
// WithContextKey is not used.
const DefaultClaimsKey = "jwt"

// ErrorHandler handles validation failures inside the echo context.
type ErrorHandler func(c echo.Context, err error)

type config struct {
	errorHandler   ErrorHandler
	contextKey     string
	tokenExtractor jwtguard.TokenExtractor
}

// New builds an echo middleware that validates tokens with the given
// validator and stores the resulting claims in the echo context.
//
// Validation failures never reach the wrapped handler; the error
// handler writes the response instead.
func New(tokenValidator jwtguard.TokenValidator, opts ...Option) (echo.MiddlewareFunc, error) {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// A bare echo instance bridges (w, r) pairs back into an
	// echo.Context for the error handler.
	bridge := echo.New()

	guardOpts := []jwtguard.Option{
		jwtguard.WithValidator(tokenValidator),
		jwtguard.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			cfg.errorHandler(bridge.NewContext(r, w), err)
		}),
	}
	if cfg.tokenExtractor != nil {
		guardOpts = append(guardOpts, jwtguard.WithTokenExtractor(cfg.tokenExtractor))
	}

	middleware, err := jwtguard.New(guardOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			handled := false

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handled = true
				c.SetRequest(r)

				if claims, err := jwtguard.GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
					c.Set(cfg.contextKey, claims)
				}

				nextErr = next(c)
			})

			middleware.CheckJWT(handler).ServeHTTP(c.Response(), c.Request())

			if !handled {
				// The error handler already wrote the response.
				return nil
			}
			return nextErr
		}
	}, nil
}

func defaultErrorHandler(c echo.Context, err error) {
	_ = c.JSON(http.StatusUnauthorized, map[string]string{
		"message": err.Error(),
	})
}

// GetClaims extracts the validated claims from the echo context. An
// empty contextKey falls back to DefaultClaimsKey.
func GetClaims(c echo.Context, contextKey string) (*validator.ValidatedClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}

	claims, ok := c.Get(contextKey).(*validator.ValidatedClaims)
	return claims, ok
}
