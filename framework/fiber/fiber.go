package jwtfiberhandler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	jwtguard "github.com/keyward/go-jwt-guard"
	"github.com/keyward/go-jwt-guard/validator"
)

// DefaultClaimsKey is the locals key claims are stored under when
// WithContextKey is not used.
const DefaultClaimsKey = "jwt"

// TokenExtractor pulls a raw token out of the fiber context. An empty
// string with a nil error means no token was present.
type TokenExtractor func(c *fiber.Ctx) (string, error)

// ErrorHandler handles validation failures and writes the response. The
// err can be checked against jwtguard.ErrJWTMissing and
// jwtguard.ErrJWTInvalid with errors.Is.
type ErrorHandler func(c *fiber.Ctx, err error) error

type config struct {
	errorHandler        ErrorHandler
	contextKey          string
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	validateOnOptions   bool
}

// New builds a fiber middleware that validates tokens with the given
// validator and stores the resulting claims in the request locals.
//
// Fiber does not speak net/http, so this adapter drives the validator
// directly instead of wrapping CheckJWT; the semantics mirror the
// net/http middleware.
func New(tokenValidator jwtguard.TokenValidator, opts ...Option) (fiber.Handler, error) {
	if tokenValidator == nil {
		return nil, jwtguard.ErrValidatorNil
	}

	cfg := &config{
		errorHandler:      defaultErrorHandler,
		contextKey:        DefaultClaimsKey,
		tokenExtractor:    AuthHeaderTokenExtractor,
		validateOnOptions: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		if !cfg.validateOnOptions && c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		token, err := cfg.tokenExtractor(c)
		if err != nil {
			return cfg.errorHandler(c, fmt.Errorf("error extracting token: %w", err))
		}

		if token == "" {
			if cfg.credentialsOptional {
				return c.Next()
			}
			return cfg.errorHandler(c, jwtguard.ErrJWTMissing)
		}

		claims, err := tokenValidator.ValidateToken(c.UserContext(), token)
		if err != nil {
			return cfg.errorHandler(c, fmt.Errorf("%w: %v", jwtguard.ErrJWTInvalid, err))
		}

		c.Locals(cfg.contextKey, claims)
		return c.Next()
	}, nil
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jwtguard.ErrJWTMissing):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "JWT is missing."})
	case errors.Is(err, jwtguard.ErrJWTInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "JWT is invalid."})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Something went wrong while checking the JWT."})
	}
}

// AuthHeaderTokenExtractor reads a bearer token from the Authorization
// header.
func AuthHeaderTokenExtractor(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", nil
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}

	return parts[1], nil
}

// CookieTokenExtractor builds an extractor reading the token from the
// named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		return c.Cookies(cookieName), nil
	}
}

// ParameterTokenExtractor builds an extractor reading the token from
// the named query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		return c.Query(param), nil
	}
}

// GetClaims extracts the validated claims from the request locals. An
// empty contextKey falls back to DefaultClaimsKey.
func GetClaims(c *fiber.Ctx, contextKey string) (*validator.ValidatedClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}

	claims, ok := c.Locals(contextKey).(*validator.ValidatedClaims)
	return claims, ok
}
