package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeyProvider sets the source of verification keys.
// This is a required option.
//
// Pass a *jwks.Loader to verify against a remote key set, or any other
// KeyProvider implementation for local keys.
func WithKeyProvider(provider KeyProvider) Option {
	return func(v *Validator) error {
		if provider == nil {
			return errors.New("key provider cannot be nil")
		}
		v.provider = provider
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss) for token validation.
// This is a required option.
//
// The issuer URL should match the iss claim in the JWT. Tokens with a
// different issuer will be rejected.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuerURL
		return nil
	}
}

// WithAudience sets a single expected audience claim (aud) for token validation.
// This is a required option (use either WithAudience or WithAudiences, not both).
//
// The audience should match one of the aud claims in the JWT. Tokens without
// a matching audience will be rejected.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audiences = []string{audience}
		return nil
	}
}

// WithAudiences sets multiple expected audience claims (aud) for token validation.
// This is a required option (use either WithAudience or WithAudiences, not both).
//
// The token must contain at least one of the specified audiences. Tokens without
// any matching audience will be rejected.
func WithAudiences(audiences []string) Option {
	return func(v *Validator) error {
		if len(audiences) == 0 {
			return errors.New("audiences cannot be empty")
		}
		for i, aud := range audiences {
			if aud == "" {
				return fmt.Errorf("audience at index %d cannot be empty", i)
			}
		}
		v.audiences = audiences
		return nil
	}
}

// WithAlgorithms sets the signature algorithms tokens may use. Tokens
// signed with any other algorithm are rejected before their key is
// looked up. If not set, only RS256 is accepted.
func WithAlgorithms(algorithms ...SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("at least one signature algorithm is required")
		}
		allowed := make(map[SignatureAlgorithm]bool, len(algorithms))
		for _, algorithm := range algorithms {
			if !allowedSigningAlgorithms[algorithm] {
				return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
			}
			allowed[algorithm] = true
		}
		v.algorithms = allowed
		return nil
	}
}

// WithClockSkew sets the allowed clock skew for time-based claims.
//
// This allows for some tolerance when validating exp, nbf, and iat claims
// to account for clock differences between systems. If not set, the default
// is 0 (no clock skew allowed).
func WithClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.clockSkew = skew
		return nil
	}
}

// WithCustomClaims sets a function that returns a CustomClaims object
// for unmarshalling and validation.
//
// The function is called for each token validation to create a new instance
// of custom claims. The Validate method on the custom claims will be called
// after standard claim validation.
func WithCustomClaims(f func() CustomClaims) Option {
	return func(v *Validator) error {
		if f == nil {
			return errors.New("custom claims function cannot be nil")
		}
		v.customClaims = f
		return nil
	}
}

// WithResultCache caches successful validations so hot tokens skip
// signature verification. Entries are evicted at the token's expiry or
// after maxTTL, whichever comes first.
//
// Cache hits return the claims built by the first validation, so a
// custom Validate runs once per token, not once per request.
func WithResultCache(maxEntries int64, maxTTL time.Duration) Option {
	return func(v *Validator) error {
		if maxEntries <= 0 {
			return errors.New("result cache size must be positive")
		}
		if maxTTL <= 0 {
			return errors.New("result cache TTL must be positive")
		}
		cache, err := newResultCache(maxEntries, maxTTL)
		if err != nil {
			return err
		}
		v.cache = cache
		return nil
	}
}
