/*
Package validator verifies JWTs against the keys of a jwks.Loader and
validates their claims.

It implements the TokenValidator contract required by the middleware:
signature verification through golang-jwt/jwt/v5, registered claims
validation with clock-skew tolerance, and an optional custom-claims hook.

# Basic Usage

	import (
	    "github.com/keyward/go-jwt-guard/jwks"
	    "github.com/keyward/go-jwt-guard/validator"
	)

	loader, err := jwks.New(
	    jwks.WithIssuerURL("https://auth.example.com/"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	loader.InitializeAndWait(ctx, nil)

	v, err := validator.New(
	    validator.WithKeyProvider(loader),
	    validator.WithIssuer("https://auth.example.com/"),
	    validator.WithAudience("my-api"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.ValidateToken(ctx, tokenString)
	if err != nil {
	    // Token invalid
	}
	validatedClaims := claims.(*validator.ValidatedClaims)

The exp claim is required and, along with nbf and iat, validated
automatically.

# Key Resolution

Keys are resolved by the token's kid header through a KeyProvider.
Tokens without a kid header are rejected: with rotating key sets there
is no safe way to pick a key for them. A *jwks.Loader is the usual
provider; anything that can map a key ID to a public key works:

	type staticKeys map[string]*jwks.KeyInfo

	func (s staticKeys) GetKeyInfo(keyID string) (*jwks.KeyInfo, bool) {
	    info, ok := s[keyID]
	    return info, ok
	}

# Signature Algorithms

Only asymmetric algorithms are supported, because key set documents
carry public keys: RS256/RS384/RS512, PS256/PS384/PS512,
ES256/ES384/ES512 and EdDSA. The allow-list defaults to RS256; widen it
with WithAlgorithms:

	v, err := validator.New(
	    validator.WithKeyProvider(loader),
	    validator.WithIssuer("https://auth.example.com/"),
	    validator.WithAudience("my-api"),
	    validator.WithAlgorithms(validator.RS256, validator.ES256),
	)

# Custom Claims

	type MyCustomClaims struct {
	    Scope string `json:"scope"`
	}

	func (c *MyCustomClaims) Validate(ctx context.Context) error {
	    if c.Scope == "" {
	        return errors.New("scope is required")
	    }
	    return nil
	}

	v, err := validator.New(
	    validator.WithKeyProvider(loader),
	    validator.WithIssuer("https://auth.example.com/"),
	    validator.WithAudience("my-api"),
	    validator.WithCustomClaims(func() validator.CustomClaims {
	        return &MyCustomClaims{}
	    }),
	)

	claims, _ := v.ValidateToken(ctx, tokenString)
	validatedClaims := claims.(*validator.ValidatedClaims)
	customClaims := validatedClaims.CustomClaims.(*MyCustomClaims)
	fmt.Println(customClaims.Scope)

# Result Cache

High-traffic services often see the same token on every request of a
session. WithResultCache keeps successful validations in an in-process
ristretto cache so repeated tokens skip signature verification:

	v, err := validator.New(
	    validator.WithKeyProvider(loader),
	    validator.WithIssuer("https://auth.example.com/"),
	    validator.WithAudience("my-api"),
	    validator.WithResultCache(10_000, 5*time.Minute),
	)

Entries are keyed by the token's SHA-256 digest and expire at the
token's exp claim or after the configured TTL, whichever comes first.
Failed validations are never cached.

# Thread Safety

The Validator is immutable after creation and safe for concurrent use.
*/
package validator
