package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyward/go-jwt-guard/jwks"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// Key set documents carry public keys, so only asymmetric algorithms
// can be verified.
var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// maxTokenSize caps the raw token length before any parsing happens.
// Real tokens are a few kilobytes at most.
const maxTokenSize = 1024 * 1024

// KeyProvider resolves verification keys by their key ID.
//
// *jwks.Loader satisfies this interface directly; any other source of
// keys can be plugged in the same way.
type KeyProvider interface {
	GetKeyInfo(keyID string) (*jwks.KeyInfo, bool)
}

// Validator verifies JWTs against the keys of a KeyProvider and
// validates their claims. It is safe for concurrent use.
type Validator struct {
	provider     KeyProvider
	issuer       string
	audiences    []string
	algorithms   map[SignatureAlgorithm]bool
	clockSkew    time.Duration
	customClaims func() CustomClaims
	cache        *resultCache
	parser       *jwt.Parser
}

// New sets up a new Validator. WithKeyProvider, WithIssuer and an
// audience option are required; the allowed signature algorithms
// default to RS256.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.provider == nil {
		return nil, errors.New("a key provider is required (use WithKeyProvider)")
	}
	if v.issuer == "" {
		return nil, errors.New("an issuer is required (use WithIssuer)")
	}
	if len(v.audiences) == 0 {
		return nil, errors.New("an audience is required (use WithAudiences)")
	}
	if len(v.algorithms) == 0 {
		v.algorithms = map[SignatureAlgorithm]bool{RS256: true}
	}

	methods := make([]string, 0, len(v.algorithms))
	for alg := range v.algorithms {
		methods = append(methods, string(alg))
	}
	sort.Strings(methods)

	v.parser = jwt.NewParser(
		jwt.WithValidMethods(methods),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	return v, nil
}

// ValidateToken verifies the token's signature against the provider's
// keys and validates its claims. On success it returns a
// *ValidatedClaims, typed as any so the middleware packages can carry
// it without importing this package.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}
	if len(tokenString) > maxTokenSize {
		return nil, errors.New("token exceeds the maximum size")
	}

	if v.cache != nil {
		if claims, ok := v.cache.get(tokenString); ok {
			return claims, nil
		}
	}

	registered := &jwt.RegisteredClaims{}
	if _, err := v.parser.ParseWithClaims(tokenString, registered, v.keyFor); err != nil {
		return nil, fmt.Errorf("failed to validate the token: %w", err)
	}

	if registered.Issuer != v.issuer {
		return nil, fmt.Errorf("expected claims not validated: %w", jwt.ErrTokenInvalidIssuer)
	}
	if !v.audienceAllowed(registered.Audience) {
		return nil, fmt.Errorf("expected claims not validated: %w", jwt.ErrTokenInvalidAudience)
	}

	customClaims, err := v.deserializeCustomClaims(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	validatedClaims := &ValidatedClaims{
		RegisteredClaims: RegisteredClaims{
			Issuer:    registered.Issuer,
			Subject:   registered.Subject,
			Audience:  []string(registered.Audience),
			ID:        registered.ID,
			Expiry:    numericDateToUnixTime(registered.ExpiresAt),
			NotBefore: numericDateToUnixTime(registered.NotBefore),
			IssuedAt:  numericDateToUnixTime(registered.IssuedAt),
		},
		CustomClaims: customClaims,
	}

	if v.cache != nil {
		v.cache.put(tokenString, validatedClaims, registered.ExpiresAt.Time)
	}

	return validatedClaims, nil
}

// keyFor is the keyfunc handed to the parser. The algorithm check here
// backs up the parser's own valid-methods check, so a key is never
// looked up for a token we would reject anyway.
func (v *Validator) keyFor(token *jwt.Token) (any, error) {
	if !v.algorithms[SignatureAlgorithm(token.Method.Alg())] {
		return nil, fmt.Errorf("signing algorithm %q is not allowed", token.Method.Alg())
	}

	keyID, _ := token.Header["kid"].(string)
	if keyID == "" {
		return nil, errors.New("token header is missing the key ID")
	}

	info, ok := v.provider.GetKeyInfo(keyID)
	if !ok {
		return nil, fmt.Errorf("no key found for key ID %q", keyID)
	}
	if info.Algorithm != "" && info.Algorithm != token.Method.Alg() {
		return nil, fmt.Errorf("key %q only signs %q tokens", keyID, info.Algorithm)
	}

	return info.Key, nil
}

func (v *Validator) audienceAllowed(tokenAudience []string) bool {
	for _, expected := range v.audiences {
		for _, actual := range tokenAudience {
			if actual == expected {
				return true
			}
		}
	}
	return false
}

func (v *Validator) deserializeCustomClaims(ctx context.Context, tokenString string) (CustomClaims, error) {
	if v.customClaims == nil {
		return nil, nil
	}
	claims := v.customClaims()
	if claims == nil {
		return nil, nil
	}

	// The token already passed verification, so it has exactly three
	// segments.
	payload, err := v.parser.DecodeSegment(strings.Split(tokenString, ".")[1])
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize token claims: %w", err)
	}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("failed to deserialize token claims: %w", err)
	}

	if err := claims.Validate(ctx); err != nil {
		return nil, fmt.Errorf("custom claims not validated: %w", err)
	}

	return claims, nil
}

func numericDateToUnixTime(date *jwt.NumericDate) int64 {
	if date == nil {
		return 0
	}
	return date.Unix()
}
