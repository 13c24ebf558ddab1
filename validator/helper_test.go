package validator

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"github.com/keyward/go-jwt-guard/jwks"
)

const (
	testIssuer   = "https://issuer.example.com/"
	testAudience = "my-api"
)

// staticKeys is a KeyProvider backed by a plain map.
type staticKeys map[string]*jwks.KeyInfo

func (s staticKeys) GetKeyInfo(keyID string) (*jwks.KeyInfo, bool) {
	info, ok := s[keyID]
	return info, ok
}

// countingKeys wraps a KeyProvider and counts lookups, so tests can
// tell cached validations from full ones.
type countingKeys struct {
	keys  staticKeys
	calls atomic.Int64
}

func (c *countingKeys) GetKeyInfo(keyID string) (*jwks.KeyInfo, bool) {
	c.calls.Add(1)
	return c.keys.GetKeyInfo(keyID)
}

// testRSAKey generates a signing key and registers its public half with
// the provider under the given key ID.
func testRSAKey(t *testing.T, keys staticKeys, keyID string) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys[keyID] = &jwks.KeyInfo{KeyID: keyID, Key: &key.PublicKey}

	return key
}

func testECDSAKey(t *testing.T, keys staticKeys, keyID string) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	keys[keyID] = &jwks.KeyInfo{KeyID: keyID, Key: &key.PublicKey}

	return key
}

func testEd25519Key(t *testing.T, keys staticKeys, keyID string) ed25519.PrivateKey {
	t.Helper()

	public, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keys[keyID] = &jwks.KeyInfo{KeyID: keyID, Key: public}

	return private
}

// signToken mints a signed token. An empty keyID leaves the kid header
// out entirely.
func signToken(t *testing.T, method jwt.SigningMethod, keyID string, key any, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(method, claims)
	if keyID != "" {
		token.Header["kid"] = keyID
	}

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

// defaultClaims returns claims that pass validation against testIssuer
// and testAudience.
func defaultClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user-1",
		"aud": testAudience,
		"jti": "token-1",
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Add(-time.Minute).Unix(),
	}
}

// newValidator builds a Validator with the usual required options, then
// applies any extras on top.
func newValidator(t *testing.T, provider KeyProvider, opts ...Option) *Validator {
	t.Helper()

	v, err := New(append([]Option{
		WithKeyProvider(provider),
		WithIssuer(testIssuer),
		WithAudience(testAudience),
	}, opts...)...)
	require.NoError(t, err)

	return v
}

// keySetDocument serializes a public key into a JWKS document.
func keySetDocument(t *testing.T, keyID string, publicKey any) []byte {
	t.Helper()

	key, err := jwk.FromRaw(publicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, keyID))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	doc, err := json.Marshal(set)
	require.NoError(t, err)

	return doc
}
