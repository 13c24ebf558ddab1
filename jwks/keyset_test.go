package jwks

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeySet(t *testing.T) {
	t.Run("It parses RSA, EC and Ed25519 public keys", func(t *testing.T) {
		rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		edPub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		set := jwk.NewSet()
		for kid, raw := range map[string]any{
			"rsa-key": rsaKey.Public(),
			"ec-key":  ecKey.Public(),
			"ed-key":  edPub,
		} {
			key, err := jwk.FromRaw(raw)
			require.NoError(t, err)
			require.NoError(t, key.Set(jwk.KeyIDKey, kid))
			require.NoError(t, set.AddKey(key))
		}
		raw, err := json.Marshal(set)
		require.NoError(t, err)

		parsed, err := ParseKeySet(raw)
		require.NoError(t, err)
		assert.Equal(t, 3, parsed.Len())
		assert.Empty(t, parsed.SkippedKeyIDs())

		info, ok := parsed.Key("rsa-key")
		require.True(t, ok)
		assert.Equal(t, "rsa-key", info.KeyID)
		assert.IsType(t, &rsa.PublicKey{}, info.Key)

		info, ok = parsed.Key("ec-key")
		require.True(t, ok)
		assert.IsType(t, &ecdsa.PublicKey{}, info.Key)

		info, ok = parsed.Key("ed-key")
		require.True(t, ok)
		assert.IsType(t, ed25519.PublicKey{}, info.Key)
	})

	t.Run("It records the advertised algorithm", func(t *testing.T) {
		raw := testKeySetDocument(t, "kid-1")

		parsed, err := ParseKeySet(raw)
		require.NoError(t, err)

		info, ok := parsed.Key("kid-1")
		require.True(t, ok)
		assert.Equal(t, "RS256", info.Algorithm)
	})

	t.Run("It skips keys without a key ID", func(t *testing.T) {
		rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		key, err := jwk.FromRaw(rsaKey.Public())
		require.NoError(t, err)

		set := jwk.NewSet()
		require.NoError(t, set.AddKey(key))
		raw, err := json.Marshal(set)
		require.NoError(t, err)

		parsed, err := ParseKeySet(raw)
		require.NoError(t, err)
		assert.Equal(t, 0, parsed.Len())
		assert.Equal(t, []string{"<no kid>"}, parsed.SkippedKeyIDs())
	})

	t.Run("It skips symmetric keys", func(t *testing.T) {
		symKey, err := jwk.FromRaw([]byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		require.NoError(t, symKey.Set(jwk.KeyIDKey, "sym-key"))

		set := jwk.NewSet()
		require.NoError(t, set.AddKey(symKey))
		raw, err := json.Marshal(set)
		require.NoError(t, err)

		parsed, err := ParseKeySet(raw)
		require.NoError(t, err)
		assert.Equal(t, 0, parsed.Len())
		assert.Equal(t, []string{"sym-key"}, parsed.SkippedKeyIDs())
	})

	t.Run("It keeps the first key when a key ID is duplicated", func(t *testing.T) {
		first, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		second, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		firstKey, err := jwk.FromRaw(first.Public())
		require.NoError(t, err)
		require.NoError(t, firstKey.Set(jwk.KeyIDKey, "dup"))
		secondKey, err := jwk.FromRaw(second.Public())
		require.NoError(t, err)
		require.NoError(t, secondKey.Set(jwk.KeyIDKey, "dup"))

		firstJSON, err := json.Marshal(firstKey)
		require.NoError(t, err)
		secondJSON, err := json.Marshal(secondKey)
		require.NoError(t, err)
		raw := fmt.Sprintf(`{"keys":[%s,%s]}`, firstJSON, secondJSON)

		parsed, err := ParseKeySet([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, 1, parsed.Len())

		info, ok := parsed.Key("dup")
		require.True(t, ok)
		assert.Equal(t, first.Public(), info.Key)
	})

	t.Run("It fails on a malformed document", func(t *testing.T) {
		_, err := ParseKeySet([]byte(`{"keys":`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("It parses a document with no keys", func(t *testing.T) {
		parsed, err := ParseKeySet([]byte(`{"keys":[]}`))
		require.NoError(t, err)
		assert.Equal(t, 0, parsed.Len())
		assert.Empty(t, parsed.KeyIDs())
	})

	t.Run("It reports key IDs in document order", func(t *testing.T) {
		raw := testKeySetDocument(t, "b", "a", "c")

		parsed, err := ParseKeySet(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, parsed.KeyIDs())
	})
}

func TestKeySetEqual(t *testing.T) {
	t.Run("It treats byte-identical documents as equal", func(t *testing.T) {
		raw := testKeySetDocument(t, "kid-1")

		first, err := ParseKeySet(raw)
		require.NoError(t, err)
		second, err := ParseKeySet(raw)
		require.NoError(t, err)

		assert.True(t, first.Equal(second))
		assert.True(t, second.Equal(first))
	})

	t.Run("It treats different documents as different", func(t *testing.T) {
		first, err := ParseKeySet(testKeySetDocument(t, "kid-1"))
		require.NoError(t, err)
		second, err := ParseKeySet(testKeySetDocument(t, "kid-2"))
		require.NoError(t, err)

		assert.False(t, first.Equal(second))
	})

	t.Run("It handles nil receivers and arguments", func(t *testing.T) {
		set, err := ParseKeySet(testKeySetDocument(t, "kid-1"))
		require.NoError(t, err)

		var nilSet *KeySet
		assert.True(t, nilSet.Equal(nil))
		assert.False(t, nilSet.Equal(set))
		assert.False(t, set.Equal(nil))
	})
}

func TestEmptyKeySet(t *testing.T) {
	t.Run("It is empty and stable", func(t *testing.T) {
		set := EmptyKeySet()
		assert.Equal(t, 0, set.Len())
		assert.Same(t, set, EmptyKeySet())

		_, ok := set.Key("anything")
		assert.False(t, ok)
	})
}
