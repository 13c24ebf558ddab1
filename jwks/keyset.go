package jwks

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// ErrInvalidDocument marks parse failures of a key set document, so
// callers can tell broken content apart from transport failures.
var ErrInvalidDocument = errors.New("invalid key set document")

// KeyInfo is one usable verification key from a key set document.
type KeyInfo struct {
	// KeyID is the key's "kid" value. Keys without a key ID are not
	// represented; they cannot be selected by a token header.
	KeyID string

	// Algorithm is the key's advertised "alg" value, empty when the
	// document does not pin one.
	Algorithm string

	// Key is the raw public key, one of *rsa.PublicKey, *ecdsa.PublicKey
	// or ed25519.PublicKey.
	Key any
}

// KeySet is the immutable result of parsing one key set document. A KeySet
// is never modified after ParseKeySet returns it, so it may be shared
// freely across goroutines.
type KeySet struct {
	keys    map[string]*KeyInfo
	order   []string
	skipped []string
	raw     []byte
}

var emptyKeySet = &KeySet{keys: map[string]*KeyInfo{}}

// EmptyKeySet returns the canonical empty key set. It is used in place of
// nil when a source yields nothing usable, so callers can always call
// KeySet methods on a load result.
func EmptyKeySet() *KeySet {
	return emptyKeySet
}

// ParseKeySet parses a JWKS document into a KeySet.
//
// Individual keys that are unusable, because they are not an RSA, EC or
// Ed25519 public key, carry no key ID, or fail to materialize, are skipped
// rather than failing the whole document; their key IDs are reported by
// SkippedKeyIDs. Only a structurally invalid document returns an error.
func ParseKeySet(raw []byte) (*KeySet, error) {
	parsed, err := jwk.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	set := &KeySet{
		keys: make(map[string]*KeyInfo, parsed.Len()),
		raw:  raw,
	}

	for i := 0; i < parsed.Len(); i++ {
		key, _ := parsed.Key(i)

		kid := key.KeyID()
		if kid == "" {
			set.skipped = append(set.skipped, "<no kid>")
			continue
		}

		var rawKey any
		if err := key.Raw(&rawKey); err != nil {
			set.skipped = append(set.skipped, kid)
			continue
		}

		switch rawKey.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		default:
			set.skipped = append(set.skipped, kid)
			continue
		}

		if _, dup := set.keys[kid]; dup {
			continue
		}

		alg := ""
		if a := key.Algorithm(); a != nil {
			alg = a.String()
		}

		set.keys[kid] = &KeyInfo{
			KeyID:     kid,
			Algorithm: alg,
			Key:       rawKey,
		}
		set.order = append(set.order, kid)
	}

	return set, nil
}

// Key returns the key with the given ID, if present.
func (s *KeySet) Key(keyID string) (*KeyInfo, bool) {
	if s == nil {
		return nil, false
	}
	info, ok := s.keys[keyID]
	return info, ok
}

// Len returns the number of usable keys in the set.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// KeyIDs returns the usable key IDs in document order.
func (s *KeySet) KeyIDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SkippedKeyIDs returns the IDs of keys the parser had to skip.
func (s *KeySet) SkippedKeyIDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Equal reports whether both sets were parsed from byte-identical
// documents. Comparing the raw bytes makes rotation detection cheap and
// independent of key order normalization.
func (s *KeySet) Equal(o *KeySet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return bytes.Equal(s.raw, o.raw)
}
