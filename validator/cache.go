package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// resultCache remembers successful validations so repeated requests
// with the same token skip signature verification. Entries never
// outlive the token's exp claim.
type resultCache struct {
	store  *ristretto.Cache
	maxTTL time.Duration
}

func newResultCache(maxEntries int64, maxTTL time.Duration) (*resultCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create the result cache: %w", err)
	}
	return &resultCache{store: store, maxTTL: maxTTL}, nil
}

func (c *resultCache) get(token string) (*ValidatedClaims, bool) {
	value, ok := c.store.Get(cacheKey(token))
	if !ok {
		return nil, false
	}
	claims, ok := value.(*ValidatedClaims)
	return claims, ok
}

func (c *resultCache) put(token string, claims *ValidatedClaims, expiry time.Time) {
	ttl := c.maxTTL
	if !expiry.IsZero() {
		if remaining := time.Until(expiry); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}
	c.store.SetWithTTL(cacheKey(token), claims, 1, ttl)
}

// wait flushes pending writes. Tests use it to make hits deterministic.
func (c *resultCache) wait() {
	c.store.Wait()
}

// Tokens are secrets; only their digest is ever used as a key.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
