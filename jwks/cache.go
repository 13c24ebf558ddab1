package jwks

import (
	"bytes"
	"container/list"
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadOutcome classifies how a cache load was satisfied.
type LoadOutcome int

const (
	// OutcomeFresh means new content was fetched and parsed.
	OutcomeFresh LoadOutcome = iota

	// OutcomeUnchanged means the cached content is still current: the
	// entry had not expired, the source answered not-modified, or the
	// fetched bytes matched the cached ones.
	OutcomeUnchanged

	// OutcomeStale means the fetch failed and the last valid content is
	// being served instead.
	OutcomeStale

	// OutcomeEmpty means the fetch failed and there is no valid content
	// to fall back to. The returned key set is empty, not nil, so the
	// caller can distinguish "no keys yet" from a propagated error.
	OutcomeEmpty
)

// String returns a stable lowercase name for the outcome.
func (o LoadOutcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeStale:
		return "stale"
	default:
		return "empty"
	}
}

// Adaptive expiry bounds: a source whose recent hit ratio stays at or above
// adaptHitRatio earns a longer effective TTL, stepping up by adaptStep per
// exhausted window and capped at maxExpiryFactor times the refresh
// interval. A weaker window resets the factor to the configured floor.
const (
	adaptHitRatio   = 0.8
	adaptStep       = 0.5
	maxExpiryFactor = 2.0
)

// expiryPolicy carries one loader's expiry parameters into the shared
// cache. Each entry still adapts independently.
type expiryPolicy struct {
	interval time.Duration
	window   int
	floor    float64
}

// Cache is a bounded content cache for key set documents, keyed by source
// identity. Multiple loaders may share one Cache so that several issuers
// in one process stay within a single memory bound; every loader gets its
// own private Cache unless one is supplied via WithSharedCache.
//
// A Cache deduplicates concurrent fetches per source, falls back to the
// last valid content when a fetch fails, and adapts each entry's effective
// TTL to its recent hit ratio.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	max     int
	group   singleflight.Group
	clock   clock
}

type cacheEntry struct {
	key       string
	set       *KeySet
	etag      string
	expiresAt time.Time
	factor    float64
	accesses  int
	hits      int
}

type loadResult struct {
	set     *KeySet
	outcome LoadOutcome
	err     error
}

// NewCache returns a Cache bounded to maxSize entries; zero or negative
// selects the default size.
func NewCache(maxSize int) *Cache {
	return newCache(maxSize, systemClock{})
}

func newCache(maxSize int, clk clock) *Cache {
	if maxSize <= 0 {
		maxSize = defaultMaxCacheSize
	}
	return &Cache{
		entries: map[string]*list.Element{},
		lru:     list.New(),
		max:     maxSize,
		clock:   clk,
	}
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// get loads the key set for the given source, fetching through f only when
// the cached entry is missing or expired. The error, when non-nil,
// explains a stale or empty outcome; the returned key set is always
// non-nil.
func (c *Cache) get(ctx context.Context, key string, pol expiryPolicy, f Fetcher) (*KeySet, LoadOutcome, error) {
	c.mu.Lock()
	e := c.touch(key, pol)
	e.accesses++
	if e.set != nil && c.clock.Now().Before(e.expiresAt) {
		e.hits++
		c.adapt(e, pol)
		set := e.set
		c.mu.Unlock()
		return set, OutcomeUnchanged, nil
	}
	c.adapt(e, pol)
	c.mu.Unlock()

	v, _, _ := c.group.Do(key, func() (any, error) {
		return c.refresh(ctx, key, pol, f), nil
	})
	res := v.(loadResult)
	return res.set, res.outcome, res.err
}

// refresh performs the network round trip for one source. It runs inside
// the flight group, so at most one refresh per source is in flight at a
// time regardless of how many loaders share the cache.
func (c *Cache) refresh(ctx context.Context, key string, pol expiryPolicy, f Fetcher) loadResult {
	c.mu.Lock()
	e := c.touch(key, pol)
	if e.set != nil && c.clock.Now().Before(e.expiresAt) {
		// Refreshed by the flight we piggybacked on.
		set := e.set
		c.mu.Unlock()
		return loadResult{set: set, outcome: OutcomeUnchanged}
	}
	etag := e.etag
	c.mu.Unlock()

	res, err := f.Fetch(ctx, etag)

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.touch(key, pol)
	now := c.clock.Now()

	if err != nil || !res.Valid {
		if err == nil {
			err = fmt.Errorf("key set fetch for %q produced no usable result", key)
		}
		return c.fallback(e, err)
	}

	if res.StatusCode == http.StatusNotModified {
		if e.set == nil {
			return c.fallback(e, fmt.Errorf("source %q reported not modified but nothing is cached", key))
		}
		e.expiresAt = now.Add(c.ttl(e, pol))
		return loadResult{set: e.set, outcome: OutcomeUnchanged}
	}

	if e.set != nil && bytes.Equal(res.Body, e.set.raw) {
		e.etag = res.ETag
		e.expiresAt = now.Add(c.ttl(e, pol))
		return loadResult{set: e.set, outcome: OutcomeUnchanged}
	}

	set, err := ParseKeySet(res.Body)
	if err != nil {
		return c.fallback(e, err)
	}

	e.set = set
	e.etag = res.ETag
	e.expiresAt = now.Add(c.ttl(e, pol))
	return loadResult{set: set, outcome: OutcomeFresh}
}

// fallback resolves a failed refresh: the last valid non-empty content if
// any, otherwise the canonical empty set. The entry's expiry is left
// untouched so the next access retries the source.
func (c *Cache) fallback(e *cacheEntry, err error) loadResult {
	if e.set != nil && e.set.Len() > 0 {
		return loadResult{set: e.set, outcome: OutcomeStale, err: err}
	}
	return loadResult{set: EmptyKeySet(), outcome: OutcomeEmpty, err: err}
}

// touch returns the entry for key, creating it and evicting the least
// recently used entry as needed. Callers must hold c.mu.
func (c *Cache) touch(key string, pol expiryPolicy) *cacheEntry {
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*cacheEntry)
	}

	e := &cacheEntry{key: key, factor: pol.floor}
	c.entries[key] = c.lru.PushFront(e)
	for c.lru.Len() > c.max {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return e
}

// adapt advances the entry's rolling access window and, once the window is
// exhausted, adjusts the expiry factor from the observed hit ratio.
// Callers must hold c.mu.
func (c *Cache) adapt(e *cacheEntry, pol expiryPolicy) {
	if pol.window <= 0 || e.accesses < pol.window {
		return
	}

	if float64(e.hits)/float64(e.accesses) >= adaptHitRatio {
		e.factor = math.Min(e.factor+adaptStep, maxExpiryFactor)
	} else {
		e.factor = pol.floor
	}
	e.accesses, e.hits = 0, 0
}

func (c *Cache) ttl(e *cacheEntry, pol expiryPolicy) time.Duration {
	return time.Duration(float64(pol.interval) * e.factor)
}
