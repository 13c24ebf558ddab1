package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(interval time.Duration, window int) expiryPolicy {
	return expiryPolicy{interval: interval, window: window, floor: 0.8}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	pol := testPolicy(10*time.Minute, 10)

	t.Run("It fetches and parses on first access", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		set, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFresh, outcome)
		assert.Equal(t, 1, set.Len())
		assert.Equal(t, 1, fetcher.callCount())
	})

	t.Run("It serves unexpired content without a network call", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		clk.Advance(time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		assert.Equal(t, OutcomeUnchanged, outcome)
		assert.Same(t, first, second)
		assert.Equal(t, 1, fetcher.callCount())
	})

	t.Run("It revalidates with the stored ETag after expiry", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), `"v1"`)

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		// 80% of 10 minutes.
		clk.Advance(9 * time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		assert.Equal(t, OutcomeUnchanged, outcome)
		assert.Same(t, first, second, "a not-modified answer must keep the cached instance")
		assert.Equal(t, 2, fetcher.callCount())
	})

	t.Run("It reuses the cached instance when refetched bytes are identical", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		clk.Advance(9 * time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		assert.Equal(t, OutcomeUnchanged, outcome)
		assert.Same(t, first, second)
		assert.Equal(t, 2, fetcher.callCount())
	})

	t.Run("It replaces content when the document changes", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		fetcher.set(testKeySetDocument(t, "kid-2"), "")
		clk.Advance(9 * time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		assert.Equal(t, OutcomeFresh, outcome)
		assert.NotSame(t, first, second)
		_, ok := second.Key("kid-2")
		assert.True(t, ok)
	})

	t.Run("It falls back to the last valid content when the fetch fails", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		fetcher.fail(errors.New("connection refused"))
		clk.Advance(9 * time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)

		assert.Equal(t, OutcomeStale, outcome)
		assert.Same(t, first, second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("It returns an explicit empty set when nothing was ever loaded", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.fail(errors.New("connection refused"))

		set, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)

		assert.Equal(t, OutcomeEmpty, outcome)
		require.NotNil(t, set)
		assert.Equal(t, 0, set.Len())
		require.Error(t, err)
	})

	t.Run("It keeps serving the last valid content when new content is malformed", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		first, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)

		fetcher.set([]byte(`{"keys":`), "")
		clk.Advance(9 * time.Minute)
		second, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)

		assert.Equal(t, OutcomeStale, outcome)
		assert.Same(t, first, second)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("It treats a not-modified answer with an empty cache as a failure", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		fetcher := &notModifiedFetcher{}

		set, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)

		assert.Equal(t, OutcomeEmpty, outcome)
		assert.Equal(t, 0, set.Len())
		require.Error(t, err)
	})

	t.Run("It evicts the least recently used source beyond the size bound", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(2, clk)

		fetchers := map[string]*fakeFetcher{}
		for i := 0; i < 3; i++ {
			key := fmt.Sprintf("https://issuer-%d/jwks", i)
			fetcher := &fakeFetcher{}
			fetcher.set(testKeySetDocument(t, fmt.Sprintf("kid-%d", i)), "")
			fetchers[key] = fetcher

			_, _, err := cache.get(ctx, key, pol, fetcher)
			require.NoError(t, err)
		}

		assert.Equal(t, 2, cache.Len())

		// Source 0 was evicted, so accessing it again goes to the
		// network even though nothing expired.
		_, _, err := cache.get(ctx, "https://issuer-0/jwks", pol, fetchers["https://issuer-0/jwks"])
		require.NoError(t, err)
		assert.Equal(t, 2, fetchers["https://issuer-0/jwks"].callCount())
	})
}

func TestCacheAdaptiveExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("It grants a longer TTL after a window of hits", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		pol := testPolicy(10*time.Minute, 3)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		// First window carries the initial miss, so its ratio resets
		// the factor to the floor.
		for i := 0; i < 3; i++ {
			_, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
			require.NoError(t, err)
			clk.Advance(time.Second)
		}

		// Second window is all hits, which raises the expiry factor
		// from 0.8 to 1.3.
		for i := 0; i < 3; i++ {
			_, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
			require.NoError(t, err)
			clk.Advance(time.Second)
		}
		require.Equal(t, 1, fetcher.callCount())

		// Expire the entry and refresh it; the raised factor now
		// stretches the new TTL to 13 minutes.
		clk.Advance(9 * time.Minute)
		_, outcome, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)
		require.Equal(t, OutcomeUnchanged, outcome)
		require.Equal(t, 2, fetcher.callCount())

		// Nine minutes would exceed the floor TTL of eight, but stays
		// inside the stretched one.
		clk.Advance(9 * time.Minute)
		_, outcome, err = cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnchanged, outcome)
		assert.Equal(t, 2, fetcher.callCount(), "a stretched TTL must avoid the network")
	})

	t.Run("It resets the factor after a weak window", func(t *testing.T) {
		clk := newFakeClock()
		cache := newCache(10, clk)
		pol := testPolicy(10*time.Minute, 2)
		fetcher := &fakeFetcher{}
		fetcher.set(testKeySetDocument(t, "kid-1"), "")

		// Two all-hit windows after the initial one push the factor to
		// 1.8.
		for i := 0; i < 6; i++ {
			_, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
			require.NoError(t, err)
			clk.Advance(time.Second)
		}

		// A window of misses drags the ratio down and resets the
		// factor to the floor.
		fetcher.fail(errors.New("outage"))
		clk.Advance(time.Hour)
		for i := 0; i < 2; i++ {
			_, outcome, _ := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
			require.Equal(t, OutcomeStale, outcome)
		}
		fetcher.fail(nil)

		// The next refresh gets the floor TTL of eight minutes again:
		// nine minutes later the entry is expired.
		_, _, err := cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)
		calls := fetcher.callCount()

		clk.Advance(9 * time.Minute)
		_, _, err = cache.get(ctx, "https://issuer/jwks", pol, fetcher)
		require.NoError(t, err)
		assert.Equal(t, calls+1, fetcher.callCount(), "the floor TTL must be back in force")
	})
}

func TestCacheFetchDeduplication(t *testing.T) {
	t.Run("It performs one fetch for concurrent accesses to one source", func(t *testing.T) {
		cache := newCache(10, newFakeClock())
		pol := testPolicy(10*time.Minute, 10)

		fetcher := &gateFetcher{
			release: make(chan struct{}),
			body:    testKeySetDocument(t, "kid-1"),
		}

		var wg sync.WaitGroup
		results := make([]*KeySet, 8)
		for i := 0; i < len(results); i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				set, _, err := cache.get(context.Background(), "https://issuer/jwks", pol, fetcher)
				assert.NoError(t, err)
				results[i] = set
			}(i)
		}

		// Give the flight leader a moment to enter, then let it finish.
		time.Sleep(50 * time.Millisecond)
		close(fetcher.release)
		wg.Wait()

		assert.Equal(t, 1, fetcher.callCount())
		for _, set := range results {
			assert.Same(t, results[0], set)
		}
	})
}

// notModifiedFetcher always claims the caller's cache is current.
type notModifiedFetcher struct{}

func (notModifiedFetcher) Fetch(context.Context, string) (FetchResult, error) {
	return FetchResult{Valid: true, StatusCode: http.StatusNotModified}, nil
}

// gateFetcher blocks every fetch until released.
type gateFetcher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	body    []byte
}

func (g *gateFetcher) Fetch(context.Context, string) (FetchResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	<-g.release
	return FetchResult{Valid: true, StatusCode: http.StatusOK, Body: g.body}, nil
}

func (g *gateFetcher) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
