package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

// testKeySetDocument builds a JWKS document containing one RSA public key
// per key ID.
func testKeySetDocument(t *testing.T, kids ...string) []byte {
	t.Helper()

	set := jwk.NewSet()
	for _, kid := range kids {
		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		key, err := jwk.FromRaw(privateKey.Public())
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
		require.NoError(t, set.AddKey(key))
	}

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	return raw
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeFetcher serves a configurable document without a network. When an
// ETag is configured and the caller replays it, the fetcher answers
// not-modified.
type fakeFetcher struct {
	mu    sync.Mutex
	body  []byte
	etag  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, etag string) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return FetchResult{}, f.err
	}
	if f.etag != "" && etag == f.etag {
		return FetchResult{Valid: true, StatusCode: http.StatusNotModified, ETag: etag}, nil
	}
	return FetchResult{
		Valid:      true,
		StatusCode: http.StatusOK,
		ETag:       f.etag,
		Body:       f.body,
	}, nil
}

func (f *fakeFetcher) set(body []byte, etag string) {
	f.mu.Lock()
	f.body = body
	f.etag = etag
	f.mu.Unlock()
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
