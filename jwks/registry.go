package jwks

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/keyward/go-jwt-guard/events"
)

// Registry manages one Loader per issuer, created on demand. It is meant
// for multi-tenant processes where the issuer population is dynamic:
// callers ask for an issuer's loader and the registry creates, starts
// and eventually disposes of it.
//
// All created loaders share the registry's content cache, so total
// memory stays bounded regardless of how many issuers come and go.
// When a maximum loader count is configured, the least recently used
// loader is closed and evicted to make room for a new one.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]*registryEntry
	lru     *list.List
	max     int
	closed  bool

	baseOpts []Option
	cache    *Cache
	recorder events.Recorder
}

type registryEntry struct {
	loader  *Loader
	lruElem *list.Element
}

// RegistryOption is how options for the Registry are set up.
type RegistryOption func(*Registry) error

// WithMaxLoaders bounds how many issuer loaders the registry keeps.
// When the bound is hit the least recently used loader is closed and
// evicted. Zero means unlimited. If not specified, defaults to 100.
func WithMaxLoaders(n int) RegistryOption {
	return func(r *Registry) error {
		if n < 0 {
			return fmt.Errorf("max loaders cannot be negative")
		}
		r.max = n
		return nil
	}
}

// WithLoaderOptions sets options applied to every loader the registry
// creates, in addition to the issuer source the registry wires itself.
func WithLoaderOptions(opts ...Option) RegistryOption {
	return func(r *Registry) error {
		r.baseOpts = append(r.baseOpts, opts...)
		return nil
	}
}

// WithRecorder sets the event recorder passed to every loader the
// registry creates.
func WithRecorder(recorder events.Recorder) RegistryOption {
	return func(r *Registry) error {
		if recorder == nil {
			return fmt.Errorf("recorder cannot be nil")
		}
		r.recorder = recorder
		return nil
	}
}

// WithRegistryCache replaces the content cache shared by all loaders the
// registry creates.
func WithRegistryCache(c *Cache) RegistryOption {
	return func(r *Registry) error {
		if c == nil {
			return fmt.Errorf("cache cannot be nil")
		}
		r.cache = c
		return nil
	}
}

// NewRegistry builds and returns a new *Registry.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		loaders:  map[string]*registryEntry{},
		lru:      list.New(),
		max:      defaultMaxCacheSize,
		recorder: events.NoopRecorder{},
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if r.cache == nil {
		r.cache = NewCache(defaultMaxCacheSize)
	}

	return r, nil
}

// LoaderFor returns the loader serving the given issuer, creating and
// starting it on first use. The issuer is used both as the discovery
// source and as the expected issuer identity of the created loader.
func (r *Registry) LoaderFor(ctx context.Context, issuer string) (*Loader, error) {
	r.mu.RLock()
	entry, exists := r.loaders[issuer]
	closed := r.closed
	r.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("registry is closed")
	}
	if exists {
		r.touchEntry(entry)
		return entry.loader, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("registry is closed")
	}

	// Another goroutine may have created it while we waited for the
	// lock.
	if entry, exists = r.loaders[issuer]; exists {
		r.lru.MoveToFront(entry.lruElem)
		return entry.loader, nil
	}

	if r.max > 0 && len(r.loaders) >= r.max {
		r.evictLocked()
	}

	opts := append([]Option{
		WithIssuerURL(issuer),
		WithIssuer(issuer),
		WithSharedCache(r.cache),
	}, r.baseOpts...)

	loader, err := New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create loader for issuer %q: %w", issuer, err)
	}
	loader.Initialize(ctx, r.recorder)

	entry = &registryEntry{loader: loader}
	entry.lruElem = r.lru.PushFront(issuer)
	r.loaders[issuer] = entry

	return loader, nil
}

// GetKeyInfo resolves a key ID against the loader of the given issuer,
// creating the loader on first use. The lookup itself never blocks;
// callers that need the keys to be loaded already should wait on the
// loader's Ready first.
func (r *Registry) GetKeyInfo(ctx context.Context, issuer, keyID string) (*KeyInfo, bool, error) {
	loader, err := r.LoaderFor(ctx, issuer)
	if err != nil {
		return nil, false, err
	}
	info, ok := loader.GetKeyInfo(keyID)
	return info, ok, nil
}

// LoaderCount returns the number of issuer loaders currently alive.
func (r *Registry) LoaderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.loaders)
}

// Close closes every loader and renders the registry unusable.
// It is idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for issuer, entry := range r.loaders {
		_ = entry.loader.Close()
		delete(r.loaders, issuer)
	}
	r.lru.Init()
	return nil
}

// touchEntry moves the entry to the front of the LRU list.
func (r *Registry) touchEntry(entry *registryEntry) {
	r.mu.Lock()
	if entry.lruElem != nil {
		r.lru.MoveToFront(entry.lruElem)
	}
	r.mu.Unlock()
}

// evictLocked closes and removes the least recently used loader.
// Callers must hold the write lock.
func (r *Registry) evictLocked() {
	oldest := r.lru.Back()
	if oldest == nil {
		return
	}

	issuer := oldest.Value.(string)
	if entry, ok := r.loaders[issuer]; ok {
		_ = entry.loader.Close()
		delete(r.loaders, issuer)
	}
	r.lru.Remove(oldest)
}
