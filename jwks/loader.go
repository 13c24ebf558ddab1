package jwks

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keyward/go-jwt-guard/events"
	"github.com/keyward/go-jwt-guard/internal/oidc"
)

// resolvedSource is the outcome of source resolution: where key set
// documents are fetched from and which issuer they belong to.
type resolvedSource struct {
	jwksURL string
	issuer  string
	fetcher Fetcher
}

// Loader loads and serves the verification keys of one issuer.
//
// A Loader is configured with either a direct key set URL or a discovery
// source, started once with Initialize, and then queried with GetKeyInfo
// from any number of goroutines. Key lookups never touch the network;
// they are answered from the active key set and, within the rotation
// grace period, from retired ones.
type Loader struct {
	jwksURL           string
	issuerURL         *url.URL
	discoveryURL      string
	issuer            string
	httpClient        *http.Client
	tlsConfig         *tls.Config
	fetcher           Fetcher
	refreshInterval   time.Duration
	rotationGrace     time.Duration
	maxRetired        int
	cacheSize         int
	adaptiveWindow    int
	refreshPercentage int
	logger            Logger
	clock             clock
	cache             *Cache

	recorder events.Recorder
	rotation *keyRotation
	status   atomic.Int32

	resolved  atomic.Pointer[resolvedSource]
	resolveMu sync.Mutex

	refreshMu sync.Mutex
	initOnce  sync.Once
	closed    atomic.Bool

	ready     chan struct{}
	readyOnce sync.Once

	lifeMu   sync.Mutex
	bgCancel context.CancelFunc
	bgDone   chan struct{}
}

// New builds and returns a new *Loader.
//
// Exactly one source option is required: WithJWKSURL, WithIssuerURL or
// WithDiscoveryURL. Everything else has defaults; see the individual
// options.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		refreshInterval:   defaultRefreshInterval,
		rotationGrace:     defaultRotationGrace,
		maxRetired:        defaultMaxRetired,
		cacheSize:         defaultMaxCacheSize,
		adaptiveWindow:    defaultAdaptiveWindow,
		refreshPercentage: defaultRefreshPercentage,
		logger:            nopLogger{},
		clock:             systemClock{},
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	sources := 0
	if l.jwksURL != "" {
		sources++
	}
	if l.issuerURL != nil {
		sources++
	}
	if l.discoveryURL != "" {
		sources++
	}
	switch {
	case sources == 0:
		return nil, fmt.Errorf("a key source is required (use WithJWKSURL, WithIssuerURL or WithDiscoveryURL)")
	case sources > 1:
		return nil, fmt.Errorf("only one key source may be configured")
	}

	if l.httpClient == nil {
		l.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if l.tlsConfig != nil {
		cloned := *l.httpClient
		cloned.Transport = &http.Transport{TLSClientConfig: l.tlsConfig}
		l.httpClient = &cloned
	}
	if l.cache == nil {
		l.cache = newCache(l.cacheSize, l.clock)
	}

	l.recorder = events.NoopRecorder{}
	l.rotation = newKeyRotation(l.rotationGrace, l.maxRetired, l.clock)
	l.ready = make(chan struct{})

	return l, nil
}

// Initialize starts the loader and returns a buffered channel delivering
// the status the initial load settles on, so callers may wait for it or
// ignore it. With background refresh enabled the refresh task starts
// right away, independent of the initial load's outcome, which lets a
// failed initial load recover on a later run.
//
// The recorder receives security-relevant events from then on; nil keeps
// the current one. Initialize is idempotent: repeated calls start
// nothing and the returned channel carries the current status.
func (l *Loader) Initialize(ctx context.Context, recorder events.Recorder) <-chan LoaderStatus {
	ch := make(chan LoaderStatus, 1)

	started := false
	l.initOnce.Do(func() {
		l.lifeMu.Lock()
		if l.closed.Load() {
			l.lifeMu.Unlock()
			return
		}
		started = true
		if recorder != nil {
			l.recorder = recorder
		}
		l.setStatus(StatusLoading)
		l.startBackgroundRefresh()
		l.lifeMu.Unlock()

		go func() {
			status := l.initialLoad(ctx)
			l.readyOnce.Do(func() { close(l.ready) })
			ch <- status
		}()
	})

	if !started {
		ch <- l.Status()
	}
	return ch
}

// InitializeAndWait is the synchronous variant of Initialize. It blocks
// until the initial load settles or ctx is done, and returns the loader
// status at that point.
func (l *Loader) InitializeAndWait(ctx context.Context, recorder events.Recorder) LoaderStatus {
	l.Initialize(ctx, recorder)
	return l.Ready(ctx)
}

// Ready blocks until the initial load has settled, the loader is closed,
// or ctx is done, and returns the status at that point. Unlike the
// channel from Initialize, Ready reports the settled status to any
// number of callers.
func (l *Loader) Ready(ctx context.Context) LoaderStatus {
	select {
	case <-l.ready:
	case <-ctx.Done():
	}
	return l.Status()
}

// GetKeyInfo resolves a key ID against the active key set first and then,
// newest first, against retired sets still inside the rotation grace
// period. It never blocks on the network.
func (l *Loader) GetKeyInfo(keyID string) (*KeyInfo, bool) {
	return l.rotation.lookup(keyID)
}

// Status returns the loader's current lifecycle status.
func (l *Loader) Status() LoaderStatus {
	return LoaderStatus(l.status.Load())
}

// IssuerIdentifier reports the issuer this loader serves keys for: the
// configured issuer when one was given, otherwise the issuer learned from
// the discovery document once resolution has happened.
func (l *Loader) IssuerIdentifier() (string, bool) {
	if l.issuer != "" {
		return l.issuer, true
	}
	if rs := l.resolved.Load(); rs != nil && rs.issuer != "" {
		return rs.issuer, true
	}
	return "", false
}

// ActiveKeySet returns the currently active key set, nil before the first
// successful load.
func (l *Loader) ActiveKeySet() *KeySet {
	return l.rotation.active()
}

// RetiredKeySets returns a snapshot of the retired key sets still inside
// the rotation grace period, newest first.
func (l *Loader) RetiredKeySets() []RetiredKeySet {
	return l.rotation.snapshot()
}

// Close cancels the background refresh without waiting for an in-flight
// run, drops the active and retired key sets and resets the status. A
// closed loader stays closed; Close is idempotent.
func (l *Loader) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.lifeMu.Lock()
	cancel := l.bgCancel
	l.lifeMu.Unlock()
	if cancel != nil {
		cancel()
	}

	l.rotation.clear()
	l.setStatus(StatusUndefined)
	l.readyOnce.Do(func() { close(l.ready) })
	return nil
}

func (l *Loader) setStatus(s LoaderStatus) {
	l.status.Store(int32(s))
}

// initialLoad resolves the source and performs the first fetch. Source
// resolution failures are terminal; fetch failures stay retryable as long
// as background refresh is enabled.
func (l *Loader) initialLoad(ctx context.Context) LoaderStatus {
	if _, err := l.resolveSource(ctx); err != nil {
		l.logger.Errorf("key source resolution failed for %q: %v", l.sourceHint(), err)
		l.record(events.KindFetchFailed)
		if l.closed.Load() {
			return StatusUndefined
		}
		l.setStatus(StatusError)
		return StatusError
	}

	outcome := l.runRefresh(ctx, true)

	status := StatusOK
	if outcome == OutcomeEmpty {
		if l.refreshInterval > 0 {
			status = StatusUndefined
		} else {
			status = StatusError
		}
	}

	if l.closed.Load() {
		return StatusUndefined
	}
	l.setStatus(status)
	return status
}

// refreshTick runs one background refresh. Successful runs may upgrade
// the status to OK; failed ones leave it untouched, so a healthy loader
// never degrades because of a transient outage.
func (l *Loader) refreshTick(ctx context.Context) {
	switch l.runRefresh(ctx, false) {
	case OutcomeFresh, OutcomeUnchanged, OutcomeStale:
		if !l.closed.Load() {
			l.setStatus(StatusOK)
		}
	}
}

// runRefresh performs one load-and-commit cycle through the cache. Only
// one cycle runs at a time per loader; rotation commits are never
// concurrent with themselves.
func (l *Loader) runRefresh(ctx context.Context, initial bool) LoadOutcome {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	if l.closed.Load() {
		return OutcomeEmpty
	}

	rs, err := l.resolveSource(ctx)
	if err != nil {
		// Only reachable from ticks retrying a failed resolution;
		// the initial load reports resolution failures itself.
		l.logger.Warnf("key source resolution failed for %q: %v", l.sourceHint(), err)
		l.record(events.KindFetchFailed)
		return OutcomeEmpty
	}

	set, outcome, err := l.cache.get(ctx, rs.jwksURL, l.policy(), rs.fetcher)

	switch outcome {
	case OutcomeStale:
		l.logger.Warnf("key set refresh failed for issuer %q, serving cached keys: %v", rs.issuer, err)
		l.record(events.KindStaleKeysServed)
	case OutcomeEmpty:
		l.logger.Warnf("key set refresh failed for issuer %q and no cached keys are available: %v", rs.issuer, err)
		if errors.Is(err, ErrInvalidDocument) {
			l.record(events.KindDocumentInvalid)
		} else {
			l.record(events.KindFetchFailed)
		}
		return outcome
	}

	if outcome == OutcomeFresh {
		if skipped := set.SkippedKeyIDs(); len(skipped) > 0 {
			l.logger.Warnf("skipped %d unusable keys for issuer %q: %v", len(skipped), rs.issuer, skipped)
		}
	}

	if l.closed.Load() {
		return OutcomeEmpty
	}

	first := l.rotation.active() == nil
	if rotated := l.rotation.commit(set); rotated {
		l.logger.Infof("key set rotated for issuer %q, now serving %d keys", rs.issuer, set.Len())
		l.record(events.KindKeySetRotated)
	} else if first {
		l.logger.Infof("key set loaded for issuer %q with %d keys", rs.issuer, set.Len())
	} else if initial {
		l.logger.Debugf("key set for issuer %q unchanged", rs.issuer)
	}

	return outcome
}

// resolveSource returns the resolved source, performing discovery on
// first use. The fast path is a single atomic read; concurrent first
// accesses fall back to a mutex so the discovery document is fetched
// once.
func (l *Loader) resolveSource(ctx context.Context) (*resolvedSource, error) {
	if rs := l.resolved.Load(); rs != nil {
		return rs, nil
	}

	l.resolveMu.Lock()
	defer l.resolveMu.Unlock()
	if rs := l.resolved.Load(); rs != nil {
		return rs, nil
	}

	rs, err := l.buildSource(ctx)
	if err != nil {
		return nil, err
	}
	l.resolved.Store(rs)
	return rs, nil
}

func (l *Loader) buildSource(ctx context.Context) (*resolvedSource, error) {
	if l.jwksURL != "" {
		return &resolvedSource{
			jwksURL: l.jwksURL,
			issuer:  l.issuer,
			fetcher: l.keyFetcher(l.jwksURL),
		}, nil
	}

	docURL := l.discoveryURL
	if docURL == "" {
		docURL = oidc.DiscoveryURL(*l.issuerURL)
	}

	doc, err := oidc.FetchDocument(ctx, l.httpClient, docURL)
	if err != nil {
		return nil, err
	}
	if doc.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document at %q declares no jwks_uri", docURL)
	}

	issuer := l.issuer
	switch {
	case issuer == "":
		if doc.Issuer == "" {
			return nil, fmt.Errorf("discovery document at %q declares no issuer and none is configured", docURL)
		}
		issuer = doc.Issuer
	case doc.Issuer != "" && doc.Issuer != issuer:
		l.logger.Warnf("discovery document issuer %q differs from configured issuer %q, keeping the configured one", doc.Issuer, issuer)
		l.record(events.KindIssuerMismatch)
	}

	return &resolvedSource{
		jwksURL: doc.JWKSURI,
		issuer:  issuer,
		fetcher: l.keyFetcher(doc.JWKSURI),
	}, nil
}

func (l *Loader) keyFetcher(jwksURL string) Fetcher {
	if l.fetcher != nil {
		return l.fetcher
	}
	return newHTTPFetcher(l.httpClient, jwksURL)
}

func (l *Loader) policy() expiryPolicy {
	return expiryPolicy{
		interval: l.refreshInterval,
		window:   l.adaptiveWindow,
		floor:    float64(l.refreshPercentage) / 100,
	}
}

// startBackgroundRefresh schedules the periodic refresh task. Callers
// must hold l.lifeMu.
func (l *Loader) startBackgroundRefresh() {
	if l.refreshInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.bgCancel = cancel
	l.bgDone = make(chan struct{})

	go func() {
		defer close(l.bgDone)
		ticker := time.NewTicker(l.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.refreshTick(ctx)
			}
		}
	}()
}

// record forwards an event to the recorder, shielding the loader from a
// panicking implementation.
func (l *Loader) record(kind events.Kind) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("event recorder panicked on %q: %v", kind, r)
		}
	}()
	l.recorder.Record(kind)
}

// sourceHint names the source for log lines emitted before resolution.
func (l *Loader) sourceHint() string {
	switch {
	case l.issuer != "":
		return l.issuer
	case l.issuerURL != nil:
		return l.issuerURL.String()
	case l.discoveryURL != "":
		return l.discoveryURL
	default:
		return l.jwksURL
	}
}
