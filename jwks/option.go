package jwks

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Defaults applied by New when the corresponding option is not given.
const (
	defaultRefreshInterval   = 10 * time.Minute
	defaultRotationGrace     = 5 * time.Minute
	defaultMaxRetired        = 3
	defaultMaxCacheSize      = 100
	defaultAdaptiveWindow    = 10
	defaultRefreshPercentage = 80
	defaultHTTPTimeout       = 30 * time.Second
)

// Option is how options for the Loader are set up.
type Option func(*Loader) error

// WithJWKSURL points the loader directly at a key set document URL,
// skipping discovery. Exactly one of WithJWKSURL, WithIssuerURL and
// WithDiscoveryURL is required.
func WithJWKSURL(rawURL string) Option {
	return func(l *Loader) error {
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid JWKS URL %q: %w", rawURL, err)
		}
		l.jwksURL = rawURL
		return nil
	}
}

// WithIssuerURL sets the issuer URL the key set endpoint is discovered
// from, via the issuer's .well-known/openid-configuration document.
func WithIssuerURL(rawURL string) Option {
	return func(l *Loader) error {
		issuerURL, err := url.ParseRequestURI(rawURL)
		if err != nil {
			return fmt.Errorf("invalid issuer URL %q: %w", rawURL, err)
		}
		l.issuerURL = issuerURL
		return nil
	}
}

// WithDiscoveryURL sets an explicit discovery document URL, for providers
// whose metadata does not live under the issuer's well-known path.
func WithDiscoveryURL(rawURL string) Option {
	return func(l *Loader) error {
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid discovery URL %q: %w", rawURL, err)
		}
		l.discoveryURL = rawURL
		return nil
	}
}

// WithIssuer sets the expected issuer identifier. For direct sources this
// is what IssuerIdentifier reports; for discovery sources the configured
// value wins over the document's, and a difference between the two is
// signaled to the event recorder.
func WithIssuer(issuer string) Option {
	return func(l *Loader) error {
		if issuer == "" {
			return fmt.Errorf("issuer cannot be empty")
		}
		l.issuer = issuer
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client.
// If not specified, a default client with 30s timeout is used.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		l.httpClient = client
		return nil
	}
}

// WithTLSConfig sets the TLS configuration used when fetching from the
// source endpoints.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(l *Loader) error {
		if cfg == nil {
			return fmt.Errorf("TLS config cannot be nil")
		}
		l.tlsConfig = cfg
		return nil
	}
}

// WithFetcher replaces the HTTP fetch layer for the key set document.
// Discovery documents are still fetched over HTTP.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) error {
		if f == nil {
			return fmt.Errorf("fetcher cannot be nil")
		}
		l.fetcher = f
		return nil
	}
}

// WithRefreshInterval sets how often the background refresh runs, and the
// base for cache expiry. Zero disables background refresh entirely.
// If not specified, defaults to 10 minutes.
func WithRefreshInterval(interval time.Duration) Option {
	return func(l *Loader) error {
		if interval < 0 {
			return fmt.Errorf("refresh interval cannot be negative")
		}
		l.refreshInterval = interval
		return nil
	}
}

// WithRotationGracePeriod sets how long retired key sets keep answering
// lookups after a rotation. Zero disables retention: rotation drops the
// old keys immediately. If not specified, defaults to 5 minutes.
func WithRotationGracePeriod(grace time.Duration) Option {
	return func(l *Loader) error {
		if grace < 0 {
			return fmt.Errorf("rotation grace period cannot be negative")
		}
		l.rotationGrace = grace
		return nil
	}
}

// WithMaxRetiredKeySets bounds how many retired key sets are retained,
// oldest evicted first. If not specified, defaults to 3.
func WithMaxRetiredKeySets(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return fmt.Errorf("max retired key sets must be at least 1")
		}
		l.maxRetired = n
		return nil
	}
}

// WithCacheSize bounds the loader's own content cache. Ignored when a
// shared cache is supplied. If not specified, defaults to 100 sources.
func WithCacheSize(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return fmt.Errorf("cache size must be at least 1")
		}
		l.cacheSize = n
		return nil
	}
}

// WithSharedCache makes the loader use an existing Cache instead of
// creating its own, so several loaders stay within one memory bound.
func WithSharedCache(c *Cache) Option {
	return func(l *Loader) error {
		if c == nil {
			return fmt.Errorf("shared cache cannot be nil")
		}
		l.cache = c
		return nil
	}
}

// WithAdaptiveWindowSize sets how many cache accesses make up one
// adaptation window for the expiry policy. If not specified, defaults
// to 10.
func WithAdaptiveWindowSize(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return fmt.Errorf("adaptive window size must be at least 1")
		}
		l.adaptiveWindow = n
		return nil
	}
}

// WithBackgroundRefreshPercentage sets cache expiry as a percentage of the
// refresh interval, so content expires just before the next background
// run would pick it up. Must be between 1 and 100. If not specified,
// defaults to 80.
func WithBackgroundRefreshPercentage(pct int) Option {
	return func(l *Loader) error {
		if pct < 1 || pct > 100 {
			return fmt.Errorf("background refresh percentage must be between 1 and 100")
		}
		l.refreshPercentage = pct
		return nil
	}
}

// WithLogger sets the logger for load and refresh activity. If not
// specified, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// withClock overrides the time source.
func withClock(clk clock) Option {
	return func(l *Loader) error {
		l.clock = clk
		return nil
	}
}
