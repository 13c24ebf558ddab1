// Package events defines the security event recorder used by the jwks
// loaders to report conditions an operator may want to count or alert on,
// such as issuer mismatches during discovery or repeated fetch failures.
//
// The library never interprets recorded events itself. Applications plug in
// their own Recorder to bridge events into their monitoring system; the
// Counter implementation in this package is a ready-made in-memory recorder
// suitable for tests and for exposing via an admin endpoint.
package events

import "sync"

// Kind identifies a class of security-relevant event.
type Kind string

const (
	// KindIssuerMismatch is recorded when the issuer advertised by a
	// discovery document differs from the issuer the loader was
	// configured with.
	KindIssuerMismatch Kind = "issuer_mismatch"

	// KindFetchFailed is recorded when a key set document could not be
	// retrieved from its source.
	KindFetchFailed Kind = "jwks_fetch_failed"

	// KindDocumentInvalid is recorded when a retrieved key set document
	// could not be parsed.
	KindDocumentInvalid Kind = "jwks_document_invalid"

	// KindKeySetRotated is recorded when a loader replaces its active key
	// set with new content.
	KindKeySetRotated Kind = "key_set_rotated"

	// KindStaleKeysServed is recorded when a refresh fails and the loader
	// keeps serving the last successfully loaded key set.
	KindStaleKeysServed Kind = "stale_keys_served"
)

// Recorder receives security events as they happen.
//
// Implementations must be safe for concurrent use and should return quickly;
// recording happens on the loader's refresh path. A panicking Recorder does
// not disturb the loader, which recovers and logs the panic.
type Recorder interface {
	Record(kind Kind)
}

// NoopRecorder is a Recorder that discards all events.
type NoopRecorder struct{}

// Record does nothing.
func (NoopRecorder) Record(Kind) {}

// Counter is an in-memory Recorder that tallies events by kind.
type Counter struct {
	mu     sync.RWMutex
	counts map[Kind]uint64
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: map[Kind]uint64{}}
}

// Record increments the tally for the given kind.
func (c *Counter) Record(kind Kind) {
	c.mu.Lock()
	c.counts[kind]++
	c.mu.Unlock()
}

// Count returns the number of events recorded for the given kind.
func (c *Counter) Count(kind Kind) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[kind]
}

// Snapshot returns a copy of all tallies.
func (c *Counter) Snapshot() map[Kind]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[Kind]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
