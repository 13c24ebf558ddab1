package jwks

import (
	"sync"
	"sync/atomic"
	"time"
)

// RetiredKeySet is a previously active key set kept around after a rotation
// so tokens signed shortly before the rotation still verify.
type RetiredKeySet struct {
	Set       *KeySet
	RetiredAt time.Time
}

// keyRotation holds a loader's active key set plus the retired sets still
// inside their grace period. The active set swaps atomically so lookups on
// the hot path never take a lock; only the retired history is mutex
// guarded, and lookups touch it only after missing the active set.
type keyRotation struct {
	current atomic.Pointer[KeySet]

	mu      sync.RWMutex
	retired []RetiredKeySet // newest first

	grace      time.Duration
	maxRetired int
	clock      clock
}

func newKeyRotation(grace time.Duration, maxRetired int, clk clock) *keyRotation {
	return &keyRotation{
		grace:      grace,
		maxRetired: maxRetired,
		clock:      clk,
	}
}

// commit makes next the active set. If next carries the same content as
// the active set, nothing changes; the active instance keeps its identity.
// Otherwise the displaced set, if any, is retired with the current
// timestamp; with a zero grace period it is dropped immediately instead.
// Callers must serialize commits; only lookups are expected to race with a
// commit. The return value reports whether an active set was displaced.
func (r *keyRotation) commit(next *KeySet) bool {
	cur := r.current.Load()
	if cur == next || (cur != nil && cur.Equal(next)) {
		return false
	}

	old := r.current.Swap(next)
	if old == nil {
		return false
	}

	if r.grace > 0 {
		now := r.clock.Now()
		r.mu.Lock()
		r.retired = append([]RetiredKeySet{{Set: old, RetiredAt: now}}, r.retired...)
		r.prune(now)
		r.mu.Unlock()
	}

	return true
}

// prune drops retired sets whose grace period has passed and trims the
// history to maxRetired entries, oldest first. Callers must hold r.mu.
func (r *keyRotation) prune(now time.Time) {
	cutoff := now.Add(-r.grace)
	kept := r.retired[:0]
	for _, ret := range r.retired {
		if ret.RetiredAt.After(cutoff) {
			kept = append(kept, ret)
		}
	}
	if len(kept) > r.maxRetired {
		kept = kept[:r.maxRetired]
	}
	r.retired = kept
}

// active returns the current key set, nil before the first commit.
func (r *keyRotation) active() *KeySet {
	return r.current.Load()
}

// lookup resolves a key ID against the active set first and then, newest
// first, against retired sets still inside their grace period.
func (r *keyRotation) lookup(keyID string) (*KeyInfo, bool) {
	if cur := r.current.Load(); cur != nil {
		if info, ok := cur.Key(keyID); ok {
			return info, true
		}
	}

	if r.grace == 0 {
		return nil, false
	}

	cutoff := r.clock.Now().Add(-r.grace)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ret := range r.retired {
		if !ret.RetiredAt.After(cutoff) {
			// Entries are newest first, so everything past this
			// point has expired too.
			break
		}
		if info, ok := ret.Set.Key(keyID); ok {
			return info, true
		}
	}
	return nil, false
}

// snapshot returns a copy of the retired sets still inside their grace
// period, newest first.
func (r *keyRotation) snapshot() []RetiredKeySet {
	if r.grace == 0 {
		return nil
	}

	cutoff := r.clock.Now().Add(-r.grace)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RetiredKeySet, 0, len(r.retired))
	for _, ret := range r.retired {
		if !ret.RetiredAt.After(cutoff) {
			break
		}
		out = append(out, ret)
	}
	return out
}

// clear drops the active set and all retired history.
func (r *keyRotation) clear() {
	r.current.Store(nil)
	r.mu.Lock()
	r.retired = nil
	r.mu.Unlock()
}
