package jwks

// LoaderStatus reports the lifecycle state of a Loader.
//
// A loader starts out as StatusUndefined, moves to StatusLoading while the
// initial load is in flight, and then settles on StatusOK or StatusError.
// When background refresh is enabled a loader whose initial load failed
// stays StatusUndefined so later refresh runs can still bring it to
// StatusOK.
type LoaderStatus int32

const (
	// StatusUndefined means no load has completed yet, or the loader has
	// been closed.
	StatusUndefined LoaderStatus = iota

	// StatusLoading means the initial load is in flight.
	StatusLoading

	// StatusOK means the loader holds a usable key set.
	StatusOK

	// StatusError means the loader failed and will not recover without
	// intervention. With background refresh enabled only source
	// resolution failures are terminal in this sense; fetch failures
	// remain StatusUndefined.
	StatusError
)

// String returns a stable lowercase name for the status.
func (s LoaderStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "undefined"
	}
}
