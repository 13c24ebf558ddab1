package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDocumentSize caps how much of a key set response body is read. Key set
// documents are small; anything beyond this is hostile or broken.
const maxDocumentSize = 1 << 20 // 1 MB

// FetchResult is the outcome of one fetch attempt against a key set source.
type FetchResult struct {
	// Valid is true when the attempt produced usable information: either
	// fresh content or confirmation that the cached content is current.
	Valid bool

	// StatusCode is the HTTP status of the response, when one was
	// received. http.StatusNotModified means Body is empty and the
	// caller's cached content is still current.
	StatusCode int

	// ETag is the entity tag of the response, to be replayed on the next
	// fetch. Empty when the source does not support conditional requests.
	ETag string

	// Body is the raw document. Empty on a not-modified result.
	Body []byte
}

// Fetcher retrieves a key set document from a single source.
//
// Implementations must honor the context and should pass the previously
// returned ETag as an If-None-Match header if the transport supports it.
// A nil error with Valid=false is not used by the bundled implementation;
// failures always carry an error describing the cause.
type Fetcher interface {
	Fetch(ctx context.Context, etag string) (FetchResult, error)
}

// httpFetcher fetches a key set document over HTTP with conditional
// request support.
type httpFetcher struct {
	client *http.Client
	url    string
}

func newHTTPFetcher(client *http.Client, rawURL string) *httpFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &httpFetcher{client: client, url: rawURL}
}

func (f *httpFetcher) Fetch(ctx context.Context, etag string) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("could not build key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("could not fetch key set from %q: %w", f.url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return FetchResult{StatusCode: resp.StatusCode}, fmt.Errorf("could not read key set body from %q: %w", f.url, err)
		}
		return FetchResult{
			Valid:      true,
			StatusCode: resp.StatusCode,
			ETag:       resp.Header.Get("ETag"),
			Body:       body,
		}, nil

	case http.StatusNotModified:
		return FetchResult{
			Valid:      true,
			StatusCode: resp.StatusCode,
			ETag:       etag,
		}, nil

	default:
		return FetchResult{StatusCode: resp.StatusCode},
			fmt.Errorf("unexpected status %d fetching key set from %q", resp.StatusCode, f.url)
	}
}
