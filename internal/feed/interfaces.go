package feed

import (
	"context"
	"net/http"
	"time"
)

// Response carries the HTTP-level result of fetching one URL. A Response with
// a non-2xx StatusCode is still a successful fetch; classification happens in
// the prober.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher executes a single bounded HTTP GET and returns the response plus
// metadata. Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Prober determines whether a URL serves a valid, non-empty syndication feed.
// Probe is total: it never returns an error, only an Outcome.
type Prober interface {
	Probe(ctx context.Context, url string) Outcome
}
