// Package fetch implements the HTTP layer for feed probes using Colly.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/newsdesk/feedvet/internal/feed"
)

const defaultTimeout = 10 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Client implements feed.Fetcher using a Colly collector. A fresh collector
// is cloned per request so callbacks never leak between probes; the underlying
// transport and its connection pool are shared.
type Client struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	// Synchronous is the collector default; colly v2.1.0's Async option
	// ignores its argument, so Async(false) must not be passed here.
	c := colly.NewCollector()
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Client{cfg: cfg, base: c}
}

// Fetch executes a single HTTP GET. A non-2xx response is returned as a
// Response with its status code and a nil error; only transport-level
// failures (DNS, connect, TLS, timeout) produce an error.
func (c *Client) Fetch(ctx context.Context, url string) (feed.Response, error) {
	var (
		resp     feed.Response
		fetchErr error
	)
	start := time.Now()

	collector := c.base.Clone()
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.SetRequestTimeout(c.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		resp = responseFrom(r, start)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			// HTTP-level failure: the request completed, so surface the
			// status to the prober instead of an error.
			resp = responseFrom(r, start)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return feed.Response{}, fmt.Errorf("fetch %s canceled: %w", url, ctx.Err())
	case err := <-done:
		if resp.StatusCode != 0 {
			return resp, nil
		}
		if fetchErr != nil {
			return feed.Response{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if err != nil {
			return feed.Response{}, fmt.Errorf("visit %s: %w", url, err)
		}
		return resp, nil
	}
}

func responseFrom(r *colly.Response, start time.Time) feed.Response {
	out := feed.Response{
		StatusCode: r.StatusCode,
		Body:       append([]byte(nil), r.Body...),
		Duration:   time.Since(start),
	}
	if r.Request != nil && r.Request.URL != nil {
		out.URL = r.Request.URL.String()
	}
	if r.Headers != nil {
		out.Headers = r.Headers.Clone()
	} else {
		out.Headers = http.Header{}
	}
	return out
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
