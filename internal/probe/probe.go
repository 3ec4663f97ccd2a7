// Package probe classifies a candidate URL as a usable syndication feed and
// extracts a bounded number of cleaned entry titles from it.
package probe

import (
	"bytes"
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/newsdesk/feedvet/internal/feed"
	"github.com/newsdesk/feedvet/internal/normalize"
)

const defaultMaxTitles = 5

// Config controls extraction limits.
type Config struct {
	// MaxTitles caps how many entry titles are kept per feed. Entries with an
	// empty title do not consume the budget.
	MaxTitles int
}

// Prober fetches, classifies, and extracts titles from one URL at a time.
// It is safe for concurrent use.
type Prober struct {
	fetcher feed.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Prober.
func New(fetcher feed.Fetcher, cfg Config, logger *zap.Logger) *Prober {
	if cfg.MaxTitles <= 0 {
		cfg.MaxTitles = defaultMaxTitles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Probe resolves a URL to an Outcome. It is total: every failure mode
// (network error, non-2xx status, non-feed content type, unparsable body,
// zero usable titles) collapses into the invalid outcome, and nothing is
// allowed to escape as an error.
func (p *Prober) Probe(ctx context.Context, url string) feed.Outcome {
	resp, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Debug("probe fetch failed", zap.String("url", url), zap.Error(err))
		return feed.InvalidOutcome()
	}
	if resp.StatusCode/100 != 2 {
		p.logger.Debug("probe rejected on status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return feed.InvalidOutcome()
	}
	if !isFeedContentType(resp.Headers.Get("Content-Type")) {
		p.logger.Debug("probe rejected on content type",
			zap.String("url", url),
			zap.String("content_type", resp.Headers.Get("Content-Type")),
		)
		return feed.InvalidOutcome()
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		p.logger.Debug("probe parse failed", zap.String("url", url), zap.Error(err))
		return feed.InvalidOutcome()
	}

	titles := p.extractTitles(parsed)
	if len(titles) == 0 {
		p.logger.Debug("probe found no usable titles", zap.String("url", url))
		return feed.InvalidOutcome()
	}
	return feed.ValidOutcome(titles)
}

// extractTitles walks entries in document order, skipping entries without a
// title, until MaxTitles titles have been collected.
func (p *Prober) extractTitles(parsed *gofeed.Feed) []string {
	titles := make([]string, 0, p.cfg.MaxTitles)
	for _, item := range parsed.Items {
		if len(titles) == p.cfg.MaxTitles {
			break
		}
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		titles = append(titles, normalize.Title(item.Title))
	}
	return titles
}

// isFeedContentType is a cheap pre-parse filter: the declared content type
// must carry an XML or RSS marker before the body is handed to the parser.
func isFeedContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss")
}
