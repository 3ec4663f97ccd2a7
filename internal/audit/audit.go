// Package audit runs post-hoc sanity checks over a completed verification
// result and flags entries worth manual review. Findings are advisory; the
// auditor never mutates the result and never fails.
package audit

import (
	"sort"
	"unicode/utf8"

	"github.com/newsdesk/feedvet/internal/feed"
)

const (
	defaultMinTitleLen   = 10
	defaultMinFeedTitles = 3
)

// Kind labels a class of suspicious result.
type Kind string

// Supported finding kinds.
const (
	// KindEmptyTitles flags a URL present in the result with zero titles.
	// The probe policy should make this impossible; the auditor checks anyway.
	KindEmptyTitles Kind = "EMPTY_TITLES"
	// KindShortTitle flags a title below the minimum length, a likely sign of
	// truncated or malformed extraction.
	KindShortTitle Kind = "SHORT_TITLE"
	// KindSparseFeed flags a valid feed that yielded unusually few titles.
	KindSparseFeed Kind = "SPARSE_FEED"
)

// Finding is one advisory observation about a result entry.
type Finding struct {
	Kind   Kind
	URL    string
	Title  string   // set for SHORT_TITLE
	Titles []string // set for SPARSE_FEED
}

// Config holds the audit thresholds.
type Config struct {
	// MinTitleLen is the shortest title (in runes) not flagged (default 10).
	MinTitleLen int
	// MinFeedTitles is the smallest title count not flagged (default 3).
	MinFeedTitles int
}

func (c Config) withDefaults() Config {
	if c.MinTitleLen <= 0 {
		c.MinTitleLen = defaultMinTitleLen
	}
	if c.MinFeedTitles <= 0 {
		c.MinFeedTitles = defaultMinFeedTitles
	}
	return c
}

// Run audits the result mapping and returns findings in deterministic order
// (URLs sorted, findings per URL in check order).
func Run(result feed.Result, cfg Config) []Finding {
	cfg = cfg.withDefaults()

	urls := make([]string, 0, len(result))
	for u := range result {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var findings []Finding
	for _, u := range urls {
		titles := result[u]
		if len(titles) == 0 {
			findings = append(findings, Finding{Kind: KindEmptyTitles, URL: u})
			continue
		}
		for _, title := range titles {
			if utf8.RuneCountInString(title) < cfg.MinTitleLen {
				findings = append(findings, Finding{Kind: KindShortTitle, URL: u, Title: title})
			}
		}
		if len(titles) < cfg.MinFeedTitles {
			findings = append(findings, Finding{
				Kind:   KindSparseFeed,
				URL:    u,
				Titles: append([]string(nil), titles...),
			})
		}
	}
	return findings
}
