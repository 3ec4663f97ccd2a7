// Package feed holds the shared domain types for feed verification: probe
// outcomes, the result mapping, run statistics, and the fetcher boundary.
package feed

// Outcome is the terminal classification of a single probe. Every probe
// resolves to exactly one Outcome; expected failures (network errors, non-feed
// responses, empty feeds) are all collapsed into the invalid case rather than
// surfacing as errors.
type Outcome struct {
	Valid  bool
	Titles []string
}

// ValidOutcome wraps a non-empty title list in a valid Outcome.
func ValidOutcome(titles []string) Outcome {
	return Outcome{Valid: true, Titles: titles}
}

// InvalidOutcome marks a URL as unusable. The reason is intentionally not
// carried; callers that care log it at the probe boundary.
func InvalidOutcome() Outcome {
	return Outcome{}
}

// Result maps each candidate URL that resolved to a valid feed onto its
// extracted titles, in document order. Invalid URLs are simply absent.
type Result map[string][]string

// Stats summarizes a completed verification run.
type Stats struct {
	Total int
	Valid int
}

// ValidPercent returns the share of candidate URLs that were valid feeds,
// in the range [0, 100]. An empty run counts as 0%.
func (s Stats) ValidPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Total) * 100
}
