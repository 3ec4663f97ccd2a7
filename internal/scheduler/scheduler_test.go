package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdesk/feedvet/internal/feed"
	"github.com/newsdesk/feedvet/internal/progress"
)

// probeFunc adapts a function to the feed.Prober interface.
type probeFunc func(ctx context.Context, url string) feed.Outcome

func (f probeFunc) Probe(ctx context.Context, url string) feed.Outcome {
	return f(ctx, url)
}

// countingProber records how often each URL is probed.
type countingProber struct {
	mu     sync.Mutex
	counts map[string]int
	fn     probeFunc
}

func newCountingProber(fn probeFunc) *countingProber {
	return &countingProber{counts: make(map[string]int), fn: fn}
}

func (p *countingProber) Probe(ctx context.Context, url string) feed.Outcome {
	p.mu.Lock()
	p.counts[url]++
	p.mu.Unlock()
	return p.fn(ctx, url)
}

func (p *countingProber) Counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func testConfig() Config {
	return Config{Workers: 4, Timeout: time.Second}
}

func mustNew(t *testing.T, prober feed.Prober, cfg Config, emitter progress.Emitter) *Scheduler {
	t.Helper()
	s, err := New(prober, cfg, emitter, nil)
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	prober := probeFunc(func(context.Context, string) feed.Outcome { return feed.InvalidOutcome() })

	_, err := New(prober, Config{Workers: 0, Timeout: time.Second}, nil, nil)
	require.Error(t, err)

	_, err = New(prober, Config{Workers: 2}, nil, nil)
	require.Error(t, err)
}

// TestRunCompleteness checks that every URL resolves exactly once, including
// duplicates collapsing to a single probe.
func TestRunCompleteness(t *testing.T) {
	t.Parallel()

	valid := map[string]bool{
		"http://a.example/feed": true,
		"http://c.example/feed": true,
	}
	prober := newCountingProber(func(_ context.Context, url string) feed.Outcome {
		if valid[url] {
			return feed.ValidOutcome([]string{"Headline from " + url})
		}
		return feed.InvalidOutcome()
	})

	urls := []string{
		"http://a.example/feed",
		"http://b.example/feed",
		"http://c.example/feed",
		"http://d.example/feed",
		"http://a.example/feed", // duplicate
	}
	s := mustNew(t, prober, testConfig(), nil)
	result, stats := s.Run(context.Background(), urls)

	assert.Equal(t, feed.Stats{Total: 4, Valid: 2}, stats)
	assert.Len(t, result, 2)
	assert.Contains(t, result, "http://a.example/feed")
	assert.Contains(t, result, "http://c.example/feed")
	assert.NotContains(t, result, "http://b.example/feed")

	for url, n := range prober.Counts() {
		assert.Equal(t, 1, n, "url %s probed %d times", url, n)
	}
	assert.Len(t, prober.Counts(), 4)
}

// TestRunBoundedConcurrency asserts no more than Workers probes are ever in
// flight at once.
func TestRunBoundedConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	var inFlight, peak atomic.Int64
	prober := probeFunc(func(context.Context, string) feed.Outcome {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return feed.InvalidOutcome()
	})

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = "http://example.com/feed/" + string(rune('a'+i))
	}
	s := mustNew(t, prober, Config{Workers: workers, Timeout: time.Second}, nil)
	_, stats := s.Run(context.Background(), urls)

	assert.Equal(t, 20, stats.Total)
	assert.LessOrEqual(t, peak.Load(), int64(workers))
}

// TestRunTimeoutContainment simulates a probe that never returns: its URL must
// resolve invalid within the per-probe timeout without stalling the rest of
// the run.
func TestRunTimeoutContainment(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	prober := probeFunc(func(_ context.Context, url string) feed.Outcome {
		if url == "http://hung.example/feed" {
			<-block // ignores ctx on purpose
			return feed.InvalidOutcome()
		}
		return feed.ValidOutcome([]string{"Quick Headline"})
	})

	urls := []string{
		"http://hung.example/feed",
		"http://fast-one.example/feed",
		"http://fast-two.example/feed",
	}
	s := mustNew(t, prober, Config{Workers: 2, Timeout: 100 * time.Millisecond}, nil)

	start := time.Now()
	result, stats := s.Run(context.Background(), urls)
	elapsed := time.Since(start)

	assert.Equal(t, feed.Stats{Total: 3, Valid: 2}, stats)
	assert.NotContains(t, result, "http://hung.example/feed")
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunEmptyInput(t *testing.T) {
	t.Parallel()

	prober := probeFunc(func(context.Context, string) feed.Outcome {
		t.Error("probe must not be called for an empty set")
		return feed.InvalidOutcome()
	})
	s := mustNew(t, prober, testConfig(), nil)

	result, stats := s.Run(context.Background(), nil)
	assert.Empty(t, result)
	assert.Equal(t, feed.Stats{}, stats)
	assert.InDelta(t, 0, stats.ValidPercent(), 1e-9)
}

// TestRunEmitsProgressEvents verifies the observability side channel carries
// one RUN_START, one PROBE_DONE per URL, and one RUN_DONE.
func TestRunEmitsProgressEvents(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	prober := probeFunc(func(_ context.Context, url string) feed.Outcome {
		if url == "http://a.example/feed" {
			return feed.ValidOutcome([]string{"One Headline", "Two Headline"})
		}
		return feed.InvalidOutcome()
	})
	s := mustNew(t, prober, testConfig(), emitter)

	_, _ = s.Run(context.Background(), []string{"http://a.example/feed", "http://b.example/feed"})

	events := emitter.Events()
	require.Len(t, events, 4)
	assert.Equal(t, progress.StageRunStart, events[0].Stage)
	assert.Equal(t, progress.StageRunDone, events[len(events)-1].Stage)

	probeDone := 0
	validSeen := 0
	for _, evt := range events[1 : len(events)-1] {
		require.Equal(t, progress.StageProbeDone, evt.Stage)
		require.NoError(t, evt.Validate())
		probeDone++
		if evt.Outcome == progress.OutcomeValid {
			validSeen++
			assert.EqualValues(t, 2, evt.Titles)
		}
	}
	assert.Equal(t, 2, probeDone)
	assert.Equal(t, 1, validSeen)

	final := events[len(events)-1]
	assert.EqualValues(t, 2, final.URLs)
	assert.EqualValues(t, 1, final.Valid)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) Events() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Event(nil), r.events...)
}

func TestDedupeKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	in := []string{"c", "a", "c", "b", "a"}
	assert.Equal(t, []string{"c", "a", "b"}, dedupe(in))
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", hostOf("http://example.com/rss"))
	assert.Equal(t, "unknown", hostOf("::not a url::"))
	assert.Equal(t, "unknown", hostOf(""))
}
