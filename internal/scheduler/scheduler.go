// Package scheduler fans candidate URLs across a bounded worker pool and
// collects per-URL probe outcomes into the result mapping.
package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsdesk/feedvet/internal/feed"
	"github.com/newsdesk/feedvet/internal/progress"
)

// Config controls pool size, per-probe deadline, and optional pacing.
type Config struct {
	// Workers is the fixed worker pool size; it bounds how many probes are in
	// flight at once regardless of input size.
	Workers int
	// Timeout bounds each individual probe.
	Timeout time.Duration
	// HostRPS paces probes per host; zero or negative disables pacing.
	HostRPS float64
	// HostBurst is the pacing burst size (default 1 when pacing is on).
	HostBurst int
}

func (c Config) validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("scheduler workers must be > 0, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("scheduler timeout must be > 0, got %s", c.Timeout)
	}
	return nil
}

// Scheduler runs verification over a candidate URL set. A Scheduler is
// reusable; each Run is independent.
type Scheduler struct {
	prober  feed.Prober
	cfg     Config
	limiter *hostLimiter
	emitter progress.Emitter
	logger  *zap.Logger
}

// New constructs a Scheduler. Configuration problems are the only fatal error
// path in the whole verification flow, so they are rejected here, before any
// work is dispatched.
func New(prober feed.Prober, cfg Config, emitter progress.Emitter, logger *zap.Logger) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *hostLimiter
	if cfg.HostRPS > 0 {
		limiter = newHostLimiter(cfg.HostRPS, cfg.HostBurst)
	}
	return &Scheduler{
		prober:  prober,
		cfg:     cfg,
		limiter: limiter,
		emitter: emitter,
		logger:  logger,
	}, nil
}

type urlOutcome struct {
	url     string
	outcome feed.Outcome
}

// Run probes every URL in the candidate set and blocks until each one has
// resolved. Only valid outcomes appear in the result; callers read absence as
// "not a usable feed". Duplicates in the input collapse to one probe.
func (s *Scheduler) Run(ctx context.Context, urls []string) (feed.Result, feed.Stats) {
	unique := dedupe(urls)
	runID := progress.UUIDToBytes(uuid.New())
	start := time.Now()

	s.emit(progress.Event{
		RunID: runID,
		TS:    start.UTC(),
		Stage: progress.StageRunStart,
		URLs:  int64(len(unique)),
	})
	s.logger.Info("verification run started",
		zap.Int("urls", len(unique)),
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("probe_timeout", s.cfg.Timeout),
	)

	result := make(feed.Result, len(unique))
	outcomes := make(chan urlOutcome)
	collectorDone := make(chan struct{})

	// Single collector goroutine owns the map; workers never touch it.
	go func() {
		defer close(collectorDone)
		for out := range outcomes {
			if out.outcome.Valid {
				result[out.url] = out.outcome.Titles
			}
		}
	}()

	tasks := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range tasks {
				outcomes <- urlOutcome{url: u, outcome: s.probeOne(ctx, runID, u)}
			}
		}()
	}
	for _, u := range unique {
		tasks <- u
	}
	close(tasks)
	wg.Wait()
	close(outcomes)
	<-collectorDone

	stats := feed.Stats{Total: len(unique), Valid: len(result)}
	titles := 0
	for _, ts := range result {
		titles += len(ts)
	}
	s.emit(progress.Event{
		RunID:  runID,
		TS:     time.Now().UTC(),
		Stage:  progress.StageRunDone,
		URLs:   int64(stats.Total),
		Valid:  int64(stats.Valid),
		Titles: int64(titles),
		Dur:    time.Since(start),
	})
	s.logger.Info("verification run complete",
		zap.Int("total", stats.Total),
		zap.Int("valid", stats.Valid),
		zap.Float64("valid_percent", stats.ValidPercent()),
		zap.Duration("dur", time.Since(start)),
	)
	return result, stats
}

// probeOne resolves a single URL under the per-probe timeout. The probe runs
// in a child goroutine so a hung transport cannot wedge the worker: on
// deadline the URL is recorded invalid and the worker moves on, the timeout
// bounding observed latency rather than guaranteeing resource reclamation.
func (s *Scheduler) probeOne(ctx context.Context, runID [16]byte, u string) feed.Outcome {
	start := time.Now()
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, u); err != nil {
			return s.finishProbe(runID, u, feed.InvalidOutcome(), start, "rate limit interrupted")
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan feed.Outcome, 1)
	go func() {
		done <- s.prober.Probe(probeCtx, u)
	}()

	select {
	case out := <-done:
		return s.finishProbe(runID, u, out, start, "")
	case <-probeCtx.Done():
		return s.finishProbe(runID, u, feed.InvalidOutcome(), start, "probe timed out")
	}
}

func (s *Scheduler) finishProbe(runID [16]byte, u string, out feed.Outcome, start time.Time, note string) feed.Outcome {
	label := progress.OutcomeInvalid
	if out.Valid {
		label = progress.OutcomeValid
	}
	s.emit(progress.Event{
		RunID:   runID,
		TS:      time.Now().UTC(),
		Stage:   progress.StageProbeDone,
		Host:    hostOf(u),
		URL:     u,
		Outcome: label,
		Titles:  int64(len(out.Titles)),
		Dur:     time.Since(start),
		Note:    note,
	})
	return out
}

func (s *Scheduler) emit(evt progress.Event) {
	if s.emitter != nil {
		s.emitter.Emit(evt)
	}
}

// dedupe collapses the input into a set, keeping first-seen order so runs are
// reproducible.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
