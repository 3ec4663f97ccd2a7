package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newsdesk/feedvet/internal/progress"
)

// PrometheusSink exports verification progress via Prometheus. It owns the
// collectors for run lifecycle and per-probe counters.
type PrometheusSink struct {
	runsStarted     prometheus.Counter
	runsCompleted   prometheus.Counter
	runDuration     prometheus.Histogram
	runValidRatio   prometheus.Gauge
	probesTotal     *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	titlesExtracted prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedvet_runs_started_total",
			Help: "Total verification runs started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedvet_runs_completed_total",
			Help: "Total verification runs completed.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedvet_run_duration_seconds",
			Help:    "Wall time per completed verification run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		runValidRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedvet_run_valid_percent",
			Help: "Percentage of candidate URLs that were valid feeds in the last run.",
		}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedvet_probes_total",
			Help: "Probe completions partitioned by outcome.",
		}, []string{"outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedvet_probe_duration_seconds",
			Help:    "Probe latency partitioned by outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
		titlesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedvet_titles_extracted_total",
			Help: "Clean titles extracted across all probes.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.runValidRatio,
		s.probesTotal,
		s.probeDuration,
		s.titlesExtracted,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.Inc()
		if evt.Dur > 0 {
			s.runDuration.Observe(evt.Dur.Seconds())
		}
		if evt.URLs > 0 {
			s.runValidRatio.Set(float64(evt.Valid) / float64(evt.URLs) * 100)
		} else {
			s.runValidRatio.Set(0)
		}
	case progress.StageProbeDone:
		outcome := string(evt.Outcome)
		if outcome == "" {
			outcome = string(progress.OutcomeInvalid)
		}
		s.probesTotal.WithLabelValues(outcome).Inc()
		if evt.Dur > 0 {
			s.probeDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
		}
		if evt.Titles > 0 {
			s.titlesExtracted.Add(float64(evt.Titles))
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
