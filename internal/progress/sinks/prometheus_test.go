package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/newsdesk/feedvet/internal/progress"
)

func probeEvent(outcome progress.OutcomeLabel, titles int64) progress.Event {
	return progress.Event{
		RunID:   progress.UUIDToBytes(uuid.New()),
		TS:      time.Now().UTC(),
		Stage:   progress.StageProbeDone,
		Host:    "example.com",
		URL:     "http://example.com/feed",
		Outcome: outcome,
		Titles:  titles,
		Dur:     120 * time.Millisecond,
	}
}

func TestPrometheusSinkCountsProbes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	batch := []progress.Event{
		probeEvent(progress.OutcomeValid, 5),
		probeEvent(progress.OutcomeValid, 3),
		probeEvent(progress.OutcomeInvalid, 0),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.InDelta(t, 2, testutil.ToFloat64(sink.probesTotal.WithLabelValues("valid")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(sink.probesTotal.WithLabelValues("invalid")), 1e-9)
	require.InDelta(t, 8, testutil.ToFloat64(sink.titlesExtracted), 1e-9)
}

func TestPrometheusSinkRunLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart, URLs: 10},
		{RunID: runID, TS: now, Stage: progress.StageRunDone, URLs: 10, Valid: 4, Dur: 3 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.InDelta(t, 1, testutil.ToFloat64(sink.runsStarted), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(sink.runsCompleted), 1e-9)
	require.InDelta(t, 40, testutil.ToFloat64(sink.runValidRatio), 1e-9)
}

func TestPrometheusSinkZeroURLRun(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	evt := progress.Event{
		RunID: progress.UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: progress.StageRunDone,
	}
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt}))
	require.InDelta(t, 0, testutil.ToFloat64(sink.runValidRatio), 1e-9)
}

func TestPrometheusSinkDoubleRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
