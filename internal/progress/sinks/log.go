package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/newsdesk/feedvet/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. Useful during
// development or when no metrics backend is wired up.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.Stringer("run_id", evt.RunUUID()),
			zap.String("stage", string(evt.Stage)),
			zap.String("host", evt.Host),
			zap.String("url", evt.URL),
			zap.String("outcome", string(evt.Outcome)),
			zap.Int64("titles", evt.Titles),
			zap.Int64("urls", evt.URLs),
			zap.Int64("valid", evt.Valid),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
