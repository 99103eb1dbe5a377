package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/progress"
)

// LogSink writes progress events to the structured log. Keyword checks log at
// debug level so a full run does not flood the log; run and domain milestones
// log at info, domain errors at warn.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch with its populated fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := make([]zap.Field, 0, 8)
		fields = append(fields,
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
		)
		if evt.Domain != "" {
			fields = append(fields, zap.String("domain", evt.Domain))
		}
		if evt.Keyword != "" {
			fields = append(fields, zap.String("keyword", evt.Keyword))
		}
		if evt.Stage == progress.StageKeywordChecked {
			fields = append(fields, zap.Int("position", evt.Position), zap.Bool("found", evt.Found))
		}
		if evt.Changed > 0 {
			fields = append(fields, zap.Int("changed", evt.Changed))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}

		switch evt.Stage {
		case progress.StageKeywordChecked:
			s.logger.Debug("progress event", fields...)
		case progress.StageDomainError:
			s.logger.Warn("progress event", fields...)
		default:
			s.logger.Info("progress event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
