package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where a metrics backend is unavailable.
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
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
			zap.String("strategy", evt.Strategy),
		}
		switch evt.Stage {
		case progress.StageListingPage:
			fields = append(fields,
				zap.Int("new_records", evt.NewRecords),
				zap.Int("total", evt.Total),
			)
		case progress.StageCompanyDone:
			fields = append(fields,
				zap.String("company", evt.Company),
				zap.Int("founders", evt.Founders),
				zap.Bool("used_browser", evt.UsedBrowser),
				zap.Duration("dur", evt.Dur),
			)
		case progress.StageProfileSearch:
			fields = append(fields,
				zap.String("founder", evt.Founder),
				zap.String("company", evt.Company),
				zap.Bool("found", evt.Found),
			)
		case progress.StageRunDone, progress.StageRunError:
			fields = append(fields,
				zap.Int("total", evt.Total),
				zap.Duration("dur", evt.Dur),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
