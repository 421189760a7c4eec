// Package zaplog adapts a *zap.Logger to the choices loggers and to an
// activity hook.
package zaplog

import (
	"context"

	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/pkg/activity"
	"go.uber.org/zap"
)

// Logger writes normalization passes, rule evaluations and activity events
// through zap. Successful work logs at debug level, failures at warn.
type Logger struct {
	log *zap.Logger
}

var (
	_ choices.NormalizationLogger = (*Logger)(nil)
	_ choices.EvaluatorLogger     = (*Logger)(nil)
	_ activity.ActivityHook       = (*Logger)(nil)
)

// New wraps log. A nil logger is replaced with zap.NewNop.
func New(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log}
}

func (l *Logger) LogNormalization(event choices.NormalizationLogEvent) {
	fields := []zap.Field{
		zap.Stringer("kind", event.Kind),
		zap.Int("records", event.Records),
		zap.Int("masked", event.Masked),
		zap.Bool("deferred", event.Deferred),
		zap.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		l.log.Warn("options normalization failed", append(fields, zap.Error(event.Err))...)
		return
	}
	l.log.Debug("options normalized", fields...)
}

func (l *Logger) LogEvaluation(event choices.EvaluatorLogEvent) {
	fields := []zap.Field{
		zap.String("engine", event.Engine),
		zap.String("expr", event.Expr),
		zap.String("record", event.Record),
		zap.Duration("duration", event.Duration),
	}
	if event.Err != nil {
		l.log.Warn("filter rule failed", append(fields, zap.Error(event.Err))...)
		return
	}
	l.log.Debug("filter rule evaluated", fields...)
}

// Notify logs an activity event at info level.
func (l *Logger) Notify(_ context.Context, event activity.Event) error {
	l.log.Info("options activity",
		zap.String("id", event.ID),
		zap.String("verb", event.Verb),
		zap.String("object_type", event.ObjectType),
		zap.String("object_id", event.ObjectID),
		zap.String("channel", event.Channel),
		zap.Any("metadata", event.Metadata),
	)
	return nil
}
