package choices

import "time"

// NormalizationLogEvent describes one normalization pass.
type NormalizationLogEvent struct {
	Kind     SourceKind
	Records  int
	Masked   int
	Deferred bool
	Duration time.Duration
	Err      error
}

// NormalizationLogger records normalization passes.
type NormalizationLogger interface {
	LogNormalization(NormalizationLogEvent)
}

// NormalizationLoggerFunc adapts a function to NormalizationLogger.
type NormalizationLoggerFunc func(NormalizationLogEvent)

// LogNormalization implements NormalizationLogger.
func (f NormalizationLoggerFunc) LogNormalization(event NormalizationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopNormalizationLogger struct{}

func (noopNormalizationLogger) LogNormalization(NormalizationLogEvent) {}

// WithLogger attaches a normalization logger. When logger also implements
// EvaluatorLogger it receives rule evaluations too.
func WithLogger(logger NormalizationLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopNormalizationLogger{}
			return
		}
		cfg.logger = logger
		if evaluatorLogger, ok := logger.(EvaluatorLogger); ok && cfg.evaluatorLogger == nil {
			cfg.evaluatorLogger = evaluatorLogger
		}
	}
}

// EvaluatorLogEvent describes a rule evaluation attempt.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Record   string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches an evaluator logger to the Normalizer.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.evaluatorLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}

func (n *Normalizer) evaluatorLogger() EvaluatorLogger {
	if n.cfg.evaluatorLogger != nil {
		return n.cfg.evaluatorLogger
	}
	return noopEvaluatorLogger{}
}
