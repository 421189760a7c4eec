package zaplog_test

import (
	"context"
	"errors"
	"testing"

	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/pkg/activity"
	"github.com/goliatone/go-choices/pkg/zaplog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zaplog.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zaplog.New(zap.New(core)), logs
}

func TestLoggerRecordsNormalization(t *testing.T) {
	logger, logs := observed()
	n := choices.New(choices.WithLogger(logger))

	_, err := n.Normalize([]any{"a", map[string]any{"value": 1}}, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("options normalized").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sequence", fields["kind"])
	assert.EqualValues(t, 2, fields["records"])
	assert.EqualValues(t, 1, fields["masked"])
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestLoggerRecordsNormalizationFailure(t *testing.T) {
	logger, logs := observed()
	n := choices.New(choices.WithLogger(logger))

	_, err := n.Normalize(nil, nil)
	require.Error(t, err)

	entries := logs.FilterMessage("options normalization failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestLoggerReceivesRuleEvaluations(t *testing.T) {
	logger, logs := observed()
	n := choices.New(choices.WithLogger(logger), choices.WithFilterRule(`label != "b"`))

	records, err := n.Normalize([]string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	entries := logs.FilterMessage("filter rule evaluated").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "expr", entries[0].ContextMap()["engine"])
	assert.Equal(t, "#1", entries[1].ContextMap()["record"])
}

func TestLoggerEvaluationFailure(t *testing.T) {
	logger, logs := observed()
	logger.LogEvaluation(choices.EvaluatorLogEvent{Engine: "cel", Expr: "x", Err: errors.New("bad")})
	assert.Equal(t, 1, logs.FilterMessage("filter rule failed").Len())
}

func TestLoggerAsActivityHook(t *testing.T) {
	logger, logs := observed()
	hooks := activity.Hooks{logger}

	err := hooks.Notify(context.Background(), activity.BuildSelectedEvent(activity.EventInput{
		List:  activity.ListContext{Name: "colors"},
		Value: "red",
	}))
	require.NoError(t, err)

	entries := logs.FilterMessage("options activity").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, activity.VerbSelected, fields["verb"])
	assert.Equal(t, "colors", fields["object_id"])
	assert.NotEmpty(t, fields["id"])
}

func TestNewWithNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		zaplog.New(nil).LogNormalization(choices.NormalizationLogEvent{})
	})
}
