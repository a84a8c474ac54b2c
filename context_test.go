package processmap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	_, ok := GetRunIDFromContext(ctx)
	require.False(t, ok)
	_, ok = GetLoggerFromContext(ctx)
	require.False(t, ok)
	require.Equal(t, discardLogger, loggerFromContext(ctx))

	logger := slog.New(slog.DiscardHandler)
	ctx = WithRunID(WithLogger(ctx, logger), "run-1")

	runID, ok := GetRunIDFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "run-1", runID)

	got, ok := GetLoggerFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, logger, got)
	require.Equal(t, logger, loggerFromContext(ctx))
}

func TestEngineSetsRunIDInStepContext(t *testing.T) {
	var seen string
	executor := NewStepExecutorFunc(func(ctx context.Context, step *Step, ectx *ExecutionContext, mocks []*Mock) (*StepExecutionResult, error) {
		seen, _ = GetRunIDFromContext(ctx)
		return &StepExecutionResult{Success: true, OutputData: map[string]any{}}, nil
	})
	result := runEngine(t, TestEngineOptions{
		Workflow: newTestWorkflow(t, testStep("a")),
		Executor: executor,
		RunID:    "run-ctx",
	})
	require.Equal(t, RunStatusCompleted, result.TestRun.Status)
	require.Equal(t, "run-ctx", seen)
}
