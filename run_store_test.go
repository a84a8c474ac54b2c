package processmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileRunStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileRunStore(t.TempDir())
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Empty(t, runs)

	older := runEngine(t, TestEngineOptions{
		Workflow: newTestWorkflow(t, testStep("a"), testStep("b", "a")),
		RunID:    "run-older",
	})
	newer := runEngine(t, TestEngineOptions{
		Workflow: newTestWorkflow(t, testStep("a")),
		Executor: failingExecutor("a"),
		RunID:    "run-newer",
	})
	newer.TestRun.StartedAt = older.TestRun.StartedAt.Add(time.Minute)

	require.NoError(t, store.SaveRun(ctx, NewStoredRun(older)))
	require.NoError(t, store.SaveRun(ctx, NewStoredRun(newer)))

	loaded, err := store.LoadRun(ctx, "run-older")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "run-older", loaded.TestRun.ID)
	require.Equal(t, OverallResultPass, loaded.TestRun.OverallResult)
	require.Len(t, loaded.StepResults, 2)
	require.Len(t, loaded.StepOutputs, 2)
	require.Equal(t, true, loaded.StepOutputs["a"]["success"])

	runs, err = store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-newer", runs[0].RunID)
	require.Equal(t, RunStatusFailed, runs[0].Status)
	require.Equal(t, "run-older", runs[1].RunID)

	require.NoError(t, store.DeleteRun(ctx, "run-older"))
	loaded, err = store.LoadRun(ctx, "run-older")
	require.NoError(t, err)
	require.Nil(t, loaded)

	require.Error(t, store.SaveRun(ctx, &StoredRun{}))
}

func TestFileRunStoreSkipsUnreadableRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileRunStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken", "run.json"), []byte("{"), 0644))

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestNullRunStore(t *testing.T) {
	ctx := context.Background()
	store := NewNullRunStore()
	require.NoError(t, store.SaveRun(ctx, &StoredRun{}))
	run, err := store.LoadRun(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, run)
	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestFileStepLogger(t *testing.T) {
	dir := t.TempDir()
	stepLogger := NewFileStepLogger(dir)

	result := runEngine(t, TestEngineOptions{
		Workflow:  newTestWorkflow(t, testStep("a"), testStep("b", "a"), testStep("c", "b")),
		Executor:  failingExecutor("b"),
		Config:    TestRunConfig{ContinueOnFailure: true},
		Callbacks: stepLogger,
		RunID:     "run-logged",
	})
	require.Len(t, result.StepResults, 3)

	history, err := stepLogger.StepHistory("run-logged")
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{history[0].StepID, history[1].StepID, history[2].StepID})
	require.Equal(t, StepStatusFailed, history[1].Status)
	require.Equal(t, "boom", history[1].ErrorMessage)

	_, err = os.Stat(filepath.Join(dir, "run-logged.jsonl"))
	require.NoError(t, err)

	_, err = stepLogger.StepHistory("unknown")
	require.Error(t, err)
}
