package processmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecutionContextResolveInputs(t *testing.T) {
	ectx := NewExecutionContext("run-1", RunModeMock, map[string]any{
		"customer": "acme",
		"region":   "eu",
	})
	ectx.SetStepOutput("a", map[string]any{"region": "us", "a": 1})
	ectx.SetStepOutput("b", map[string]any{"region": "apac", "b": 2})

	t.Run("later dependencies win", func(t *testing.T) {
		inputs := ectx.ResolveInputs([]string{"a", "b"})
		require.Equal(t, map[string]any{
			"customer": "acme",
			"region":   "apac",
			"a":        1,
			"b":        2,
		}, inputs)
	})

	t.Run("dependency order matters", func(t *testing.T) {
		inputs := ectx.ResolveInputs([]string{"b", "a"})
		require.Equal(t, "us", inputs["region"])
	})

	t.Run("missing outputs are skipped", func(t *testing.T) {
		inputs := ectx.ResolveInputs([]string{"missing", "a"})
		require.Equal(t, map[string]any{"customer": "acme", "region": "us", "a": 1}, inputs)
	})

	t.Run("no dependencies yields the initial data", func(t *testing.T) {
		inputs := ectx.ResolveInputs(nil)
		require.Equal(t, map[string]any{"customer": "acme", "region": "eu"}, inputs)

		inputs["customer"] = "changed"
		require.Equal(t, "acme", ectx.GetInitialData()["customer"])
	})
}

func TestExecutionContextCopies(t *testing.T) {
	seed := map[string]any{"x": 1}
	ectx := NewExecutionContext("run-1", "", seed)
	seed["x"] = 2
	require.Equal(t, 1, ectx.GetInitialData()["x"])
	require.Equal(t, RunModeMock, ectx.RunMode())
	require.Equal(t, "run-1", ectx.RunID())

	output := map[string]any{"y": 1}
	ectx.SetStepOutput("a", output)
	output["y"] = 2

	got, ok := ectx.GetStepOutput("a")
	require.True(t, ok)
	require.Equal(t, 1, got["y"])
	got["y"] = 3

	all := ectx.GetStepOutputs()
	require.Equal(t, 1, all["a"]["y"])

	_, ok = ectx.GetStepOutput("b")
	require.False(t, ok)
}

func TestExecutionContextNestedCopies(t *testing.T) {
	ectx := NewExecutionContext("run-1", RunModeMock, map[string]any{
		"customer": map[string]any{"tier": "gold"},
	})
	ectx.SetStepOutput("a", map[string]any{
		"nested": map[string]any{"x": 1},
		"items":  []any{map[string]any{"sku": "A-1"}},
	})

	got, ok := ectx.GetStepOutput("a")
	require.True(t, ok)
	got["nested"].(map[string]any)["x"] = 99
	got["items"].([]any)[0].(map[string]any)["sku"] = "changed"

	got, ok = ectx.GetStepOutput("a")
	require.True(t, ok)
	require.Equal(t, 1, got["nested"].(map[string]any)["x"])
	require.Equal(t, "A-1", got["items"].([]any)[0].(map[string]any)["sku"])

	all := ectx.GetStepOutputs()
	all["a"]["nested"].(map[string]any)["x"] = 42
	inputs := ectx.ResolveInputs([]string{"a"})
	require.Equal(t, 1, inputs["nested"].(map[string]any)["x"])

	inputs["nested"].(map[string]any)["x"] = 7
	inputs["customer"].(map[string]any)["tier"] = "bronze"
	got, _ = ectx.GetStepOutput("a")
	require.Equal(t, 1, got["nested"].(map[string]any)["x"])
	require.Equal(t, "gold", ectx.GetInitialData()["customer"].(map[string]any)["tier"])

	data := map[string]any{"detail": map[string]any{"attempt": 1}}
	ectx.AddLog(LogLevelInfo, "called crm", data)
	data["detail"].(map[string]any)["attempt"] = 2

	logs := ectx.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, 1, logs[0].Data["detail"].(map[string]any)["attempt"])
	logs[0].Data["detail"].(map[string]any)["attempt"] = 3
	require.Equal(t, 1, ectx.Logs()[0].Data["detail"].(map[string]any)["attempt"])
}

func TestExecutionContextLogs(t *testing.T) {
	ectx := NewExecutionContext("run-1", RunModeMock, nil)
	require.NotNil(t, ectx.GetInitialData())
	require.Empty(t, ectx.Logs())

	var forwarded []LogEntry
	ectx.setLogListener(func(entry LogEntry) {
		forwarded = append(forwarded, entry)
	})

	entry := ectx.AddLog(LogLevelInfo, "hello", map[string]any{"k": "v"})
	ectx.AppendLog(NewLogEntry(LogLevelError, "oops", nil))

	logs := ectx.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, entry, logs[0])
	require.Equal(t, LogLevelError, logs[1].Level)
	require.Equal(t, logs, forwarded)

	logs[0].Data["k"] = "changed"
	require.Equal(t, "v", ectx.Logs()[0].Data["k"])
}

func TestExecutionContextConcurrentAccess(t *testing.T) {
	ectx := NewExecutionContext("run-1", RunModeMock, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ectx.AddLog(LogLevelDebug, "tick", nil)
			ectx.ResolveInputs([]string{"a"})
		}()
	}
	ectx.SetStepOutput("a", map[string]any{"v": 1})
	wg.Wait()
	require.Len(t, ectx.Logs(), 10)
}
