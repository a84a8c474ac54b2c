package processmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const orderWorkflowYAML = `
id: order-intake
org_id: org-42
name: Order intake
steps:
  - id: notify
    name: Notify Customer
    type: notification
    integration: sendgrid
    dependencies: [store]
    test_config:
      timeout: 500
      operations: [write]
  - id: received
    name: Order Received
    type: trigger
    test_config:
      timeout: 1000
  - id: store
    name: Store Order
    type: storage
    integration: postgres
    dependencies: [received]
    input_schema:
      type: object
      required: [eventId]
      properties:
        eventId:
          type: string
    output_schema:
      required: [recordId]
    test_config:
      timeout: 1000
      operations: [read, write]
`

func TestLoadWorkflow(t *testing.T) {
	wf, err := LoadString(orderWorkflowYAML)
	require.NoError(t, err)

	require.Equal(t, "order-intake", wf.ID())
	require.Equal(t, "org-42", wf.OrgID())
	require.Equal(t, "Order intake", wf.Name())
	require.Len(t, wf.Steps(), 3)
	require.Equal(t, []string{"notify", "received", "store"}, wf.StepIDs())
	require.Equal(t, []string{"received", "store", "notify"}, stepIDs(wf.ExecutionOrder()))

	store, ok := wf.GetStep("store")
	require.True(t, ok)
	require.Equal(t, StepTypeStorage, store.Type)
	require.Equal(t, "postgres", store.Integration)
	require.Equal(t, []string{"eventId"}, store.InputSchema.Required)
	require.Equal(t, "string", store.InputSchema.Properties["eventId"].Type)
	require.Equal(t, 1000, store.TestConfig.Timeout)
	require.False(t, store.IsReadOnly())

	received, ok := wf.GetStep("received")
	require.True(t, ok)
	require.True(t, received.IsReadOnly())

	_, ok = wf.GetStep("missing")
	require.False(t, ok)
}

func TestLoadWorkflowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orderWorkflowYAML), 0644))

	wf, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "order-intake", wf.ID())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExecutionOrderIsACopy(t *testing.T) {
	wf := newTestWorkflow(t, testStep("a"), testStep("b", "a"))
	order := wf.ExecutionOrder()
	order[0] = nil
	require.Equal(t, []string{"a", "b"}, stepIDs(wf.ExecutionOrder()))
}

func TestInvalidWorkflows(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing id",
			yaml:    "steps: [{id: a, name: A, test_config: {timeout: 10}}]",
			wantErr: "invalid workflow document",
		},
		{
			name:    "no steps",
			yaml:    "id: wf\nsteps: []",
			wantErr: "invalid workflow document",
		},
		{
			name:    "missing test config",
			yaml:    "id: wf\nsteps: [{id: a, name: A}]",
			wantErr: "invalid workflow document",
		},
		{
			name:    "zero timeout",
			yaml:    "id: wf\nsteps: [{id: a, name: A, test_config: {timeout: 0}}]",
			wantErr: "invalid workflow document",
		},
		{
			name:    "unknown operation",
			yaml:    "id: wf\nsteps: [{id: a, name: A, test_config: {timeout: 10, operations: [delete]}}]",
			wantErr: "invalid workflow document",
		},
		{
			name:    "duplicate step ids",
			yaml:    "id: wf\nsteps: [{id: a, name: A, test_config: {timeout: 10}}, {id: a, name: B, test_config: {timeout: 10}}]",
			wantErr: `duplicate step id "a"`,
		},
		{
			name:    "unknown dependency",
			yaml:    "id: wf\nsteps: [{id: a, name: A, dependencies: [ghost], test_config: {timeout: 10}}]",
			wantErr: `depends on unknown step "ghost"`,
		},
		{
			name:    "malformed yaml",
			yaml:    "id: [",
			wantErr: "failed to unmarshal workflow document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.yaml)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewWorkflowValidation(t *testing.T) {
	t.Run("struct validation", func(t *testing.T) {
		_, err := New(Options{ID: "wf"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid workflow")

		step := testStep("a")
		step.TestConfig.Timeout = 0
		_, err = New(Options{ID: "wf", Steps: []*Step{step}})
		require.Error(t, err)
		require.Contains(t, err.Error(), "Timeout")
	})

	t.Run("duplicate dependencies", func(t *testing.T) {
		_, err := New(Options{ID: "wf", Steps: []*Step{testStep("a"), testStep("b", "a", "a")}})
		require.Error(t, err)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := New(Options{ID: "wf", Steps: []*Step{testStep("a", "b"), testStep("b", "a")}})
		require.Error(t, err)

		var cycleErr *CyclicDependencyError
		require.True(t, errors.As(err, &cycleErr))
		require.Equal(t, []string{"a", "b", "a"}, cycleErr.Steps)
	})
}
