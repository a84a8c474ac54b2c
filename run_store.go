package processmap

import (
	"context"
	"time"
)

// StoredRun is the persisted record of a finished test run
type StoredRun struct {
	TestRun     *TestRun                  `json:"test_run"`
	StepResults []*StepResult             `json:"step_results"`
	StepOutputs map[string]map[string]any `json:"step_outputs"`
	SavedAt     time.Time                 `json:"saved_at"`
}

// NewStoredRun captures a run result for persistence
func NewStoredRun(result *RunResult) *StoredRun {
	stored := &StoredRun{
		TestRun:     result.TestRun,
		StepResults: result.StepResults,
		StepOutputs: map[string]map[string]any{},
		SavedAt:     time.Now(),
	}
	if result.Context != nil {
		stored.StepOutputs = result.Context.GetStepOutputs()
	}
	return stored
}

// RunStore persists test runs. The engine never writes to a store itself;
// callers save the RunResult once Run returns.
type RunStore interface {
	// SaveRun stores a finished run, replacing any previous record with the
	// same id
	SaveRun(ctx context.Context, run *StoredRun) error

	// LoadRun loads a stored run. It returns nil if the run is unknown.
	LoadRun(ctx context.Context, runID string) (*StoredRun, error)

	// DeleteRun removes a stored run
	DeleteRun(ctx context.Context, runID string) error

	// ListRuns returns summaries of the stored runs, newest first
	ListRuns(ctx context.Context) ([]*RunSummary, error)
}

// NullRunStore is a no-op implementation
type NullRunStore struct{}

func NewNullRunStore() *NullRunStore {
	return &NullRunStore{}
}

func (s *NullRunStore) SaveRun(ctx context.Context, run *StoredRun) error {
	return nil
}

func (s *NullRunStore) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	return nil, nil
}

func (s *NullRunStore) DeleteRun(ctx context.Context, runID string) error {
	return nil
}

func (s *NullRunStore) ListRuns(ctx context.Context) ([]*RunSummary, error) {
	return []*RunSummary{}, nil
}
