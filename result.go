package processmap

import (
	"time"

	"github.com/deepnoodle-ai/processmap/state"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepStatusPassed  StepStatus = "passed"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// RunStatus is the lifecycle state of a test run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// OverallResult is the verdict of a finished run. It is empty while the run
// is in progress.
type OverallResult string

const (
	OverallResultPass    OverallResult = "pass"
	OverallResultPartial OverallResult = "partial"
	OverallResultFail    OverallResult = "fail"
)

// StepResult is the record of one scheduled step. It is created once and
// never modified afterwards.
type StepResult struct {
	TestRunID         string             `json:"test_run_id"`
	StepID            string             `json:"step_id"`
	StepName          string             `json:"step_name"`
	Sequence          int                `json:"sequence"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       time.Time          `json:"completed_at"`
	DurationMs        int64              `json:"duration_ms"`
	Status            StepStatus         `json:"status"`
	InputData         map[string]any     `json:"input_data"`
	OutputData        map[string]any     `json:"output_data"`
	ValidationResults []ValidationResult `json:"validation_results"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	ErrorDetails      map[string]any     `json:"error_details,omitempty"`
	ErrorStack        string             `json:"error_stack,omitempty"`
	WasMocked         bool               `json:"was_mocked"`
	MockSource        string             `json:"mock_source,omitempty"`
	Logs              []LogEntry         `json:"logs"`
}

// TestRun is the summary record of a test run.
type TestRun struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	OrgID         string         `json:"org_id,omitempty"`
	RunMode       RunMode        `json:"run_mode"`
	TestData      map[string]any `json:"test_data"`
	Config        TestRunConfig  `json:"config"`
	Status        RunStatus      `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at,omitzero"`
	DurationMs    int64          `json:"duration_ms"`
	OverallResult OverallResult  `json:"overall_result,omitempty"`
	TotalSteps    int            `json:"total_steps"`
	PassedSteps   int            `json:"passed_steps"`
	FailedSteps   int            `json:"failed_steps"`
	SkippedSteps  int            `json:"skipped_steps"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// RunResult is returned by TestEngine.Run.
type RunResult struct {
	TestRun     *TestRun      `json:"test_run"`
	StepResults []*StepResult `json:"step_results"`

	// Context gives read access to the final working data of the run.
	Context state.Reader `json:"-"`
}

// RunSummary provides a summary view of a stored run
type RunSummary struct {
	RunID         string        `json:"run_id"`
	WorkflowID    string        `json:"workflow_id"`
	Status        RunStatus     `json:"status"`
	OverallResult OverallResult `json:"overall_result,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at,omitzero"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// Summary returns the summary view of the run.
func (r *TestRun) Summary() *RunSummary {
	return &RunSummary{
		RunID:         r.ID,
		WorkflowID:    r.WorkflowID,
		Status:        r.Status,
		OverallResult: r.OverallResult,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		Duration:      time.Duration(r.DurationMs) * time.Millisecond,
		Error:         r.ErrorMessage,
	}
}
