package processmap

import "time"

// RunMode is the execution policy of a test run.
type RunMode string

const (
	// RunModeMock always simulates: mocks apply and everything else is
	// synthesized.
	RunModeMock RunMode = "mock"

	// RunModeSchemaValidation lints step inputs; input validation errors
	// fail the step.
	RunModeSchemaValidation RunMode = "schema_validation"

	// RunModeProductionReadonly only allows read-only steps and never
	// applies mocks.
	RunModeProductionReadonly RunMode = "production_readonly"
)

// IsKnown returns true for the run modes the default executor understands.
// The empty mode counts as mock.
func (m RunMode) IsKnown() bool {
	switch m {
	case "", RunModeMock, RunModeSchemaValidation, RunModeProductionReadonly:
		return true
	}
	return false
}

const (
	DefaultRunTimeout  = 300000
	DefaultStepDelayMs = 200
)

// TestRunConfig configures a single test run.
type TestRunConfig struct {
	// Timeout bounds the whole run, in milliseconds. Zero means the default.
	Timeout int `json:"timeout" yaml:"timeout" validate:"gte=0"`

	// ContinueOnFailure keeps running the remaining steps after a failure.
	ContinueOnFailure bool `json:"continue_on_failure" yaml:"continue_on_failure"`

	// SelectedSteps restricts the run to these step ids. Nil runs all steps.
	SelectedSteps []string `json:"selected_steps" yaml:"selected_steps"`

	// StepDelayMs is a pacing delay applied before each step. Unlike
	// Timeout, zero is not replaced with a default: it disables the delay.
	// DefaultTestRunConfig sets DefaultStepDelayMs.
	StepDelayMs int `json:"step_delay_ms" yaml:"step_delay_ms" validate:"gte=0"`
}

// DefaultTestRunConfig returns the default run configuration.
func DefaultTestRunConfig() TestRunConfig {
	return TestRunConfig{
		Timeout:     DefaultRunTimeout,
		StepDelayMs: DefaultStepDelayMs,
	}
}

// TimeoutDuration returns the run timeout as a time.Duration.
func (c TestRunConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// StepDelay returns the pacing delay as a time.Duration.
func (c TestRunConfig) StepDelay() time.Duration {
	return time.Duration(c.StepDelayMs) * time.Millisecond
}
