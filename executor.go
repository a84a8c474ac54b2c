package processmap

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Confirm the interfaces are implemented correctly.
var (
	_ StepExecutor = (*DefaultStepExecutor)(nil)
	_ StepExecutor = (*stepExecutorFunc)(nil)
)

// StepExecutionResult is what an executor reports for one step.
type StepExecutionResult struct {
	Success           bool
	OutputData        map[string]any
	WasMocked         bool
	MockSource        string
	ValidationResults []ValidationResult
	Error             error
	Logs              []LogEntry
}

// StepExecutor decides whether a step may run under the current run mode and
// executes it.
//
// Execute reports business failures through StepExecutionResult.Success. A
// returned error means execution broke outside that contract and is recorded
// as a failure and reported to OnError. The context is canceled when the
// step times out; executors should stop work when it is done.
type StepExecutor interface {
	CanExecute(step *Step, ectx *ExecutionContext) bool
	Execute(ctx context.Context, step *Step, ectx *ExecutionContext, mocks []*Mock) (*StepExecutionResult, error)
}

// ExecuteStepFunc is the signature of StepExecutor.Execute
type ExecuteStepFunc func(ctx context.Context, step *Step, ectx *ExecutionContext, mocks []*Mock) (*StepExecutionResult, error)

// stepExecutorFunc wraps a function for use as a StepExecutor. It applies the
// default run mode gating.
type stepExecutorFunc struct {
	fn ExecuteStepFunc
}

// NewStepExecutorFunc returns a StepExecutor for the given function.
func NewStepExecutorFunc(fn ExecuteStepFunc) StepExecutor {
	return &stepExecutorFunc{fn: fn}
}

func (f *stepExecutorFunc) CanExecute(step *Step, ectx *ExecutionContext) bool {
	return canExecuteInMode(step, ectx)
}

func (f *stepExecutorFunc) Execute(ctx context.Context, step *Step, ectx *ExecutionContext, mocks []*Mock) (*StepExecutionResult, error) {
	return f.fn(ctx, step, ectx, mocks)
}

// DefaultStepExecutor simulates steps: it applies the best matching mock or
// synthesizes a representative output for the step type, validating inputs
// and synthesized outputs against the step schemas.
type DefaultStepExecutor struct {
	synthesizers map[StepType]Synthesizer

	// ValidateMockedOutput also validates mock response data against the
	// output schema. Off by default: mocked responses are taken as given.
	ValidateMockedOutput bool
}

// NewDefaultStepExecutor returns an executor with the built-in synthesizers.
func NewDefaultStepExecutor() *DefaultStepExecutor {
	synthesizers := make(map[StepType]Synthesizer, len(defaultSynthesizers))
	for stepType, synthesizer := range defaultSynthesizers {
		synthesizers[stepType] = synthesizer
	}
	return &DefaultStepExecutor{synthesizers: synthesizers}
}

// RegisterSynthesizer sets the synthesizer used for a step type.
func (e *DefaultStepExecutor) RegisterSynthesizer(stepType StepType, synthesizer Synthesizer) {
	if e.synthesizers == nil {
		e.synthesizers = map[StepType]Synthesizer{}
	}
	e.synthesizers[stepType] = synthesizer
}

// CanExecute implements StepExecutor.
func (e *DefaultStepExecutor) CanExecute(step *Step, ectx *ExecutionContext) bool {
	return canExecuteInMode(step, ectx)
}

// canExecuteInMode allows every step in mock and schema validation modes and
// only read-only steps in production read-only mode. Unknown modes are
// logged and allowed.
func canExecuteInMode(step *Step, ectx *ExecutionContext) bool {
	mode := ectx.RunMode()
	switch mode {
	case RunModeMock, RunModeSchemaValidation:
		return true
	case RunModeProductionReadonly:
		return step.IsReadOnly()
	}
	ectx.AddLog(LogLevelWarn, fmt.Sprintf("Unknown run mode %q, executing step %q", mode, step.Name), map[string]any{
		"step_id":  step.ID,
		"run_mode": string(mode),
	})
	return true
}

// Execute implements StepExecutor.
func (e *DefaultStepExecutor) Execute(ctx context.Context, step *Step, ectx *ExecutionContext, mocks []*Mock) (*StepExecutionResult, error) {
	logger := loggerFromContext(ctx).With("step_id", step.ID)
	// The engine's logger already carries the run id.
	if _, ok := GetRunIDFromContext(ctx); !ok {
		logger = logger.With("run_id", ectx.RunID())
	}
	mode := ectx.RunMode()
	result := &StepExecutionResult{}

	result.log(LogLevelInfo, "Starting step: "+step.Name, map[string]any{
		"step_id":   step.ID,
		"step_type": string(step.Type),
	})

	inputs := ectx.ResolveInputs(step.Dependencies)
	result.ValidationResults = ValidateSchema(inputs, step.InputSchema)

	if mode == RunModeSchemaValidation && HasValidationErrors(result.ValidationResults) {
		failed := failedChecks(result.ValidationResults, SeverityError)
		result.OutputData = map[string]any{}
		result.Error = &StepError{
			Type:    ErrorTypeValidation,
			Cause:   "Input validation failed: " + strings.Join(failed, ", "),
			Details: map[string]any{"failed_checks": failed},
		}
		result.log(LogLevelError, "Input validation failed", map[string]any{"failed_checks": failed})
		logger.Debug("input validation failed", "checks", failed)
		return result, nil
	}

	if mode != RunModeProductionReadonly {
		if mock := ResolveMock(step.Integration, mocks); mock != nil {
			return e.applyMock(ctx, step, mock, result)
		}
	}

	output := e.synthesize(step, inputs)
	result.ValidationResults = append(result.ValidationResults, ValidateSchema(output, step.OutputSchema)...)
	result.Success = true
	result.OutputData = output
	result.log(LogLevelInfo, "Synthesized output for step: "+step.Name, map[string]any{
		"step_type": string(step.Type),
	})
	logger.Debug("synthesized step output", "step_type", step.Type)
	return result, nil
}

// applyMock resolves the step with the given mock, after its simulated delay.
func (e *DefaultStepExecutor) applyMock(ctx context.Context, step *Step, mock *Mock, result *StepExecutionResult) (*StepExecutionResult, error) {
	result.WasMocked = true
	result.MockSource = mock.Integration
	result.log(LogLevelInfo, fmt.Sprintf("Using %s mock for integration %s", mock.MockType, mock.Integration), map[string]any{
		"mock_id":   mock.ID,
		"mock_type": string(mock.MockType),
		"priority":  mock.Priority,
	})

	if delay := mock.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if mock.MockType.IsFault() {
		output := copyMap(mock.ErrorResponse)
		if output == nil {
			output = map[string]any{}
		}
		result.OutputData = output
		result.Error = &StepError{
			Type:  mock.MockType.errorType(),
			Cause: fmt.Sprintf("Mocked %s from integration %s", mock.MockType, mock.Integration),
			Details: map[string]any{
				"mock_id":   mock.ID,
				"mock_type": string(mock.MockType),
			},
		}
		result.log(LogLevelWarn, "Mock injected a failure", map[string]any{"mock_type": string(mock.MockType)})
		return result, nil
	}

	output := copyMap(mock.ResponseData)
	if output == nil {
		output = map[string]any{
			"success":   true,
			"mocked":    true,
			"stepId":    step.ID,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
	}
	if e.ValidateMockedOutput {
		result.ValidationResults = append(result.ValidationResults, ValidateSchema(output, step.OutputSchema)...)
	}
	result.Success = true
	result.OutputData = output
	return result, nil
}

// synthesize builds the output for an unmocked step. Step types without a
// registered synthesizer use the "other" shape.
func (e *DefaultStepExecutor) synthesize(step *Step, inputs map[string]any) map[string]any {
	if synthesizer, ok := e.synthesizers[step.Type]; ok {
		return synthesizer(step, inputs)
	}
	if synthesizer, ok := defaultSynthesizers[step.Type]; ok {
		return synthesizer(step, inputs)
	}
	return synthesizeOther(step, inputs)
}

func (r *StepExecutionResult) log(level LogLevel, message string, data map[string]any) {
	r.Logs = append(r.Logs, NewLogEntry(level, message, data))
}

func failedChecks(results []ValidationResult, severity Severity) []string {
	var checks []string
	for _, result := range results {
		if !result.Passed && result.Severity == severity {
			checks = append(checks, result.Check)
		}
	}
	return checks
}
