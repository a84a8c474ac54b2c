package processmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NewRunID returns a new unique id for a test run
func NewRunID() string {
	return newGeneratedID("run")
}

// TestEngineOptions configures a new test engine
type TestEngineOptions struct {
	Workflow  *Workflow
	Mocks     []*Mock
	TestData  map[string]any
	RunMode   RunMode
	Config    TestRunConfig
	Executor  StepExecutor
	Callbacks TestCallbacks
	Logger    *slog.Logger
	Tracer    trace.Tracer
	RunID     string
}

// TestEngine runs every step of a workflow once, in dependency order, and
// produces a verdict for the run. A TestEngine performs a single run.
type TestEngine struct {
	workflow  *Workflow
	mocks     []*Mock
	testData  map[string]any
	runMode   RunMode
	config    TestRunConfig
	executor  StepExecutor
	callbacks TestCallbacks
	logger    *slog.Logger
	tracer    trace.Tracer
	runID     string

	mutex   sync.Mutex
	started bool
}

// NewTestEngine creates a new test engine. The run mode defaults to mock, a
// zero run timeout to DefaultRunTimeout and the executor to a
// DefaultStepExecutor.
func NewTestEngine(opts TestEngineOptions) (*TestEngine, error) {
	if opts.Workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if err := validateStruct("config", opts.Config); err != nil {
		return nil, err
	}
	if err := ValidateMocks(opts.Mocks); err != nil {
		return nil, fmt.Errorf("invalid mocks: %w", err)
	}
	if opts.RunMode == "" {
		opts.RunMode = RunModeMock
	}
	if opts.Config.Timeout == 0 {
		opts.Config.Timeout = DefaultRunTimeout
	}
	if opts.Executor == nil {
		opts.Executor = NewDefaultStepExecutor()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseTestCallbacks{}
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger
	}
	if opts.Tracer == nil {
		opts.Tracer = defaultTracer()
	}
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	return &TestEngine{
		workflow:  opts.Workflow,
		mocks:     opts.Mocks,
		testData:  copyMap(opts.TestData),
		runMode:   opts.RunMode,
		config:    opts.Config,
		executor:  opts.Executor,
		callbacks: opts.Callbacks,
		logger: opts.Logger.With(
			"run_id", opts.RunID,
			"workflow_id", opts.Workflow.ID(),
		),
		tracer: opts.Tracer,
		runID:  opts.RunID,
	}, nil
}

// RunID returns the id of the run
func (e *TestEngine) RunID() string {
	return e.runID
}

func (e *TestEngine) start() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.started {
		return fmt.Errorf("test run already started")
	}
	e.started = true
	return nil
}

// Run executes the test run to completion. Step failures, timeouts, skips
// and cancellation are all reported in the returned RunResult; an error is
// only returned if the engine has already been run.
func (e *TestEngine) Run(ctx context.Context) (*RunResult, error) {
	if err := e.start(); err != nil {
		return nil, err
	}

	ctx = WithRunID(WithLogger(ctx, e.logger), e.runID)
	ctx, span := e.tracer.Start(ctx, "processmap.run", trace.WithAttributes(
		RunIDKey.String(e.runID),
		RunModeKey.String(string(e.runMode)),
		WorkflowIDKey.String(e.workflow.ID()),
	))
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, e.config.TimeoutDuration())
	defer cancel()

	ectx := NewExecutionContext(e.runID, e.runMode, e.testData)
	ectx.setLogListener(func(entry LogEntry) {
		e.callbacks.OnLog(ctx, entry)
	})

	order := filterOrder(e.workflow.ExecutionOrder(), e.config.SelectedSteps)
	state := newRunState(TestRun{
		ID:         e.runID,
		WorkflowID: e.workflow.ID(),
		OrgID:      e.workflow.OrgID(),
		RunMode:    e.runMode,
		TestData:   e.testData,
		Config:     e.config,
		StartedAt:  time.Now(),
		TotalSteps: len(order),
	})

	e.logger.Info("starting test run", "run_mode", e.runMode, "steps", len(order))
	e.callbacks.OnRunStart(ctx, state.Snapshot())
	ectx.AddLog(LogLevelInfo, "Test run started", map[string]any{
		"workflow_id": e.workflow.ID(),
		"run_mode":    string(e.runMode),
		"total_steps": len(order),
	})

	for i, step := range order {
		if err := runCtx.Err(); err != nil {
			state.Halt(e.interruptedMessage(err))
			break
		}
		e.runStep(ctx, runCtx, ectx, state, step, i+1)
		if state.Halted() {
			break
		}
	}

	run := state.Finish(time.Now())
	ectx.AddLog(LogLevelInfo, "Test run finished", map[string]any{
		"status":         string(run.Status),
		"overall_result": string(run.OverallResult),
		"passed_steps":   run.PassedSteps,
		"failed_steps":   run.FailedSteps,
		"skipped_steps":  run.SkippedSteps,
	})

	span.SetAttributes(
		StatusKey.String(string(run.Status)),
		attribute.String("processmap.run.overall_result", string(run.OverallResult)),
	)
	if run.Status == RunStatusFailed {
		setSpanError(span, errors.New(runErrorMessage(run)))
	}
	e.logger.Info("test run finished",
		"status", run.Status,
		"overall_result", run.OverallResult,
		"passed", run.PassedSteps,
		"failed", run.FailedSteps,
		"skipped", run.SkippedSteps,
		"duration_ms", run.DurationMs)

	result := &RunResult{
		TestRun:     run,
		StepResults: state.Results(),
		Context:     ectx,
	}
	e.callbacks.OnRunComplete(ctx, result)
	return result, nil
}

// stepOutcome is what the step goroutine hands back to the engine.
type stepOutcome struct {
	result *StepExecutionResult
	err    error
	stack  string
}

// runStep attempts one step and records its result. It halts the run when
// the step fails and the configuration does not allow continuing, or when
// the run itself is interrupted.
func (e *TestEngine) runStep(ctx, runCtx context.Context, ectx *ExecutionContext, state *runState, step *Step, sequence int) {
	logger := e.logger.With("step_id", step.ID, "sequence", sequence)

	ctx, span := e.tracer.Start(ctx, "processmap.step", trace.WithAttributes(
		StepIDKey.String(step.ID),
		StepNameKey.String(step.Name),
		StepTypeKey.String(string(step.Type)),
		SequenceKey.Int(sequence),
	))
	defer span.End()

	e.callbacks.OnStepStart(ctx, &StepStartEvent{
		RunID:     e.runID,
		StepID:    step.ID,
		StepName:  step.Name,
		StepType:  step.Type,
		Sequence:  sequence,
		StartedAt: time.Now(),
	})

	result := &StepResult{
		TestRunID:         e.runID,
		StepID:            step.ID,
		StepName:          step.Name,
		Sequence:          sequence,
		InputData:         map[string]any{},
		OutputData:        map[string]any{},
		ValidationResults: []ValidationResult{},
		Logs:              []LogEntry{},
	}

	if err := sleepContext(runCtx, e.config.StepDelay()); err != nil {
		result.StartedAt = time.Now()
		e.interrupt(ctx, span, state, result, err)
		return
	}

	result.StartedAt = time.Now()
	result.InputData = ectx.ResolveInputs(step.Dependencies)

	if !e.executor.CanExecute(step, ectx) {
		result.CompletedAt = time.Now()
		result.Status = StepStatusSkipped
		result.ErrorMessage = fmt.Sprintf("Step %q cannot be executed in %s mode", step.Name, ectx.RunMode())
		logger.Info("step skipped", "run_mode", ectx.RunMode())
		span.SetAttributes(StatusKey.String(string(result.Status)))
		e.complete(ctx, ectx, state, result, nil)
		return
	}

	outcome, interruptErr := e.execute(runCtx, step, ectx)
	result.CompletedAt = time.Now()
	result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()

	switch {
	case interruptErr != nil:
		e.interrupt(ctx, span, state, result, interruptErr)
		return

	case outcome.err != nil:
		// The executor broke its result contract: returned an error,
		// panicked or exceeded the step timeout.
		var stepErr *StepError
		// A step timeout is a failed step, not an executor error: no OnError
		// and the measured duration is kept.
		if !errors.As(outcome.err, &stepErr) || stepErr.Type != ErrorTypeTimeout {
			e.callbacks.OnError(ctx, outcome.err)
			result.DurationMs = 0
		}
		result.Status = StepStatusFailed
		result.ErrorMessage = errorMessage(outcome.err)
		result.ErrorDetails = errorDetails(outcome.err)
		result.ErrorDetails["name"] = errorName(outcome.err)
		result.ErrorStack = outcome.stack
		logger.Warn("step errored", "error", outcome.err)

	default:
		res := outcome.result
		result.WasMocked = res.WasMocked
		result.MockSource = res.MockSource
		if res.OutputData != nil {
			result.OutputData = copyMap(res.OutputData)
		}
		if res.ValidationResults != nil {
			result.ValidationResults = append(result.ValidationResults, res.ValidationResults...)
		}
		result.Logs = copyLogs(res.Logs)
		if res.Success {
			result.Status = StepStatusPassed
		} else {
			result.Status = StepStatusFailed
			err := res.Error
			if err == nil {
				err = NewStepError(ErrorTypeStepFailed, fmt.Sprintf("Step %q failed", step.Name))
			}
			result.ErrorMessage = errorMessage(err)
			result.ErrorDetails = errorDetails(err)
		}
		logger.Debug("step finished", "status", result.Status, "mocked", result.WasMocked)
	}

	span.SetAttributes(
		StatusKey.String(string(result.Status)),
		MockedKey.Bool(result.WasMocked),
	)
	if result.Status == StepStatusFailed {
		setSpanError(span, errors.New(result.ErrorMessage))
	}
	e.complete(ctx, ectx, state, result, outcome.result)

	if result.Status == StepStatusFailed && !e.config.ContinueOnFailure {
		state.Halt(fmt.Sprintf("Step %q failed: %s", step.Name, result.ErrorMessage))
		logger.Info("halting test run after step failure")
	}
}

// execute runs the executor in its own goroutine, bounded by the step
// timeout. The second return value is set only when the run itself was
// canceled or hit its deadline while the step was in flight. A step that
// outlives its timeout is abandoned, not killed.
func (e *TestEngine) execute(runCtx context.Context, step *Step, ectx *ExecutionContext) (stepOutcome, error) {
	var (
		stepCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout := step.TestConfig.TimeoutDuration(); timeout > 0 {
		stepCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		stepCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()

	done := make(chan stepOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stepOutcome{
					err: &StepError{
						Type:    ErrorTypePanic,
						Cause:   fmt.Sprintf("panic: %v", r),
						Details: map[string]any{"panic": fmt.Sprint(r)},
					},
					stack: string(debug.Stack()),
				}
			}
		}()
		res, err := e.executor.Execute(stepCtx, step, ectx, e.mocks)
		if err == nil && res == nil {
			err = fmt.Errorf("executor returned no result for step %q", step.ID)
		}
		done <- stepOutcome{result: res, err: err}
	}()

	var outcome stepOutcome
	select {
	case outcome = <-done:
		if outcome.err == nil {
			return outcome, nil
		}
	case <-stepCtx.Done():
	}

	// Either the step context ended first, or the executor gave up because
	// it did.
	if err := runCtx.Err(); err != nil {
		return stepOutcome{}, err
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return stepOutcome{err: &StepError{
			Type:  ErrorTypeTimeout,
			Cause: fmt.Sprintf("Step %q timed out after %dms", step.Name, step.TestConfig.Timeout),
			Details: map[string]any{
				"timeout_ms": step.TestConfig.Timeout,
			},
			Wrapped: context.DeadlineExceeded,
		}}, nil
	}
	return outcome, nil
}

// interrupt records a failed result for a step cut short by run
// cancellation or the run deadline, and halts the run.
func (e *TestEngine) interrupt(ctx context.Context, span trace.Span, state *runState, result *StepResult, err error) {
	message := e.interruptedMessage(err)
	result.CompletedAt = time.Now()
	result.Status = StepStatusFailed
	result.ErrorMessage = message
	result.ErrorDetails = errorDetails(err)
	setSpanError(span, err)
	state.Record(result)
	e.callbacks.OnStepComplete(ctx, result)
	state.Halt(message)
	e.logger.Warn("test run interrupted", "step_id", result.StepID, "error", err)
}

// complete records the result, notifies callbacks and publishes the step's
// logs and output to the execution context.
func (e *TestEngine) complete(ctx context.Context, ectx *ExecutionContext, state *runState, result *StepResult, res *StepExecutionResult) {
	state.Record(result)
	e.callbacks.OnStepComplete(ctx, result)
	for _, entry := range result.Logs {
		ectx.AppendLog(entry)
	}
	if result.Status == StepStatusPassed && res != nil {
		ectx.SetStepOutput(result.StepID, res.OutputData)
	}
}

func (e *TestEngine) interruptedMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Test run timed out after %dms", e.config.Timeout)
	}
	return "Test run canceled"
}

// sleepContext waits for the duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorMessage returns the human readable part of an error.
func errorMessage(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Cause != "" {
		return stepErr.Cause
	}
	return err.Error()
}

// errorName returns the classification of an error, or its Go type when it
// is not a StepError.
func errorName(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Type
	}
	return fmt.Sprintf("%T", err)
}

func runErrorMessage(run *TestRun) string {
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	return fmt.Sprintf("%d of %d steps failed", run.FailedSteps, run.TotalSteps)
}
