package processmap

import (
	"context"
	"time"
)

// TestCallbacks receives progress events from a running TestEngine. Events
// are delivered synchronously on the engine's goroutine, in order. Callbacks
// are not guarded: a panic in a callback propagates to the caller of Run.
type TestCallbacks interface {
	// Run-level callbacks
	OnRunStart(ctx context.Context, run *TestRun)
	OnRunComplete(ctx context.Context, result *RunResult)

	// Step-level callbacks
	OnStepStart(ctx context.Context, event *StepStartEvent)
	OnStepComplete(ctx context.Context, result *StepResult)

	// OnLog receives every log entry recorded on the execution context.
	OnLog(ctx context.Context, entry LogEntry)

	// OnError receives errors raised by an executor outside its result
	// contract, including recovered panics.
	OnError(ctx context.Context, err error)
}

// StepStartEvent describes a step about to be attempted
type StepStartEvent struct {
	RunID     string
	StepID    string
	StepName  string
	StepType  StepType
	Sequence  int
	StartedAt time.Time
}

// BaseTestCallbacks provides a default implementation that does nothing
type BaseTestCallbacks struct{}

func (b *BaseTestCallbacks) OnRunStart(ctx context.Context, run *TestRun) {
	// noop
}

func (b *BaseTestCallbacks) OnRunComplete(ctx context.Context, result *RunResult) {
	// noop
}

func (b *BaseTestCallbacks) OnStepStart(ctx context.Context, event *StepStartEvent) {
	// noop
}

func (b *BaseTestCallbacks) OnStepComplete(ctx context.Context, result *StepResult) {
	// noop
}

func (b *BaseTestCallbacks) OnLog(ctx context.Context, entry LogEntry) {
	// noop
}

func (b *BaseTestCallbacks) OnError(ctx context.Context, err error) {
	// noop
}

// NewBaseTestCallbacks creates a new no-op callbacks implementation.
// Embed BaseTestCallbacks in your own callbacks to only implement the events
// you care about.
func NewBaseTestCallbacks() TestCallbacks {
	return &BaseTestCallbacks{}
}

// CallbackFuncs adapts optional functions to TestCallbacks. Nil functions
// are skipped.
type CallbackFuncs struct {
	RunStart     func(ctx context.Context, run *TestRun)
	RunComplete  func(ctx context.Context, result *RunResult)
	StepStart    func(ctx context.Context, event *StepStartEvent)
	StepComplete func(ctx context.Context, result *StepResult)
	Log          func(ctx context.Context, entry LogEntry)
	Error        func(ctx context.Context, err error)
}

func (f *CallbackFuncs) OnRunStart(ctx context.Context, run *TestRun) {
	if f.RunStart != nil {
		f.RunStart(ctx, run)
	}
}

func (f *CallbackFuncs) OnRunComplete(ctx context.Context, result *RunResult) {
	if f.RunComplete != nil {
		f.RunComplete(ctx, result)
	}
}

func (f *CallbackFuncs) OnStepStart(ctx context.Context, event *StepStartEvent) {
	if f.StepStart != nil {
		f.StepStart(ctx, event)
	}
}

func (f *CallbackFuncs) OnStepComplete(ctx context.Context, result *StepResult) {
	if f.StepComplete != nil {
		f.StepComplete(ctx, result)
	}
}

func (f *CallbackFuncs) OnLog(ctx context.Context, entry LogEntry) {
	if f.Log != nil {
		f.Log(ctx, entry)
	}
}

func (f *CallbackFuncs) OnError(ctx context.Context, err error) {
	if f.Error != nil {
		f.Error(ctx, err)
	}
}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []TestCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...TestCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback TestCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) OnRunStart(ctx context.Context, run *TestRun) {
	for _, callback := range c.callbacks {
		callback.OnRunStart(ctx, run)
	}
}

func (c *CallbackChain) OnRunComplete(ctx context.Context, result *RunResult) {
	for _, callback := range c.callbacks {
		callback.OnRunComplete(ctx, result)
	}
}

func (c *CallbackChain) OnStepStart(ctx context.Context, event *StepStartEvent) {
	for _, callback := range c.callbacks {
		callback.OnStepStart(ctx, event)
	}
}

func (c *CallbackChain) OnStepComplete(ctx context.Context, result *StepResult) {
	for _, callback := range c.callbacks {
		callback.OnStepComplete(ctx, result)
	}
}

func (c *CallbackChain) OnLog(ctx context.Context, entry LogEntry) {
	for _, callback := range c.callbacks {
		callback.OnLog(ctx, entry)
	}
}

func (c *CallbackChain) OnError(ctx context.Context, err error) {
	for _, callback := range c.callbacks {
		callback.OnError(ctx, err)
	}
}
