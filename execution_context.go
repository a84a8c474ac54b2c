package processmap

import (
	"sync"

	"github.com/deepnoodle-ai/processmap/state"
)

var _ state.Reader = (*ExecutionContext)(nil)

// ExecutionContext holds the working data of a single test run: the initial
// payload, the outputs recorded for completed steps and the run log.
//
// Only the engine records step outputs. A step abandoned after its timeout
// may still read the context from its own goroutine, so access is locked.
type ExecutionContext struct {
	runID       string
	runMode     RunMode
	initialData map[string]any
	stepOutputs map[string]map[string]any
	logs        []LogEntry
	listener    func(LogEntry)
	mutex       sync.RWMutex
}

// NewExecutionContext creates the context for one run, seeded with the given
// initial data.
func NewExecutionContext(runID string, runMode RunMode, initialData map[string]any) *ExecutionContext {
	data := copyMap(initialData)
	if data == nil {
		data = map[string]any{}
	}
	return &ExecutionContext{
		runID:       runID,
		runMode:     runMode,
		initialData: data,
		stepOutputs: map[string]map[string]any{},
	}
}

// RunID returns the id of the run that owns this context
func (c *ExecutionContext) RunID() string {
	return c.runID
}

// RunMode returns the mode of the run, with an empty mode reported as mock
func (c *ExecutionContext) RunMode() RunMode {
	if c.runMode == "" {
		return RunModeMock
	}
	return c.runMode
}

// ResolveInputs returns the initial data merged with the recorded outputs of
// the given dependencies, applied in order. Later dependencies win on key
// conflicts. Dependencies without a recorded output are skipped.
func (c *ExecutionContext) ResolveInputs(dependencies []string) map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	inputs := copyMap(c.initialData)
	for _, dep := range dependencies {
		output, ok := c.stepOutputs[dep]
		if !ok {
			continue
		}
		for k, v := range output {
			inputs[k] = copyValue(v)
		}
	}
	return inputs
}

// SetStepOutput records the output of a successful step, replacing any
// previous output for the same step.
func (c *ExecutionContext) SetStepOutput(stepID string, output map[string]any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := copyMap(output)
	if stored == nil {
		stored = map[string]any{}
	}
	c.stepOutputs[stepID] = stored
}

// GetStepOutput returns a copy of the output recorded for a step
func (c *ExecutionContext) GetStepOutput(stepID string) (map[string]any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	output, ok := c.stepOutputs[stepID]
	if !ok {
		return nil, false
	}
	return copyMap(output), true
}

// GetStepOutputs returns a copy of every recorded step output
func (c *ExecutionContext) GetStepOutputs() map[string]map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	outputs := make(map[string]map[string]any, len(c.stepOutputs))
	for id, output := range c.stepOutputs {
		outputs[id] = copyMap(output)
	}
	return outputs
}

// GetInitialData returns a copy of the data the run was seeded with
func (c *ExecutionContext) GetInitialData() map[string]any {
	return copyMap(c.initialData)
}

// AddLog appends an entry to the run log and returns it
func (c *ExecutionContext) AddLog(level LogLevel, message string, data map[string]any) LogEntry {
	entry := NewLogEntry(level, message, data)
	c.AppendLog(entry)
	return entry
}

// AppendLog appends a copy of an existing entry to the run log
func (c *ExecutionContext) AppendLog(entry LogEntry) {
	stored := entry
	stored.Data = copyMap(entry.Data)

	c.mutex.Lock()
	c.logs = append(c.logs, stored)
	listener := c.listener
	c.mutex.Unlock()

	if listener != nil {
		listener(entry)
	}
}

// Logs returns a copy of the run log
func (c *ExecutionContext) Logs() []LogEntry {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return copyLogs(c.logs)
}

// setLogListener installs a function called with every entry appended to the
// run log.
func (c *ExecutionContext) setLogListener(listener func(LogEntry)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listener = listener
}
