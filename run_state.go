package processmap

import (
	"sync"
	"time"
)

// runState accumulates the step results and counters of a test run and
// produces the final TestRun record.
type runState struct {
	run     TestRun
	results []*StepResult
	halted  bool
	mutex   sync.RWMutex
}

func newRunState(run TestRun) *runState {
	run.Status = RunStatusRunning
	run.TestData = copyMap(run.TestData)
	return &runState{run: run}
}

// Snapshot returns a copy of the run record as it stands
func (s *runState) Snapshot() *TestRun {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	run := s.run
	run.TestData = copyMap(s.run.TestData)
	return &run
}

// Record adds a step result and updates the counters
func (s *runState) Record(result *StepResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.results = append(s.results, result)
	switch result.Status {
	case StepStatusPassed:
		s.run.PassedSteps++
	case StepStatusFailed:
		s.run.FailedSteps++
	case StepStatusSkipped:
		s.run.SkippedSteps++
	}
}

// Halt marks the run as stopped early. The message, if any, is kept as the
// run error.
func (s *runState) Halt(message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.halted = true
	if message != "" && s.run.ErrorMessage == "" {
		s.run.ErrorMessage = message
	}
}

// Halted returns true once the run has been stopped early
func (s *runState) Halted() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.halted
}

// Results returns the step results recorded so far
func (s *runState) Results() []*StepResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	results := make([]*StepResult, len(s.results))
	copy(results, s.results)
	return results
}

// Finish sets the final status and verdict. A halted run always fails.
// Otherwise a run without failures passes, a run with both passes and
// failures is partial, and a run where nothing passed fails.
func (s *runState) Finish(completedAt time.Time) *TestRun {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch {
	case s.halted:
		s.run.Status = RunStatusFailed
		s.run.OverallResult = OverallResultFail
	case s.run.FailedSteps == 0:
		s.run.Status = RunStatusCompleted
		s.run.OverallResult = OverallResultPass
	case s.run.PassedSteps > 0:
		s.run.Status = RunStatusCompleted
		s.run.OverallResult = OverallResultPartial
	default:
		s.run.Status = RunStatusFailed
		s.run.OverallResult = OverallResultFail
	}
	s.run.CompletedAt = completedAt
	s.run.DurationMs = completedAt.Sub(s.run.StartedAt).Milliseconds()

	run := s.run
	run.TestData = copyMap(s.run.TestData)
	return &run
}
