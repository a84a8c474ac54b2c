package processmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var _ TestCallbacks = (*FileStepLogger)(nil)

// FileStepLogger records every completed step of a run as a line of JSON in
// <directory>/<run_id>.jsonl. Attach it to an engine as a callback.
type FileStepLogger struct {
	BaseTestCallbacks

	directory string
	mutex     sync.Mutex
}

// NewFileStepLogger returns a step logger writing into the given directory
func NewFileStepLogger(directory string) *FileStepLogger {
	return &FileStepLogger{directory: directory}
}

func (l *FileStepLogger) runLogPath(runID string) string {
	return filepath.Join(l.directory, fmt.Sprintf("%s.jsonl", runID))
}

// OnStepComplete appends the step result to the run's log file. Write
// failures are reported to the context logger since callbacks cannot return
// errors.
func (l *FileStepLogger) OnStepComplete(ctx context.Context, result *StepResult) {
	if err := l.LogStep(result); err != nil {
		loggerFromContext(ctx).Error("failed to write step log",
			slog.String("step_id", result.StepID),
			slog.Any("error", err))
	}
}

// LogStep appends a step result to the run's log file
func (l *FileStepLogger) LogStep(result *StepResult) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	filePath := l.runLogPath(result.TestRunID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// StepHistory returns the logged step results of a run, in the order they
// completed.
func (l *FileStepLogger) StepHistory(runID string) ([]*StepResult, error) {
	data, err := os.ReadFile(l.runLogPath(runID))
	if err != nil {
		return nil, err
	}
	var results []*StepResult
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var result StepResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, nil
}
