package processmap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var (
	_ RunStore = (*FileRunStore)(nil)
	_ RunStore = (*NullRunStore)(nil)
)

// FileRunStore is a file-based RunStore. Each run is kept as
// <dataDir>/<run_id>/run.json.
type FileRunStore struct {
	dataDir string
}

// NewFileRunStore creates a new file-based run store. An empty dataDir
// defaults to ~/.processmap/runs.
func NewFileRunStore(dataDir string) (*FileRunStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".processmap", "runs")
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return &FileRunStore{dataDir: dataDir}, nil
}

func (s *FileRunStore) runPath(runID string) string {
	return filepath.Join(s.dataDir, runID, "run.json")
}

// SaveRun writes the run to disk
func (s *FileRunStore) SaveRun(ctx context.Context, run *StoredRun) error {
	if run == nil || run.TestRun == nil {
		return fmt.Errorf("run is required")
	}
	runDir := filepath.Join(s.dataDir, run.TestRun.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// Write to a temporary file first so readers never see a partial run
	tmpPath := s.runPath(run.TestRun.ID) + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmpPath, s.runPath(run.TestRun.ID)); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// LoadRun reads a run from disk
func (s *FileRunStore) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	data, err := os.ReadFile(s.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No run found
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run StoredRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// DeleteRun removes all data for a run
func (s *FileRunStore) DeleteRun(ctx context.Context, runID string) error {
	if err := os.RemoveAll(filepath.Join(s.dataDir, runID)); err != nil {
		return fmt.Errorf("failed to delete run directory: %w", err)
	}
	return nil
}

// ListRuns returns summaries of all stored runs, newest first
func (s *FileRunStore) ListRuns(ctx context.Context) ([]*RunSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*RunSummary{}, nil // No runs directory yet
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	summaries := []*RunSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.LoadRun(ctx, entry.Name())
		if err != nil || run == nil || run.TestRun == nil {
			// Skip runs we can't read
			continue
		}
		summaries = append(summaries, run.TestRun.Summary())
	}

	// Sort by start time (newest first)
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}
