package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antyra/ranksync/internal/rank"
)

// RunStore keeps sync run history in memory for development and testing.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]rank.Run
	order   []string
	domains map[string][]rank.StoredDomainResult
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:    make(map[string]rank.Run),
		domains: make(map[string][]rank.StoredDomainResult),
	}
}

// CreateRun stores the header row for a starting run.
func (s *RunStore) CreateRun(_ context.Context, run rank.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return nil
}

// CompleteRun finalizes a run's status and counters.
func (s *RunStore) CompleteRun(_ context.Context, runID string, status rank.RunStatus, processed, failed int, finished time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return rank.ErrRunNotFound
	}
	run.Status = status
	run.Processed = processed
	run.Failed = failed
	ts := finished
	run.Finished = &ts
	s.runs[runID] = run
	return nil
}

// RecordDomainResult appends one domain outcome to a run.
func (s *RunStore) RecordDomainResult(_ context.Context, result rank.StoredDomainResult) error {
	if result.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[result.RunID] = append(s.domains[result.RunID], result)
	return nil
}

// GetRun fetches one run header by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (rank.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return rank.Run{}, rank.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]rank.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]rank.Run, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	return out, nil
}

// ListDomainResults returns a run's domain outcomes in recorded order.
func (s *RunStore) ListDomainResults(_ context.Context, runID string) ([]rank.StoredDomainResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := s.domains[runID]
	out := make([]rank.StoredDomainResult, len(results))
	copy(out, results)
	return out, nil
}
