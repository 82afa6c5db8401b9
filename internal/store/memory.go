package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nvandessel/porewalk/internal/outcome"
)

// InMemoryRunStore implements RunStore for testing and one-off runs.
type InMemoryRunStore struct {
	mu       sync.RWMutex
	runs     map[string]Run
	outcomes map[string][]outcome.Record
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs:     make(map[string]Run),
		outcomes: make(map[string][]outcome.Record),
	}
}

// SaveRun stores a run and a copy of its outcomes.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run Run, outcomes []outcome.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run = prepare(run)
	if _, exists := s.runs[run.ID]; exists {
		return "", fmt.Errorf("run %s already exists", run.ID)
	}

	recs := slices.Clone(outcomes)
	slices.SortFunc(recs, func(a, b outcome.Record) int { return a.Particle - b.Particle })
	s.runs[run.ID] = run
	s.outcomes[run.ID] = recs
	return run.ID, nil
}

// GetRun returns a run by ID.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetOutcomes returns a copy of the outcomes of a run.
func (s *InMemoryRunStore) GetOutcomes(ctx context.Context, id string) ([]outcome.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, exists := s.outcomes[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return slices.Clone(recs), nil
}

// DeleteRun removes a run and its outcomes.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.runs, id)
	delete(s.outcomes, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}
