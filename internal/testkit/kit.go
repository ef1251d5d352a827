package testkit

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"gocohort/domain/actor"
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/run"
)

// InMemoryCohortStore implements ports.CohortStore with in-memory storage
type InMemoryCohortStore struct {
	runs        map[core.RunID]run.Run
	cohorts     map[core.RunID][]cohort.Cohort
	assignments map[core.RunID]map[string]storedAssignment
	seq         int
	mu          sync.RWMutex

	// FailWith makes every write return this error when set
	FailWith error
}

type storedAssignment struct {
	assignment cohort.Assignment
	seq        int
}

func NewInMemoryCohortStore() *InMemoryCohortStore {
	return &InMemoryCohortStore{
		runs:        make(map[core.RunID]run.Run),
		cohorts:     make(map[core.RunID][]cohort.Cohort),
		assignments: make(map[core.RunID]map[string]storedAssignment),
	}
}

func (s *InMemoryCohortStore) SaveRun(ctx context.Context, r run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.runs[r.ID] = r
	return nil
}

func (s *InMemoryCohortStore) SaveCohorts(ctx context.Context, runID core.RunID, cohorts []cohort.Cohort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	s.cohorts[runID] = append(s.cohorts[runID], cohorts...)
	return nil
}

func (s *InMemoryCohortStore) SaveAssignments(ctx context.Context, runID core.RunID, assignments []cohort.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if s.assignments[runID] == nil {
		s.assignments[runID] = make(map[string]storedAssignment)
	}
	for _, a := range assignments {
		if !a.Succeeded() {
			continue
		}
		s.seq++
		s.assignments[runID][a.ActorID] = storedAssignment{assignment: a, seq: s.seq}
	}
	return nil
}

func (s *InMemoryCohortStore) GetRun(ctx context.Context, runID core.RunID) (*run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return &r, nil
}

func (s *InMemoryCohortStore) LatestRun(ctx context.Context) (*run.Run, error) {
	runs, _ := s.ListRuns(ctx, 1)
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no clustering runs", core.ErrRunNotFound)
	}
	return &runs[0], nil
}

func (s *InMemoryCohortStore) ListRuns(ctx context.Context, limit int) ([]run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]run.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *InMemoryCohortStore) ListCohorts(ctx context.Context, runID core.RunID) ([]cohort.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	out := slices.Clone(s.cohorts[runID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	return out, nil
}

func (s *InMemoryCohortStore) ListAssignments(ctx context.Context, runID core.RunID) ([]cohort.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	out := make([]cohort.Assignment, 0, len(s.assignments[runID]))
	for _, a := range s.assignments[runID] {
		out = append(out, a.assignment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out, nil
}

func (s *InMemoryCohortStore) GetActorAssignment(ctx context.Context, actorID string) (*cohort.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *storedAssignment
	for _, byActor := range s.assignments {
		if a, ok := byActor[actorID]; ok && (latest == nil || a.seq > latest.seq) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no assignment for %s", core.ErrActorNotFound, actorID)
	}
	a := latest.assignment
	return &a, nil
}

func (s *InMemoryCohortStore) DeleteRun(ctx context.Context, runID core.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	delete(s.runs, runID)
	delete(s.cohorts, runID)
	delete(s.assignments, runID)
	return nil
}

// StaticActorSource implements ports.ActorSource over a fixed slice
type StaticActorSource struct {
	Actors []actor.Record
	Err    error
}

func (s *StaticActorSource) ListActors(ctx context.Context, minSignals int) ([]actor.Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []actor.Record
	for _, a := range s.Actors {
		if a.SignalCount >= minSignals {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out, nil
}
