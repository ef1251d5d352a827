package app

import (
	"context"
	"errors"
	"testing"

	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/run"
	"gocohort/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCohortStore records calls made by the service
type MockCohortStore struct {
	mock.Mock
}

func (m *MockCohortStore) SaveRun(ctx context.Context, r run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockCohortStore) SaveCohorts(ctx context.Context, runID core.RunID, cohorts []cohort.Cohort) error {
	args := m.Called(ctx, runID, cohorts)
	return args.Error(0)
}

func (m *MockCohortStore) SaveAssignments(ctx context.Context, runID core.RunID, assignments []cohort.Assignment) error {
	args := m.Called(ctx, runID, assignments)
	return args.Error(0)
}

func (m *MockCohortStore) GetRun(ctx context.Context, runID core.RunID) (*run.Run, error) {
	args := m.Called(ctx, runID)
	r, _ := args.Get(0).(*run.Run)
	return r, args.Error(1)
}

func (m *MockCohortStore) LatestRun(ctx context.Context) (*run.Run, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*run.Run)
	return r, args.Error(1)
}

func (m *MockCohortStore) ListRuns(ctx context.Context, limit int) ([]run.Run, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]run.Run)
	return runs, args.Error(1)
}

func (m *MockCohortStore) ListCohorts(ctx context.Context, runID core.RunID) ([]cohort.Cohort, error) {
	args := m.Called(ctx, runID)
	cohorts, _ := args.Get(0).([]cohort.Cohort)
	return cohorts, args.Error(1)
}

func (m *MockCohortStore) ListAssignments(ctx context.Context, runID core.RunID) ([]cohort.Assignment, error) {
	args := m.Called(ctx, runID)
	assignments, _ := args.Get(0).([]cohort.Assignment)
	return assignments, args.Error(1)
}

func (m *MockCohortStore) GetActorAssignment(ctx context.Context, actorID string) (*cohort.Assignment, error) {
	args := m.Called(ctx, actorID)
	a, _ := args.Get(0).(*cohort.Assignment)
	return a, args.Error(1)
}

func (m *MockCohortStore) DeleteRun(ctx context.Context, runID core.RunID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func TestRun_PersistStopsAtFirstFailure(t *testing.T) {
	store := new(MockCohortStore)
	store.On("SaveRun", mock.Anything, mock.AnythingOfType("run.Run")).Return(nil)
	store.On("SaveCohorts", mock.Anything, mock.AnythingOfType("core.RunID"), mock.Anything).
		Return(errors.New("constraint violation"))

	svc := NewSegmentationService(store)
	outcome, err := svc.Run(context.Background(), testkit.TwoGroupPopulation(42, 10), kmeansOptions(2))
	require.ErrorIs(t, err, core.ErrPersistence)
	assert.ErrorContains(t, err, "save cohorts")
	require.NotNil(t, outcome)
	assert.False(t, outcome.Persisted)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveAssignments", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PersistWritesRunBeforeChildren(t *testing.T) {
	store := new(MockCohortStore)
	var order []string
	store.On("SaveRun", mock.Anything, mock.Anything).Return(nil).
		Run(func(mock.Arguments) { order = append(order, "run") })
	store.On("SaveCohorts", mock.Anything, mock.Anything, mock.Anything).Return(nil).
		Run(func(mock.Arguments) { order = append(order, "cohorts") })
	store.On("SaveAssignments", mock.Anything, mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) {
			order = append(order, "assignments")
			assert.Len(t, args.Get(2).([]cohort.Assignment), 20)
		})

	outcome, err := NewSegmentationService(store).Run(context.Background(),
		testkit.TwoGroupPopulation(42, 10), kmeansOptions(2))
	require.NoError(t, err)
	assert.True(t, outcome.Persisted)
	assert.Equal(t, []string{"run", "cohorts", "assignments"}, order)
	store.AssertExpectations(t)
}

func TestAssignNew_StoreErrorsPropagate(t *testing.T) {
	store := new(MockCohortStore)
	store.On("GetRun", mock.Anything, core.RunID("r1")).Return(nil, core.ErrRunNotFound)

	_, err := NewSegmentationService(store).AssignNew(context.Background(), "r1",
		testkit.TwoGroupPopulation(1, 2))
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	store.AssertNotCalled(t, "SaveAssignments", mock.Anything, mock.Anything, mock.Anything)
}
