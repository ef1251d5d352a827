package ports

import (
	"context"

	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/run"
)

// CohortStore persists clustering runs with their cohorts and assignments
type CohortStore interface {
	// SaveRun stores the metadata of an accepted run
	SaveRun(ctx context.Context, r run.Run) error

	// SaveCohorts stores the cohorts produced by a run
	SaveCohorts(ctx context.Context, runID core.RunID, cohorts []cohort.Cohort) error

	// SaveAssignments upserts one assignment per actor for a run
	SaveAssignments(ctx context.Context, runID core.RunID, assignments []cohort.Assignment) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID core.RunID) (*run.Run, error)

	// LatestRun returns the most recently created run
	LatestRun(ctx context.Context) (*run.Run, error)

	// ListRuns returns runs newest first, optionally limited
	ListRuns(ctx context.Context, limit int) ([]run.Run, error)

	// ListCohorts returns a run's cohorts ordered by size, largest first
	ListCohorts(ctx context.Context, runID core.RunID) ([]cohort.Cohort, error)

	// ListAssignments returns a run's stored assignments ordered by actor ID
	ListAssignments(ctx context.Context, runID core.RunID) ([]cohort.Assignment, error)

	// GetActorAssignment returns the actor's most recent assignment
	GetActorAssignment(ctx context.Context, actorID string) (*cohort.Assignment, error)

	// DeleteRun removes a run with its cohorts and assignments
	DeleteRun(ctx context.Context, runID core.RunID) error
}
