package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gocohort/domain/clustering"
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/domain/run"
	"gocohort/ports"

	"github.com/jmoiron/sqlx"
)

// CohortRepositoryImpl implements CohortStore on PostgreSQL. Queries are
// written with ? placeholders and rebound for the connected driver, so the
// same repository runs on SQLite.
type CohortRepositoryImpl struct {
	db *sqlx.DB
}

// NewCohortRepository creates a new cohort repository
func NewCohortRepository(db *sqlx.DB) ports.CohortStore {
	return &CohortRepositoryImpl{db: db}
}

type runRow struct {
	RunID            string          `db:"run_id"`
	Algorithm        string          `db:"algorithm"`
	Parameters       string          `db:"parameters"`
	NActors          int             `db:"n_actors"`
	NClusters        int             `db:"n_clusters"`
	Silhouette       float64         `db:"silhouette_score"`
	CalinskiHarabasz float64         `db:"calinski_harabasz_score"`
	DaviesBouldin    sql.NullFloat64 `db:"davies_bouldin_score"`
	Quality          string          `db:"quality"`
	FeatureSchema    string          `db:"feature_schema"`
	Fingerprint      string          `db:"fingerprint"`
	CreatedAt        time.Time       `db:"created_at"`
}

const runColumns = `run_id, algorithm, parameters, n_actors, n_clusters, silhouette_score,
	calinski_harabasz_score, davies_bouldin_score, quality, feature_schema, fingerprint, created_at`

func (row runRow) toRun() (*run.Run, error) {
	r := &run.Run{
		ID:               core.RunID(row.RunID),
		Algorithm:        clustering.Algorithm(row.Algorithm),
		NActors:          row.NActors,
		NClusters:        row.NClusters,
		Silhouette:       row.Silhouette,
		CalinskiHarabasz: row.CalinskiHarabasz,
		DaviesBouldin:    quality.UndefinedDaviesBouldin,
		Quality:          quality.Label(row.Quality),
		CreatedAt:        row.CreatedAt,
	}
	if row.DaviesBouldin.Valid {
		r.DaviesBouldin = row.DaviesBouldin.Float64
	}
	if err := json.Unmarshal([]byte(row.Parameters), &r.Params); err != nil {
		return nil, fmt.Errorf("decode parameters of run %s: %w", row.RunID, err)
	}
	if err := json.Unmarshal([]byte(row.FeatureSchema), &r.Features); err != nil {
		return nil, fmt.Errorf("decode feature schema of run %s: %w", row.RunID, err)
	}
	if err := json.Unmarshal([]byte(row.Fingerprint), &r.Fingerprint); err != nil {
		return nil, fmt.Errorf("decode fingerprint of run %s: %w", row.RunID, err)
	}
	return r, nil
}

// SaveRun stores the metadata of an accepted run
func (r *CohortRepositoryImpl) SaveRun(ctx context.Context, rn run.Run) error {
	params, err := json.Marshal(rn.Params)
	if err != nil {
		return err
	}
	schema, err := json.Marshal(rn.Features)
	if err != nil {
		return err
	}
	fingerprint, err := json.Marshal(rn.Fingerprint)
	if err != nil {
		return err
	}
	createdAt := rn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO clustering_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), string(rn.ID), string(rn.Algorithm), string(params), rn.NActors, rn.NClusters, rn.Silhouette,
		rn.CalinskiHarabasz, nullableFloat(rn.DaviesBouldin), string(rn.Quality), string(schema),
		string(fingerprint), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert clustering run: %w", err)
	}
	return nil
}

// SaveCohorts stores the cohorts produced by a run in one transaction
func (r *CohortRepositoryImpl) SaveCohorts(ctx context.Context, runID core.RunID, cohorts []cohort.Cohort) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO cohorts (cohort_id, run_id, cluster_label, cohort_name, cohort_description,
			size, percentage, membership_hash, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	now := time.Now().UTC()
	for _, c := range cohorts {
		body, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, string(c.ID), string(runID), c.Label, c.Name, c.Description,
			c.Size, c.Percentage, string(c.MembershipHash), string(body), now); err != nil {
			return fmt.Errorf("failed to insert cohort %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// SaveAssignments upserts successful assignments; failed ones are skipped
func (r *CohortRepositoryImpl) SaveAssignments(ctx context.Context, runID core.RunID, assignments []cohort.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO actor_cohort_assignments (run_id, actor_id, cohort_id, confidence, distance, alternatives, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, actor_id) DO UPDATE SET
			cohort_id = excluded.cohort_id,
			confidence = excluded.confidence,
			distance = excluded.distance,
			alternatives = excluded.alternatives,
			assigned_at = excluded.assigned_at
	`)
	for _, a := range assignments {
		if !a.Succeeded() {
			continue
		}
		alternatives, err := json.Marshal(a.Alternatives)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, string(runID), a.ActorID, string(a.CohortID),
			a.Confidence, a.Distance, string(alternatives), time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to upsert assignment for %s: %w", a.ActorID, err)
		}
	}
	return tx.Commit()
}

// GetRun retrieves a run by ID
func (r *CohortRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+runColumns+` FROM clustering_runs WHERE run_id = ?`), string(runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return row.toRun()
}

// LatestRun returns the most recently created run
func (r *CohortRepositoryImpl) LatestRun(ctx context.Context) (*run.Run, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no clustering runs", core.ErrRunNotFound)
	}
	return &runs[0], nil
}

// ListRuns returns runs newest first, optionally limited
func (r *CohortRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]run.Run, error) {
	query := `SELECT ` + runColumns + ` FROM clustering_runs ORDER BY created_at DESC, run_id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	runs := make([]run.Run, 0, len(rows))
	for _, row := range rows {
		rn, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rn)
	}
	return runs, nil
}

// ListCohorts returns a run's cohorts ordered by size, largest first
func (r *CohortRepositoryImpl) ListCohorts(ctx context.Context, runID core.RunID) ([]cohort.Cohort, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var bodies []string
	err := r.db.SelectContext(ctx, &bodies, r.db.Rebind(`
		SELECT body FROM cohorts WHERE run_id = ? ORDER BY size DESC, cluster_label ASC
	`), string(runID))
	if err != nil {
		return nil, err
	}

	cohorts := make([]cohort.Cohort, len(bodies))
	for i, body := range bodies {
		if err := json.Unmarshal([]byte(body), &cohorts[i]); err != nil {
			return nil, fmt.Errorf("decode cohort of run %s: %w", runID, err)
		}
	}
	return cohorts, nil
}

type assignmentRow struct {
	ActorID      string         `db:"actor_id"`
	CohortID     string         `db:"cohort_id"`
	CohortName   sql.NullString `db:"cohort_name"`
	Confidence   float64        `db:"confidence"`
	Distance     float64        `db:"distance"`
	Alternatives sql.NullString `db:"alternatives"`
}

const assignmentSelect = `
	SELECT a.actor_id, a.cohort_id, c.cohort_name, a.confidence, a.distance, a.alternatives
	FROM actor_cohort_assignments a
	LEFT JOIN cohorts c ON c.cohort_id = a.cohort_id`

func (row assignmentRow) toAssignment() (cohort.Assignment, error) {
	a := cohort.Assignment{
		ActorID:    row.ActorID,
		CohortID:   core.CohortID(row.CohortID),
		CohortName: row.CohortName.String,
		Confidence: row.Confidence,
		Distance:   row.Distance,
	}
	if row.Alternatives.Valid && row.Alternatives.String != "" {
		if err := json.Unmarshal([]byte(row.Alternatives.String), &a.Alternatives); err != nil {
			return a, fmt.Errorf("decode alternatives for %s: %w", row.ActorID, err)
		}
	}
	return a, nil
}

// ListAssignments returns a run's stored assignments ordered by actor ID
func (r *CohortRepositoryImpl) ListAssignments(ctx context.Context, runID core.RunID) ([]cohort.Assignment, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var rows []assignmentRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(assignmentSelect+`
		WHERE a.run_id = ?
		ORDER BY a.actor_id
	`), string(runID))
	if err != nil {
		return nil, err
	}
	out := make([]cohort.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAssignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// GetActorAssignment returns the actor's most recent assignment
func (r *CohortRepositoryImpl) GetActorAssignment(ctx context.Context, actorID string) (*cohort.Assignment, error) {
	var row assignmentRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(assignmentSelect+`
		WHERE a.actor_id = ?
		ORDER BY a.assigned_at DESC
		LIMIT 1
	`), actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no assignment for %s", core.ErrActorNotFound, actorID)
	}
	if err != nil {
		return nil, err
	}

	a, err := row.toAssignment()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteRun removes a run with its cohorts and assignments
func (r *CohortRepositoryImpl) DeleteRun(ctx context.Context, runID core.RunID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"actor_cohort_assignments", "cohorts"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE run_id = ?`), string(runID)); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM clustering_runs WHERE run_id = ?`), string(runID))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return tx.Commit()
}

func nullableFloat(v float64) sql.NullFloat64 {
	if p := quality.FiniteOrNil(v); p != nil {
		return sql.NullFloat64{Float64: *p, Valid: true}
	}
	return sql.NullFloat64{}
}
