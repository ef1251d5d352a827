package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gocohort/domain/actor"
	"gocohort/ports"

	"github.com/jmoiron/sqlx"
)

// ActorRepository reads and writes scored actor profiles
type ActorRepository struct {
	db *sqlx.DB
}

var _ ports.ActorSource = (*ActorRepository)(nil)

// NewActorRepository creates a new actor profile repository
func NewActorRepository(db *sqlx.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

type actorRow struct {
	ActorID               string          `db:"actor_id"`
	DriverDistribution    string          `db:"driver_distribution"`
	ContradictionScore    float64         `db:"contradiction_score"`
	SuperpositionDetected sql.NullBool    `db:"superposition_detected"`
	Coherence             sql.NullFloat64 `db:"coherence"`
	IdentityMarkers       sql.NullString  `db:"identity_markers"`
	SignalCount           int             `db:"signal_count"`
	ProfileCompleteness   float64         `db:"profile_completeness"`
	DataQualityScore      float64         `db:"data_quality_score"`
}

func (row actorRow) toRecord() (actor.Record, error) {
	rec := actor.Record{
		ActorID:             row.ActorID,
		ContradictionScore:  row.ContradictionScore,
		SignalCount:         row.SignalCount,
		ProfileCompleteness: row.ProfileCompleteness,
		DataQualityScore:    row.DataQualityScore,
	}
	if err := json.Unmarshal([]byte(row.DriverDistribution), &rec.DriverDistribution); err != nil {
		return rec, fmt.Errorf("decode driver distribution of %s: %w", row.ActorID, err)
	}
	if row.SuperpositionDetected.Valid {
		rec.SuperpositionDetected = actor.Bool(row.SuperpositionDetected.Bool)
	}
	if row.Coherence.Valid {
		rec.Coherence = actor.Float(row.Coherence.Float64)
	}
	if row.IdentityMarkers.Valid && row.IdentityMarkers.String != "" {
		if err := json.Unmarshal([]byte(row.IdentityMarkers.String), &rec.IdentityMarkers); err != nil {
			return rec, fmt.Errorf("decode identity markers of %s: %w", row.ActorID, err)
		}
	}
	return rec, nil
}

// ListActors returns actors with at least minSignals signals, ordered by ID
func (r *ActorRepository) ListActors(ctx context.Context, minSignals int) ([]actor.Record, error) {
	var rows []actorRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT actor_id, driver_distribution, contradiction_score, superposition_detected, coherence,
			identity_markers, signal_count, profile_completeness, data_quality_score
		FROM actor_profiles
		WHERE signal_count >= ?
		ORDER BY actor_id
	`), minSignals)
	if err != nil {
		return nil, err
	}

	actors := make([]actor.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		actors = append(actors, rec)
	}
	return actors, nil
}

// SaveActors upserts actor profiles in one transaction
func (r *ActorRepository) SaveActors(ctx context.Context, actors []actor.Record) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO actor_profiles (actor_id, driver_distribution, contradiction_score, superposition_detected,
			coherence, identity_markers, signal_count, profile_completeness, data_quality_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (actor_id) DO UPDATE SET
			driver_distribution = excluded.driver_distribution,
			contradiction_score = excluded.contradiction_score,
			superposition_detected = excluded.superposition_detected,
			coherence = excluded.coherence,
			identity_markers = excluded.identity_markers,
			signal_count = excluded.signal_count,
			profile_completeness = excluded.profile_completeness,
			data_quality_score = excluded.data_quality_score,
			updated_at = excluded.updated_at
	`)
	now := time.Now().UTC()
	for _, a := range actors {
		dist, err := json.Marshal(a.DriverDistribution)
		if err != nil {
			return err
		}
		markers, err := json.Marshal(a.IdentityMarkers)
		if err != nil {
			return err
		}
		var superposition sql.NullBool
		if a.SuperpositionDetected != nil {
			superposition = sql.NullBool{Bool: *a.SuperpositionDetected, Valid: true}
		}
		var coherence sql.NullFloat64
		if a.Coherence != nil {
			coherence = sql.NullFloat64{Float64: *a.Coherence, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query, a.ActorID, string(dist), a.ContradictionScore, superposition,
			coherence, string(markers), a.SignalCount, a.ProfileCompleteness, a.DataQualityScore, now); err != nil {
			return fmt.Errorf("failed to upsert actor %s: %w", a.ActorID, err)
		}
	}
	return tx.Commit()
}
