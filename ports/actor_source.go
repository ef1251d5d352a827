package ports

import (
	"context"

	"gocohort/domain/actor"
)

// ActorSource supplies actor feature records to the segmentation pipeline
type ActorSource interface {
	// ListActors returns actors with at least minSignals signals, ordered by ID
	ListActors(ctx context.Context, minSignals int) ([]actor.Record, error)
}
