// Package assignment places actors into the nearest known cohort.
package assignment

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"gocohort/domain/actor"
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// MaxAlternatives is the number of runner-up cohorts reported per assignment.
const MaxAlternatives = 2

// Centroid is one cohort's position in feature space.
type Centroid struct {
	CohortID   core.CohortID
	CohortName string
	Vector     []float64
}

// Projector maps an actor record onto the feature space of the centroids.
type Projector interface {
	Project(rec actor.Record) ([]float64, error)
}

// Confidence converts a distance in an M-dimensional unit cube to [0,1].
func Confidence(distance float64, dims int) float64 {
	return math.Max(0, 1-distance/math.Sqrt(float64(dims)))
}

// Assign picks the nearest centroid for one feature vector. Ties go to the
// earlier centroid.
func Assign(actorID string, vector []float64, centroids []Centroid) (cohort.Assignment, error) {
	out := cohort.Assignment{ActorID: actorID}
	if len(centroids) == 0 {
		return out, core.ErrNoCohorts
	}
	if len(vector) == 0 {
		return out, core.ErrNoFeatures
	}
	for j, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, &core.MalformedFeatureError{ActorID: actorID, Row: -1, Column: fmt.Sprintf("%d", j), Value: v, Reason: "value is not finite"}
		}
	}

	distances := make([]float64, len(centroids))
	for i, c := range centroids {
		if len(c.Vector) != len(vector) {
			return out, fmt.Errorf("%w: cohort %s has %d features, actor %s has %d",
				core.ErrDimensionMismatch, c.CohortID, len(c.Vector), actorID, len(vector))
		}
		distances[i] = metrics.Euclidean(vector, c.Vector)
	}

	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	best := order[0]
	out.CohortID = centroids[best].CohortID
	out.CohortName = centroids[best].CohortName
	out.Distance = distances[best]
	out.Confidence = Confidence(out.Distance, len(vector))

	for _, i := range order[1:min(len(order), MaxAlternatives+1)] {
		out.Alternatives = append(out.Alternatives, cohort.AlternativeCohort{
			CohortID:   centroids[i].CohortID,
			CohortName: centroids[i].CohortName,
			Distance:   distances[i],
			Confidence: Confidence(distances[i], len(vector)),
		})
	}
	return out, nil
}

// BatchAssign assigns every actor independently. A failing actor gets an
// Assignment carrying the error text; the batch itself never fails. Output
// order matches input order.
func BatchAssign(actors []actor.Record, projector Projector, centroids []Centroid) []cohort.Assignment {
	out := make([]cohort.Assignment, len(actors))

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i := range actors {
		group.Go(func() error {
			rec := actors[i]
			vector, err := projector.Project(rec)
			if err == nil {
				out[i], err = Assign(rec.ActorID, vector, centroids)
			}
			if err != nil {
				out[i] = cohort.Assignment{ActorID: rec.ActorID, Error: err.Error()}
			}
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	for _, a := range out {
		if !a.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		internal.DefaultLogger.Warn("assigned %d actors to %d cohorts, %d failed", len(actors), len(centroids), failed)
	} else {
		internal.DefaultLogger.Info("assigned %d actors to %d cohorts", len(actors), len(centroids))
	}
	return out
}

// CentroidsFromCohorts uses each cohort's feature-space centroid. All
// centroids must share one dimensionality.
func CentroidsFromCohorts(cohorts []cohort.Cohort) ([]Centroid, error) {
	if len(cohorts) == 0 {
		return nil, core.ErrNoCohorts
	}
	out := make([]Centroid, len(cohorts))
	dims := len(cohorts[0].Centroid)
	for i, c := range cohorts {
		if len(c.Centroid) == 0 || len(c.Centroid) != dims {
			return nil, fmt.Errorf("%w: cohort %s has %d centroid values, want %d",
				core.ErrDimensionMismatch, c.ID, len(c.Centroid), dims)
		}
		out[i] = Centroid{CohortID: c.ID, CohortName: c.Name, Vector: append([]float64(nil), c.Centroid...)}
	}
	return out, nil
}

// DriverProfileCentroids places each cohort at its mean driver distribution,
// for assigning vectors built from the six driver columns only.
func DriverProfileCentroids(cohorts []cohort.Cohort) []Centroid {
	out := make([]Centroid, len(cohorts))
	for i, c := range cohorts {
		out[i] = Centroid{CohortID: c.ID, CohortName: c.Name, Vector: c.DriverProfile.Vector()}
	}
	return out
}
