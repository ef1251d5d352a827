// Package characterize turns a labeled feature matrix into named cohorts
// with driver profiles, characteristics and messaging guidance.
package characterize

import (
	"fmt"
	"math"
	"sort"

	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/internal"
	"gocohort/internal/features"
	"gocohort/internal/metrics"

	"github.com/montanaflynn/stats"
)

// Sizes of the ranked lists carried on a cohort.
const (
	TopMarkerCount = 3
	NotableCount   = 3
	maxCohesion    = 1.0
)

// Characterize builds one cohort per non-noise label, largest first. Actor
// records are matched to matrix rows by ID, so actors may be passed in any
// order. A labeling with only noise yields no cohorts.
func Characterize(actors []actor.Record, labels []int, fm *features.Matrix) ([]cohort.Cohort, error) {
	if fm == nil {
		return nil, core.ErrNoFeatures
	}
	if len(labels) != fm.Rows() {
		return nil, fmt.Errorf("%w: %d labels for %d rows", core.ErrDimensionMismatch, len(labels), fm.Rows())
	}

	byID := make(map[string]*actor.Record, len(actors))
	for i := range actors {
		if _, dup := byID[actors[i].ActorID]; dup {
			return nil, &core.MalformedFeatureError{
				ActorID: actors[i].ActorID,
				Row:     i,
				Column:  features.ColumnActorID,
				Reason:  "duplicate actor id",
			}
		}
		byID[actors[i].ActorID] = &actors[i]
	}
	records := make([]*actor.Record, fm.Rows())
	for i, id := range fm.ActorIDs {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrActorNotFound, id)
		}
		records[i] = rec
	}

	rows := metrics.Rows(fm.Data)
	members := clustering.Members(labels)
	clusterLabels := clustering.ClusterLabels(labels)

	cohorts := make([]cohort.Cohort, 0, len(clusterLabels))
	for _, label := range clusterLabels {
		idx := members[label]
		cohorts = append(cohorts, characterizeCluster(label, idx, records, rows, fm))
	}
	sort.SliceStable(cohorts, func(a, b int) bool {
		return cohorts[a].Size > cohorts[b].Size
	})

	internal.DefaultLogger.Info("characterized %d clusters", len(cohorts))
	for _, c := range cohorts {
		internal.DefaultLogger.Debug("  %s: %d actors (%.1f%%)", c.Name, c.Size, c.Percentage)
	}
	return cohorts, nil
}

func characterizeCluster(label int, idx []int, records []*actor.Record, rows [][]float64, fm *features.Matrix) cohort.Cohort {
	group := make([]*actor.Record, len(idx))
	ids := make([]string, len(idx))
	for i, row := range idx {
		group[i] = records[row]
		ids[i] = records[row].ActorID
	}

	profile := DriverProfile(group)
	chars := Characteristics(group)
	chars.Cohesion = Cohesion(rows, idx)
	centroid := metrics.Centroid(rows, idx)

	return cohort.Cohort{
		ID:              core.NewCohortID(),
		Label:           label,
		Name:            Name(profile, chars),
		Description:     Describe(profile, chars),
		Size:            len(idx),
		Percentage:      100 * float64(len(idx)) / float64(len(records)),
		DriverProfile:   profile,
		Characteristics: chars,
		Behavior:        Behavior(group),
		Messaging:       Messaging(profile, chars),
		NotableActors:   notableActors(rows, idx, ids, centroid),
		Centroid:        centroid,
		FeatureNames:    append([]string(nil), fm.Columns...),
		MemberIDs:       ids,
		MembershipHash:  core.ComputeMembershipHash(ids),
	}
}

// DriverProfile is the per-driver mean of the members' distributions.
func DriverProfile(group []*actor.Record) actor.DriverDistribution {
	profile := make(actor.DriverDistribution, len(actor.Drivers))
	for _, d := range actor.Drivers {
		profile[d], _ = stats.Mean(driverValues(group, d))
	}
	return profile
}

// Characteristics summarizes the members' dominant drivers, contradiction,
// quantum state and identity markers. Cohesion needs the feature rows and is
// filled in separately.
func Characteristics(group []*actor.Record) cohort.Characteristics {
	n := float64(len(group))
	var c cohort.Characteristics

	c.DominantDriver, c.DominantPercentage = dominantDriver(group)

	contradictions := make([]float64, len(group))
	var low, medium, high int
	for i, rec := range group {
		contradictions[i] = rec.ContradictionScore
		switch cohort.LevelOf(rec.ContradictionScore) {
		case cohort.ContradictionLow:
			low++
		case cohort.ContradictionMedium:
			medium++
		default:
			high++
		}
	}
	c.AverageContradiction, _ = stats.Mean(contradictions)
	c.ContradictionDistribution = cohort.ContradictionDistribution{
		Low:    100 * float64(low) / n,
		Medium: 100 * float64(medium) / n,
		High:   100 * float64(high) / n,
	}

	superposed := 0
	coherence := make([]float64, len(group))
	for i, rec := range group {
		if rec.Superposition() {
			superposed++
		}
		coherence[i] = rec.CoherenceValue()
	}
	c.QuantumPrevalence = 100 * float64(superposed) / n
	c.AverageCoherence, _ = stats.Mean(coherence)

	c.TopIdentityMarkers = topMarkers(group, TopMarkerCount)
	c.DriverVariance = driverVariance(group)
	return c
}

// Behavior averages the members' bookkeeping scalars.
func Behavior(group []*actor.Record) cohort.BehavioralSignature {
	signals := make([]float64, len(group))
	completeness := make([]float64, len(group))
	dq := make([]float64, len(group))
	for i, rec := range group {
		signals[i] = float64(rec.SignalCount)
		completeness[i] = rec.ProfileCompleteness
		dq[i] = rec.DataQualityScore
	}
	var b cohort.BehavioralSignature
	b.AverageSignalCount, _ = stats.Mean(signals)
	b.AverageProfileCompleteness, _ = stats.Mean(completeness)
	b.AverageDataQuality, _ = stats.Mean(dq)
	return b
}

// Cohesion is 1 − mean pairwise distance / √M, floored at 0. A cluster with
// fewer than two members is perfectly cohesive.
func Cohesion(rows [][]float64, idx []int) float64 {
	if len(idx) < 2 {
		return maxCohesion
	}
	total, pairs := 0.0, 0
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			total += metrics.Euclidean(rows[idx[a]], rows[idx[b]])
			pairs++
		}
	}
	maxDistance := math.Sqrt(float64(len(rows[idx[0]])))
	return math.Max(0, 1-(total/float64(pairs))/maxDistance)
}

// dominantDriver returns the most frequent per-member argmax driver; ties go
// to the driver encountered first.
func dominantDriver(group []*actor.Record) (actor.Driver, float64) {
	counts := make(map[actor.Driver]int)
	var order []actor.Driver
	for _, rec := range group {
		d := rec.DominantDriver()
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}
	if len(order) == 0 {
		return actor.Drivers[0], 0
	}
	best := order[0]
	for _, d := range order[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best, 100 * float64(counts[best]) / float64(len(group))
}

// driverVariance is the mean over drivers of the population variance of
// member values.
func driverVariance(group []*actor.Record) float64 {
	variances := make([]float64, len(actor.Drivers))
	for i, d := range actor.Drivers {
		variances[i], _ = stats.PopulationVariance(driverValues(group, d))
	}
	mean, _ := stats.Mean(variances)
	return mean
}

func driverValues(group []*actor.Record, d actor.Driver) []float64 {
	values := make([]float64, len(group))
	for i, rec := range group {
		values[i] = rec.DriverDistribution[d]
	}
	return values
}

// topMarkers counts identity markers; ties keep first-seen order.
func topMarkers(group []*actor.Record, limit int) []cohort.MarkerCount {
	counts := make(map[string]int)
	var order []string
	for _, rec := range group {
		for _, m := range rec.IdentityMarkers {
			if counts[m] == 0 {
				order = append(order, m)
			}
			counts[m]++
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]cohort.MarkerCount, len(order))
	for i, m := range order {
		out[i] = cohort.MarkerCount{Marker: m, Count: counts[m]}
	}
	return out
}

// notableActors returns the members nearest the centroid.
func notableActors(rows [][]float64, idx []int, ids []string, centroid []float64) []cohort.NotableActor {
	out := make([]cohort.NotableActor, len(idx))
	for i, row := range idx {
		out[i] = cohort.NotableActor{ActorID: ids[i], Distance: metrics.Euclidean(rows[row], centroid)}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Distance < out[b].Distance
	})
	if len(out) > NotableCount {
		out = out[:NotableCount]
	}
	return out
}
