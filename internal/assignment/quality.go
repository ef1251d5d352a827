package assignment

import (
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/quality"

	"github.com/montanaflynn/stats"
)

// Confidence buckets and score weights.
const (
	HighConfidence = 0.7
	LowConfidence  = 0.4

	successWeight    = 0.6
	confidenceWeight = 0.4
)

// Quality summarizes a batch. Confidence and distance statistics cover
// successful assignments only.
func Quality(assignments []cohort.Assignment) (cohort.AssignmentQuality, error) {
	var q cohort.AssignmentQuality
	if len(assignments) == 0 {
		return q, core.NewInsufficientDataError("assignment quality", 0, 1)
	}

	var confidences, distances []float64
	for _, a := range assignments {
		if !a.Succeeded() {
			continue
		}
		confidences = append(confidences, a.Confidence)
		distances = append(distances, a.Distance)
		switch {
		case a.Confidence > HighConfidence:
			q.Buckets.High++
		case a.Confidence >= LowConfidence:
			q.Buckets.Medium++
		default:
			q.Buckets.Low++
		}
	}

	q.Total = len(assignments)
	q.Successful = len(confidences)
	q.Failed = q.Total - q.Successful
	q.SuccessRate = float64(q.Successful) / float64(q.Total)
	if q.Successful > 0 {
		q.AverageConfidence, _ = stats.Mean(confidences)
		q.MinConfidence, _ = stats.Min(confidences)
		q.MaxConfidence, _ = stats.Max(confidences)
		q.AverageDistance, _ = stats.Mean(distances)
	}
	q.Score = successWeight*q.SuccessRate + confidenceWeight*q.AverageConfidence
	q.Label = string(scoreLabel(q.Score))
	return q, nil
}

func scoreLabel(score float64) quality.Label {
	switch {
	case score > 0.8:
		return quality.LabelExcellent
	case score > 0.6:
		return quality.LabelGood
	case score > 0.4:
		return quality.LabelFair
	default:
		return quality.LabelPoor
	}
}
