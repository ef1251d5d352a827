package validation

import (
	"fmt"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// Validate computes internal quality metrics for one labeling. Undefined
// metrics are reported through their sentinels, never as errors; the only
// error is a label vector that does not match the matrix.
func Validate(data mat.Matrix, labels []int) (quality.ValidationReport, error) {
	rows, err := alignedRows(data, labels)
	if err != nil {
		return quality.ValidationReport{}, err
	}
	return validateRows(rows, labels), nil
}

func validateRows(rows [][]float64, labels []int) quality.ValidationReport {
	clusterLabels := clustering.ClusterLabels(labels)
	members := clustering.Members(labels)

	report := quality.ValidationReport{
		Silhouette:       metrics.Silhouette(rows, labels),
		CalinskiHarabasz: metrics.CalinskiHarabasz(rows, labels),
		DaviesBouldin:    metrics.DaviesBouldin(rows, labels),
		NClusters:        len(clusterLabels),
		WithinVariance:   metrics.WithinVariance(rows, labels),
		CentroidDistance: metrics.CentroidDistances(rows, labels),
	}
	for _, l := range clusterLabels {
		report.ClusterSizes = append(report.ClusterSizes, len(members[l]))
	}
	for _, l := range labels {
		if l == clustering.NoiseLabel {
			report.NoiseCount++
		}
	}
	report.Quality = quality.LabelFor(report.Silhouette)

	internal.DefaultLogger.Debug("validation: silhouette %.3f (%s), CH %.2f, DB %.3f, %d clusters, %d outliers",
		report.Silhouette, report.Quality, report.CalinskiHarabasz, report.DaviesBouldin,
		report.NClusters, report.NoiseCount)
	return report
}

func alignedRows(data mat.Matrix, labels []int) ([][]float64, error) {
	r, _ := data.Dims()
	if r != len(labels) {
		return nil, fmt.Errorf("%w: %d labels for %d rows", core.ErrDimensionMismatch, len(labels), r)
	}
	return metrics.Rows(data), nil
}
