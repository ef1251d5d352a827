package validation

import (
	"fmt"
	"runtime"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/algorithms"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultStabilityIterations is the number of reseeded reruns.
const DefaultStabilityIterations = 10

// Stability reruns k-means with seeds 0..iterations-1 and measures agreement
// with labels by the Adjusted Rand Index. k is the number of distinct
// non-noise labels.
func Stability(data mat.Matrix, labels []int, iterations int) (quality.StabilityReport, error) {
	const op = "stability"
	report := quality.StabilityReport{Iterations: iterations}

	r, _ := data.Dims()
	if r != len(labels) {
		return report, fmt.Errorf("%w: %d labels for %d rows", core.ErrDimensionMismatch, len(labels), r)
	}
	if iterations < 1 {
		return report, core.NewInvalidParameterError(op, "iterations", iterations)
	}
	k := len(clustering.ClusterLabels(labels))
	if k < 1 {
		return report, core.NewInsufficientDataError(op, 0, 1)
	}

	scores := make([]float64, iterations)
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < iterations; i++ {
		group.Go(func() error {
			params := clustering.DefaultParams(clustering.AlgorithmKMeans)
			params.K, params.Seed = k, int64(i)
			res, err := algorithms.KMeans{}.Cluster(data, params)
			if err != nil {
				return fmt.Errorf("stability rerun with seed %d: %w", i, err)
			}
			scores[i] = AdjustedRandIndex(labels, res.Labels)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return report, err
	}

	report.Scores = scores
	report.Mean, _ = stats.Mean(scores)
	report.Std, _ = stats.StandardDeviationPopulation(scores)
	report.Min, _ = stats.Min(scores)
	report.Max, _ = stats.Max(scores)

	internal.DefaultLogger.Info("stability over %d iterations: %.3f ± %.3f (range %.3f - %.3f)",
		iterations, report.Mean, report.Std, report.Min, report.Max)
	return report, nil
}

// AdjustedRandIndex measures agreement between two labelings of the same
// points, corrected for chance. Noise is treated as an ordinary label.
// Identical trivial partitions score 1.
func AdjustedRandIndex(a, b []int) float64 {
	n := len(a)
	if n != len(b) {
		return 0
	}
	if n < 2 {
		return 1
	}

	type pair struct{ x, y int }
	contingency := make(map[pair]int)
	rowSums := make(map[int]int)
	colSums := make(map[int]int)
	for i := range a {
		contingency[pair{a[i], b[i]}]++
		rowSums[a[i]]++
		colSums[b[i]]++
	}

	sumCells := 0.0
	for _, c := range contingency {
		sumCells += choose2(c)
	}
	sumRows, sumCols := 0.0, 0.0
	for _, c := range rowSums {
		sumRows += choose2(c)
	}
	for _, c := range colSums {
		sumCols += choose2(c)
	}

	expected := sumRows * sumCols / choose2(n)
	maxIndex := (sumRows + sumCols) / 2
	if maxIndex == expected {
		return 1
	}
	return (sumCells - expected) / (maxIndex - expected)
}

func choose2(n int) float64 {
	return float64(n) * float64(n-1) / 2
}
