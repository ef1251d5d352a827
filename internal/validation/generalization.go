package validation

import (
	"fmt"
	"math"
	"math/rand"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/algorithms"
	"gocohort/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// Defaults for the held-out check.
const (
	DefaultTestFraction = 0.2
	DefaultSplitSeed    = 42
)

// Generalization fits k-means on a seeded train split, predicts nearest
// centroids for the test split and compares silhouettes. Consistency is
// 1 − mean test distance / √M, floored at 0.
func Generalization(data mat.Matrix, labels []int, testFraction float64, seed int64) (quality.GeneralizationReport, error) {
	const op = "generalization"
	var report quality.GeneralizationReport

	rows, err := alignedRows(data, labels)
	if err != nil {
		return report, err
	}
	if !(testFraction > 0 && testFraction < 1) {
		return report, core.NewInvalidParameterError(op, "test_fraction", testFraction)
	}

	n := len(rows)
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTrain := n - nTest
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	trainRows, trainLabels := subset(rows, labels, trainIdx)
	testRows, _ := subset(rows, labels, testIdx)

	k := len(clustering.ClusterLabels(trainLabels))
	if k < 1 || nTrain < k || nTest < 1 {
		return report, core.NewInsufficientPointsForK(op, nTrain, max(k, 1))
	}

	params := clustering.DefaultParams(clustering.AlgorithmKMeans)
	params.K, params.Seed = k, seed
	fit, err := algorithms.KMeans{}.Cluster(mat.NewDense(nTrain, len(rows[0]), flatten(trainRows)), params)
	if err != nil {
		return report, fmt.Errorf("failed to fit train split: %w", err)
	}
	centers := fit.KMeans.Centroids

	predicted := make([]int, nTest)
	totalDist := 0.0
	for i, p := range testRows {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := metrics.Euclidean(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		predicted[i] = best
		totalDist += bestD
	}

	report = quality.GeneralizationReport{
		TrainSilhouette: metrics.Silhouette(trainRows, trainLabels),
		TestSilhouette:  metrics.Silhouette(testRows, predicted),
		MeanTestDist:    totalDist / float64(nTest),
		NTrain:          nTrain,
		NTest:           nTest,
		NClusters:       k,
	}
	report.Consistency = math.Max(0, 1-report.MeanTestDist/math.Sqrt(float64(len(rows[0]))))

	internal.DefaultLogger.Info("generalization: train silhouette %.3f, test silhouette %.3f, consistency %.3f",
		report.TrainSilhouette, report.TestSilhouette, report.Consistency)
	return report, nil
}

func subset(rows [][]float64, labels []int, idx []int) ([][]float64, []int) {
	outRows := make([][]float64, len(idx))
	outLabels := make([]int, len(idx))
	for i, j := range idx {
		outRows[i] = rows[j]
		outLabels[i] = labels[j]
	}
	return outRows, outLabels
}

func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
