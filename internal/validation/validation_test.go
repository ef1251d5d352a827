package validation

import (
	"math"
	"testing"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func blobs(per int) (*mat.Dense, []int) {
	data := mat.NewDense(2*per, 2, nil)
	labels := make([]int, 2*per)
	for i := 0; i < per; i++ {
		jitter := float64(i%5) * 0.01
		data.SetRow(i, []float64{0.1 + jitter, 0.1 + float64(i%3)*0.01})
		data.SetRow(per+i, []float64{0.9 - jitter, 0.9 - float64(i%3)*0.01})
		labels[per+i] = 1
	}
	return data, labels
}

func TestValidate_WellSeparated(t *testing.T) {
	data, labels := blobs(10)
	report, err := Validate(data, labels)
	require.NoError(t, err)

	assert.Greater(t, report.Silhouette, 0.9)
	assert.Greater(t, report.CalinskiHarabasz, 100.0)
	assert.Less(t, report.DaviesBouldin, 0.1)
	assert.Equal(t, quality.LabelExcellent, report.Quality)
	assert.Equal(t, []int{10, 10}, report.ClusterSizes)
	assert.Equal(t, 2, report.NClusters)
	assert.Zero(t, report.NoiseCount)
	assert.Len(t, report.WithinVariance, 2)
	require.Len(t, report.CentroidDistance, 2)
	assert.InDelta(t, report.CentroidDistance[0][1], report.CentroidDistance[1][0], 1e-12)
}

func TestValidate_NoiseAndSingleCluster(t *testing.T) {
	data, labels := blobs(10)
	for i := 10; i < 20; i++ {
		labels[i] = clustering.NoiseLabel
	}
	report, err := Validate(data, labels)
	require.NoError(t, err)

	assert.Equal(t, 10, report.NoiseCount)
	assert.Equal(t, 1, report.NClusters)
	assert.Equal(t, quality.UndefinedSilhouette, report.Silhouette)
	assert.Equal(t, quality.UndefinedCalinskiHarabasz, report.CalinskiHarabasz)
	assert.True(t, math.IsInf(report.DaviesBouldin, 1))
	assert.Equal(t, quality.LabelPoor, report.Quality)
}

func TestValidate_LabelMismatch(t *testing.T) {
	data, labels := blobs(5)
	_, err := Validate(data, labels[:3])
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestOverallScore(t *testing.T) {
	r := quality.ValidationReport{Silhouette: 0.6, CalinskiHarabasz: 500, DaviesBouldin: 2}
	assert.InDelta(t, 0.5*0.6+0.3*0.5+0.2*0.8, OverallScore(r), 1e-12)

	undefined := quality.ValidationReport{
		Silhouette:       quality.UndefinedSilhouette,
		CalinskiHarabasz: quality.UndefinedCalinskiHarabasz,
		DaviesBouldin:    quality.UndefinedDaviesBouldin,
	}
	assert.Zero(t, OverallScore(undefined))
}

func TestCompare_PicksSeparatedLabeling(t *testing.T) {
	data, good := blobs(10)
	mixed := make([]int, len(good))
	for i := range mixed {
		mixed[i] = i % 2
	}

	results := []*clustering.Result{
		{Algorithm: clustering.AlgorithmHierarchical, Labels: mixed, NClusters: 2},
		{Algorithm: clustering.AlgorithmKMeans, Labels: good, NClusters: 2},
		{Algorithm: clustering.AlgorithmDBSCAN, Labels: good[:4]},
	}
	cmp, err := Compare(data, results)
	require.NoError(t, err)

	require.Len(t, cmp.Results, 2)
	assert.Equal(t, 1, cmp.Best)
	assert.Equal(t, clustering.AlgorithmKMeans, cmp.BestResult().Result.Algorithm)
	assert.Equal(t, []int{1, 0}, cmp.Rankings.Silhouette)
	assert.Equal(t, []int{1, 0}, cmp.Rankings.DaviesBouldin)
	assert.Equal(t, []int{1, 0}, cmp.Rankings.Overall)
}

func TestCompare_Errors(t *testing.T) {
	data, labels := blobs(5)
	_, err := Compare(data, nil)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = Compare(data, []*clustering.Result{{Labels: labels[:2]}})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestAdjustedRandIndex(t *testing.T) {
	a := []int{0, 0, 1, 1, 2, 2}
	assert.InDelta(t, 1.0, AdjustedRandIndex(a, a), 1e-12)
	assert.InDelta(t, 1.0, AdjustedRandIndex(a, []int{2, 2, 0, 0, 1, 1}), 1e-12)
	assert.InDelta(t, -0.5, AdjustedRandIndex([]int{0, 0, 1, 1}, []int{0, 1, 0, 1}), 1e-12)
	assert.InDelta(t, 1.0, AdjustedRandIndex([]int{0, 0, 0}, []int{5, 5, 5}), 1e-12)
	assert.Zero(t, AdjustedRandIndex([]int{0}, []int{0, 1}))
}

func TestStability_SeparatedBlobs(t *testing.T) {
	data, labels := blobs(10)
	report, err := Stability(data, labels, 5)
	require.NoError(t, err)

	assert.Len(t, report.Scores, 5)
	assert.Equal(t, 5, report.Iterations)
	assert.InDelta(t, 1.0, report.Mean, 1e-9)
	assert.InDelta(t, 0.0, report.Std, 1e-9)
	assert.InDelta(t, 1.0, report.Min, 1e-9)
}

func TestStability_Errors(t *testing.T) {
	data, labels := blobs(5)
	_, err := Stability(data, labels[:2], 3)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = Stability(data, labels, 0)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	noise := make([]int, len(labels))
	for i := range noise {
		noise[i] = clustering.NoiseLabel
	}
	_, err = Stability(data, noise, 3)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestGeneralization_SeparatedBlobs(t *testing.T) {
	data, labels := blobs(20)
	report, err := Generalization(data, labels, DefaultTestFraction, DefaultSplitSeed)
	require.NoError(t, err)

	assert.Equal(t, 8, report.NTest)
	assert.Equal(t, 32, report.NTrain)
	assert.Equal(t, 2, report.NClusters)
	assert.Greater(t, report.TrainSilhouette, 0.9)
	assert.Greater(t, report.Consistency, 0.9)
	assert.LessOrEqual(t, report.Consistency, 1.0)

	again, err := Generalization(data, labels, DefaultTestFraction, DefaultSplitSeed)
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestGeneralization_InvalidFraction(t *testing.T) {
	data, labels := blobs(5)
	for _, f := range []float64{0, 1, -0.2, math.NaN()} {
		_, err := Generalization(data, labels, f, 1)
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	}
}
