package algorithms

import (
	"errors"
	"math"
	"sort"
	"strings"
	"testing"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal/features"
	"gocohort/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blobs returns two tight, well separated 2-D groups of size per.
func blobs(per int) *mat.Dense {
	data := mat.NewDense(2*per, 2, nil)
	for i := 0; i < per; i++ {
		jitter := float64(i%5) * 0.01
		data.SetRow(i, []float64{0.1 + jitter, 0.1 + float64(i%3)*0.01})
		data.SetRow(per+i, []float64{0.9 - jitter, 0.9 - float64(i%3)*0.01})
	}
	return data
}

func twoGroupMatrix(t *testing.T, seed int64) *features.Matrix {
	t.Helper()
	fm, err := features.Prepare(testkit.TwoGroupPopulation(seed, 20), features.DefaultConfig())
	require.NoError(t, err)
	return fm
}

func membership(ids []string, labels []int) []string {
	groups := map[int][]string{}
	for i, l := range labels {
		groups[l] = append(groups[l], ids[i])
	}
	var out []string
	for _, g := range groups {
		sort.Strings(g)
		out = append(out, strings.Join(g, ","))
	}
	sort.Strings(out)
	return out
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New("spectral")
	assert.ErrorIs(t, err, core.ErrUnknownAlgorithm)

	for _, alg := range clustering.Algorithms {
		c, err := New(alg)
		require.NoError(t, err)
		assert.Equal(t, alg, c.Algorithm())
	}
}

func TestKMeans_TwoDriverGroupsArePure(t *testing.T) {
	fm := twoGroupMatrix(t, 42)
	res, err := Run(clustering.AlgorithmKMeans, fm.Data, clustering.Params{K: 2, Seed: 42})
	require.NoError(t, err)
	require.Equal(t, 2, res.NClusters)

	counts := map[int]map[string]int{}
	for i, l := range res.Labels {
		group := strings.SplitN(fm.ActorIDs[i], "_", 2)[0]
		if counts[l] == nil {
			counts[l] = map[string]int{}
		}
		counts[l][group]++
	}
	for label, byGroup := range counts {
		total, top := 0, 0
		for _, c := range byGroup {
			total += c
			if c > top {
				top = c
			}
		}
		assert.GreaterOrEqual(t, float64(top)/float64(total), 0.9, "cluster %d purity", label)
	}
}

func TestKMeans_Deterministic(t *testing.T) {
	fm := twoGroupMatrix(t, 7)
	params := clustering.Params{K: 3, Seed: 11}

	first, err := Run(clustering.AlgorithmKMeans, fm.Data, params)
	require.NoError(t, err)
	second, err := Run(clustering.AlgorithmKMeans, fm.Data, params)
	require.NoError(t, err)

	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, first.KMeans.Inertia, second.KMeans.Inertia)
}

func TestKMeans_ShuffleKeepsMembership(t *testing.T) {
	actors := testkit.TwoGroupPopulation(3, 20)
	fm, err := features.Prepare(actors, features.DefaultConfig())
	require.NoError(t, err)
	shuffled, err := features.Prepare(testkit.Shuffled(actors, 5), features.DefaultConfig())
	require.NoError(t, err)

	a, err := Run(clustering.AlgorithmKMeans, fm.Data, clustering.Params{K: 2})
	require.NoError(t, err)
	b, err := Run(clustering.AlgorithmKMeans, shuffled.Data, clustering.Params{K: 2})
	require.NoError(t, err)

	assert.Equal(t, membership(fm.ActorIDs, a.Labels), membership(shuffled.ActorIDs, b.Labels))
}

func TestKMeans_LabelsAndCentroids(t *testing.T) {
	data := blobs(10)
	res, err := Run(clustering.AlgorithmKMeans, data, clustering.Params{K: 2})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Labels[0], "labels numbered by first appearance")
	for i, l := range res.Labels {
		assert.Contains(t, []int{0, 1}, l, "row %d", i)
	}
	require.Len(t, res.KMeans.Centroids, 2)
	assert.InDelta(t, 0.12, res.KMeans.Centroids[0][0], 0.05)
	assert.InDelta(t, 0.88, res.KMeans.Centroids[1][0], 0.05)
	assert.Greater(t, res.KMeans.Iterations, 0)
}

func TestKMeans_InsufficientPointsForK(t *testing.T) {
	_, err := Run(clustering.AlgorithmKMeans, blobs(2), clustering.Params{K: 5})
	var insufficient *core.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.RequestedK)
	assert.Equal(t, 4, insufficient.Actors)
}

func TestKMeans_DuplicatePoints(t *testing.T) {
	data := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	res, err := Run(clustering.AlgorithmKMeans, data, clustering.Params{K: 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.KMeans.Inertia)
	assert.Len(t, res.Labels, 4)
}

func TestDBSCAN_ClustersAndNoise(t *testing.T) {
	data := mat.NewDense(7, 1, []float64{0, 0.05, 0.1, 5, 5.05, 5.1, 20})
	res, err := Run(clustering.AlgorithmDBSCAN, data, clustering.Params{Eps: 0.11, MinPts: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, -1}, res.Labels)
	assert.Equal(t, 2, res.NClusters)
	assert.Equal(t, 1, res.Density.NoiseCount)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, res.Density.CoreIndices)
}

func TestDBSCAN_CoreCountsOtherPoints(t *testing.T) {
	// each point has exactly two neighbours besides itself
	data := mat.NewDense(3, 1, []float64{0, 0.1, 0.2})

	res, err := Run(clustering.AlgorithmDBSCAN, data, clustering.Params{Eps: 0.25, MinPts: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NClusters)

	res, err = Run(clustering.AlgorithmDBSCAN, data, clustering.Params{Eps: 0.25, MinPts: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NClusters)
	assert.Equal(t, []int{-1, -1, -1}, res.Labels)
	assert.Equal(t, 3, res.Density.NoiseCount)
}

func TestDBSCAN_BorderPoint(t *testing.T) {
	// 0.35 reaches the core point 0.2 but has only one neighbour itself
	data := mat.NewDense(4, 1, []float64{0, 0.1, 0.2, 0.35})
	res, err := Run(clustering.AlgorithmDBSCAN, data, clustering.Params{Eps: 0.2, MinPts: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, res.Labels)
	assert.NotContains(t, res.Density.CoreIndices, 3)
}

func TestDBSCAN_InvalidParams(t *testing.T) {
	_, err := DBSCAN{}.Cluster(blobs(3), clustering.Params{Eps: 0, MinPts: 2})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestHierarchical_SingleLinkageMerges(t *testing.T) {
	data := mat.NewDense(5, 1, []float64{0, 1, 5, 6, 20})
	res, err := Run(clustering.AlgorithmHierarchical, data, clustering.Params{K: 3, Linkage: clustering.LinkageSingle})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 1, 1, 2}, res.Labels)
	assert.Equal(t, []clustering.Merge{
		{Left: 0, Right: 1, Height: 1, Size: 2},
		{Left: 2, Right: 3, Height: 1, Size: 2},
		{Left: 5, Right: 6, Height: 4, Size: 4},
		{Left: 4, Right: 7, Height: 14, Size: 5},
	}, res.Hierarchical.Merges)

	res, err = Run(clustering.AlgorithmHierarchical, data, clustering.Params{K: 2, Linkage: clustering.LinkageSingle})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1}, res.Labels)
}

func TestHierarchical_LinkagesCutAtK(t *testing.T) {
	data := blobs(8)
	for _, linkage := range []clustering.Linkage{
		clustering.LinkageWard, clustering.LinkageComplete, clustering.LinkageAverage, clustering.LinkageSingle,
	} {
		t.Run(string(linkage), func(t *testing.T) {
			res, err := Run(clustering.AlgorithmHierarchical, data, clustering.Params{K: 2, Linkage: linkage})
			require.NoError(t, err)
			assert.Equal(t, 2, res.NClusters)
			assert.Len(t, res.Hierarchical.Merges, 15)
			for i := 0; i < 8; i++ {
				assert.Equal(t, 0, res.Labels[i])
				assert.Equal(t, 1, res.Labels[8+i])
			}
		})
	}
}

func TestHierarchical_WardHeight(t *testing.T) {
	data := mat.NewDense(4, 1, []float64{0, 1, 5, 6})
	res, err := Run(clustering.AlgorithmHierarchical, data, clustering.Params{K: 1})
	require.NoError(t, err)
	merges := res.Hierarchical.Merges
	require.Len(t, merges, 3)
	// ward distance between the two pairs: sqrt(2*|c1-c2|^2 * 2*2/4) = sqrt(2)*5
	assert.InDelta(t, math.Sqrt(2)*5, merges[2].Height, 1e-9)
	assert.Equal(t, []int{0, 0, 0, 0}, res.Labels)
}

func TestHierarchical_UnknownLinkage(t *testing.T) {
	_, err := Hierarchical{}.Cluster(blobs(3), clustering.Params{K: 2, Linkage: "centroid"})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestGMM_TwoBlobs(t *testing.T) {
	data := blobs(15)
	res, err := Run(clustering.AlgorithmGMM, data, clustering.Params{K: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, res.NClusters)
	for i := 0; i < 15; i++ {
		assert.Equal(t, res.Labels[0], res.Labels[i])
		assert.Equal(t, res.Labels[15], res.Labels[15+i])
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[15])

	diag := res.Mixture
	assert.InDelta(t, 1.0, diag.Weights[0]+diag.Weights[1], 1e-9)
	for _, p := range diag.Probabilities {
		assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
	}
	assert.False(t, math.IsNaN(diag.LogLikelihood))
	assert.Less(t, diag.AIC, diag.BIC+1e-9, "BIC penalizes more for n=30")
	assert.InDelta(t, diag.LogLikelihood/30, diag.MeanLogLikelihd, 1e-9)
}

func TestCentroidAlgorithmsNeverEmitNoise(t *testing.T) {
	fm := twoGroupMatrix(t, 9)
	for _, alg := range []clustering.Algorithm{
		clustering.AlgorithmKMeans, clustering.AlgorithmHierarchical, clustering.AlgorithmGMM,
	} {
		res, err := Run(alg, fm.Data, clustering.Params{K: 4})
		require.NoError(t, err, alg)
		require.Len(t, res.Labels, fm.Rows())
		for _, l := range res.Labels {
			assert.GreaterOrEqual(t, l, 0, alg)
			assert.Less(t, l, 4, alg)
		}
	}
}
