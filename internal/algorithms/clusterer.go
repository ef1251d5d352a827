package algorithms

import (
	"fmt"
	"math"
	"sort"

	"gocohort/domain/clustering"
	"gocohort/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Clusterer partitions the rows of a feature matrix.
type Clusterer interface {
	Algorithm() clustering.Algorithm
	Cluster(data mat.Matrix, params clustering.Params) (*clustering.Result, error)
}

// New returns the clusterer for alg.
func New(alg clustering.Algorithm) (Clusterer, error) {
	switch alg {
	case clustering.AlgorithmKMeans:
		return KMeans{}, nil
	case clustering.AlgorithmDBSCAN:
		return DBSCAN{}, nil
	case clustering.AlgorithmHierarchical:
		return Hierarchical{}, nil
	case clustering.AlgorithmGMM:
		return GaussianMixture{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAlgorithm, alg)
	}
}

// Run clusters data with alg, filling unset params from the defaults.
func Run(alg clustering.Algorithm, data mat.Matrix, params clustering.Params) (*clustering.Result, error) {
	c, err := New(alg)
	if err != nil {
		return nil, err
	}
	return c.Cluster(data, params.WithDefaults(alg))
}

// checkInput rejects empty or non-finite matrices and returns the rows.
func checkInput(op string, data mat.Matrix) ([][]float64, error) {
	if data == nil {
		return nil, core.NewInsufficientDataError(op, 0, 1)
	}
	r, c := data.Dims()
	if r == 0 {
		return nil, core.NewInsufficientDataError(op, 0, 1)
	}
	if c == 0 {
		return nil, core.ErrNoFeatures
	}
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = mat.Row(nil, i, data)
		for j, v := range rows[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &core.MalformedFeatureError{
					Row:    i,
					Column: fmt.Sprintf("column %d", j),
					Value:  v,
					Reason: "value is not finite",
				}
			}
		}
	}
	return rows, nil
}

// checkK enforces 1 <= k <= n.
func checkK(op string, k, n int) error {
	if k < 1 {
		return core.NewInvalidParameterError(op, "k", k)
	}
	if n < k {
		return core.NewInsufficientPointsForK(op, n, k)
	}
	return nil
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// nearest returns the index of the closest center and the squared distance;
// ties go to the lowest index.
func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

// componentOrder lists old labels in canonical order: labels seen in the
// mapping first (by their new label), then unused labels ascending.
func componentOrder(mapping map[int]int, k int) []int {
	order := make([]int, 0, k)
	used := make([]int, len(mapping))
	for old, nl := range mapping {
		used[nl] = old
	}
	order = append(order, used...)
	var unused []int
	for old := 0; old < k; old++ {
		if _, ok := mapping[old]; !ok {
			unused = append(unused, old)
		}
	}
	sort.Ints(unused)
	return append(order, unused...)
}

func countClusters(labels []int) int {
	return len(clustering.ClusterLabels(labels))
}
