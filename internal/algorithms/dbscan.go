package algorithms

import (
	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// DBSCAN is density-based clustering. A point is a core point when at least
// MinPts other points lie within Eps; points reachable from no core point are
// noise.
type DBSCAN struct{}

func (DBSCAN) Algorithm() clustering.Algorithm { return clustering.AlgorithmDBSCAN }

const unvisited = -2

// Cluster never fails on finding zero clusters; that is reported through
// NClusters and the noise count.
func (DBSCAN) Cluster(data mat.Matrix, params clustering.Params) (*clustering.Result, error) {
	const op = "dbscan"
	rows, err := checkInput(op, data)
	if err != nil {
		return nil, err
	}
	if !(params.Eps > 0) {
		return nil, core.NewInvalidParameterError(op, "eps", params.Eps)
	}
	if params.MinPts < 1 {
		return nil, core.NewInvalidParameterError(op, "min_pts", params.MinPts)
	}

	n := len(rows)
	dist := metrics.PairwiseDistances(rows)
	neighbors := make([][]int, n)
	isCore := make([]bool, n)
	var coreIdx []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && dist[i][j] <= params.Eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
		if len(neighbors[i]) >= params.MinPts {
			isCore[i] = true
			coreIdx = append(coreIdx, i)
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited || !isCore[i] {
			continue
		}
		labels[i] = next
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] != unvisited {
				continue
			}
			labels[p] = next
			if isCore[p] {
				queue = append(queue, neighbors[p]...)
			}
		}
		next++
	}

	noise := 0
	for i := range labels {
		if labels[i] == unvisited {
			labels[i] = clustering.NoiseLabel
			noise++
		}
	}

	if next == 0 {
		internal.DefaultLogger.Warn("dbscan eps=%.2f min_pts=%d found no clusters (%d noise points)",
			params.Eps, params.MinPts, noise)
	} else {
		internal.DefaultLogger.Debug("dbscan eps=%.2f min_pts=%d: %d clusters, %d noise points",
			params.Eps, params.MinPts, next, noise)
	}

	return &clustering.Result{
		Algorithm: clustering.AlgorithmDBSCAN,
		Params:    params,
		Labels:    labels,
		NClusters: next,
		Density: &clustering.DensityDiagnostics{
			NoiseCount:  noise,
			CoreIndices: coreIdx,
		},
	}, nil
}
