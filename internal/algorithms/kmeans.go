package algorithms

import (
	"math"
	"math/rand"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal"

	"gonum.org/v1/gonum/mat"
)

// KMeans is Lloyd's algorithm with k-means++ seeding and restarts.
type KMeans struct{}

func (KMeans) Algorithm() clustering.Algorithm { return clustering.AlgorithmKMeans }

// kmeansRun is the outcome of one initialization.
type kmeansRun struct {
	labels     []int
	centers    [][]float64
	inertia    float64
	iterations int
}

// Cluster keeps the restart with the lowest inertia. Labels are numbered in
// order of first appearance so equal partitions yield equal labels.
func (KMeans) Cluster(data mat.Matrix, params clustering.Params) (*clustering.Result, error) {
	const op = "kmeans"
	rows, err := checkInput(op, data)
	if err != nil {
		return nil, err
	}
	if err := checkK(op, params.K, len(rows)); err != nil {
		return nil, err
	}
	if params.NInit < 1 {
		return nil, core.NewInvalidParameterError(op, "n_init", params.NInit)
	}
	if params.MaxIter < 1 {
		return nil, core.NewInvalidParameterError(op, "max_iter", params.MaxIter)
	}

	tol := params.Tol * meanVariance(rows)
	rng := rand.New(rand.NewSource(params.Seed))

	var best *kmeansRun
	bestInit := 0
	for init := 0; init < params.NInit; init++ {
		run := lloyd(rows, seedPlusPlus(rows, params.K, rng), params.MaxIter, tol)
		internal.DefaultLogger.Trace("kmeans init %d: inertia %.6f after %d iterations", init, run.inertia, run.iterations)
		if best == nil || run.inertia < best.inertia {
			best = run
			bestInit = init
		}
	}

	labels, mapping := clustering.Canonicalize(best.labels)
	order := componentOrder(mapping, params.K)
	centers := make([][]float64, len(order))
	for nl, old := range order {
		centers[nl] = best.centers[old]
	}

	internal.DefaultLogger.Debug("kmeans k=%d: inertia %.4f (init %d, %d iterations)",
		params.K, best.inertia, bestInit, best.iterations)

	return &clustering.Result{
		Algorithm: clustering.AlgorithmKMeans,
		Params:    params,
		Labels:    labels,
		NClusters: countClusters(labels),
		KMeans: &clustering.CentroidDiagnostics{
			Centroids:  centers,
			Inertia:    best.inertia,
			Iterations: best.iterations,
			BestInit:   bestInit,
		},
	}, nil
}

// meanVariance is the mean per-feature population variance; it scales the
// convergence tolerance to the data.
func meanVariance(rows [][]float64) float64 {
	n, m := len(rows), len(rows[0])
	total := 0.0
	for j := 0; j < m; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += rows[i][j]
		}
		mean /= float64(n)
		v := 0.0
		for i := 0; i < n; i++ {
			d := rows[i][j] - mean
			v += d * d
		}
		total += v / float64(n)
	}
	return total / float64(m)
}

// seedPlusPlus picks k initial centers by D² sampling.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(rows[rng.Intn(n)]))

	closest := make([]float64, n)
	for i, p := range rows {
		closest[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := 0.0
		for _, d := range closest {
			total += d
		}

		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range closest {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}

		c := clone(rows[next])
		centers = append(centers, c)
		for i, p := range rows {
			closest[i] = math.Min(closest[i], sqDist(p, c))
		}
	}
	return centers
}

// lloyd alternates assignment and mean updates until the squared center
// shift drops to tol or maxIter is reached.
func lloyd(rows [][]float64, centers [][]float64, maxIter int, tol float64) *kmeansRun {
	n, k, m := len(rows), len(centers), len(rows[0])
	labels := make([]int, n)

	iter := 0
	for iter < maxIter {
		iter++
		for i, p := range rows {
			labels[i], _ = nearest(p, centers)
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, m)
		}
		for i, p := range rows {
			counts[labels[i]]++
			for j, v := range p {
				sums[labels[i]][j] += v
			}
		}

		next := make([][]float64, k)
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			next[c] = sums[c]
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		reseedEmpty(rows, labels, centers, next)

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range rows {
		var d float64
		labels[i], d = nearest(p, centers)
		inertia += d
	}
	return &kmeansRun{labels: labels, centers: centers, inertia: inertia, iterations: iter}
}

// reseedEmpty moves each empty cluster onto the point farthest from its
// current center, never reusing a point.
func reseedEmpty(rows [][]float64, labels []int, old, next [][]float64) {
	taken := make(map[int]bool)
	for c := range next {
		if next[c] != nil {
			continue
		}
		far, farD := -1, -1.0
		for i, p := range rows {
			if taken[i] {
				continue
			}
			if d := sqDist(p, old[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		taken[far] = true
		next[c] = clone(rows[far])
	}
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
