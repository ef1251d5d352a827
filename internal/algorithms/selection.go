package algorithms

import (
	"fmt"
	"math"
	"sort"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxK is the upper bound of the default best-k search range.
const DefaultMaxK = 15

// KRange returns [2, maxK].
func KRange(maxK int) []int {
	var ks []int
	for k := 2; k <= maxK; k++ {
		ks = append(ks, k)
	}
	return ks
}

// RunKRange runs k-means once per k. Failed k values are logged, skipped and
// returned as failures.
func RunKRange(data mat.Matrix, ks []int, params clustering.Params) ([]*clustering.Result, []quality.AlgorithmFailure) {
	base := params.WithDefaults(clustering.AlgorithmKMeans)
	results := make([]*clustering.Result, 0, len(ks))
	var failures []quality.AlgorithmFailure

	for _, k := range ks {
		p := base
		p.K = k
		res, err := KMeans{}.Cluster(data, p)
		if err != nil {
			internal.DefaultLogger.Warn("kmeans k=%d failed: %v", k, err)
			failures = append(failures, quality.AlgorithmFailure{
				Algorithm: clustering.AlgorithmKMeans,
				K:         k,
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, res)
	}
	return results, failures
}

// FindOptimalK scores k-means over ks and picks the best k by method.
func FindOptimalK(data mat.Matrix, ks []int, method quality.KSelectionMethod, params clustering.Params) (*quality.KSelection, error) {
	const op = "find optimal k"
	switch method {
	case quality.MethodElbow, quality.MethodSilhouette, quality.MethodGap:
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}
	if len(ks) == 0 {
		return nil, core.NewInvalidParameterError(op, "k_range", ks)
	}
	maxK := 0
	for _, k := range ks {
		if k < 2 {
			return nil, core.NewInvalidParameterError(op, "k", k)
		}
		if k > maxK {
			maxK = k
		}
	}
	n, _ := data.Dims()
	if n < maxK {
		return nil, core.NewInsufficientPointsForK(op, n, maxK)
	}

	results, failures := RunKRange(data, ks, params)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no k in %v could be computed", core.ErrAllAlgorithmsFailed, ks)
	}

	rows := metrics.Rows(data)
	sel := &quality.KSelection{Method: method, Failures: failures}
	for _, res := range results {
		sel.Candidates = append(sel.Candidates, quality.KCandidate{
			K:          res.Params.K,
			Inertia:    res.KMeans.Inertia,
			Silhouette: metrics.Silhouette(rows, res.Labels),
		})
	}

	// Elbow and gap read successive candidates, so they need ascending k.
	sort.Slice(sel.Candidates, func(i, j int) bool { return sel.Candidates[i].K < sel.Candidates[j].K })

	switch method {
	case quality.MethodElbow:
		sel.OptimalK = elbowK(sel.Candidates)
	case quality.MethodSilhouette:
		sel.OptimalK = silhouetteK(sel.Candidates)
	case quality.MethodGap:
		sel.OptimalK = gapK(sel.Candidates)
	}

	internal.DefaultLogger.Info("optimal k (%s): %d over %d candidates", method, sel.OptimalK, len(sel.Candidates))
	return sel, nil
}

// elbowK picks the k with the largest second difference of inertia.
func elbowK(cands []quality.KCandidate) int {
	var finite []quality.KCandidate
	for _, c := range cands {
		if !math.IsInf(c.Inertia, 0) && !math.IsNaN(c.Inertia) {
			finite = append(finite, c)
		}
	}
	if len(finite) < 3 {
		return cands[0].K
	}
	best, bestIdx := math.Inf(-1), 1
	for i := 1; i < len(finite)-1; i++ {
		second := finite[i-1].Inertia - 2*finite[i].Inertia + finite[i+1].Inertia
		if second > best {
			best, bestIdx = second, i
		}
	}
	return finite[bestIdx].K
}

// silhouetteK picks the k with the highest mean silhouette.
func silhouetteK(cands []quality.KCandidate) int {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Silhouette > best.Silhouette {
			best = c
		}
	}
	return best.K
}

// minInertia floors inertia before taking logs; a perfect fit has zero inertia.
const minInertia = 1e-12

// gapK picks the k with the largest drop in log-inertia from its predecessor.
func gapK(cands []quality.KCandidate) int {
	if len(cands) < 2 {
		return cands[0].K
	}
	bestK, best := cands[0].K, math.Inf(-1)
	for i := 1; i < len(cands); i++ {
		gap := math.Log(math.Max(cands[i-1].Inertia, minInertia)) - math.Log(math.Max(cands[i].Inertia, minInertia))
		if gap > best {
			bestK, best = cands[i].K, gap
		}
	}
	return bestK
}
