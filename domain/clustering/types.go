package clustering

import (
	"fmt"
	"sort"
)

// Algorithm identifies one of the interchangeable partitioning procedures.
type Algorithm string

const (
	AlgorithmKMeans       Algorithm = "kmeans"
	AlgorithmDBSCAN       Algorithm = "dbscan"
	AlgorithmHierarchical Algorithm = "hierarchical"
	AlgorithmGMM          Algorithm = "gmm"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{AlgorithmKMeans, AlgorithmDBSCAN, AlgorithmHierarchical, AlgorithmGMM}

// ParseAlgorithm converts a name into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// Linkage is the merge criterion for hierarchical clustering.
type Linkage string

const (
	LinkageWard     Linkage = "ward"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
	LinkageSingle   Linkage = "single"
)

// NoiseLabel marks points that density-based clustering left unassigned.
const NoiseLabel = -1

// Defaults carried from the production configuration.
const (
	DefaultK            = 7
	DefaultSeed         = 42
	DefaultKMeansNInit  = 10
	DefaultKMeansMaxIt  = 300
	DefaultKMeansTol    = 1e-4
	DefaultDBSCANEps    = 0.3
	DefaultDBSCANMinPts = 10
	DefaultGMMMaxIter   = 200
	DefaultGMMTol       = 1e-3
	DefaultGMMRegCovar  = 1e-6
)

// DefaultKRange is the k grid used when comparing centroid-based runs.
var DefaultKRange = []int{3, 5, 7, 10}

// Params holds the parameters of every algorithm; each variant reads only its own fields.
type Params struct {
	K        int     `json:"k,omitempty"`
	Seed     int64   `json:"seed"`
	NInit    int     `json:"n_init,omitempty"`
	MaxIter  int     `json:"max_iter,omitempty"`
	Tol      float64 `json:"tol,omitempty"`
	Eps      float64 `json:"eps,omitempty"`
	MinPts   int     `json:"min_pts,omitempty"`
	Linkage  Linkage `json:"linkage,omitempty"`
	RegCovar float64 `json:"reg_covar,omitempty"`
}

// DefaultParams returns the production defaults for an algorithm.
func DefaultParams(alg Algorithm) Params {
	switch alg {
	case AlgorithmKMeans:
		return Params{K: DefaultK, Seed: DefaultSeed, NInit: DefaultKMeansNInit, MaxIter: DefaultKMeansMaxIt, Tol: DefaultKMeansTol}
	case AlgorithmDBSCAN:
		return Params{Eps: DefaultDBSCANEps, MinPts: DefaultDBSCANMinPts}
	case AlgorithmHierarchical:
		return Params{K: DefaultK, Linkage: LinkageWard}
	case AlgorithmGMM:
		return Params{K: DefaultK, Seed: DefaultSeed, MaxIter: DefaultGMMMaxIter, Tol: DefaultGMMTol, RegCovar: DefaultGMMRegCovar}
	default:
		return Params{}
	}
}

// WithDefaults fills zero-valued fields from DefaultParams(alg). Seed is left
// untouched because zero is a valid seed.
func (p Params) WithDefaults(alg Algorithm) Params {
	d := DefaultParams(alg)
	if p.K == 0 {
		p.K = d.K
	}
	if p.NInit == 0 {
		p.NInit = d.NInit
	}
	if p.MaxIter == 0 {
		p.MaxIter = d.MaxIter
	}
	if p.Tol == 0 {
		p.Tol = d.Tol
	}
	if p.Eps == 0 {
		p.Eps = d.Eps
	}
	if p.MinPts == 0 {
		p.MinPts = d.MinPts
	}
	if p.Linkage == "" {
		p.Linkage = d.Linkage
	}
	if p.RegCovar == 0 {
		p.RegCovar = d.RegCovar
	}
	return p
}

// CentroidDiagnostics is produced by k-means.
type CentroidDiagnostics struct {
	Centroids  [][]float64 `json:"centroids"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
	BestInit   int         `json:"best_init"`
}

// DensityDiagnostics is produced by DBSCAN.
type DensityDiagnostics struct {
	NoiseCount  int   `json:"noise_count"`
	CoreIndices []int `json:"core_indices"`
}

// Merge is one step of an agglomerative merge sequence. Left and Right are cluster
// IDs: values below N are original points, N+i is the cluster formed at step i.
type Merge struct {
	Left   int     `json:"left"`
	Right  int     `json:"right"`
	Height float64 `json:"height"`
	Size   int     `json:"size"`
}

// HierarchyDiagnostics is produced by agglomerative clustering.
type HierarchyDiagnostics struct {
	Linkage Linkage `json:"linkage"`
	Merges  []Merge `json:"merges"`
}

// MixtureDiagnostics is produced by the Gaussian mixture.
type MixtureDiagnostics struct {
	Weights         []float64   `json:"weights"`
	Means           [][]float64 `json:"means"`
	Probabilities   [][]float64 `json:"probabilities"`
	LogLikelihood   float64     `json:"log_likelihood"`
	MeanLogLikelihd float64     `json:"mean_log_likelihood"`
	AIC             float64     `json:"aic"`
	BIC             float64     `json:"bic"`
	Iterations      int         `json:"iterations"`
	Converged       bool        `json:"converged"`
}

// Result is the output of one algorithm invocation. Exactly one diagnostics
// pointer matching Algorithm is set.
type Result struct {
	Algorithm Algorithm `json:"algorithm"`
	Params    Params    `json:"params"`
	Labels    []int     `json:"labels"`
	NClusters int       `json:"n_clusters"`

	KMeans       *CentroidDiagnostics  `json:"kmeans,omitempty"`
	Density      *DensityDiagnostics   `json:"density,omitempty"`
	Hierarchical *HierarchyDiagnostics `json:"hierarchical,omitempty"`
	Mixture      *MixtureDiagnostics   `json:"mixture,omitempty"`
}

// Name renders a short identifier such as "kmeans(k=5)".
func (r *Result) Name() string {
	switch r.Algorithm {
	case AlgorithmDBSCAN:
		return fmt.Sprintf("%s(eps=%.2f,min_pts=%d)", r.Algorithm, r.Params.Eps, r.Params.MinPts)
	case AlgorithmHierarchical:
		return fmt.Sprintf("%s(k=%d,%s)", r.Algorithm, r.Params.K, r.Params.Linkage)
	default:
		return fmt.Sprintf("%s(k=%d)", r.Algorithm, r.Params.K)
	}
}

// ClusterLabels returns the distinct non-noise labels in ascending order.
func ClusterLabels(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if l == NoiseLabel || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Members groups row indices by label, ignoring noise.
func Members(labels []int) map[int][]int {
	out := make(map[int][]int)
	for i, l := range labels {
		if l == NoiseLabel {
			continue
		}
		out[l] = append(out[l], i)
	}
	return out
}

// Canonicalize relabels clusters in order of first appearance so that equal
// partitions produce equal label vectors. Noise is preserved. The returned
// mapping sends old labels to new ones.
func Canonicalize(labels []int) ([]int, map[int]int) {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	next := 0
	for i, l := range labels {
		if l == NoiseLabel {
			out[i] = NoiseLabel
			continue
		}
		nl, ok := mapping[l]
		if !ok {
			nl = next
			mapping[l] = nl
			next++
		}
		out[i] = nl
	}
	return out, mapping
}
