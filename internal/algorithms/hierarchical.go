package algorithms

import (
	"fmt"
	"math"
	"sort"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"gonum.org/v1/gonum/mat"
)

// Hierarchical is agglomerative clustering with Lance–Williams distance
// updates. It records the full merge sequence and cuts the tree at K clusters.
//
// Merges are found with a nearest-neighbour chain, which is exact for the
// supported linkages since all four are reducible. Time is O(n²) and the
// distances are held in condensed form, n(n-1)/2 values.
type Hierarchical struct{}

func (Hierarchical) Algorithm() clustering.Algorithm { return clustering.AlgorithmHierarchical }

func (Hierarchical) Cluster(data mat.Matrix, params clustering.Params) (*clustering.Result, error) {
	const op = "hierarchical"
	rows, err := checkInput(op, data)
	if err != nil {
		return nil, err
	}
	n := len(rows)
	if err := checkK(op, params.K, n); err != nil {
		return nil, err
	}
	update, err := linkageUpdate(params.Linkage)
	if err != nil {
		return nil, err
	}

	links := nnChain(newCondensed(rows), update)
	merges, labels := buildDendrogram(links, n, params.K)

	internal.DefaultLogger.Debug("hierarchical k=%d linkage=%s: %d merges", params.K, params.Linkage, len(merges))

	return &clustering.Result{
		Algorithm: clustering.AlgorithmHierarchical,
		Params:    params,
		Labels:    labels,
		NClusters: countClusters(labels),
		Hierarchical: &clustering.HierarchyDiagnostics{
			Linkage: params.Linkage,
			Merges:  merges,
		},
	}, nil
}

// condensed is the upper triangle of a symmetric distance matrix.
type condensed struct {
	n int
	d []float64
}

func newCondensed(rows [][]float64) *condensed {
	n := len(rows)
	c := &condensed{n: n, d: make([]float64, n*(n-1)/2)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c.d[c.index(i, j)] = metrics.Euclidean(rows[i], rows[j])
		}
	}
	return c
}

func (c *condensed) index(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return c.n*i - i*(i+1)/2 + (j - i - 1)
}

func (c *condensed) at(i, j int) float64     { return c.d[c.index(i, j)] }
func (c *condensed) set(i, j int, v float64) { c.d[c.index(i, j)] = v }

// link is one merge in discovery order. A and B are slots, and each slot
// number is also a row inside that slot's cluster.
type link struct {
	a, b   int
	height float64
}

// nnChain follows nearest neighbours until two clusters are mutual nearest
// neighbours, then merges them. Ties prefer the previous chain element, then
// the lowest slot.
func nnChain(dist *condensed, update lanceWilliams) []link {
	n := dist.n
	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	links := make([]link, 0, n-1)
	chain := make([]int, 0, n)
	for len(links) < n-1 {
		if len(chain) == 0 {
			for i, ok := range active {
				if ok {
					chain = append(chain, i)
					break
				}
			}
		}

		a := chain[len(chain)-1]
		prev := -1
		if len(chain) > 1 {
			prev = chain[len(chain)-2]
		}
		next, best := prev, math.Inf(1)
		if prev >= 0 {
			best = dist.at(a, prev)
		}
		for c := 0; c < n; c++ {
			if !active[c] || c == a {
				continue
			}
			if d := dist.at(a, c); d < best {
				next, best = c, d
			}
		}

		if next != prev {
			chain = append(chain, next)
			continue
		}

		chain = chain[:len(chain)-2]
		keep, drop := min(a, prev), max(a, prev)
		links = append(links, link{a: keep, b: drop, height: best})

		for c := 0; c < n; c++ {
			if !active[c] || c == keep || c == drop {
				continue
			}
			d := update(dist.at(keep, c), dist.at(drop, c), best, size[keep], size[drop], size[c])
			dist.set(keep, c, d)
		}
		active[drop] = false
		size[keep] += size[drop]
	}
	return links
}

// buildDendrogram orders links by height and numbers clusters the scipy way:
// rows are 0..n-1 and the i-th merge creates cluster n+i. Labels are read off
// after n-k merges.
func buildDendrogram(links []link, n, k int) ([]clustering.Merge, []int) {
	sort.SliceStable(links, func(i, j int) bool { return links[i].height < links[j].height })

	parent := make([]int, n)
	id := make([]int, n)
	size := make([]int, n)
	for i := range parent {
		parent[i], id[i], size[i] = i, i, 1
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	cut := func() []int {
		raw := make([]int, n)
		for i := range raw {
			raw[i] = find(i)
		}
		labels, _ := clustering.Canonicalize(raw)
		return labels
	}

	var labels []int
	if k == n {
		labels = cut()
	}
	merges := make([]clustering.Merge, 0, len(links))
	for step, l := range links {
		ra, rb := find(l.a), find(l.b)
		left, right := id[ra], id[rb]
		if left > right {
			left, right = right, left
		}
		merged := size[ra] + size[rb]
		merges = append(merges, clustering.Merge{Left: left, Right: right, Height: l.height, Size: merged})

		parent[rb] = ra
		size[ra] = merged
		id[ra] = n + step

		if n-1-step == k {
			labels = cut()
		}
	}
	return merges, labels
}

// lanceWilliams computes d(a∪b, c) from d(a,c), d(b,c), d(a,b) and sizes.
type lanceWilliams func(dac, dbc, dab float64, na, nb, nc int) float64

func linkageUpdate(l clustering.Linkage) (lanceWilliams, error) {
	switch l {
	case clustering.LinkageSingle:
		return func(dac, dbc, _ float64, _, _, _ int) float64 {
			return math.Min(dac, dbc)
		}, nil
	case clustering.LinkageComplete:
		return func(dac, dbc, _ float64, _, _, _ int) float64 {
			return math.Max(dac, dbc)
		}, nil
	case clustering.LinkageAverage:
		return func(dac, dbc, _ float64, na, nb, _ int) float64 {
			return (float64(na)*dac + float64(nb)*dbc) / float64(na+nb)
		}, nil
	case clustering.LinkageWard, "":
		return func(dac, dbc, dab float64, na, nb, nc int) float64 {
			t := float64(na + nb + nc)
			v := (float64(na+nc)*dac*dac + float64(nb+nc)*dbc*dbc - float64(nc)*dab*dab) / t
			return math.Sqrt(math.Max(v, 0))
		}, nil
	default:
		return nil, fmt.Errorf("%w: hierarchical linkage=%q", core.ErrInvalidParameter, l)
	}
}
