package metrics

import (
	"math"

	"gocohort/domain/clustering"
	"gocohort/domain/quality"
)

// partition is the non-noise view of a labeling.
type partition struct {
	labels  []int         // distinct non-noise labels, ascending
	members map[int][]int // label -> row indices
	points  []int         // all non-noise row indices
}

func newPartition(labels []int) partition {
	p := partition{
		labels:  clustering.ClusterLabels(labels),
		members: clustering.Members(labels),
	}
	for i, l := range labels {
		if l != clustering.NoiseLabel {
			p.points = append(p.points, i)
		}
	}
	return p
}

// defined reports whether internal metrics are meaningful: at least two
// clusters and more points than clusters.
func (p partition) defined() bool {
	k := len(p.labels)
	return k >= 2 && len(p.points) > k
}

// Silhouette is the mean silhouette coefficient over non-noise points, or -1
// when undefined. Points in singleton clusters score 0.
func Silhouette(rows [][]float64, labels []int) float64 {
	p := newPartition(labels)
	if !p.defined() {
		return quality.UndefinedSilhouette
	}

	total := 0.0
	for _, i := range p.points {
		own := labels[i]
		if len(p.members[own]) == 1 {
			continue
		}
		a := meanDistance(rows, i, p.members[own], true)
		b := math.Inf(1)
		for _, other := range p.labels {
			if other == own {
				continue
			}
			b = math.Min(b, meanDistance(rows, i, p.members[other], false))
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(len(p.points))
}

func meanDistance(rows [][]float64, i int, members []int, excludeSelf bool) float64 {
	sum, count := 0.0, 0
	for _, j := range members {
		if excludeSelf && j == i {
			continue
		}
		sum += Euclidean(rows[i], rows[j])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// CalinskiHarabasz is the between/within dispersion ratio, or 0 when
// undefined. A labeling with zero within-cluster dispersion scores 1.
func CalinskiHarabasz(rows [][]float64, labels []int) float64 {
	p := newPartition(labels)
	if !p.defined() {
		return quality.UndefinedCalinskiHarabasz
	}

	n, k := len(p.points), len(p.labels)
	overall := Centroid(rows, p.points)

	between, within := 0.0, 0.0
	for _, l := range p.labels {
		members := p.members[l]
		c := Centroid(rows, members)
		d := Euclidean(c, overall)
		between += float64(len(members)) * d * d
		for _, i := range members {
			e := Euclidean(rows[i], c)
			within += e * e
		}
	}
	if within == 0 {
		return 1.0
	}
	return between * float64(n-k) / (within * float64(k-1))
}

// DaviesBouldin is the mean worst-case cluster similarity, or +Inf when
// undefined. Coincident centroids count as infinitely similar.
func DaviesBouldin(rows [][]float64, labels []int) float64 {
	p := newPartition(labels)
	if !p.defined() {
		return quality.UndefinedDaviesBouldin
	}

	k := len(p.labels)
	centroids := make([][]float64, k)
	scatter := make([]float64, k)
	for idx, l := range p.labels {
		members := p.members[l]
		centroids[idx] = Centroid(rows, members)
		for _, i := range members {
			scatter[idx] += Euclidean(rows[i], centroids[idx])
		}
		scatter[idx] /= float64(len(members))
	}

	total := 0.0
	for i := 0; i < k; i++ {
		worst := 0.0
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			sep := Euclidean(centroids[i], centroids[j])
			var ratio float64
			if sep == 0 {
				ratio = math.Inf(1)
			} else {
				ratio = (scatter[i] + scatter[j]) / sep
			}
			worst = math.Max(worst, ratio)
		}
		total += worst
	}
	return total / float64(k)
}

// WithinVariance returns the mean per-feature variance of each cluster, in
// ascending label order. Singleton clusters report 0.
func WithinVariance(rows [][]float64, labels []int) []float64 {
	p := newPartition(labels)
	out := make([]float64, len(p.labels))
	for idx, l := range p.labels {
		members := p.members[l]
		if len(members) < 2 {
			continue
		}
		c := Centroid(rows, members)
		sum := 0.0
		for _, i := range members {
			for f, v := range rows[i] {
				diff := v - c[f]
				sum += diff * diff
			}
		}
		out[idx] = sum / float64(len(members)*len(c))
	}
	return out
}

// CentroidDistances returns the pairwise distances between cluster
// centroids, in ascending label order.
func CentroidDistances(rows [][]float64, labels []int) [][]float64 {
	p := newPartition(labels)
	centroids := make([][]float64, len(p.labels))
	for idx, l := range p.labels {
		centroids[idx] = Centroid(rows, p.members[l])
	}
	return PairwiseDistances(centroids)
}
