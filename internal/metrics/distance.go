// Package metrics computes internal cluster-quality scores over a feature
// matrix and a label vector. Noise labels (-1) are excluded throughout.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Rows copies a matrix into row slices.
func Rows(data mat.Matrix) [][]float64 {
	r, _ := data.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, data)
	}
	return out
}

// PairwiseDistances returns the full symmetric distance matrix of rows.
func PairwiseDistances(rows [][]float64) [][]float64 {
	n := len(rows)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := Euclidean(rows[i], rows[j])
			d[i][j], d[j][i] = v, v
		}
	}
	return d
}

// Centroid returns the column-wise mean of the selected rows.
func Centroid(rows [][]float64, members []int) []float64 {
	if len(members) == 0 {
		return nil
	}
	c := make([]float64, len(rows[members[0]]))
	for _, i := range members {
		floats.Add(c, rows[i])
	}
	floats.Scale(1/float64(len(members)), c)
	return c
}
