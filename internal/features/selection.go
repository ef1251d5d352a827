package features

import (
	"fmt"
	"math"

	"gocohort/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Correlation above which SuggestFeatures drops a candidate.
const redundantCorrelation = 0.8

// DefaultMaxFeatures caps SuggestFeatures.
const DefaultMaxFeatures = 10

// FeatureImportance scores each column by its variance relative to the most
// variable column.
func FeatureImportance(data mat.Matrix, names []string) (map[string]float64, error) {
	r, c := data.Dims()
	if len(names) != c {
		return nil, fmt.Errorf("%w: %d names for %d columns", core.ErrDimensionMismatch, len(names), c)
	}

	variances := make([]float64, c)
	col := make([]float64, r)
	maxVar := 0.0
	for j := 0; j < c; j++ {
		mat.Col(col, j, data)
		v, err := stats.PopulationVariance(col)
		if err != nil {
			return nil, fmt.Errorf("failed to compute variance of %s: %w", names[j], err)
		}
		variances[j] = v
		maxVar = math.Max(maxVar, v)
	}

	importance := make(map[string]float64, c)
	for j, name := range names {
		if maxVar > 0 {
			importance[name] = variances[j] / maxVar
		} else {
			importance[name] = variances[j]
		}
	}
	return importance, nil
}

// CorrelationMatrix returns the Pearson correlation between columns. Pairs
// involving a constant column are NaN.
func CorrelationMatrix(data mat.Matrix) *mat.SymDense {
	_, c := data.Dims()
	corr := mat.NewSymDense(c, nil)
	stat.CorrelationMatrix(corr, data, nil)
	return corr
}

// SuggestFeatures greedily picks the most variable remaining column and drops
// every remaining column correlated with it above 0.8, up to maxFeatures.
func SuggestFeatures(data mat.Matrix, names []string, maxFeatures int) ([]string, error) {
	importance, err := FeatureImportance(data, names)
	if err != nil {
		return nil, err
	}
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	corr := CorrelationMatrix(data)

	remaining := make([]int, len(names))
	for j := range remaining {
		remaining[j] = j
	}

	var selected []string
	for len(selected) < maxFeatures && len(remaining) > 0 {
		bestPos := 0
		for pos, j := range remaining {
			if importance[names[j]] > importance[names[remaining[bestPos]]] {
				bestPos = pos
			}
		}
		best := remaining[bestPos]
		selected = append(selected, names[best])
		remaining = append(remaining[:bestPos:bestPos], remaining[bestPos+1:]...)

		kept := remaining[:0:0]
		for _, j := range remaining {
			r := corr.At(best, j)
			if math.IsNaN(r) {
				r = 0
			}
			if math.Abs(r) > redundantCorrelation {
				continue
			}
			kept = append(kept, j)
		}
		remaining = kept
	}
	return selected, nil
}
