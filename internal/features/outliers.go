package features

import (
	"fmt"
	"math"
	"sort"

	"gocohort/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// DefaultOutlierThreshold is the z-score above which a value is an outlier.
const DefaultOutlierThreshold = 3.0

// DetectOutliers returns the sorted row indices with any |z| above threshold.
// Columns with zero spread are skipped.
func DetectOutliers(data mat.Matrix, threshold float64) []int {
	r, c := data.Dims()
	flagged := make(map[int]bool)
	col := make([]float64, r)

	for j := 0; j < c; j++ {
		mat.Col(col, j, data)
		mean, err := stats.Mean(col)
		if err != nil {
			continue
		}
		std, err := stats.StandardDeviationPopulation(col)
		if err != nil || std == 0 {
			continue
		}
		for i, v := range col {
			if math.Abs((v-mean)/std) > threshold {
				flagged[i] = true
			}
		}
	}

	out := make([]int, 0, len(flagged))
	for i := range flagged {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// RemoveOutliers returns a new matrix without the given rows. The scaler and
// column layout are carried over unchanged.
func RemoveOutliers(fm *Matrix, indices []int) (*Matrix, error) {
	if len(indices) == 0 {
		return fm, nil
	}
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= fm.Rows() {
			return nil, fmt.Errorf("%w: outlier index %d out of range [0,%d)",
				core.ErrInvalidParameter, idx, fm.Rows())
		}
		drop[idx] = true
	}

	keep := fm.Rows() - len(drop)
	if keep == 0 {
		return nil, core.NewInsufficientDataError("remove outliers", 0, 1)
	}

	data := mat.NewDense(keep, fm.Cols(), nil)
	ids := make([]string, 0, keep)
	row := 0
	for i := 0; i < fm.Rows(); i++ {
		if drop[i] {
			continue
		}
		data.SetRow(row, fm.Row(i))
		ids = append(ids, fm.ActorIDs[i])
		row++
	}

	return &Matrix{
		Data:            data,
		ActorIDs:        ids,
		Columns:         fm.Columns,
		Config:          fm.Config,
		Scaler:          fm.Scaler,
		ConstantColumns: fm.ConstantColumns,
	}, nil
}
