package features

import (
	"fmt"
	"math"

	"gocohort/domain/core"
	"gocohort/internal"

	"gonum.org/v1/gonum/mat"
)

// MatrixSummary is the non-fatal outcome of ValidateMatrix.
type MatrixSummary struct {
	Rows            int
	Cols            int
	ConstantColumns []int
	MinValue        float64
	MaxValue        float64
}

// ValidateMatrix re-verifies shape, row count and finiteness of a feature
// matrix. Constant columns are reported, not rejected.
func ValidateMatrix(data mat.Matrix, minActors int) (MatrixSummary, error) {
	if data == nil {
		return MatrixSummary{}, fmt.Errorf("%w: feature matrix is nil", core.ErrMalformedFeature)
	}
	r, c := data.Dims()
	summary := MatrixSummary{Rows: r, Cols: c}

	if c == 0 {
		return summary, core.ErrNoFeatures
	}
	if r < minActors || r == 0 {
		required := minActors
		if required < 1 {
			required = 1
		}
		return summary, core.NewInsufficientDataError("validate feature matrix", r, required)
	}

	summary.MinValue, summary.MaxValue = math.Inf(1), math.Inf(-1)
	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := data.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return summary, &core.MalformedFeatureError{
					Row:    i,
					Column: fmt.Sprintf("column %d", j),
					Value:  v,
					Reason: "value is not finite",
				}
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if lo == hi {
			summary.ConstantColumns = append(summary.ConstantColumns, j)
		}
		summary.MinValue = math.Min(summary.MinValue, lo)
		summary.MaxValue = math.Max(summary.MaxValue, hi)
	}

	if len(summary.ConstantColumns) > 0 {
		internal.DefaultLogger.Warn("%d constant features found (columns: %v)",
			len(summary.ConstantColumns), summary.ConstantColumns)
	}
	internal.DefaultLogger.Debug("feature matrix validated: %d x %d, values %.3f to %.3f",
		r, c, summary.MinValue, summary.MaxValue)
	return summary, nil
}
