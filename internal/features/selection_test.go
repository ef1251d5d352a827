package features

import (
	"testing"

	"gocohort/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestValidateMatrix(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		0.1, 0.5,
		0.2, 0.5,
		0.9, 0.5,
	})
	summary, err := ValidateMatrix(data, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, summary.ConstantColumns)
	assert.Equal(t, 0.1, summary.MinValue)
	assert.Equal(t, 0.9, summary.MaxValue)

	_, err = ValidateMatrix(data, 4)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestDetectAndRemoveOutliers(t *testing.T) {
	values := make([]float64, 0, 40)
	for i := 0; i < 19; i++ {
		values = append(values, 0.5, 0.5)
	}
	values = append(values, 0.5, 100)
	data := mat.NewDense(20, 2, values)

	outliers := DetectOutliers(data, DefaultOutlierThreshold)
	assert.Equal(t, []int{19}, outliers)

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	fm := &Matrix{Data: data, ActorIDs: ids, Columns: []string{"x", "y"}}
	cleaned, err := RemoveOutliers(fm, outliers)
	require.NoError(t, err)
	assert.Equal(t, 19, cleaned.Rows())
	assert.Equal(t, ids[:19], cleaned.ActorIDs)
	assert.Equal(t, 20, fm.Rows(), "original is untouched")

	_, err = RemoveOutliers(fm, []int{25})
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestFeatureImportance(t *testing.T) {
	data := mat.NewDense(4, 3, []float64{
		0, 0, 1,
		1, 0.5, 1,
		0, 0, 1,
		1, 0.5, 1,
	})
	importance, err := FeatureImportance(data, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, importance["a"], 1e-12)
	assert.InDelta(t, 0.25, importance["b"], 1e-12)
	assert.InDelta(t, 0.0, importance["c"], 1e-12)

	_, err = FeatureImportance(data, []string{"a"})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSuggestFeatures_DropsCorrelated(t *testing.T) {
	// b is a scaled copy of a; c is independent with lower variance; d is constant.
	data := mat.NewDense(6, 4, []float64{
		0.0, 0.0, 0.2, 0.5,
		1.0, 0.9, 0.4, 0.5,
		0.0, 0.0, 0.4, 0.5,
		1.0, 0.9, 0.2, 0.5,
		0.5, 0.45, 0.3, 0.5,
		0.5, 0.45, 0.3, 0.5,
	})
	selected, err := SuggestFeatures(data, []string{"a", "b", "c", "d"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, selected)

	limited, err := SuggestFeatures(data, []string{"a", "b", "c", "d"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, limited)
}

func TestSummarize(t *testing.T) {
	fm := &Matrix{
		Data:     mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
		ActorIDs: []string{"a", "b", "c", "d"},
		Columns:  []string{"x"},
	}
	summary, err := Summarize(fm)
	require.NoError(t, err)
	require.Len(t, summary.Columns, 1)

	cs := summary.Columns[0]
	assert.Equal(t, "x", cs.Name)
	assert.InDelta(t, 2.5, cs.Mean, 1e-12)
	assert.InDelta(t, 1.118033988749895, cs.StdDev, 1e-9)
	assert.Equal(t, 1.0, cs.Min)
	assert.Equal(t, 4.0, cs.Max)
	assert.InDelta(t, 2.5, cs.Median, 1e-12)
}
