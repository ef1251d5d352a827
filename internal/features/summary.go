package features

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// ColumnStats describes the distribution of one feature column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Summary holds per-column statistics for a feature matrix.
type Summary struct {
	NActors   int           `json:"n_actors"`
	NFeatures int           `json:"n_features"`
	Columns   []ColumnStats `json:"feature_stats"`
}

// Summarize computes per-column summary statistics.
func Summarize(fm *Matrix) (Summary, error) {
	summary := Summary{NActors: fm.Rows(), NFeatures: fm.Cols()}
	col := make([]float64, fm.Rows())

	for j, name := range fm.Columns {
		mat.Col(col, j, fm.Data)
		cs, err := describeColumn(name, col)
		if err != nil {
			return summary, err
		}
		summary.Columns = append(summary.Columns, cs)
	}
	return summary, nil
}

func describeColumn(name string, data []float64) (ColumnStats, error) {
	cs := ColumnStats{Name: name}
	var err error

	if cs.Mean, err = stats.Mean(data); err != nil {
		return cs, err
	}
	if cs.StdDev, err = stats.StandardDeviationPopulation(data); err != nil {
		return cs, err
	}
	if cs.Min, err = stats.Min(data); err != nil {
		return cs, err
	}
	if cs.Max, err = stats.Max(data); err != nil {
		return cs, err
	}
	if cs.Median, err = stats.Median(data); err != nil {
		return cs, err
	}
	// Quartiles
	if cs.Q25, err = stats.Percentile(data, 25); err != nil {
		return cs, err
	}
	if cs.Q75, err = stats.Percentile(data, 75); err != nil {
		return cs, err
	}
	return cs, nil
}
