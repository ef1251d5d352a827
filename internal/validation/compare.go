package validation

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"
	"gocohort/internal/metrics"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Weights of the blended overall score.
const (
	silhouetteWeight = 0.5
	chWeight         = 0.3
	dbWeight         = 0.2

	chScale = 1000.0
	dbScale = 10.0
)

// OverallScore blends the three metrics into one comparable number:
// 0.5·max(0,sil) + 0.3·min(1,CH/1000) + 0.2·max(0,1−min(1,DB/10)).
func OverallScore(r quality.ValidationReport) float64 {
	return silhouetteWeight*math.Max(0, r.Silhouette) +
		chWeight*math.Min(1, r.CalinskiHarabasz/chScale) +
		dbWeight*math.Max(0, 1-math.Min(1, r.DaviesBouldin/dbScale))
}

// Compare validates every result concurrently and ranks them by each metric
// and by the blended score. Results whose labels do not fit the matrix are
// logged and left out.
func Compare(data mat.Matrix, results []*clustering.Result) (*quality.Comparison, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no clustering results provided for comparison", core.ErrInvalidParameter)
	}

	rows := metrics.Rows(data)
	reports := make([]*quality.ValidationReport, len(results))

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, res := range results {
		group.Go(func() error {
			if res == nil || len(res.Labels) != len(rows) {
				return nil
			}
			report := validateRows(rows, res.Labels)
			reports[i] = &report
			return nil
		})
	}
	_ = group.Wait()

	cmp := &quality.Comparison{}
	for i, res := range results {
		if reports[i] == nil {
			internal.DefaultLogger.Warn("validation skipped for result %d: labels do not match %d rows", i, len(rows))
			continue
		}
		cmp.Results = append(cmp.Results, quality.Scored{
			Result:     res,
			Validation: *reports[i],
			Overall:    OverallScore(*reports[i]),
		})
	}
	if len(cmp.Results) == 0 {
		return nil, fmt.Errorf("%w: no valid clustering results found", core.ErrDimensionMismatch)
	}

	cmp.Rankings = quality.Rankings{
		Silhouette: rank(cmp.Results, func(s quality.Scored) float64 { return s.Validation.Silhouette }, true),
		CalinskiHarabasz: rank(cmp.Results, func(s quality.Scored) float64 {
			return s.Validation.CalinskiHarabasz
		}, true),
		DaviesBouldin: rank(cmp.Results, func(s quality.Scored) float64 { return s.Validation.DaviesBouldin }, false),
		Overall:       rank(cmp.Results, func(s quality.Scored) float64 { return s.Overall }, true),
	}
	cmp.Best = cmp.Rankings.Overall[0]

	best := cmp.BestResult()
	internal.DefaultLogger.Info("compared %d clustering results; best %s (silhouette %.3f, overall %.3f)",
		len(cmp.Results), best.Result.Name(), best.Validation.Silhouette, best.Overall)
	return cmp, nil
}

// rank returns indices ordered by score; ties keep input order.
func rank(results []quality.Scored, score func(quality.Scored) float64, descending bool) []int {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := score(results[idx[a]]), score(results[idx[b]])
		if descending {
			return sa > sb
		}
		return sa < sb
	})
	return idx
}
