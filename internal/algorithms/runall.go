package algorithms

import (
	"fmt"
	"runtime"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RunAllOptions configures a multi-algorithm comparison run.
type RunAllOptions struct {
	KRange       []int
	K            int
	Seed         int64
	KMeans       clustering.Params
	DBSCAN       clustering.Params
	Hierarchical clustering.Params
	GMM          clustering.Params
}

// DefaultRunAllOptions mirrors the production defaults.
func DefaultRunAllOptions() RunAllOptions {
	return RunAllOptions{
		KRange:       append([]int(nil), clustering.DefaultKRange...),
		K:            clustering.DefaultK,
		Seed:         clustering.DefaultSeed,
		KMeans:       clustering.DefaultParams(clustering.AlgorithmKMeans),
		DBSCAN:       clustering.DefaultParams(clustering.AlgorithmDBSCAN),
		Hierarchical: clustering.DefaultParams(clustering.AlgorithmHierarchical),
		GMM:          clustering.DefaultParams(clustering.AlgorithmGMM),
	}
}

type job struct {
	alg    clustering.Algorithm
	params clustering.Params
}

// RunAll runs the k-means range, DBSCAN, hierarchical and GMM concurrently.
// A failing algorithm is logged and reported; the call only fails when every
// algorithm fails. Results keep job order regardless of completion order.
func RunAll(data mat.Matrix, opts RunAllOptions) ([]*clustering.Result, []quality.AlgorithmFailure, error) {
	var jobs []job
	for _, k := range opts.KRange {
		p := opts.KMeans.WithDefaults(clustering.AlgorithmKMeans)
		p.K, p.Seed = k, opts.Seed
		jobs = append(jobs, job{clustering.AlgorithmKMeans, p})
	}
	jobs = append(jobs, job{clustering.AlgorithmDBSCAN, opts.DBSCAN.WithDefaults(clustering.AlgorithmDBSCAN)})

	h := opts.Hierarchical.WithDefaults(clustering.AlgorithmHierarchical)
	h.K = opts.K
	jobs = append(jobs, job{clustering.AlgorithmHierarchical, h})

	g := opts.GMM.WithDefaults(clustering.AlgorithmGMM)
	g.K, g.Seed = opts.K, opts.Seed
	jobs = append(jobs, job{clustering.AlgorithmGMM, g})

	results := make([]*clustering.Result, len(jobs))
	errs := make([]error, len(jobs))

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, j := range jobs {
		group.Go(func() error {
			c, err := New(j.alg)
			if err == nil {
				results[i], err = c.Cluster(data, j.params)
			}
			errs[i] = err
			return nil
		})
	}
	_ = group.Wait()

	var ok []*clustering.Result
	var failures []quality.AlgorithmFailure
	for i, j := range jobs {
		if errs[i] != nil {
			internal.DefaultLogger.Warn("%s failed: %v", j.alg, errs[i])
			failures = append(failures, quality.AlgorithmFailure{
				Algorithm: j.alg,
				K:         j.params.K,
				Error:     errs[i].Error(),
			})
			continue
		}
		ok = append(ok, results[i])
	}

	if len(ok) == 0 {
		return nil, failures, fmt.Errorf("%w: %d runs attempted", core.ErrAllAlgorithmsFailed, len(jobs))
	}
	internal.DefaultLogger.Info("completed %d clustering runs (%d failed)", len(ok), len(failures))
	return ok, failures, nil
}
