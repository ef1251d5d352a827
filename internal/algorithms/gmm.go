package algorithms

import (
	"fmt"
	"math"

	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/internal"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// GaussianMixture fits K full-covariance Gaussian components by EM,
// initialised from a single k-means partition.
type GaussianMixture struct{}

func (GaussianMixture) Algorithm() clustering.Algorithm { return clustering.AlgorithmGMM }

// minComponentWeight keeps empty components numerically defined.
const minComponentWeight = 10 * 2.220446049250313e-16

// maxRegularizationRetries bounds how often a singular covariance is
// retried with a larger ridge before the fit fails.
const maxRegularizationRetries = 6

type mixture struct {
	weights []float64
	means   [][]float64
	covs    []*mat.SymDense
}

func (GaussianMixture) Cluster(data mat.Matrix, params clustering.Params) (*clustering.Result, error) {
	const op = "gmm"
	rows, err := checkInput(op, data)
	if err != nil {
		return nil, err
	}
	n, d := len(rows), len(rows[0])
	if err := checkK(op, params.K, n); err != nil {
		return nil, err
	}
	if params.MaxIter < 1 {
		return nil, core.NewInvalidParameterError(op, "max_iter", params.MaxIter)
	}
	if params.RegCovar < 0 {
		return nil, core.NewInvalidParameterError(op, "reg_covar", params.RegCovar)
	}

	init, err := KMeans{}.Cluster(data, clustering.Params{
		K:       params.K,
		Seed:    params.Seed,
		NInit:   1,
		MaxIter: clustering.DefaultKMeansMaxIt,
		Tol:     clustering.DefaultKMeansTol,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise mixture: %w", err)
	}

	resp := make([][]float64, n)
	for i, l := range init.Labels {
		resp[i] = make([]float64, params.K)
		resp[i][l] = 1
	}

	model := mStep(rows, resp, params.K, params.RegCovar)
	prevLL := math.Inf(-1)
	converged := false
	iterations := 0
	for iterations < params.MaxIter {
		iterations++
		meanLL, err := eStep(rows, model, resp)
		if err != nil {
			return nil, err
		}
		model = mStep(rows, resp, params.K, params.RegCovar)
		if math.Abs(meanLL-prevLL) < params.Tol {
			converged = true
			break
		}
		prevLL = meanLL
	}

	meanLL, err := eStep(rows, model, resp)
	if err != nil {
		return nil, err
	}
	if !converged {
		internal.DefaultLogger.Warn("gmm k=%d did not converge in %d iterations", params.K, params.MaxIter)
	}

	raw := make([]int, n)
	for i := range resp {
		raw[i] = floats.MaxIdx(resp[i])
	}
	labels, mapping := clustering.Canonicalize(raw)
	order := componentOrder(mapping, params.K)

	diag := &clustering.MixtureDiagnostics{
		Weights:         make([]float64, params.K),
		Means:           make([][]float64, params.K),
		Probabilities:   make([][]float64, n),
		MeanLogLikelihd: meanLL,
		LogLikelihood:   meanLL * float64(n),
		Iterations:      iterations,
		Converged:       converged,
	}
	for nl, old := range order {
		diag.Weights[nl] = model.weights[old]
		diag.Means[nl] = model.means[old]
	}
	for i := range resp {
		diag.Probabilities[i] = make([]float64, params.K)
		for nl, old := range order {
			diag.Probabilities[i][nl] = resp[i][old]
		}
	}

	k := float64(params.K)
	df := float64(d)
	p := k*df*(df+1)/2 + k*df + k - 1
	diag.AIC = -2*diag.LogLikelihood + 2*p
	diag.BIC = -2*diag.LogLikelihood + p*math.Log(float64(n))

	internal.DefaultLogger.Debug("gmm k=%d: log-likelihood %.4f, BIC %.2f after %d iterations",
		params.K, diag.LogLikelihood, diag.BIC, iterations)

	return &clustering.Result{
		Algorithm: clustering.AlgorithmGMM,
		Params:    params,
		Labels:    labels,
		NClusters: countClusters(labels),
		Mixture:   diag,
	}, nil
}

// mStep re-estimates weights, means and covariances from responsibilities.
func mStep(rows [][]float64, resp [][]float64, k int, reg float64) *mixture {
	n, d := len(rows), len(rows[0])
	m := &mixture{
		weights: make([]float64, k),
		means:   make([][]float64, k),
		covs:    make([]*mat.SymDense, k),
	}

	for c := 0; c < k; c++ {
		nk := minComponentWeight
		mean := make([]float64, d)
		for i, p := range rows {
			nk += resp[i][c]
			floats.AddScaled(mean, resp[i][c], p)
		}
		floats.Scale(1/nk, mean)

		cov := mat.NewSymDense(d, nil)
		diff := mat.NewVecDense(d, nil)
		for i, p := range rows {
			if resp[i][c] == 0 {
				continue
			}
			for j := range p {
				diff.SetVec(j, p[j]-mean[j])
			}
			cov.SymRankOne(cov, resp[i][c]/nk, diff)
		}
		for j := 0; j < d; j++ {
			cov.SetSym(j, j, cov.At(j, j)+reg)
		}

		m.weights[c] = nk / float64(n)
		m.means[c] = mean
		m.covs[c] = cov
	}
	return m
}

// eStep fills resp with posterior membership probabilities and returns the
// mean per-sample log-likelihood.
func eStep(rows [][]float64, m *mixture, resp [][]float64) (float64, error) {
	k := len(m.weights)
	comps := make([]*distmv.Normal, k)
	for c := 0; c < k; c++ {
		normal, err := newNormal(m.means[c], m.covs[c])
		if err != nil {
			return 0, fmt.Errorf("component %d: %w", c, err)
		}
		comps[c] = normal
	}

	total := 0.0
	logp := make([]float64, k)
	for i, p := range rows {
		for c := 0; c < k; c++ {
			logp[c] = math.Log(m.weights[c]) + comps[c].LogProb(p)
		}
		lse := floats.LogSumExp(logp)
		for c := 0; c < k; c++ {
			resp[i][c] = math.Exp(logp[c] - lse)
		}
		total += lse
	}
	return total / float64(len(rows)), nil
}

// newNormal builds a component density, growing the ridge when the
// covariance is not positive definite.
func newNormal(mean []float64, cov *mat.SymDense) (*distmv.Normal, error) {
	ridge := 1e-6
	for attempt := 0; attempt <= maxRegularizationRetries; attempt++ {
		if normal, ok := distmv.NewNormal(mean, cov, nil); ok {
			return normal, nil
		}
		d := cov.SymmetricDim()
		for j := 0; j < d; j++ {
			cov.SetSym(j, j, cov.At(j, j)+ridge)
		}
		ridge *= 10
	}
	return nil, fmt.Errorf("%w: gmm covariance is not positive definite", core.ErrInvalidParameter)
}
