package app

import (
	"context"
	"errors"
	"testing"

	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/internal/config"
	"gocohort/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kmeansOptions(k int) RunOptions {
	opts := DefaultRunOptions()
	opts.Algorithm = string(clustering.AlgorithmKMeans)
	opts.Params = clustering.DefaultParams(clustering.AlgorithmKMeans)
	opts.Params.K = k
	return opts
}

func TestRun_TwoSegments(t *testing.T) {
	store := testkit.NewInMemoryCohortStore()
	svc := NewSegmentationService(store)
	actors := testkit.TwoGroupPopulation(42, 20)

	opts := kmeansOptions(2)
	opts.StabilityIterations = 3
	opts.TestFraction = 0.2

	outcome, err := svc.Run(context.Background(), actors, opts)
	require.NoError(t, err)
	assert.True(t, outcome.Persisted)

	require.Len(t, outcome.Cohorts, 2)
	assert.Equal(t, 20, outcome.Cohorts[0].Size)
	assert.Equal(t, 20, outcome.Cohorts[1].Size)
	drivers := []actor.Driver{
		outcome.Cohorts[0].Characteristics.DominantDriver,
		outcome.Cohorts[1].Characteristics.DominantDriver,
	}
	assert.ElementsMatch(t, []actor.Driver{actor.DriverSafety, actor.DriverStatus}, drivers)

	assert.Equal(t, clustering.AlgorithmKMeans, outcome.Run.Algorithm)
	assert.Equal(t, 40, outcome.Run.NActors)
	assert.Equal(t, 2, outcome.Run.NClusters)
	assert.Equal(t, quality.LabelFor(outcome.Run.Silhouette), outcome.Run.Quality)
	assert.Greater(t, outcome.Run.Silhouette, 0.3)

	assert.Len(t, outcome.Assignments, 40)
	assert.Equal(t, 40, outcome.AssignmentQuality.Successful)
	assert.Equal(t, 1.0, outcome.AssignmentQuality.SuccessRate)

	require.NotNil(t, outcome.Stability)
	assert.Equal(t, 3, outcome.Stability.Iterations)
	require.NotNil(t, outcome.Generalization)
	assert.Equal(t, 8, outcome.Generalization.NTest)

	stored, err := store.GetRun(context.Background(), outcome.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Run.Fingerprint, stored.Fingerprint)

	a, err := store.GetActorAssignment(context.Background(), actors[0].ActorID)
	require.NoError(t, err)
	assert.NotEmpty(t, a.CohortID)
}

func TestRun_FingerprintIsReproducible(t *testing.T) {
	svc := NewSegmentationService(nil)
	actors := testkit.TwoGroupPopulation(3, 15)

	first, err := svc.Run(context.Background(), actors, kmeansOptions(2))
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), testkit.Shuffled(actors, 9), kmeansOptions(2))
	require.NoError(t, err)

	assert.NotEqual(t, first.Run.ID, second.Run.ID)
	assert.Equal(t, first.Run.Fingerprint.PartitionHash, second.Run.Fingerprint.PartitionHash)
	assert.False(t, first.Persisted)
}

func TestRun_AllAlgorithms(t *testing.T) {
	svc := NewSegmentationService(nil)
	opts := DefaultRunOptions()
	opts.RunAll.KRange = []int{2, 3}
	opts.RunAll.K = 2

	outcome, err := svc.Run(context.Background(), testkit.TwoGroupPopulation(42, 20), opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(outcome.Comparison.Results)+len(outcome.Failures), 5)
	assert.NotEmpty(t, outcome.Cohorts)
	assert.Equal(t, len(outcome.Cohorts), outcome.Run.NClusters)
}

func TestRun_Errors(t *testing.T) {
	svc := NewSegmentationService(nil)
	ctx := context.Background()

	_, err := svc.Run(ctx, testkit.TwoGroupPopulation(1, 2), kmeansOptions(2))
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	opts := kmeansOptions(2)
	opts.Algorithm = "spectral"
	_, err = svc.Run(ctx, testkit.TwoGroupPopulation(1, 10), opts)
	assert.ErrorIs(t, err, core.ErrUnknownAlgorithm)

	opts = DefaultRunOptions()
	opts.Algorithm = string(clustering.AlgorithmDBSCAN)
	opts.Params = clustering.Params{Eps: 1e-9, MinPts: 5}
	_, err = svc.Run(ctx, testkit.TwoGroupPopulation(1, 10), opts)
	assert.ErrorIs(t, err, core.ErrNoCohorts)
}

func TestRun_PersistenceFailureKeepsOutcome(t *testing.T) {
	store := testkit.NewInMemoryCohortStore()
	store.FailWith = errors.New("disk full")
	svc := NewSegmentationService(store)

	outcome, err := svc.Run(context.Background(), testkit.TwoGroupPopulation(42, 10), kmeansOptions(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPersistence)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Persisted)
	assert.Len(t, outcome.Cohorts, 2)
}

func TestAssignNew(t *testing.T) {
	ctx := context.Background()
	store := testkit.NewInMemoryCohortStore()
	svc := NewSegmentationService(store)

	outcome, err := svc.Run(ctx, testkit.TwoGroupPopulation(42, 20), kmeansOptions(2))
	require.NoError(t, err)

	newcomers := testkit.NewActorGenerator(testkit.DefaultActorConfig()).Population(
		testkit.Segment{Prefix: "new", Driver: actor.DriverStatus, Weight: 0.8, Count: 5},
	)
	result, err := svc.AssignNew(ctx, outcome.Run.ID, newcomers)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Quality.Successful)

	var statusCohort core.CohortID
	for _, c := range outcome.Cohorts {
		if c.Characteristics.DominantDriver == actor.DriverStatus {
			statusCohort = c.ID
		}
	}
	for _, a := range result.Assignments {
		assert.Equal(t, statusCohort, a.CohortID, a.ActorID)
	}

	stored, err := svc.ActorCohort(ctx, "new_001")
	require.NoError(t, err)
	assert.Equal(t, statusCohort, stored.CohortID)

	_, err = svc.AssignNew(ctx, "missing", newcomers)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	_, err = svc.AssignNew(ctx, outcome.Run.ID, nil)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestRunDetails(t *testing.T) {
	ctx := context.Background()
	svc := NewSegmentationService(testkit.NewInMemoryCohortStore())

	_, _, err := svc.RunDetails(ctx, "")
	assert.ErrorIs(t, err, core.ErrRunNotFound)

	outcome, err := svc.Run(ctx, testkit.TwoGroupPopulation(42, 10), kmeansOptions(2))
	require.NoError(t, err)

	r, cohorts, err := svc.RunDetails(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, outcome.Run.ID, r.ID)
	assert.Len(t, cohorts, 2)

	_, _, err = NewSegmentationService(nil).RunDetails(ctx, r.ID)
	assert.ErrorIs(t, err, core.ErrPersistence)
}

func TestOptimalK(t *testing.T) {
	svc := NewSegmentationService(nil)
	sel, err := svc.OptimalK(testkit.TwoGroupPopulation(42, 20), DefaultRunOptions().Features,
		[]int{2, 3, 4}, quality.MethodSilhouette, clustering.DefaultParams(clustering.AlgorithmKMeans))
	require.NoError(t, err)
	assert.Equal(t, 2, sel.OptimalK)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Clustering: config.ClusteringConfig{
			Algorithm: "gmm", K: 4, KRange: []int{3, 4}, Seed: 7,
			KMeansNInit: 5, KMeansMaxIt: 100, DBSCANEps: 0.2, DBSCANMinPts: 4,
			Linkage: clustering.LinkageAverage, GMMMaxIter: 50,
		},
		Features:   config.FeatureConfig{IncludeDrivers: true, Normalize: true, MinActors: 12},
		Validation: config.ValidationConfig{StabilityIterations: 4, TestFraction: 0.3},
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "gmm", opts.Algorithm)
	assert.Equal(t, 4, opts.Params.K)
	assert.Equal(t, 50, opts.Params.MaxIter)
	assert.Equal(t, int64(7), opts.RunAll.Seed)
	assert.Equal(t, clustering.LinkageAverage, opts.RunAll.Hierarchical.Linkage)
	assert.Equal(t, 0.2, opts.RunAll.DBSCAN.Eps)
	assert.False(t, opts.Features.IncludeQuantum)
	assert.Equal(t, 12, opts.Features.MinActors)
	assert.Equal(t, 4, opts.StabilityIterations)
}

func TestRunAssignments(t *testing.T) {
	ctx := context.Background()
	svc := NewSegmentationService(testkit.NewInMemoryCohortStore())
	outcome, err := svc.Run(ctx, testkit.TwoGroupPopulation(42, 10), kmeansOptions(2))
	require.NoError(t, err)

	assignments, q, err := svc.RunAssignments(ctx, outcome.Run.ID)
	require.NoError(t, err)
	assert.Len(t, assignments, 20)
	require.NotNil(t, q)
	assert.Equal(t, 20, q.Successful)

	_, _, err = svc.RunAssignments(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}
