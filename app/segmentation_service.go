package app

import (
	"context"
	"fmt"
	"time"

	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/cohort"
	"gocohort/domain/core"
	"gocohort/domain/quality"
	"gocohort/domain/run"
	"gocohort/internal"
	"gocohort/internal/algorithms"
	"gocohort/internal/assignment"
	"gocohort/internal/characterize"
	"gocohort/internal/config"
	"gocohort/internal/features"
	"gocohort/internal/validation"
	"gocohort/ports"
)

// CodeVersion is recorded in every run fingerprint
const CodeVersion = "gocohort/1.0.0"

// SegmentationService runs the clustering pipeline and serves stored results
type SegmentationService struct {
	store  ports.CohortStore
	logger *internal.Logger
	now    func() time.Time
}

// NewSegmentationService creates a segmentation service. A nil store runs
// the pipeline without persistence.
func NewSegmentationService(store ports.CohortStore) *SegmentationService {
	return &SegmentationService{
		store:  store,
		logger: internal.DefaultLogger.WithPrefix("segmentation"),
		now:    time.Now,
	}
}

// RunOptions configures one pipeline run
type RunOptions struct {
	// Algorithm is one of the clustering algorithms or config.AlgorithmAll
	Algorithm string
	Params    clustering.Params
	RunAll    algorithms.RunAllOptions
	Features  features.Config

	// RemoveOutliers drops rows with any |z| above OutlierThreshold before clustering
	RemoveOutliers   bool
	OutlierThreshold float64

	// StabilityIterations > 0 runs the reseeded stability check
	StabilityIterations int
	// TestFraction > 0 runs the held-out generalization check
	TestFraction float64

	Persist bool
}

// DefaultRunOptions compares every algorithm with the production defaults
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Algorithm:        config.AlgorithmAll,
		Params:           clustering.DefaultParams(clustering.AlgorithmKMeans),
		RunAll:           algorithms.DefaultRunAllOptions(),
		Features:         features.DefaultConfig(),
		OutlierThreshold: features.DefaultOutlierThreshold,
		Persist:          true,
	}
}

// OptionsFromConfig builds run options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) RunOptions {
	c := cfg.Clustering
	opts := DefaultRunOptions()
	opts.Algorithm = c.Algorithm
	if alg, err := clustering.ParseAlgorithm(c.Algorithm); err == nil {
		opts.Params = c.Params(alg)
	}
	opts.RunAll = algorithms.RunAllOptions{
		KRange:       append([]int(nil), c.KRange...),
		K:            c.K,
		Seed:         c.Seed,
		KMeans:       c.Params(clustering.AlgorithmKMeans),
		DBSCAN:       c.Params(clustering.AlgorithmDBSCAN),
		Hierarchical: c.Params(clustering.AlgorithmHierarchical),
		GMM:          c.Params(clustering.AlgorithmGMM),
	}
	opts.Features = features.Config{
		IncludeDrivers:       cfg.Features.IncludeDrivers,
		IncludeContradiction: cfg.Features.IncludeContradiction,
		IncludeQuantum:       cfg.Features.IncludeQuantum,
		Normalize:            cfg.Features.Normalize,
		MinActors:            cfg.Features.MinActors,
	}
	opts.StabilityIterations = cfg.Validation.StabilityIterations
	opts.TestFraction = cfg.Validation.TestFraction
	return opts
}

// RunOutcome holds everything one pipeline run computed
type RunOutcome struct {
	Run               run.Run                       `json:"run"`
	Features          features.Summary              `json:"features"`
	Outliers          []string                      `json:"outliers,omitempty"`
	Comparison        *quality.Comparison           `json:"comparison"`
	Failures          []quality.AlgorithmFailure    `json:"failures,omitempty"`
	Labels            []int                         `json:"labels"`
	Cohorts           []cohort.Cohort               `json:"cohorts"`
	Assignments       []cohort.Assignment           `json:"assignments"`
	AssignmentQuality cohort.AssignmentQuality      `json:"assignment_quality"`
	Stability         *quality.StabilityReport      `json:"stability,omitempty"`
	Generalization    *quality.GeneralizationReport `json:"generalization,omitempty"`
	Persisted         bool                          `json:"persisted"`
}

// AssignOutcome is the result of assigning new actors against a stored run
type AssignOutcome struct {
	RunID       core.RunID               `json:"run_id"`
	Assignments []cohort.Assignment      `json:"assignments"`
	Quality     cohort.AssignmentQuality `json:"quality"`
}

// Run executes the full pipeline on actors: prepare features, cluster,
// validate and pick the best labeling, characterize cohorts, assign the
// population and persist. A persistence failure returns the computed outcome
// together with an error wrapping core.ErrPersistence.
func (s *SegmentationService) Run(ctx context.Context, actors []actor.Record, opts RunOptions) (*RunOutcome, error) {
	startTime := s.now()

	fm, err := features.Prepare(actors, opts.Features)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	summary, err := features.Summarize(fm)
	if err != nil {
		return nil, fmt.Errorf("summarize features: %w", err)
	}
	outcome := &RunOutcome{Features: summary}

	if opts.RemoveOutliers {
		threshold := opts.OutlierThreshold
		if threshold <= 0 {
			threshold = features.DefaultOutlierThreshold
		}
		idx := features.DetectOutliers(fm.Data, threshold)
		for _, i := range idx {
			outcome.Outliers = append(outcome.Outliers, fm.ActorIDs[i])
		}
		if fm, err = features.RemoveOutliers(fm, idx); err != nil {
			return nil, err
		}
		if fm.Rows() < max(opts.Features.MinActors, 1) {
			return nil, core.NewInsufficientDataError("remove outliers", fm.Rows(), opts.Features.MinActors)
		}
		s.logger.Info("removed %d outliers, %d actors remain", len(idx), fm.Rows())
	}

	results, failures, err := s.cluster(fm, opts)
	if err != nil {
		return nil, err
	}
	outcome.Failures = failures

	comparison, err := validation.Compare(fm.Data, results)
	if err != nil {
		return nil, fmt.Errorf("compare clusterings: %w", err)
	}
	outcome.Comparison = comparison
	best := comparison.BestResult()
	outcome.Labels = best.Result.Labels
	s.logger.Info("selected %s: silhouette %.3f (%s), %d clusters",
		best.Result.Name(), best.Validation.Silhouette, best.Validation.Quality, best.Validation.NClusters)

	cohorts, err := characterize.Characterize(actors, best.Result.Labels, fm)
	if err != nil {
		return nil, fmt.Errorf("characterize cohorts: %w", err)
	}
	if len(cohorts) == 0 {
		return nil, fmt.Errorf("%w: %s labeled every actor as noise", core.ErrNoCohorts, best.Result.Name())
	}
	outcome.Cohorts = cohorts

	centroids, err := assignment.CentroidsFromCohorts(cohorts)
	if err != nil {
		return nil, err
	}
	outcome.Assignments = assignment.BatchAssign(actors, fm.Projector(), centroids)
	if outcome.AssignmentQuality, err = assignment.Quality(outcome.Assignments); err != nil {
		return nil, err
	}

	if opts.StabilityIterations > 0 {
		report, err := validation.Stability(fm.Data, best.Result.Labels, opts.StabilityIterations)
		if err != nil {
			s.logger.Warn("stability check skipped: %v", err)
		} else {
			outcome.Stability = &report
		}
	}
	if opts.TestFraction > 0 {
		report, err := validation.Generalization(fm.Data, best.Result.Labels, opts.TestFraction, opts.RunAll.Seed)
		if err != nil {
			s.logger.Warn("generalization check skipped: %v", err)
		} else {
			outcome.Generalization = &report
		}
	}

	outcome.Run = s.buildRun(fm, best, cohorts)
	s.logger.Info("run %s finished in %s: %d cohorts, assignment quality %.2f (%s)",
		outcome.Run.ID, time.Since(startTime).Round(time.Millisecond), len(cohorts),
		outcome.AssignmentQuality.Score, outcome.AssignmentQuality.Label)

	if opts.Persist && s.store != nil {
		if err := s.persist(ctx, outcome); err != nil {
			s.logger.Error("failed to persist run %s: %v", outcome.Run.ID, err)
			return outcome, fmt.Errorf("%w: %w", core.ErrPersistence, err)
		}
		outcome.Persisted = true
	}
	return outcome, nil
}

// RunFromSource loads actors with at least minSignals signals and runs the pipeline
func (s *SegmentationService) RunFromSource(ctx context.Context, source ports.ActorSource, minSignals int, opts RunOptions) (*RunOutcome, error) {
	actors, err := source.ListActors(ctx, minSignals)
	if err != nil {
		return nil, fmt.Errorf("load actors: %w", err)
	}
	return s.Run(ctx, actors, opts)
}

func (s *SegmentationService) cluster(fm *features.Matrix, opts RunOptions) ([]*clustering.Result, []quality.AlgorithmFailure, error) {
	if opts.Algorithm == "" || opts.Algorithm == config.AlgorithmAll {
		results, failures, err := algorithms.RunAll(fm.Data, opts.RunAll)
		if err != nil {
			return nil, failures, err
		}
		return results, failures, nil
	}

	alg, err := clustering.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnknownAlgorithm, opts.Algorithm)
	}
	result, err := algorithms.Run(alg, fm.Data, opts.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("%s clustering: %w", alg, err)
	}
	return []*clustering.Result{result}, nil, nil
}

func (s *SegmentationService) buildRun(fm *features.Matrix, best quality.Scored, cohorts []cohort.Cohort) run.Run {
	clusters := make([][]string, len(cohorts))
	for i, c := range cohorts {
		clusters[i] = c.MemberIDs
	}
	partition := core.ComputePartitionHash(clusters)

	return run.Run{
		ID:               core.NewRunID(),
		Algorithm:        best.Result.Algorithm,
		Params:           best.Result.Params,
		NActors:          fm.Rows(),
		NClusters:        len(cohorts),
		Silhouette:       best.Validation.Silhouette,
		CalinskiHarabasz: best.Validation.CalinskiHarabasz,
		DaviesBouldin:    best.Validation.DaviesBouldin,
		Quality:          best.Validation.Quality,
		Features:         fm.Schema(),
		Fingerprint:      run.NewRunFingerprint(best.Result.Algorithm, best.Result.Params, partition, CodeVersion),
		CreatedAt:        s.now().UTC(),
	}
}

func (s *SegmentationService) persist(ctx context.Context, outcome *RunOutcome) error {
	if err := s.store.SaveRun(ctx, outcome.Run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := s.store.SaveCohorts(ctx, outcome.Run.ID, outcome.Cohorts); err != nil {
		return fmt.Errorf("save cohorts: %w", err)
	}
	if err := s.store.SaveAssignments(ctx, outcome.Run.ID, outcome.Assignments); err != nil {
		return fmt.Errorf("save assignments: %w", err)
	}
	return nil
}

// AssignNew places actors into the cohorts of a stored run, projecting them
// onto that run's feature scale, and stores the successful assignments
func (s *SegmentationService) AssignNew(ctx context.Context, runID core.RunID, actors []actor.Record) (*AssignOutcome, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	if len(actors) == 0 {
		return nil, core.NewInsufficientDataError("assign actors", 0, 1)
	}

	r, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	cohorts, err := s.store.ListCohorts(ctx, runID)
	if err != nil {
		return nil, err
	}
	projector, err := features.NewProjector(r.Features)
	if err != nil {
		return nil, fmt.Errorf("rebuild feature projector for run %s: %w", runID, err)
	}
	centroids, err := assignment.CentroidsFromCohorts(cohorts)
	if err != nil {
		return nil, err
	}

	assignments := assignment.BatchAssign(actors, projector, centroids)
	q, err := assignment.Quality(assignments)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAssignments(ctx, runID, assignments); err != nil {
		return &AssignOutcome{RunID: runID, Assignments: assignments, Quality: q},
			fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	return &AssignOutcome{RunID: runID, Assignments: assignments, Quality: q}, nil
}

// OptimalK prepares features and searches ks for the best k-means k
func (s *SegmentationService) OptimalK(actors []actor.Record, cfg features.Config, ks []int,
	method quality.KSelectionMethod, params clustering.Params) (*quality.KSelection, error) {

	fm, err := features.Prepare(actors, cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	return algorithms.FindOptimalK(fm.Data, ks, method, params)
}

// RunDetails returns a stored run with its cohorts. An empty runID selects
// the latest run.
func (s *SegmentationService) RunDetails(ctx context.Context, runID core.RunID) (*run.Run, []cohort.Cohort, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	var (
		r   *run.Run
		err error
	)
	if runID == "" {
		r, err = s.store.LatestRun(ctx)
	} else {
		r, err = s.store.GetRun(ctx, runID)
	}
	if err != nil {
		return nil, nil, err
	}
	cohorts, err := s.store.ListCohorts(ctx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	return r, cohorts, nil
}

// RunAssignments returns a stored run's assignments with their aggregate quality
func (s *SegmentationService) RunAssignments(ctx context.Context, runID core.RunID) ([]cohort.Assignment, *cohort.AssignmentQuality, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	assignments, err := s.store.ListAssignments(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if len(assignments) == 0 {
		return assignments, nil, nil
	}
	q, err := assignment.Quality(assignments)
	if err != nil {
		return nil, nil, err
	}
	return assignments, &q, nil
}

// ActorCohort returns the most recent stored assignment of an actor
func (s *SegmentationService) ActorCohort(ctx context.Context, actorID string) (*cohort.Assignment, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	return s.store.GetActorAssignment(ctx, actorID)
}

// ListRuns returns stored runs newest first
func (s *SegmentationService) ListRuns(ctx context.Context, limit int) ([]run.Run, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	return s.store.ListRuns(ctx, limit)
}

// DeleteRun removes a stored run with its cohorts and assignments
func (s *SegmentationService) DeleteRun(ctx context.Context, runID core.RunID) error {
	if s.store == nil {
		return fmt.Errorf("%w: no cohort store configured", core.ErrPersistence)
	}
	if err := s.store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	s.logger.Info("deleted run %s", runID)
	return nil
}
