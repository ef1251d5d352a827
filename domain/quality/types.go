package quality

import (
	"encoding/json"
	"math"

	"gocohort/domain/clustering"
)

// Label is a qualitative bucket derived from the silhouette score.
type Label string

const (
	LabelExcellent Label = "excellent"
	LabelGood      Label = "good"
	LabelFair      Label = "fair"
	LabelPoor      Label = "poor"
)

// Silhouette thresholds for the qualitative label.
const (
	ExcellentSilhouette = 0.5
	GoodSilhouette      = 0.3
	FairSilhouette      = 0.2
)

// LabelFor buckets a silhouette score.
func LabelFor(silhouette float64) Label {
	switch {
	case silhouette > ExcellentSilhouette:
		return LabelExcellent
	case silhouette > GoodSilhouette:
		return LabelGood
	case silhouette > FairSilhouette:
		return LabelFair
	default:
		return LabelPoor
	}
}

// Sentinels reported when a metric is undefined for a labeling.
const (
	UndefinedSilhouette       = -1.0
	UndefinedCalinskiHarabasz = 0.0
)

// UndefinedDaviesBouldin is +Inf; lower is better so it always ranks last.
var UndefinedDaviesBouldin = math.Inf(1)

// ValidationReport holds internal quality metrics for one labeling.
type ValidationReport struct {
	Silhouette       float64     `json:"silhouette_score"`
	CalinskiHarabasz float64     `json:"calinski_harabasz_score"`
	DaviesBouldin    float64     `json:"davies_bouldin_score"`
	NClusters        int         `json:"n_clusters"`
	NoiseCount       int         `json:"n_outliers"`
	ClusterSizes     []int       `json:"cluster_sizes"`
	WithinVariance   []float64   `json:"within_cluster_variance"`
	CentroidDistance [][]float64 `json:"between_cluster_distances"`
	Quality          Label       `json:"interpretation"`
}

// FiniteOrNil maps non-finite metrics to nil so they encode as JSON null.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes an undefined Davies-Bouldin score as null.
func (r ValidationReport) MarshalJSON() ([]byte, error) {
	type alias ValidationReport
	return json.Marshal(struct {
		alias
		DaviesBouldin *float64 `json:"davies_bouldin_score"`
	}{alias(r), FiniteOrNil(r.DaviesBouldin)})
}

// UnmarshalJSON restores a null Davies-Bouldin score to +Inf.
func (r *ValidationReport) UnmarshalJSON(data []byte) error {
	type alias ValidationReport
	aux := struct {
		*alias
		DaviesBouldin *float64 `json:"davies_bouldin_score"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.DaviesBouldin = UndefinedDaviesBouldin
	if aux.DaviesBouldin != nil {
		r.DaviesBouldin = *aux.DaviesBouldin
	}
	return nil
}

// Scored pairs a clustering result with its validation report and blended score.
type Scored struct {
	Result     *clustering.Result `json:"result"`
	Validation ValidationReport   `json:"validation"`
	Overall    float64            `json:"overall_score"`
}

// Rankings lists indices into Comparison.Results ordered best first.
type Rankings struct {
	Silhouette       []int `json:"silhouette"`
	CalinskiHarabasz []int `json:"calinski_harabasz"`
	DaviesBouldin    []int `json:"davies_bouldin"`
	Overall          []int `json:"overall"`
}

// Comparison ranks several clusterings of the same data.
type Comparison struct {
	Results  []Scored `json:"results"`
	Rankings Rankings `json:"rankings"`
	Best     int      `json:"best_index"`
}

// BestResult returns the top-ranked entry.
func (c *Comparison) BestResult() Scored {
	return c.Results[c.Best]
}

// StabilityReport summarizes label agreement across reseeded reruns.
type StabilityReport struct {
	Scores     []float64 `json:"stability_scores"`
	Mean       float64   `json:"mean_stability"`
	Std        float64   `json:"std_stability"`
	Min        float64   `json:"min_stability"`
	Max        float64   `json:"max_stability"`
	Iterations int       `json:"n_iterations"`
}

// GeneralizationReport compares a train fit against held-out predictions.
type GeneralizationReport struct {
	TrainSilhouette float64 `json:"train_silhouette"`
	TestSilhouette  float64 `json:"test_silhouette"`
	Consistency     float64 `json:"consistency"`
	MeanTestDist    float64 `json:"mean_test_distance"`
	NTrain          int     `json:"n_train_samples"`
	NTest           int     `json:"n_test_samples"`
	NClusters       int     `json:"n_clusters"`
}

// KSelectionMethod picks the best k from a range of centroid runs.
type KSelectionMethod string

const (
	MethodElbow      KSelectionMethod = "elbow"
	MethodSilhouette KSelectionMethod = "silhouette"
	MethodGap        KSelectionMethod = "gap"
)

// KCandidate is the score of one k in a search.
type KCandidate struct {
	K          int     `json:"k"`
	Inertia    float64 `json:"inertia"`
	Silhouette float64 `json:"silhouette"`
}

// AlgorithmFailure records one candidate that could not be computed.
type AlgorithmFailure struct {
	Algorithm clustering.Algorithm `json:"algorithm"`
	K         int                  `json:"k,omitempty"`
	Error     string               `json:"error"`
}

// KSelection is the outcome of a best-k search.
type KSelection struct {
	Method     KSelectionMethod   `json:"method"`
	OptimalK   int                `json:"optimal_k"`
	Candidates []KCandidate       `json:"candidates"`
	Failures   []AlgorithmFailure `json:"failures,omitempty"`
}
