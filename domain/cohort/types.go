package cohort

import (
	"gocohort/domain/actor"
	"gocohort/domain/core"
)

// ContradictionLevel buckets an actor's contradiction score.
type ContradictionLevel string

const (
	ContradictionLow    ContradictionLevel = "low"
	ContradictionMedium ContradictionLevel = "medium"
	ContradictionHigh   ContradictionLevel = "high"
)

// Bucket boundaries for contradiction scores: low < 0.3 <= medium < 0.6 <= high.
const (
	ContradictionLowUpper  = 0.3
	ContradictionHighLower = 0.6
)

// LevelOf classifies a single contradiction score.
func LevelOf(score float64) ContradictionLevel {
	switch {
	case score < ContradictionLowUpper:
		return ContradictionLow
	case score < ContradictionHighLower:
		return ContradictionMedium
	default:
		return ContradictionHigh
	}
}

// ContradictionDistribution holds the percentage of members in each bucket.
type ContradictionDistribution struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// MarkerCount is an identity marker with its frequency inside a cohort.
type MarkerCount struct {
	Marker string `json:"marker"`
	Count  int    `json:"count"`
}

// Characteristics summarizes the members of one cluster.
type Characteristics struct {
	DominantDriver            actor.Driver              `json:"dominant_driver"`
	DominantPercentage        float64                   `json:"dominant_percentage"`
	AverageContradiction      float64                   `json:"avg_contradiction"`
	ContradictionDistribution ContradictionDistribution `json:"contradiction_distribution"`
	QuantumPrevalence         float64                   `json:"superposition_prevalence"`
	AverageCoherence          float64                   `json:"avg_coherence"`
	TopIdentityMarkers        []MarkerCount             `json:"common_identities"`
	DriverVariance            float64                   `json:"driver_variance"`
	Cohesion                  float64                   `json:"cluster_cohesion"`
}

// MessagingStrategy is the outreach guidance generated for a cohort.
type MessagingStrategy struct {
	Tone               string             `json:"tone"`
	Themes             []string           `json:"themes"`
	Channels           []string           `json:"channels"`
	Timing             string             `json:"timing"`
	ConflictResolution string             `json:"conflict_resolution"`
	ProfileDriver      actor.Driver       `json:"profile_driver"`
	ContradictionLevel ContradictionLevel `json:"contradiction_level"`
}

// BehavioralSignature aggregates the bookkeeping scalars of a cohort's members.
type BehavioralSignature struct {
	AverageSignalCount         float64 `json:"avg_signal_count"`
	AverageProfileCompleteness float64 `json:"avg_profile_completeness"`
	AverageDataQuality         float64 `json:"avg_data_quality"`
}

// NotableActor is a representative member close to the cohort centroid.
type NotableActor struct {
	ActorID  string  `json:"actor_id"`
	Distance float64 `json:"distance"`
}

// Cohort is a named, characterized cluster. A later run produces new cohorts
// rather than updating existing ones.
type Cohort struct {
	ID              core.CohortID            `json:"cohort_id"`
	Label           int                      `json:"cluster_label"`
	Name            string                   `json:"cohort_name"`
	Description     string                   `json:"cohort_description"`
	Size            int                      `json:"size"`
	Percentage      float64                  `json:"percentage"`
	DriverProfile   actor.DriverDistribution `json:"driver_profile"`
	Characteristics Characteristics          `json:"characteristics"`
	Behavior        BehavioralSignature      `json:"behavioral_signature"`
	Messaging       MessagingStrategy        `json:"messaging_strategy"`
	NotableActors   []NotableActor           `json:"notable_actors"`

	// Feature-space centroid, aligned with FeatureNames.
	Centroid     []float64 `json:"centroid"`
	FeatureNames []string  `json:"feature_names"`

	MemberIDs      []string            `json:"member_ids,omitempty"`
	MembershipHash core.MembershipHash `json:"membership_hash"`
}

// AlternativeCohort is a runner-up candidate for an assignment.
type AlternativeCohort struct {
	CohortID   core.CohortID `json:"cohort_id"`
	CohortName string        `json:"cohort_name"`
	Distance   float64       `json:"distance"`
	Confidence float64       `json:"confidence"`
}

// Assignment maps one actor onto its nearest cohort.
type Assignment struct {
	ActorID      string              `json:"actor_id"`
	CohortID     core.CohortID       `json:"cohort_id,omitempty"`
	CohortName   string              `json:"cohort_name,omitempty"`
	Confidence   float64             `json:"confidence"`
	Distance     float64             `json:"distance"`
	Alternatives []AlternativeCohort `json:"alternatives,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Succeeded reports whether the actor was placed into a cohort.
func (a Assignment) Succeeded() bool {
	return a.Error == "" && a.CohortID != ""
}

// ConfidenceBuckets counts assignments by confidence: high > 0.7, low < 0.4.
type ConfidenceBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// AssignmentQuality aggregates a batch of assignments.
type AssignmentQuality struct {
	Total             int               `json:"total"`
	Successful        int               `json:"successful"`
	Failed            int               `json:"failed"`
	SuccessRate       float64           `json:"success_rate"`
	AverageConfidence float64           `json:"avg_confidence"`
	MinConfidence     float64           `json:"min_confidence"`
	MaxConfidence     float64           `json:"max_confidence"`
	AverageDistance   float64           `json:"avg_distance"`
	Buckets           ConfidenceBuckets `json:"confidence_distribution"`
	Score             float64           `json:"quality_score"`
	Label             string            `json:"quality_label"`
}
