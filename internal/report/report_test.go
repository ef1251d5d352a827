package report

import (
	"strings"
	"testing"

	"gocohort/domain/actor"
	"gocohort/domain/clustering"
	"gocohort/domain/cohort"
	"gocohort/domain/quality"
	"gocohort/domain/run"

	"github.com/stretchr/testify/assert"
)

func sampleCohorts() []cohort.Cohort {
	return []cohort.Cohort{
		{
			Name:        "Safety-Focused",
			Description: "Customers with safety-focused motivations",
			Size:        30,
			Percentage:  60,
			Characteristics: cohort.Characteristics{
				DominantDriver:       actor.DriverSafety,
				DominantPercentage:   90,
				AverageContradiction: 0.7,
			},
			Messaging: cohort.MessagingStrategy{
				Tone:               "strongly reassuring and trustworthy",
				Themes:             []string{"security", "reliability", "trust", "protection"},
				Channels:           []string{"Email", "Website"},
				ConflictResolution: "Address tension between Safety and Growth through integrated messaging",
				ContradictionLevel: cohort.ContradictionHigh,
			},
			NotableActors: []cohort.NotableActor{{ActorID: "safety_004"}, {ActorID: "safety_011"}},
		},
		{Name: "Balanced Growth", Size: 20, Percentage: 40},
	}
}

func TestValidationMarkdown(t *testing.T) {
	cmp := &quality.Comparison{
		Results: []quality.Scored{
			{
				Result:     &clustering.Result{Algorithm: clustering.AlgorithmDBSCAN},
				Validation: quality.ValidationReport{Silhouette: -1, DaviesBouldin: quality.UndefinedDaviesBouldin, Quality: quality.LabelPoor},
			},
			{
				Result:     &clustering.Result{Algorithm: clustering.AlgorithmKMeans, Params: clustering.Params{K: 3}},
				Validation: quality.ValidationReport{Silhouette: 0.61, CalinskiHarabasz: 420, DaviesBouldin: 0.5, NClusters: 3, ClusterSizes: []int{5, 4, 3}, Quality: quality.LabelExcellent},
				Overall:    0.7,
			},
		},
		Rankings: quality.Rankings{Overall: []int{1, 0}},
		Best:     1,
	}
	md := ValidationMarkdown(cmp)

	assert.Contains(t, md, "# Clustering Validation Report")
	assert.Contains(t, md, "| 1 | kmeans(k=3) | 0.610 | 420.0 | 0.500 | 3 | 0 | 0.700 | excellent |")
	assert.Contains(t, md, "| 2 | dbscan(eps=0.00,min_pts=0) |")
	assert.Contains(t, md, "n/a")
	assert.Contains(t, md, "- **Cluster Sizes:** 5, 4, 3")

	assert.Contains(t, ValidationMarkdown(nil), "No clustering results")
}

func TestCohortSummaryMarkdown(t *testing.T) {
	md := CohortSummaryMarkdown(sampleCohorts())

	assert.Contains(t, md, "# Cohort Summary (2 segments)")
	assert.Contains(t, md, "## 1. Safety-Focused")
	assert.Contains(t, md, "## 2. Balanced Growth")
	assert.Contains(t, md, "- **Size:** 30 actors (60.0%)")
	assert.Contains(t, md, "- **Key Themes:** security, reliability, trust\n")
	assert.Contains(t, md, "Conflict Resolution")
	assert.Contains(t, md, "safety_004, safety_011")
	assert.Equal(t, 1, strings.Count(md, "Conflict Resolution"))

	assert.Equal(t, "No cohorts available.\n", CohortSummaryMarkdown(nil))
}

func TestAssignmentMarkdown(t *testing.T) {
	md := AssignmentMarkdown(cohort.AssignmentQuality{
		Total: 10, Successful: 9, SuccessRate: 0.9, Score: 0.82, Label: "excellent",
		Buckets: cohort.ConfidenceBuckets{High: 6, Medium: 2, Low: 1},
	})
	assert.Contains(t, md, "- **Success Rate:** 90.0%")
	assert.Contains(t, md, "- **High Confidence (>0.7):** 6")
	assert.Contains(t, md, "**Excellent**")
}

func TestRunMarkdownAndHTML(t *testing.T) {
	r := run.Run{
		ID:            "run-1",
		Algorithm:     clustering.AlgorithmKMeans,
		NActors:       50,
		NClusters:     2,
		Silhouette:    0.55,
		DaviesBouldin: 0.4,
		Quality:       quality.LabelExcellent,
		Features:      run.FeatureSchema{Columns: []string{"Safety", "Status"}},
	}
	q := &cohort.AssignmentQuality{Total: 50, Successful: 50, SuccessRate: 1, Label: "good"}
	md := RunMarkdown(r, sampleCohorts(), q)

	assert.True(t, strings.HasPrefix(md, "# Segmentation Run run-1\n"))
	assert.Contains(t, md, "## Cohort Summary (2 segments)")
	assert.Contains(t, md, "### 1. Safety-Focused")
	assert.Contains(t, md, "## Actor Assignment Report")
	assert.Contains(t, md, "- **Features:** Safety, Status")

	page := string(HTML("Run run-1", md))
	assert.Contains(t, page, "<title>Run run-1</title>")
	assert.Contains(t, page, "<h1")
	assert.Contains(t, page, "<table>")

	frag := string(Fragment("**bold**"))
	assert.Contains(t, frag, "<strong>bold</strong>")
	assert.NotContains(t, frag, "<html")
}
