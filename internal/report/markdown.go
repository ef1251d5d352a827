// Package report renders segmentation results as markdown and HTML.
package report

import (
	"fmt"
	"math"
	"strings"

	"gocohort/domain/cohort"
	"gocohort/domain/quality"
	"gocohort/domain/run"
)

// ValidationMarkdown tabulates every compared result and names the best one.
func ValidationMarkdown(cmp *quality.Comparison) string {
	var b strings.Builder
	b.WriteString("# Clustering Validation Report\n\n")
	if cmp == nil || len(cmp.Results) == 0 {
		b.WriteString("No clustering results to report.\n")
		return b.String()
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Rank | Algorithm | Silhouette | CH Score | DB Score | Clusters | Noise | Overall | Quality |\n")
	b.WriteString("|------|-----------|------------|----------|----------|----------|-------|---------|---------|\n")
	for rank, i := range cmp.Rankings.Overall {
		s := cmp.Results[i]
		v := s.Validation
		fmt.Fprintf(&b, "| %d | %s | %.3f | %.1f | %s | %d | %d | %.3f | %s |\n",
			rank+1, s.Result.Name(), v.Silhouette, v.CalinskiHarabasz, formatDB(v.DaviesBouldin),
			v.NClusters, v.NoiseCount, s.Overall, v.Quality)
	}

	best := cmp.BestResult()
	b.WriteString("\n## Best Result\n\n")
	fmt.Fprintf(&b, "- **Algorithm:** %s\n", best.Result.Name())
	fmt.Fprintf(&b, "- **Silhouette Score:** %.3f\n", best.Validation.Silhouette)
	fmt.Fprintf(&b, "- **Quality:** %s\n", best.Validation.Quality)
	if len(best.Validation.ClusterSizes) > 0 {
		sizes := make([]string, len(best.Validation.ClusterSizes))
		for i, n := range best.Validation.ClusterSizes {
			sizes[i] = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(&b, "- **Cluster Sizes:** %s\n", strings.Join(sizes, ", "))
	}
	return b.String()
}

// CohortSummaryMarkdown lists cohorts in the order given.
func CohortSummaryMarkdown(cohorts []cohort.Cohort) string {
	if len(cohorts) == 0 {
		return "No cohorts available.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Cohort Summary (%d segments)\n\n", len(cohorts))
	for i, c := range cohorts {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s.\n\n", c.Description)
		}
		fmt.Fprintf(&b, "- **Size:** %d actors (%.1f%%)\n", c.Size, c.Percentage)
		fmt.Fprintf(&b, "- **Dominant Driver:** %s (%.0f%% of members)\n",
			c.Characteristics.DominantDriver, c.Characteristics.DominantPercentage)
		fmt.Fprintf(&b, "- **Contradiction Level:** %.2f (%s)\n",
			c.Characteristics.AverageContradiction, c.Messaging.ContradictionLevel)
		fmt.Fprintf(&b, "- **Quantum Prevalence:** %.1f%%\n", c.Characteristics.QuantumPrevalence)
		fmt.Fprintf(&b, "- **Cohesion:** %.3f\n", c.Characteristics.Cohesion)
		fmt.Fprintf(&b, "- **Messaging Tone:** %s\n", c.Messaging.Tone)
		fmt.Fprintf(&b, "- **Key Themes:** %s\n", strings.Join(firstN(c.Messaging.Themes, 3), ", "))
		fmt.Fprintf(&b, "- **Channels:** %s\n", strings.Join(c.Messaging.Channels, ", "))
		fmt.Fprintf(&b, "- **Timing:** %s\n", c.Messaging.Timing)
		if c.Messaging.ConflictResolution != "" {
			fmt.Fprintf(&b, "- **Conflict Resolution:** %s\n", c.Messaging.ConflictResolution)
		}
		if len(c.NotableActors) > 0 {
			ids := make([]string, len(c.NotableActors))
			for j, n := range c.NotableActors {
				ids[j] = n.ActorID
			}
			fmt.Fprintf(&b, "- **Representative Actors:** %s\n", strings.Join(ids, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AssignmentMarkdown summarizes an assignment batch.
func AssignmentMarkdown(q cohort.AssignmentQuality) string {
	var b strings.Builder
	b.WriteString("# Actor Assignment Report\n\n")
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Assignments:** %d\n", q.Total)
	fmt.Fprintf(&b, "- **Successful Assignments:** %d\n", q.Successful)
	fmt.Fprintf(&b, "- **Success Rate:** %.1f%%\n", 100*q.SuccessRate)
	fmt.Fprintf(&b, "- **Quality Score:** %.3f\n\n", q.Score)

	b.WriteString("## Confidence Distribution\n\n")
	fmt.Fprintf(&b, "- **High Confidence (>0.7):** %d\n", q.Buckets.High)
	fmt.Fprintf(&b, "- **Medium Confidence (0.4-0.7):** %d\n", q.Buckets.Medium)
	fmt.Fprintf(&b, "- **Low Confidence (<0.4):** %d\n\n", q.Buckets.Low)

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Average Confidence:** %.3f\n", q.AverageConfidence)
	fmt.Fprintf(&b, "- **Confidence Range:** %.3f - %.3f\n", q.MinConfidence, q.MaxConfidence)
	fmt.Fprintf(&b, "- **Average Distance:** %.3f\n\n", q.AverageDistance)

	b.WriteString("## Quality Assessment\n\n")
	b.WriteString(assessments[q.Label])
	b.WriteString("\n")
	return b.String()
}

var assessments = map[string]string{
	string(quality.LabelExcellent): "**Excellent**: high quality assignments with good confidence levels.",
	string(quality.LabelGood):      "**Good**: solid assignments with reasonable confidence levels.",
	string(quality.LabelFair):      "**Fair**: acceptable assignments but room for improvement.",
	string(quality.LabelPoor):      "**Poor**: low quality assignments that may need review.",
}

// RunMarkdown combines a run header with its cohorts and, when present, the
// assignment summary.
func RunMarkdown(r run.Run, cohorts []cohort.Cohort, q *cohort.AssignmentQuality) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Segmentation Run %s\n\n", r.ID)
	fmt.Fprintf(&b, "- **Algorithm:** %s\n", r.Algorithm)
	fmt.Fprintf(&b, "- **Actors:** %d\n", r.NActors)
	fmt.Fprintf(&b, "- **Clusters:** %d\n", r.NClusters)
	fmt.Fprintf(&b, "- **Silhouette:** %.3f (%s)\n", r.Silhouette, r.Quality)
	fmt.Fprintf(&b, "- **Calinski-Harabasz:** %.1f\n", r.CalinskiHarabasz)
	fmt.Fprintf(&b, "- **Davies-Bouldin:** %s\n", formatDB(r.DaviesBouldin))
	fmt.Fprintf(&b, "- **Features:** %s\n", strings.Join(r.Features.Columns, ", "))
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	b.WriteString("\n")

	b.WriteString(demote(CohortSummaryMarkdown(cohorts)))
	if q != nil {
		b.WriteString("\n")
		b.WriteString(demote(AssignmentMarkdown(*q)))
	}
	return b.String()
}

func formatDB(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// demote pushes every heading one level down so sections nest under a
// document title.
func demote(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}
