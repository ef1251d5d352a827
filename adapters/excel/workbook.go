package excel

import (
	"fmt"
	"io"
	"strings"

	"gocohort/domain/actor"
	"gocohort/domain/cohort"
	"gocohort/domain/quality"
	"gocohort/domain/run"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the cohort workbook
const (
	SheetRun         = "Run"
	SheetCohorts     = "Cohorts"
	SheetAssignments = "Assignments"
)

// CohortHeaders are the columns of the Cohorts sheet
var CohortHeaders = []string{
	"cohort_id", "cohort_name", "size", "percentage",
	"dominant_driver", "avg_contradiction", "superposition_prevalence", "avg_coherence",
	"cluster_cohesion", "tone", "themes", "channels", "description",
}

// AssignmentHeaders are the columns of the Assignments sheet
var AssignmentHeaders = []string{
	"actor_id", "cohort_id", "cohort_name", "confidence", "distance", "alternatives", "error",
}

// Workbook builds an xlsx export of one run with its cohorts and assignments
func Workbook(r run.Run, cohorts []cohort.Cohort, assignments []cohort.Assignment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRun); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRunSheet(f, r); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCohortSheet(f, cohorts); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeAssignmentSheet(f, assignments); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteWorkbook writes the run workbook to w
func WriteWorkbook(w io.Writer, r run.Run, cohorts []cohort.Cohort, assignments []cohort.Assignment) error {
	f, err := Workbook(r, cohorts, assignments)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveWorkbook writes the run workbook to path
func SaveWorkbook(path string, r run.Run, cohorts []cohort.Cohort, assignments []cohort.Assignment) error {
	f, err := Workbook(r, cohorts, assignments)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRunSheet(f *excelize.File, r run.Run) error {
	daviesBouldin := interface{}("n/a")
	if p := quality.FiniteOrNil(r.DaviesBouldin); p != nil {
		daviesBouldin = *p
	}
	rows := [][]interface{}{
		{"run_id", string(r.ID)},
		{"algorithm", string(r.Algorithm)},
		{"n_actors", r.NActors},
		{"n_clusters", r.NClusters},
		{"silhouette_score", r.Silhouette},
		{"calinski_harabasz_score", r.CalinskiHarabasz},
		{"davies_bouldin_score", daviesBouldin},
		{"quality", string(r.Quality)},
		{"features", strings.Join(r.Features.Columns, ", ")},
		{"fingerprint", string(r.Fingerprint.Fingerprint)},
		{"created_at", r.CreatedAt.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		if err := setRow(f, SheetRun, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCohortSheet(f *excelize.File, cohorts []cohort.Cohort) error {
	if _, err := f.NewSheet(SheetCohorts); err != nil {
		return err
	}
	if err := setRow(f, SheetCohorts, 1, stringsToRow(CohortHeaders)); err != nil {
		return err
	}
	for i, c := range cohorts {
		ch := c.Characteristics
		row := []interface{}{
			string(c.ID), c.Name, c.Size, c.Percentage,
			string(ch.DominantDriver), ch.AverageContradiction, ch.QuantumPrevalence, ch.AverageCoherence,
			ch.Cohesion, c.Messaging.Tone, strings.Join(c.Messaging.Themes, "; "),
			strings.Join(c.Messaging.Channels, "; "), c.Description,
		}
		if err := setRow(f, SheetCohorts, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeAssignmentSheet(f *excelize.File, assignments []cohort.Assignment) error {
	if _, err := f.NewSheet(SheetAssignments); err != nil {
		return err
	}
	if err := setRow(f, SheetAssignments, 1, stringsToRow(AssignmentHeaders)); err != nil {
		return err
	}
	for i, a := range assignments {
		alternatives := make([]string, len(a.Alternatives))
		for j, alt := range a.Alternatives {
			alternatives[j] = fmt.Sprintf("%s (%.3f)", alt.CohortName, alt.Confidence)
		}
		row := []interface{}{
			a.ActorID, string(a.CohortID), a.CohortName, a.Confidence, a.Distance,
			strings.Join(alternatives, "; "), a.Error,
		}
		if err := setRow(f, SheetAssignments, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func stringsToRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// ActorHeaders are the columns written by WriteActors and read by FileSource
var ActorHeaders = func() []string {
	headers := []string{ColumnActorID}
	for _, d := range actor.Drivers {
		headers = append(headers, string(d))
	}
	return append(headers, ColumnContradiction, ColumnSuperposition, ColumnCoherence,
		ColumnIdentityMarkers, ColumnSignalCount, ColumnProfileCompleteness, ColumnDataQuality)
}()

// SaveActors writes actor records to an xlsx file readable by FileSource
func SaveActors(path string, actors []actor.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if err := setRow(f, sheet, 1, stringsToRow(ActorHeaders)); err != nil {
		return err
	}
	for i, a := range actors {
		row := []interface{}{a.ActorID}
		for _, d := range actor.Drivers {
			row = append(row, a.DriverDistribution[d])
		}
		var superposition, coherence interface{} = "", ""
		if a.SuperpositionDetected != nil {
			superposition = *a.SuperpositionDetected
		}
		if a.Coherence != nil {
			coherence = *a.Coherence
		}
		row = append(row, a.ContradictionScore, superposition, coherence,
			strings.Join(a.IdentityMarkers, ";"), a.SignalCount, a.ProfileCompleteness, a.DataQualityScore)
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
