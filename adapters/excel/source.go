package excel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gocohort/domain/actor"
	"gocohort/internal"
	"gocohort/ports"

	"github.com/tidwall/gjson"
)

// FileSource serves actor records from an .xlsx, .csv or .json export
type FileSource struct {
	path   string
	config ReaderConfig
}

var _ ports.ActorSource = (*FileSource)(nil)

// NewFileSource creates a file-backed actor source with default settings
func NewFileSource(path string) *FileSource {
	return NewFileSourceWithConfig(path, DefaultReaderConfig())
}

// NewFileSourceWithConfig creates a file-backed actor source
func NewFileSourceWithConfig(path string, config ReaderConfig) *FileSource {
	if config.MarkerSeparator == "" {
		config.MarkerSeparator = ";"
	}
	return &FileSource{path: path, config: config}
}

// ListActors reads the file and returns actors with at least minSignals
// signals, ordered by actor ID
func (s *FileSource) ListActors(ctx context.Context, minSignals int) ([]actor.Record, error) {
	var (
		actors []actor.Record
		err    error
	)
	if strings.ToLower(filepath.Ext(s.path)) == ".json" {
		actors, err = s.readJSON()
	} else {
		actors, err = s.readTable()
	}
	if err != nil {
		return nil, err
	}

	filtered := actors[:0]
	for _, a := range actors {
		if a.SignalCount >= minSignals {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].ActorID < filtered[j].ActorID })

	internal.DefaultLogger.Info("loaded %d actors from %s (%d below %d signals)",
		len(filtered), filepath.Base(s.path), len(actors)-len(filtered), minSignals)
	return filtered, nil
}

func (s *FileSource) readJSON() ([]actor.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON in %s", s.path)
	}

	var result gjson.Result
	switch {
	case s.config.DataPath != "":
		result = gjson.GetBytes(data, s.config.DataPath)
		if !result.Exists() {
			return nil, fmt.Errorf("data path '%s' not found in %s", s.config.DataPath, s.path)
		}
	default:
		result = gjson.ParseBytes(data)
		if envelope := result.Get("actors"); result.IsObject() && envelope.IsArray() {
			result = envelope
		}
	}

	var actors []actor.Record
	switch {
	case result.IsArray():
		if err := json.Unmarshal([]byte(result.Raw), &actors); err != nil {
			return nil, fmt.Errorf("failed to decode actors from %s: %w", s.path, err)
		}
	case result.IsObject():
		// Single actor
		var rec actor.Record
		if err := json.Unmarshal([]byte(result.Raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode actor from %s: %w", s.path, err)
		}
		actors = []actor.Record{rec}
	default:
		return nil, fmt.Errorf("actors in %s are not an array or object", s.path)
	}
	return actors, nil
}

func (s *FileSource) readTable() ([]actor.Record, error) {
	data, err := NewDataReader(s.path, s.config.Sheet).ReadData()
	if err != nil {
		return nil, err
	}
	if !hasHeader(data.Headers, ColumnActorID) {
		return nil, fmt.Errorf("missing required column %q", ColumnActorID)
	}

	actors := make([]actor.Record, 0, len(data.Rows))
	for i, row := range data.Rows {
		rec, err := ParseRow(row, s.config.MarkerSeparator)
		if err != nil {
			if s.config.SkipInvalid {
				internal.DefaultLogger.Warn("skipping row %d: %v", i+2, err)
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		actors = append(actors, rec)
	}
	return actors, nil
}

// ParseRow converts one spreadsheet row into an actor record. The driver
// distribution comes from either a JSON driver_distribution column or one
// column per driver.
func ParseRow(row RawRowData, markerSeparator string) (actor.Record, error) {
	rec := actor.Record{ActorID: row[ColumnActorID]}
	if rec.ActorID == "" {
		return rec, fmt.Errorf("empty %s", ColumnActorID)
	}

	if raw := row[ColumnDriverDistribution]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.DriverDistribution); err != nil {
			return rec, fmt.Errorf("actor %s: invalid %s: %w", rec.ActorID, ColumnDriverDistribution, err)
		}
	} else {
		rec.DriverDistribution = make(actor.DriverDistribution, len(actor.Drivers))
		for _, d := range actor.Drivers {
			v, err := parseFloat(row, string(d))
			if err != nil {
				return rec, fmt.Errorf("actor %s: %w", rec.ActorID, err)
			}
			rec.DriverDistribution[d] = v
		}
	}

	var err error
	if rec.ContradictionScore, err = parseFloat(row, ColumnContradiction); err != nil {
		return rec, fmt.Errorf("actor %s: %w", rec.ActorID, err)
	}
	if rec.ProfileCompleteness, err = parseFloat(row, ColumnProfileCompleteness); err != nil {
		return rec, fmt.Errorf("actor %s: %w", rec.ActorID, err)
	}
	if rec.DataQualityScore, err = parseFloat(row, ColumnDataQuality); err != nil {
		return rec, fmt.Errorf("actor %s: %w", rec.ActorID, err)
	}
	if raw := row[ColumnSignalCount]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return rec, fmt.Errorf("actor %s: invalid %s %q", rec.ActorID, ColumnSignalCount, raw)
		}
		rec.SignalCount = n
	}
	if raw := row[ColumnSuperposition]; raw != "" {
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return rec, fmt.Errorf("actor %s: invalid %s %q", rec.ActorID, ColumnSuperposition, raw)
		}
		rec.SuperpositionDetected = actor.Bool(b)
	}
	if raw := row[ColumnCoherence]; raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("actor %s: invalid %s %q", rec.ActorID, ColumnCoherence, raw)
		}
		rec.Coherence = actor.Float(v)
	}
	if raw := row[ColumnIdentityMarkers]; raw != "" {
		for _, m := range strings.Split(raw, markerSeparator) {
			if m = strings.TrimSpace(m); m != "" {
				rec.IdentityMarkers = append(rec.IdentityMarkers, m)
			}
		}
	}
	return rec, nil
}

// parseFloat reads an optional numeric cell; absent or empty cells are 0
func parseFloat(row RawRowData, column string) (float64, error) {
	raw := row[column]
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", column, raw)
	}
	return v, nil
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}
