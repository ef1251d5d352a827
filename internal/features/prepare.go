package features

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gocohort/domain/actor"
	"gocohort/domain/core"
	"gocohort/domain/run"
	"gocohort/internal"

	"gonum.org/v1/gonum/mat"
)

// Column names beyond the six driver columns.
const (
	ColumnActorID       = "actor_id"
	ColumnContradiction = "contradiction_score"
	ColumnSuperposition = "superposition_strength"
	ColumnCoherence     = "coherence"
)

// DefaultMinActors is the smallest population Prepare accepts.
const DefaultMinActors = 10

// constantFill is the value written to a zero-variance column after scaling.
const constantFill = 0.5

// Config selects the feature groups that make up the matrix.
type Config struct {
	IncludeDrivers       bool `json:"include_drivers"`
	IncludeContradiction bool `json:"include_contradiction"`
	IncludeQuantum       bool `json:"include_quantum"`
	Normalize            bool `json:"normalize"`
	MinActors            int  `json:"min_actors"`
}

// DefaultConfig enables every feature group with normalization.
func DefaultConfig() Config {
	return Config{
		IncludeDrivers:       true,
		IncludeContradiction: true,
		IncludeQuantum:       true,
		Normalize:            true,
		MinActors:            DefaultMinActors,
	}
}

// Columns returns the ordered column names implied by the enabled groups.
func (c Config) Columns() []string {
	var cols []string
	if c.IncludeDrivers {
		for _, d := range actor.Drivers {
			cols = append(cols, string(d))
		}
	}
	if c.IncludeContradiction {
		cols = append(cols, ColumnContradiction)
	}
	if c.IncludeQuantum {
		cols = append(cols, ColumnSuperposition, ColumnCoherence)
	}
	return cols
}

// Matrix is an N×M feature matrix with its row and column labels. It is
// immutable once built.
type Matrix struct {
	Data            *mat.Dense
	ActorIDs        []string
	Columns         []string
	Config          Config
	Scaler          *Scaler
	ConstantColumns []int
}

// Rows returns N.
func (m *Matrix) Rows() int { return len(m.ActorIDs) }

// Cols returns M.
func (m *Matrix) Cols() int { return len(m.Columns) }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

// Schema captures the column layout and scaler for storage with a run.
func (m *Matrix) Schema() run.FeatureSchema {
	s := run.FeatureSchema{
		IncludeDrivers:       m.Config.IncludeDrivers,
		IncludeContradiction: m.Config.IncludeContradiction,
		IncludeQuantum:       m.Config.IncludeQuantum,
		Normalize:            m.Config.Normalize,
		Columns:              append([]string(nil), m.Columns...),
		ConstantColumns:      append([]int(nil), m.ConstantColumns...),
	}
	if m.Scaler != nil {
		s.Min = append([]float64(nil), m.Scaler.Min...)
		s.Max = append([]float64(nil), m.Scaler.Max...)
	}
	return s
}

// Prepare converts actor records into a feature matrix.
func Prepare(actors []actor.Record, cfg Config) (*Matrix, error) {
	columns := cfg.Columns()
	if len(columns) == 0 {
		return nil, core.ErrNoFeatures
	}

	required := cfg.MinActors
	if required < 1 {
		required = 1
	}
	if len(actors) < required {
		return nil, core.NewInsufficientDataError("prepare features", len(actors), required)
	}

	n, m := len(actors), len(columns)
	data := mat.NewDense(n, m, nil)
	ids := make([]string, n)

	firstRow := make(map[string]int, n)
	for i, rec := range actors {
		if prev, dup := firstRow[rec.ActorID]; dup {
			return nil, &core.MalformedFeatureError{
				ActorID: rec.ActorID,
				Row:     i,
				Column:  ColumnActorID,
				Value:   float64(prev),
				Reason:  fmt.Sprintf("duplicate actor id, first seen at row %d", prev),
			}
		}
		firstRow[rec.ActorID] = i

		if err := validateRecord(rec, i); err != nil {
			return nil, err
		}
		row := rawRow(rec, cfg)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &core.MalformedFeatureError{
					ActorID: rec.ActorID,
					Row:     i,
					Column:  columns[j],
					Value:   v,
					Reason:  "value is not finite",
				}
			}
		}
		data.SetRow(i, row)
		ids[i] = rec.ActorID
	}

	fm := &Matrix{
		Data:     data,
		ActorIDs: ids,
		Columns:  columns,
		Config:   cfg,
	}

	if cfg.Normalize {
		scaler := FitScaler(data)
		scaler.Transform(data)
		fm.Scaler = scaler
		fm.ConstantColumns = scaler.ConstantColumns()
	}

	summary, err := ValidateMatrix(data, required)
	if err != nil {
		return nil, err
	}
	if !cfg.Normalize {
		fm.ConstantColumns = summary.ConstantColumns
	}

	internal.DefaultLogger.Debug("feature matrix created: %d actors x %d features (%v)", n, m, columns)
	return fm, nil
}

// validateRecord reports a record invariant violation as a MalformedFeatureError
// at the given row.
func validateRecord(rec actor.Record, row int) error {
	err := rec.Validate()
	if err == nil {
		return nil
	}
	malformed := &core.MalformedFeatureError{ActorID: rec.ActorID, Row: row, Reason: err.Error()}
	var fe *actor.FieldError
	if errors.As(err, &fe) {
		malformed.Column, malformed.Value, malformed.Reason = fe.Field, fe.Value, fe.Reason
	}
	return malformed
}

// rawRow extracts an actor's unscaled feature values in column order.
func rawRow(rec actor.Record, cfg Config) []float64 {
	row := make([]float64, 0, 9)
	if cfg.IncludeDrivers {
		row = append(row, rec.DriverDistribution.Vector()...)
	}
	if cfg.IncludeContradiction {
		row = append(row, rec.ContradictionScore)
	}
	if cfg.IncludeQuantum {
		strength := 0.0
		if rec.Superposition() {
			strength = 1.0
		}
		row = append(row, strength, rec.CoherenceValue())
	}
	return row
}

// Scaler holds per-column min-max bounds.
type Scaler struct {
	Min []float64
	Max []float64
}

// FitScaler records the per-column min and max of data.
func FitScaler(data mat.Matrix) *Scaler {
	r, c := data.Dims()
	s := &Scaler{Min: make([]float64, c), Max: make([]float64, c)}
	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := data.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		s.Min[j], s.Max[j] = lo, hi
	}
	return s
}

// ConstantColumns lists columns whose range is zero.
func (s *Scaler) ConstantColumns() []int {
	var out []int
	for j := range s.Min {
		if !(s.Max[j] > s.Min[j]) {
			out = append(out, j)
		}
	}
	return out
}

// Transform scales data in place; constant columns become 0.5.
func (s *Scaler) Transform(data *mat.Dense) {
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data.Set(i, j, s.scale(j, data.At(i, j)))
		}
	}
}

func (s *Scaler) scale(j int, v float64) float64 {
	span := s.Max[j] - s.Min[j]
	if !(span > 0) {
		return constantFill
	}
	return (v - s.Min[j]) / span
}

// Projector maps records onto a stored feature schema.
type Projector struct {
	cfg    Config
	cols   []string
	scaler *Scaler
}

// Projector returns a projector for this matrix's schema.
func (m *Matrix) Projector() *Projector {
	return &Projector{cfg: m.Config, cols: m.Columns, scaler: m.Scaler}
}

// NewProjector rebuilds a projector from a stored schema.
func NewProjector(schema run.FeatureSchema) (*Projector, error) {
	cfg := Config{
		IncludeDrivers:       schema.IncludeDrivers,
		IncludeContradiction: schema.IncludeContradiction,
		IncludeQuantum:       schema.IncludeQuantum,
		Normalize:            schema.Normalize,
	}
	cols := cfg.Columns()
	if len(cols) == 0 {
		return nil, core.ErrNoFeatures
	}
	if len(schema.Columns) > 0 && !slices.Equal(cols, schema.Columns) {
		return nil, fmt.Errorf("%w: stored columns %v do not match feature groups %v",
			core.ErrDimensionMismatch, schema.Columns, cols)
	}

	p := &Projector{cfg: cfg, cols: cols}
	if schema.Normalize {
		if len(schema.Min) != len(cols) || len(schema.Max) != len(cols) {
			return nil, fmt.Errorf("%w: scaler has %d/%d bounds for %d columns",
				core.ErrDimensionMismatch, len(schema.Min), len(schema.Max), len(cols))
		}
		p.scaler = &Scaler{
			Min: append([]float64(nil), schema.Min...),
			Max: append([]float64(nil), schema.Max...),
		}
	}
	return p, nil
}

// Columns returns the projected column names.
func (p *Projector) Columns() []string { return p.cols }

// Project converts one record into a feature vector on the stored scale.
// Values outside the fitted range are clipped to [0,1].
func (p *Projector) Project(rec actor.Record) ([]float64, error) {
	if err := validateRecord(rec, -1); err != nil {
		return nil, err
	}
	row := rawRow(rec, p.cfg)
	for j, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &core.MalformedFeatureError{
				ActorID: rec.ActorID,
				Row:     -1,
				Column:  p.cols[j],
				Value:   v,
				Reason:  "value is not finite",
			}
		}
		if p.scaler != nil {
			row[j] = clamp01(p.scaler.scale(j, v))
		}
	}
	return row, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
