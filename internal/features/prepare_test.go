package features

import (
	"errors"
	"math"
	"testing"

	"gocohort/domain/actor"
	"gocohort/domain/core"
	"gocohort/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigColumns(t *testing.T) {
	assert.Equal(t, []string{
		"Safety", "Connection", "Status", "Growth", "Freedom", "Purpose",
		ColumnContradiction, ColumnSuperposition, ColumnCoherence,
	}, DefaultConfig().Columns())

	cfg := Config{IncludeContradiction: true, IncludeQuantum: true}
	assert.Equal(t, []string{ColumnContradiction, ColumnSuperposition, ColumnCoherence}, cfg.Columns())

	assert.Empty(t, Config{}.Columns())
}

func TestPrepare_NormalizedRange(t *testing.T) {
	actors := testkit.TwoGroupPopulation(42, 20)
	fm, err := Prepare(actors, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 40, fm.Rows())
	assert.Equal(t, 9, fm.Cols())
	for i := 0; i < fm.Rows(); i++ {
		assert.Equal(t, actors[i].ActorID, fm.ActorIDs[i])
		for _, v := range fm.Row(i) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestPrepare_RawValuesWithoutNormalize(t *testing.T) {
	actors := testkit.TwoGroupPopulation(3, 6)
	cfg := DefaultConfig()
	cfg.Normalize = false

	fm, err := Prepare(actors, cfg)
	require.NoError(t, err)
	assert.Nil(t, fm.Scaler)

	row := fm.Row(0)
	assert.InDelta(t, actors[0].DriverDistribution[actor.DriverSafety], row[0], 1e-12)
	assert.InDelta(t, actors[0].ContradictionScore, row[6], 1e-12)
	assert.InDelta(t, actors[0].CoherenceValue(), row[8], 1e-12)
}

func TestPrepare_ConstantColumnFlagged(t *testing.T) {
	actors := testkit.TwoGroupPopulation(5, 6)
	for i := range actors {
		actors[i].ContradictionScore = 0.4
	}

	fm, err := Prepare(actors, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, fm.ConstantColumns, 6)
	for i := 0; i < fm.Rows(); i++ {
		assert.Equal(t, 0.5, fm.Data.At(i, 6))
	}
}

func TestPrepare_InsufficientData(t *testing.T) {
	actors := testkit.TwoGroupPopulation(1, 20)[:5]

	_, err := Prepare(actors, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	var insufficient *core.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Actors)
	assert.Equal(t, DefaultMinActors, insufficient.Required)
}

func TestPrepare_MalformedFeature(t *testing.T) {
	actors := testkit.TwoGroupPopulation(2, 6)
	actors[3].ContradictionScore = math.NaN()

	_, err := Prepare(actors, DefaultConfig())
	var malformed *core.MalformedFeatureError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, actors[3].ActorID, malformed.ActorID)
	assert.Equal(t, 3, malformed.Row)
	assert.Equal(t, ColumnContradiction, malformed.Column)
}

func TestPrepare_InvalidDistribution(t *testing.T) {
	actors := testkit.TwoGroupPopulation(2, 6)
	actors[0].DriverDistribution = actor.DriverDistribution{actor.DriverSafety: 0.5}

	_, err := Prepare(actors, DefaultConfig())
	assert.ErrorIs(t, err, core.ErrMalformedFeature)
}

func TestPrepare_DuplicateActorID(t *testing.T) {
	actors := testkit.TwoGroupPopulation(1, 10)
	actors[10].ActorID = actors[0].ActorID

	_, err := Prepare(actors, DefaultConfig())
	var malformed *core.MalformedFeatureError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, ColumnActorID, malformed.Column)
	assert.Equal(t, 10, malformed.Row)
	assert.Equal(t, actors[0].ActorID, malformed.ActorID)
	assert.Contains(t, malformed.Reason, "row 0")
}

func TestPrepare_ScoresOutsideUnitInterval(t *testing.T) {
	raw := DefaultConfig()
	raw.Normalize = false

	tests := []struct {
		name   string
		mutate func(r *actor.Record)
		column string
	}{
		{"contradiction above one", func(r *actor.Record) { r.ContradictionScore = 1.4 }, ColumnContradiction},
		{"negative contradiction", func(r *actor.Record) { r.ContradictionScore = -0.1 }, ColumnContradiction},
		{"coherence above one", func(r *actor.Record) { r.Coherence = actor.Float(2) }, ColumnCoherence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actors := testkit.TwoGroupPopulation(3, 6)
			tt.mutate(&actors[4])

			for _, cfg := range []Config{raw, DefaultConfig()} {
				_, err := Prepare(actors, cfg)
				var malformed *core.MalformedFeatureError
				require.True(t, errors.As(err, &malformed))
				assert.Equal(t, tt.column, malformed.Column)
				assert.Equal(t, 4, malformed.Row)
			}

			fm, err := Prepare(testkit.TwoGroupPopulation(3, 6), DefaultConfig())
			require.NoError(t, err)
			_, err = fm.Projector().Project(actors[4])
			assert.ErrorIs(t, err, core.ErrMalformedFeature)
		})
	}
}

func TestPrepare_NoFeatureGroups(t *testing.T) {
	actors := testkit.TwoGroupPopulation(2, 6)
	_, err := Prepare(actors, Config{Normalize: true, MinActors: 1})
	assert.ErrorIs(t, err, core.ErrNoFeatures)
}

func TestProjector_MatchesPreparedRows(t *testing.T) {
	actors := testkit.TwoGroupPopulation(11, 10)
	fm, err := Prepare(actors, DefaultConfig())
	require.NoError(t, err)

	fromSchema, err := NewProjector(fm.Schema())
	require.NoError(t, err)

	for i, rec := range actors {
		vec, err := fromSchema.Project(rec)
		require.NoError(t, err)
		assert.InDeltaSlice(t, fm.Row(i), vec, 1e-12)
	}
}

func TestProjector_ClipsOutOfRange(t *testing.T) {
	actors := testkit.TwoGroupPopulation(11, 10)
	fm, err := Prepare(actors, DefaultConfig())
	require.NoError(t, err)

	extreme := actors[0]
	extreme.DriverDistribution = actor.DriverDistribution{actor.DriverPurpose: 1}
	vec, err := fm.Projector().Project(extreme)
	require.NoError(t, err)
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNewProjector_SchemaMismatch(t *testing.T) {
	actors := testkit.TwoGroupPopulation(11, 10)
	fm, err := Prepare(actors, DefaultConfig())
	require.NoError(t, err)

	schema := fm.Schema()
	schema.Min = schema.Min[:3]
	_, err = NewProjector(schema)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}
