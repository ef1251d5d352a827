package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverDistribution_Validate(t *testing.T) {
	valid := DriverDistribution{
		DriverSafety: 0.5, DriverConnection: 0.1, DriverStatus: 0.1,
		DriverGrowth: 0.1, DriverFreedom: 0.1, DriverPurpose: 0.1,
	}
	require.NoError(t, valid.Validate())

	almost := DriverDistribution{DriverSafety: 0.995}
	assert.NoError(t, almost.Validate(), "sum within tolerance should pass")

	short := DriverDistribution{DriverSafety: 0.5, DriverStatus: 0.3}
	assert.Error(t, short.Validate())

	negative := DriverDistribution{DriverSafety: 1.2, DriverStatus: -0.2}
	assert.Error(t, negative.Validate())

	unknown := DriverDistribution{DriverSafety: 0.9, Driver("Thrill"): 0.1}
	assert.Error(t, unknown.Validate())
}

func TestDriverDistribution_DominantTieBreak(t *testing.T) {
	d := DriverDistribution{DriverStatus: 0.4, DriverGrowth: 0.4, DriverPurpose: 0.2}
	drv, v := d.Dominant()
	assert.Equal(t, DriverStatus, drv, "ties go to the earlier driver")
	assert.InDelta(t, 0.4, v, 1e-12)
}

func TestDriverDistribution_VectorOrder(t *testing.T) {
	d := DriverDistribution{DriverPurpose: 0.6, DriverSafety: 0.4}
	assert.Equal(t, []float64{0.4, 0, 0, 0, 0, 0.6}, d.Vector())
}

func TestRecord_QuantumAccessors(t *testing.T) {
	r := Record{ActorID: "a"}
	assert.False(t, r.HasQuantumState())
	assert.False(t, r.Superposition())
	assert.Zero(t, r.CoherenceValue())

	r.SuperpositionDetected = Bool(true)
	r.Coherence = Float(0.7)
	assert.True(t, r.HasQuantumState())
	assert.True(t, r.Superposition())
	assert.InDelta(t, 0.7, r.CoherenceValue(), 1e-12)
}

func TestRecord_Validate(t *testing.T) {
	base := Record{
		ActorID:            "a1",
		DriverDistribution: DriverDistribution{DriverSafety: 0.6, DriverGrowth: 0.4},
		ContradictionScore: 0.3,
		Coherence:          Float(0.9),
	}
	require.NoError(t, base.Validate())

	noCoherence := base
	noCoherence.Coherence = nil
	assert.NoError(t, noCoherence.Validate())

	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"bad distribution", func(r *Record) { r.DriverDistribution = DriverDistribution{DriverSafety: 0.2} }, "driver_distribution"},
		{"contradiction above one", func(r *Record) { r.ContradictionScore = 1.01 }, "contradiction_score"},
		{"contradiction NaN", func(r *Record) { r.ContradictionScore = math.NaN() }, "contradiction_score"},
		{"negative coherence", func(r *Record) { r.Coherence = Float(-0.5) }, "coherence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			var fe *FieldError
			require.True(t, errors.As(r.Validate(), &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}
