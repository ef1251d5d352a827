package actor

import (
	"fmt"
	"math"
)

// Driver is one of the six fixed psychological motivation categories.
type Driver string

const (
	DriverSafety     Driver = "Safety"
	DriverConnection Driver = "Connection"
	DriverStatus     Driver = "Status"
	DriverGrowth     Driver = "Growth"
	DriverFreedom    Driver = "Freedom"
	DriverPurpose    Driver = "Purpose"
)

// Drivers lists every driver in canonical column order.
var Drivers = []Driver{
	DriverSafety,
	DriverConnection,
	DriverStatus,
	DriverGrowth,
	DriverFreedom,
	DriverPurpose,
}

// DistributionTolerance is the allowed deviation of a driver distribution sum from 1.
const DistributionTolerance = 1e-2

// IsKnown reports whether d is one of the six drivers.
func (d Driver) IsKnown() bool {
	for _, known := range Drivers {
		if d == known {
			return true
		}
	}
	return false
}

// DriverDistribution maps each driver to its probability for one actor.
type DriverDistribution map[Driver]float64

// Vector returns the distribution in canonical driver order; missing drivers are 0.
func (d DriverDistribution) Vector() []float64 {
	out := make([]float64, len(Drivers))
	for i, drv := range Drivers {
		out[i] = d[drv]
	}
	return out
}

// Sum adds up all driver probabilities.
func (d DriverDistribution) Sum() float64 {
	total := 0.0
	for _, drv := range Drivers {
		total += d[drv]
	}
	return total
}

// Dominant returns the highest-probability driver; ties go to the earlier driver.
func (d DriverDistribution) Dominant() (Driver, float64) {
	best := Drivers[0]
	bestValue := d[best]
	for _, drv := range Drivers[1:] {
		if d[drv] > bestValue {
			best = drv
			bestValue = d[drv]
		}
	}
	return best, bestValue
}

// Validate checks the distribution invariant: non-negative, finite, sums to 1 ± 0.01.
func (d DriverDistribution) Validate() error {
	for key := range d {
		if !key.IsKnown() {
			return fmt.Errorf("unknown driver %q", key)
		}
	}
	for _, drv := range Drivers {
		v := d[drv]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("driver %s is not finite", drv)
		}
		if v < 0 {
			return fmt.Errorf("driver %s is negative (%v)", drv, v)
		}
	}
	if sum := d.Sum(); math.Abs(sum-1.0) > DistributionTolerance {
		return fmt.Errorf("driver distribution sums to %.4f, want 1.0 ± %.2f", sum, DistributionTolerance)
	}
	return nil
}

// Record is the per-actor feature record produced by the upstream scoring process.
// It is read-only to the segmentation engine.
type Record struct {
	ActorID               string             `json:"actor_id"`
	DriverDistribution    DriverDistribution `json:"driver_distribution"`
	ContradictionScore    float64            `json:"contradiction_score"`
	SuperpositionDetected *bool              `json:"superposition_detected,omitempty"`
	Coherence             *float64           `json:"coherence,omitempty"`
	IdentityMarkers       []string           `json:"identity_markers,omitempty"`
	SignalCount           int                `json:"signal_count"`
	ProfileCompleteness   float64            `json:"profile_completeness"`
	DataQualityScore      float64            `json:"data_quality_score"`
}

// HasQuantumState reports whether either optional quantum field was supplied.
func (r Record) HasQuantumState() bool {
	return r.SuperpositionDetected != nil || r.Coherence != nil
}

// Superposition returns the superposition flag, false when absent.
func (r Record) Superposition() bool {
	return r.SuperpositionDetected != nil && *r.SuperpositionDetected
}

// CoherenceValue returns coherence, 0 when absent.
func (r Record) CoherenceValue() float64 {
	if r.Coherence == nil {
		return 0
	}
	return *r.Coherence
}

// DominantDriver is the argmax driver of this actor's distribution.
func (r Record) DominantDriver() Driver {
	d, _ := r.DriverDistribution.Dominant()
	return d
}

// FieldError names the record field that breaks an invariant.
type FieldError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks the driver distribution and that contradiction_score and
// coherence, when present, lie in [0, 1].
func (r Record) Validate() error {
	if err := r.DriverDistribution.Validate(); err != nil {
		return &FieldError{Field: "driver_distribution", Value: r.DriverDistribution.Sum(), Reason: err.Error()}
	}
	if !unitInterval(r.ContradictionScore) {
		return &FieldError{Field: "contradiction_score", Value: r.ContradictionScore, Reason: "outside [0, 1]"}
	}
	if r.Coherence != nil && !unitInterval(*r.Coherence) {
		return &FieldError{Field: "coherence", Value: *r.Coherence, Reason: "outside [0, 1]"}
	}
	return nil
}

func unitInterval(v float64) bool { return v >= 0 && v <= 1 }

// Bool and Float return pointers for the optional quantum fields.
func Bool(v bool) *bool { return &v }

func Float(v float64) *float64 { return &v }
