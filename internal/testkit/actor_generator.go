package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gocohort/domain/actor"
)

// ActorGeneratorConfig configures the synthetic actor generator
type ActorGeneratorConfig struct {
	Seed          int64    `json:"seed"`
	Noise         float64  `json:"noise"`         // stddev of per-driver jitter
	Contradiction float64  `json:"contradiction"` // mean contradiction score
	QuantumRate   float64  `json:"quantum_rate"`  // probability of superposition
	Markers       []string `json:"identity_markers"`
}

// DefaultActorConfig returns sensible defaults for actor generation
func DefaultActorConfig() ActorGeneratorConfig {
	return ActorGeneratorConfig{
		Seed:          42,
		Noise:         0.02,
		Contradiction: 0.2,
		QuantumRate:   0.1,
		Markers:       []string{"parent", "professional", "student", "retiree", "creator"},
	}
}

// Segment describes a group of actors sharing a dominant driver
type Segment struct {
	Prefix        string
	Driver        actor.Driver
	Weight        float64 // share of the dominant driver, e.g. 0.8
	Count         int
	Contradiction float64 // overrides the config mean when > 0
	QuantumRate   float64 // overrides the config rate when > 0
}

// ActorGenerator produces deterministic actor populations
type ActorGenerator struct {
	config ActorGeneratorConfig
	rng    *rand.Rand
}

// NewActorGenerator creates a new seeded generator
func NewActorGenerator(config ActorGeneratorConfig) *ActorGenerator {
	return &ActorGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Population generates every segment in order
func (g *ActorGenerator) Population(segments ...Segment) []actor.Record {
	var out []actor.Record
	for _, s := range segments {
		out = append(out, g.Segment(s)...)
	}
	return out
}

// Segment generates Count actors whose distribution is centered on Driver
func (g *ActorGenerator) Segment(s Segment) []actor.Record {
	contradiction := g.config.Contradiction
	if s.Contradiction > 0 {
		contradiction = s.Contradiction
	}
	quantumRate := g.config.QuantumRate
	if s.QuantumRate > 0 {
		quantumRate = s.QuantumRate
	}

	out := make([]actor.Record, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		rec := actor.Record{
			ActorID:             fmt.Sprintf("%s_%03d", s.Prefix, i+1),
			DriverDistribution:  g.distribution(s.Driver, s.Weight),
			ContradictionScore:  clamp01(contradiction + g.rng.NormFloat64()*0.05),
			SignalCount:         5 + g.rng.Intn(20),
			ProfileCompleteness: clamp01(0.6 + g.rng.Float64()*0.4),
			DataQualityScore:    clamp01(0.5 + g.rng.Float64()*0.5),
		}
		rec.SuperpositionDetected = actor.Bool(g.rng.Float64() < quantumRate)
		rec.Coherence = actor.Float(clamp01(0.5 + g.rng.NormFloat64()*0.1))
		if len(g.config.Markers) > 0 {
			rec.IdentityMarkers = []string{g.config.Markers[g.rng.Intn(len(g.config.Markers))]}
		}
		out = append(out, rec)
	}
	return out
}

// distribution spreads 1-weight evenly over the other drivers, adds jitter
// and renormalizes so the result always sums to 1.
func (g *ActorGenerator) distribution(dominant actor.Driver, weight float64) actor.DriverDistribution {
	rest := (1 - weight) / float64(len(actor.Drivers)-1)
	dist := make(actor.DriverDistribution, len(actor.Drivers))
	total := 0.0
	for _, d := range actor.Drivers {
		base := rest
		if d == dominant {
			base = weight
		}
		v := math.Max(0, base+g.rng.NormFloat64()*g.config.Noise)
		dist[d] = v
		total += v
	}
	if total == 0 {
		dist[dominant] = 1
		return dist
	}
	for d, v := range dist {
		dist[d] = v / total
	}
	return dist
}

// TwoGroupPopulation builds 2×perGroup actors: a Safety-dominated group with
// prefix "safety" and a Status-dominated group with prefix "status".
func TwoGroupPopulation(seed int64, perGroup int) []actor.Record {
	cfg := DefaultActorConfig()
	cfg.Seed = seed
	gen := NewActorGenerator(cfg)
	return gen.Population(
		Segment{Prefix: "safety", Driver: actor.DriverSafety, Weight: 0.8, Count: perGroup},
		Segment{Prefix: "status", Driver: actor.DriverStatus, Weight: 0.8, Count: perGroup},
	)
}

// Shuffled returns a copy of actors in a seeded random order
func Shuffled(actors []actor.Record, seed int64) []actor.Record {
	out := append([]actor.Record(nil), actors...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
