package characterize

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gocohort/domain/actor"
	"gocohort/domain/cohort"
)

// Thresholds used by naming and messaging. Each is local to the rule that
// reads it.
const (
	HighContradiction     = 0.6  // naming, timing, conflict note
	MediumContradiction   = 0.3  // messaging contradiction level
	StrongDriver          = 0.7  // "-Focused" names, "strongly" tone
	ModerateDriver        = 0.5  // "moderately" tone
	QuantumPrevalent      = 30.0 // percent; "Quantum" names, context timing
	QuantumChannels       = 20.0 // percent; social and mobile channels
	ContradictionChannels = 0.5  // consultation and phone channels
	ThemeThreshold        = 0.3
	MaxThemes             = 5
	CompetingDriverFloor  = 0.2
)

const fallbackTone = "engaging"

var driverTones = map[actor.Driver]string{
	actor.DriverSafety:     "reassuring and trustworthy",
	actor.DriverConnection: "warm and community-focused",
	actor.DriverStatus:     "sophisticated and exclusive",
	actor.DriverGrowth:     "inspiring and educational",
	actor.DriverFreedom:    "liberating and empowering",
	actor.DriverPurpose:    "meaningful and impactful",
}

var driverThemes = map[actor.Driver][]string{
	actor.DriverSafety:     {"security", "reliability", "trust", "protection"},
	actor.DriverConnection: {"community", "relationships", "belonging", "social"},
	actor.DriverStatus:     {"prestige", "recognition", "exclusivity", "achievement"},
	actor.DriverGrowth:     {"learning", "development", "improvement", "progress"},
	actor.DriverFreedom:    {"independence", "choice", "flexibility", "autonomy"},
	actor.DriverPurpose:    {"meaning", "impact", "contribution", "values"},
}

// Drivers without extra channels map to nil.
var driverChannels = map[actor.Driver][]string{
	actor.DriverSafety:     nil,
	actor.DriverConnection: {"Social Media", "Community Forums"},
	actor.DriverStatus:     {"Premium Channels", "Exclusive Events"},
	actor.DriverGrowth:     nil,
	actor.DriverFreedom:    nil,
	actor.DriverPurpose:    nil,
}

var baseChannels = []string{"Email", "Website"}

// Tone returns the driver's tone, prefixed by how strongly it dominates.
// Unknown drivers get a neutral tone.
func Tone(d actor.Driver, strength float64) string {
	tone, ok := driverTones[d]
	if !ok {
		tone = fallbackTone
	}
	switch {
	case strength > StrongDriver:
		return "strongly " + tone
	case strength > ModerateDriver:
		return "moderately " + tone
	default:
		return tone
	}
}

// Themes collects the themes of every driver above ThemeThreshold in driver
// order, without duplicates, capped at MaxThemes.
func Themes(profile actor.DriverDistribution) []string {
	var themes []string
	for _, d := range actor.Drivers {
		if profile[d] <= ThemeThreshold {
			continue
		}
		for _, t := range driverThemes[d] {
			if !slices.Contains(themes, t) {
				themes = append(themes, t)
			}
		}
	}
	if len(themes) > MaxThemes {
		themes = themes[:MaxThemes]
	}
	return themes
}

// Channels suggests outreach channels from cohort characteristics.
func Channels(c cohort.Characteristics) []string {
	channels := append([]string(nil), baseChannels...)
	add := func(names ...string) {
		for _, n := range names {
			if !slices.Contains(channels, n) {
				channels = append(channels, n)
			}
		}
	}
	if c.QuantumPrevalence > QuantumChannels {
		add("Social Media", "Mobile App")
	}
	if c.AverageContradiction > ContradictionChannels {
		add("Personal Consultation", "Phone")
	}
	add(driverChannels[c.DominantDriver]...)
	return channels
}

// Timing recommends when to reach the cohort.
func Timing(c cohort.Characteristics) string {
	switch {
	case c.AverageContradiction > HighContradiction:
		return "careful timing to address conflicts"
	case c.QuantumPrevalence > QuantumPrevalent:
		return "context-aware timing based on current state"
	default:
		return "consistent routine timing"
	}
}

// ConflictResolution names the two strongest competing drivers of a highly
// contradictory cohort. Other cohorts get no note.
func ConflictResolution(avgContradiction float64, profile actor.DriverDistribution) string {
	if avgContradiction <= HighContradiction {
		return ""
	}
	ranked := append([]actor.Driver(nil), actor.Drivers...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return profile[ranked[a]] > profile[ranked[b]]
	})
	var competing []actor.Driver
	for _, d := range ranked[:3] {
		if profile[d] > CompetingDriverFloor {
			competing = append(competing, d)
		}
	}
	if len(competing) < 2 {
		return "Focus on resolving internal conflicts through targeted communication"
	}
	return fmt.Sprintf("Address tension between %s and %s through integrated messaging", competing[0], competing[1])
}

// Messaging assembles the full strategy for a cohort.
func Messaging(profile actor.DriverDistribution, c cohort.Characteristics) cohort.MessagingStrategy {
	driver, strength := profile.Dominant()
	return cohort.MessagingStrategy{
		Tone:               Tone(driver, strength),
		Themes:             Themes(profile),
		Channels:           Channels(c),
		Timing:             Timing(c),
		ConflictResolution: ConflictResolution(c.AverageContradiction, profile),
		ProfileDriver:      driver,
		ContradictionLevel: messagingLevel(c.AverageContradiction),
	}
}

func messagingLevel(avg float64) cohort.ContradictionLevel {
	switch {
	case avg > HighContradiction:
		return cohort.ContradictionHigh
	case avg > MediumContradiction:
		return cohort.ContradictionMedium
	default:
		return cohort.ContradictionLow
	}
}

// Name derives a cohort name from its profile's strongest driver.
func Name(profile actor.DriverDistribution, c cohort.Characteristics) string {
	driver, strength := profile.Dominant()
	switch {
	case c.AverageContradiction > HighContradiction:
		return fmt.Sprintf("High-Contradiction %s", driver)
	case strength > StrongDriver:
		return fmt.Sprintf("%s-Focused", driver)
	case c.QuantumPrevalence > QuantumPrevalent:
		return fmt.Sprintf("Quantum %s", driver)
	default:
		return fmt.Sprintf("Balanced %s", driver)
	}
}

// Describe writes a one-sentence cohort description.
func Describe(profile actor.DriverDistribution, c cohort.Characteristics) string {
	driver, _ := profile.Dominant()
	var b strings.Builder
	fmt.Fprintf(&b, "Customers with %s-focused motivations", strings.ToLower(string(driver)))
	switch {
	case c.AverageContradiction > HighContradiction:
		b.WriteString(" who experience internal conflicts between competing drivers")
	case c.QuantumPrevalence > QuantumPrevalent:
		b.WriteString(" whose preferences shift based on context")
	}
	return b.String()
}
