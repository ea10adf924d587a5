package operator

import (
	"math"

	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Health levels, most severe first.
const (
	LevelMeltdown = "MELTDOWN"
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelNominal  = "NOMINAL"
)

// Policy holds the operator's thresholds. Heat fractions are measured
// between ambient and MaxHeat.
type Policy struct {
	MaxHeat       float64
	ScramFraction float64
	WarnFraction  float64
	WatchFraction float64
	TargetPowerMW float64 // 0 disables power tracking
	Deadband      float64 // Fraction of TargetPowerMW
	RodStep       float64 // Percent per insert or withdraw
}

// DefaultPolicy scrams at 90% of the meltdown threshold.
func DefaultPolicy() Policy {
	return Policy{
		MaxHeat:       reactor.DefaultMaxHeat,
		ScramFraction: 0.9,
		WarnFraction:  0.75,
		WatchFraction: 0.6,
		Deadband:      0.1,
		RodStep:       5,
	}
}

// Health holds derived diagnostic signals computed from a Snapshot.
type Health struct {
	HeatFraction float64 // Hottest column, 0 at ambient, 1 at meltdown
	HeatRise     float64 // Change in HeatFraction since the last cycle of this run
	Projected    float64 // HeatFraction one cycle ahead at the current rise
	PowerMW      float64
	RodLevel     float64
	Level        string
}

// Triage computes a Health from the snapshot and the previous cycle, if any.
func Triage(snap *Snapshot, last *CycleRecord, p Policy) *Health {
	h := &Health{
		HeatFraction: heatFraction(snap.Stats.MaxHeat, p.MaxHeat),
		PowerMW:      snap.Stats.PowerMW,
		RodLevel:     snap.Stats.AvgRodLevel,
	}

	// Rise only means something within one run.
	if last != nil && last.RunID == snap.Status.RunID && snap.Status.RunID != "" {
		h.HeatRise = h.HeatFraction - heatFraction(last.MaxHeat, p.MaxHeat)
	}
	h.Projected = h.HeatFraction + math.Max(0, h.HeatRise)

	switch {
	case snap.Status.Exploded:
		h.Level = LevelMeltdown
	case h.HeatFraction >= p.ScramFraction || h.Projected >= 1:
		h.Level = LevelCritical
	case h.HeatFraction >= p.WarnFraction || h.Projected >= p.ScramFraction:
		h.Level = LevelWarning
	case h.HeatFraction >= p.WatchFraction:
		h.Level = LevelWatch
	default:
		h.Level = LevelNominal
	}
	return h
}

func heatFraction(heat, maxHeat float64) float64 {
	span := maxHeat - reactor.Ambient
	if span <= 0 {
		return 0
	}
	return math.Max(0, (heat-reactor.Ambient)/span)
}
