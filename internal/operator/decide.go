package operator

import (
	"fmt"
	"math"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
)

// Actions the operator can take.
const (
	ActionNone     = "none"
	ActionScram    = "az5"
	ActionInsert   = "insert"
	ActionWithdraw = "withdraw"
)

// Decision is the operator's choice for one cycle.
type Decision struct {
	Action    string          `json:"action"`
	Rationale string          `json:"rationale"`
	Command   *engine.Command `json:"command,omitempty"`
}

// Decide picks at most one command for the current health. Scrams take
// priority; power tracking only runs when the core is nominal.
func Decide(h *Health, snap *Snapshot, p Policy) *Decision {
	st := snap.Status
	switch {
	case h.Level == LevelMeltdown:
		return hold("core destroyed, reset required")
	case st.State != engine.Running.String():
		return hold("reactor is " + st.State)
	}

	switch h.Level {
	case LevelCritical:
		if st.AZ5 {
			return hold("AZ-5 already engaged")
		}
		return &Decision{
			Action:    ActionScram,
			Rationale: fmt.Sprintf("max heat %.0f%% of meltdown, projected %.0f%%", h.HeatFraction*100, h.Projected*100),
			Command:   &engine.Command{Type: "az5"},
		}
	case LevelWarning:
		if h.RodLevel <= 0 {
			return hold("rods fully inserted")
		}
		return rods(ActionInsert, h.RodLevel-p.RodStep,
			fmt.Sprintf("max heat %.0f%% of meltdown", h.HeatFraction*100))
	case LevelWatch:
		return hold("watching heat")
	}

	if st.AZ5 {
		return hold("AZ-5 latched, waiting for a manual restart")
	}
	if p.TargetPowerMW <= 0 {
		return hold("nominal")
	}
	low := p.TargetPowerMW * (1 - p.Deadband)
	high := p.TargetPowerMW * (1 + p.Deadband)
	switch {
	case h.PowerMW < low && h.RodLevel < 100:
		return rods(ActionWithdraw, h.RodLevel+p.RodStep,
			fmt.Sprintf("power %.1f MW below target %.1f", h.PowerMW, p.TargetPowerMW))
	case h.PowerMW > high && h.RodLevel > 0:
		return rods(ActionInsert, h.RodLevel-p.RodStep,
			fmt.Sprintf("power %.1f MW above target %.1f", h.PowerMW, p.TargetPowerMW))
	}
	return hold("power on target")
}

func hold(why string) *Decision {
	return &Decision{Action: ActionNone, Rationale: why}
}

func rods(action string, level float64, why string) *Decision {
	level = math.Max(0, math.Min(100, level))
	return &Decision{
		Action:    action,
		Rationale: why,
		Command:   &engine.Command{Type: "pull_all", Value: level},
	}
}
