package operator

import (
	"fmt"
	"log/slog"
)

// Operator ties one observe, triage, decide, act loop together.
type Operator struct {
	Observer *Observer
	Actor    *Actor
	Memory   *CycleMemory
	Policy   Policy
	DryRun   bool // Decide but never send commands
}

// Cycle runs one loop and returns the decision taken.
func (o *Operator) Cycle() (*Decision, error) {
	snap, err := o.Observer.Observe()
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}

	h := Triage(snap, o.Memory.Last(), o.Policy)
	d := Decide(h, snap, o.Policy)
	slog.Debug("operator triage",
		"level", h.Level,
		"heat_fraction", fmt.Sprintf("%.3f", h.HeatFraction),
		"rise", fmt.Sprintf("%.3f", h.HeatRise),
		"power_mw", fmt.Sprintf("%.2f", h.PowerMW),
		"action", d.Action,
	)

	if d.Command != nil && !o.DryRun {
		res, err := o.Actor.Act(d.Command)
		if err != nil {
			return d, fmt.Errorf("act %s: %w", d.Action, err)
		}
		slog.Info("operator command sent",
			"action", d.Action,
			"type", res.Type,
			"result", res.Result,
			"rationale", d.Rationale,
		)
	}

	o.Memory.Record(CycleRecord{
		RunID:     snap.Status.RunID,
		Frame:     snap.Status.Frames,
		Action:    d.Action,
		Level:     h.Level,
		MaxHeat:   snap.Stats.MaxHeat,
		PowerMW:   snap.Stats.PowerMW,
		RodLevel:  snap.Stats.AvgRodLevel,
		Rationale: d.Rationale,
	})
	o.Memory.Save()
	return d, nil
}
