package layout

import (
	"fmt"
	"log/slog"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Apply rebuilds sim as a w×h grid holding ps. The simulation must be idle.
func Apply(sim *engine.Simulation, w, h int, ps []Placement) error {
	if err := sim.Resize(w, h); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	for _, p := range ps {
		if err := sim.Place(p.X, p.Y, p.Kind); err != nil {
			return fmt.Errorf("place %s: %w", p.Kind, err)
		}
		if p.Kind == reactor.KindFuel && p.Fuel != "" {
			if err := sim.SetFuel(p.X, p.Y, p.Fuel); err != nil {
				return err
			}
		}
		if p.Kind == reactor.KindControlAuto {
			b := p.Bounds
			if err := sim.ConfigureAuto(p.X, p.Y, b[0], b[1], b[2], b[3]); err != nil {
				return err
			}
		}
		if p.Moderated {
			if err := sim.SetModerated(p.X, p.Y, true); err != nil {
				return err
			}
		}
	}

	counts := Counts(ps)
	slog.Info("core layout applied",
		"width", w, "height", h,
		"fuel", counts[reactor.KindFuel],
		"control", counts[reactor.KindControl]+counts[reactor.KindControlAuto],
		"boiler", counts[reactor.KindBoiler],
	)
	return nil
}

// Build generates a core from cfg and applies it to sim.
func Build(sim *engine.Simulation, cfg Config) error {
	ps, err := Generate(cfg)
	if err != nil {
		return err
	}
	return Apply(sim, cfg.Width, cfg.Height, ps)
}
