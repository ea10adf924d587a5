package engine

import (
	"fmt"
	"log/slog"

	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Place puts a fresh column of kind k at (x, y), replacing whatever was there.
func (s *Simulation) Place(x, y int, k reactor.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == Running {
		return ErrRunning
	}
	if _, err := s.Grid.Place(x, y, k); err != nil {
		return err
	}
	s.Stats = s.Grid.Summarize()
	return nil
}

// Remove clears the slot at (x, y).
func (s *Simulation) Remove(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == Running {
		return ErrRunning
	}
	if err := s.Grid.Remove(x, y); err != nil {
		return err
	}
	s.Stats = s.Grid.Summarize()
	return nil
}

// Resize rebuilds the grid as w×h with only the center blank.
func (s *Simulation) Resize(w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == Running {
		return ErrRunning
	}
	if w <= 0 || h <= 0 || w > MaxGridSize || h > MaxGridSize {
		return fmt.Errorf("%dx%d: %w", w, h, ErrBadSize)
	}
	s.Grid.Resize(w, h)
	s.Stats = s.Grid.Summarize()
	s.EmitEvent(Event{
		Description: fmt.Sprintf("grid resized to %dx%d", w, h),
		Category:    CategoryLayout,
		Meta:        map[string]any{"width": w, "height": h},
	})
	return nil
}

// ClearColumns empties the grid, keeping its size.
func (s *Simulation) ClearColumns() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == Running {
		return ErrRunning
	}
	s.Grid.Clear()
	s.Stats = s.Grid.Summarize()
	s.EmitEvent(Event{Description: "grid cleared", Category: CategoryLayout})
	return nil
}

// SetFuel swaps the rod in the fuel column at (x, y) for a fresh one.
// Safe while running; takes effect next tick.
func (s *Simulation) SetFuel(x, y int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := fuel.Lookup(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownFuel)
	}
	c, err := s.column(x, y)
	if err != nil {
		return err
	}
	if c.Kind != reactor.KindFuel {
		return fmt.Errorf("fuel on %s: %w", c.Kind, ErrNotApplicable)
	}
	c.Fuel.Load(a)
	return nil
}

// SetTarget commands the manual rod at (x, y) to percent withdrawn.
func (s *Simulation) SetTarget(x, y int, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return err
	}
	if c.Kind != reactor.KindControl {
		return fmt.Errorf("target on %s: %w", c.Kind, ErrNotApplicable)
	}
	c.Control.SetTarget(percent)
	return nil
}

// PullAll commands every manual rod to percent withdrawn. It returns the
// number of rods moved.
func (s *Simulation) PullAll(percent float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	s.Grid.Each(func(c *reactor.Column) {
		if c.Kind == reactor.KindControl {
			c.Control.SetTarget(percent)
			n++
		}
	})
	s.EmitEvent(Event{
		Frame:       s.Frames,
		Description: fmt.Sprintf("all rods to %.0f%%", clampPercent(percent)),
		Category:    CategoryControl,
		Meta:        map[string]any{"rods": n, "percent": clampPercent(percent)},
	})
	return n
}

// AZ5 drives every control rod, manual and automatic, fully in.
func (s *Simulation) AZ5() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	s.Grid.Each(func(c *reactor.Column) {
		switch c.Kind {
		case reactor.KindControl:
			c.Control.Insert()
			n++
		case reactor.KindControlAuto:
			c.Auto.Scram()
			n++
		}
	})
	s.Scrammed = true
	s.EmitEvent(Event{
		Frame:       s.Frames,
		Description: "AZ-5 pressed, all rods inserting",
		Category:    CategoryAlarm,
		Meta:        map[string]any{"rods": n},
	})
	slog.Warn("AZ-5 engaged", "run_id", s.RunID, "frame", s.Frames, "rods", n)
	return n
}

// ToggleModeration flips the moderated flag of the column at (x, y).
func (s *Simulation) ToggleModeration(x, y int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return false, err
	}
	c.Moderated = !c.Moderated
	return c.Moderated, nil
}

// SetModerated sets the moderated flag of the column at (x, y).
func (s *Simulation) SetModerated(x, y int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return err
	}
	c.Moderated = on
	return nil
}

// CycleSteam advances the boiler at (x, y) to its next steam stage.
func (s *Simulation) CycleSteam(x, y int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return 0, err
	}
	if c.Kind != reactor.KindBoiler {
		return 0, fmt.Errorf("steam on %s: %w", c.Kind, ErrNotApplicable)
	}
	return c.Boiler.CycleSteam(), nil
}

// ConfigureAuto sets the heat and level bounds of the auto rod at (x, y).
func (s *Simulation) ConfigureAuto(x, y int, heatLower, heatUpper, levelLower, levelUpper float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return err
	}
	if c.Kind != reactor.KindControlAuto {
		return fmt.Errorf("auto config on %s: %w", c.Kind, ErrNotApplicable)
	}
	c.Auto.Configure(heatLower, heatUpper, levelLower, levelUpper)
	return nil
}

// CycleAutoFunc advances the response curve of the auto rod at (x, y).
func (s *Simulation) CycleAutoFunc(x, y int) (reactor.AutoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return 0, err
	}
	if c.Kind != reactor.KindControlAuto {
		return 0, fmt.Errorf("auto func on %s: %w", c.Kind, ErrNotApplicable)
	}
	return c.Auto.CycleFunc(), nil
}

// RefillCooler tops up the cooler at (x, y) and returns the new reservoir level.
func (s *Simulation) RefillCooler(x, y int, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return 0, err
	}
	if c.Kind != reactor.KindCooler {
		return 0, fmt.Errorf("refill on %s: %w", c.Kind, ErrNotApplicable)
	}
	return c.Cooler.Refill(amount), nil
}

// SetStochastic switches the fuel column at (x, y) between the directional
// and the random-heading flux trace.
func (s *Simulation) SetStochastic(x, y int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return err
	}
	if c.Kind != reactor.KindFuel {
		return fmt.Errorf("stochastic on %s: %w", c.Kind, ErrNotApplicable)
	}
	c.Fuel.Stochastic = on
	return nil
}

// SetDial updates a named tunable, read from the next tick on. It returns
// the normalized value actually stored.
func (s *Simulation) SetDial(name string, value float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Dials.Set(name, value); err != nil {
		return 0, err
	}
	v, _ := s.Dials.Get(name)
	s.EmitEvent(Event{
		Frame:       s.Frames,
		Description: fmt.Sprintf("dial %s set to %g", name, v),
		Category:    CategoryConfig,
		Meta:        map[string]any{"dial": name, "value": v},
	})
	slog.Info("dial set", "name", name, "value", v)
	return v, nil
}

func clampPercent(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
