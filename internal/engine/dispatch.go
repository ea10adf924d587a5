package engine

import (
	"errors"
	"fmt"

	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// ErrUnknownCommand is returned by Apply for an unrecognized command type.
var ErrUnknownCommand = errors.New("unknown command")

// Command is the wire form of an operator action.
type Command struct {
	Type   string     `json:"type"`
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
	Kind   string     `json:"kind,omitempty"`
	Fuel   string     `json:"fuel,omitempty"`
	Name   string     `json:"name,omitempty"`
	Value  float64    `json:"value,omitempty"`
	On     bool       `json:"on,omitempty"`
	Bounds [4]float64 `json:"bounds,omitempty"` // heat lower, heat upper, level lower, level upper
}

// CommandTypes lists the accepted Command.Type values.
var CommandTypes = []string{
	"run", "stop", "reset",
	"place", "remove", "resize", "clear",
	"fuel", "target", "pull_all", "az5",
	"moderate", "steam", "auto_config", "auto_func",
	"refill", "stochastic", "dial",
}

// Apply executes c and returns a command-specific result.
func (s *Simulation) Apply(c Command) (any, error) {
	switch c.Type {
	case "run":
		return nil, s.Run()
	case "stop":
		s.Stop()
		return nil, nil
	case "reset":
		s.Reset()
		return nil, nil
	case "place":
		k, ok := reactor.ParseKind(c.Kind)
		if !ok {
			return nil, fmt.Errorf("%q: %w", c.Kind, ErrUnknownKind)
		}
		if err := s.Place(c.X, c.Y, k); err != nil {
			return nil, err
		}
		if k == reactor.KindFuel && c.Fuel != "" {
			return nil, s.SetFuel(c.X, c.Y, c.Fuel)
		}
		return nil, nil
	case "remove":
		return nil, s.Remove(c.X, c.Y)
	case "resize":
		return nil, s.Resize(c.Width, c.Height)
	case "clear":
		return nil, s.ClearColumns()
	case "fuel":
		return nil, s.SetFuel(c.X, c.Y, c.Fuel)
	case "target":
		return nil, s.SetTarget(c.X, c.Y, c.Value)
	case "pull_all":
		return s.PullAll(c.Value), nil
	case "az5":
		return s.AZ5(), nil
	case "moderate":
		return s.ToggleModeration(c.X, c.Y)
	case "steam":
		n, err := s.CycleSteam(c.X, c.Y)
		if err != nil {
			return nil, err
		}
		return reactor.SteamStages[n].Name, nil
	case "auto_config":
		b := c.Bounds
		return nil, s.ConfigureAuto(c.X, c.Y, b[0], b[1], b[2], b[3])
	case "auto_func":
		f, err := s.CycleAutoFunc(c.X, c.Y)
		if err != nil {
			return nil, err
		}
		return f.String(), nil
	case "refill":
		return s.RefillCooler(c.X, c.Y, c.Value)
	case "stochastic":
		return nil, s.SetStochastic(c.X, c.Y, c.On)
	case "dial":
		return s.SetDial(c.Name, c.Value)
	}
	return nil, fmt.Errorf("%q: %w", c.Type, ErrUnknownCommand)
}
