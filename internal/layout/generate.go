// Package layout generates starting reactor cores from layered simplex noise.
// The lattice is fixed (fuel channels on one checkerboard colour, rods and
// boilers on the other, reflectors around the edge); noise decides which fuel
// goes where and which channels are moderated.
package layout

import (
	"fmt"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Config holds core generation parameters.
type Config struct {
	Width     int
	Height    int
	Seed      int64    // 0 = random
	Fuels     []string // Archetypes to choose from, coolest noise first
	RodStride int      // Manual control rod every RodStride columns on rod rows
	AutoRods  bool     // Every other rod row uses automatic rods
	Moderated float64  // Noise threshold above which a fuel channel is moderated (0-1)
	Coolers   bool     // Put coolers in the corners

	// Curve for automatic rods: heat lower, heat upper, level lower, level upper.
	AutoBounds [4]float64
}

// DefaultConfig returns a small low-enrichment core.
func DefaultConfig() Config {
	return Config{
		Width:     reactor.DefaultSize,
		Height:    reactor.DefaultSize,
		Fuels:     []string{"ueu", "meu", "thmeu", "lep"},
		RodStride: 4,
		AutoRods:  true,
		Moderated: 0.6,
		Coolers:   true,

		AutoBounds: [4]float64{300, 900, 100, 0},
	}
}

// Placement is one column of a generated core.
type Placement struct {
	X         int          `json:"x"`
	Y         int          `json:"y"`
	Kind      reactor.Kind `json:"kind"`
	Fuel      string       `json:"fuel,omitempty"`
	Moderated bool         `json:"moderated,omitempty"`
	Bounds    [4]float64   `json:"bounds,omitzero"` // Automatic rods only
}

// Generate returns the placements for a cfg.Width×cfg.Height core in
// row-major order. The same non-zero seed always yields the same core.
func Generate(cfg Config) ([]Placement, error) {
	if cfg.Width < 3 || cfg.Height < 3 {
		return nil, fmt.Errorf("core %dx%d too small", cfg.Width, cfg.Height)
	}
	if len(cfg.Fuels) == 0 {
		cfg.Fuels = DefaultConfig().Fuels
	}
	for _, name := range cfg.Fuels {
		if _, ok := fuel.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown fuel %q", name)
		}
	}
	if cfg.RodStride < 2 {
		cfg.RodStride = 2
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int64()
	}

	// Independent layers for fuel choice and moderation.
	fuelNoise := opensimplex.NewNormalized(seed)
	modNoise := opensimplex.NewNormalized(seed + 1)

	w, h := cfg.Width, cfg.Height
	out := make([]Placement, 0, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := Placement{X: x, Y: y}
			fx, fy := float64(x), float64(y)
			corner := (x == 0 || x == w-1) && (y == 0 || y == h-1)
			edge := x == 0 || y == 0 || x == w-1 || y == h-1

			switch {
			case corner && cfg.Coolers:
				p.Kind = reactor.KindCooler
			case edge:
				p.Kind = reactor.KindReflector
			case (x+y)%2 == 0:
				p.Kind = reactor.KindFuel
				n := octaveNoise(fuelNoise, fx, fy, 3, 0.15, 0.5)
				p.Fuel = cfg.Fuels[pick(n, len(cfg.Fuels))]
				p.Moderated = octaveNoise(modNoise, fx, fy, 2, 0.2, 0.5) > cfg.Moderated
			case y%2 == 1 && x%cfg.RodStride == 0:
				p.Kind = reactor.KindControl
				if cfg.AutoRods && (y/2)%2 == 1 {
					p.Kind = reactor.KindControlAuto
					p.Bounds = cfg.AutoBounds
				}
			default:
				p.Kind = reactor.KindBoiler
			}
			out = append(out, p)
		}
	}

	return out, nil
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// pick maps normalized noise onto [0, n).
func pick(v float64, n int) int {
	i := int(v * float64(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Counts returns how many placements of each kind a core has.
func Counts(ps []Placement) map[reactor.Kind]int {
	counts := make(map[reactor.Kind]int)
	for _, p := range ps {
		counts[p.Kind]++
	}
	return counts
}
