package reactor

import (
	"math"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
)

// LeakFactor is the share of escaping flux counted as leaked radioactivity.
const LeakFactor = 0.05

// Tracer spreads a fuel column's emitted flux through the grid.
type Tracer interface {
	Trace(g *Grid, src *Column, stream fuel.NType, flux float64, d dials.Dials)
}

// Directional traces one ray along each cardinal direction.
type Directional struct{}

// Trace walks up to d.FluxRange cells in each of the four directions.
func (Directional) Trace(g *Grid, src *Column, stream fuel.NType, flux float64, d dials.Dials) {
	for _, o := range Neighbors {
		r := ray{g: g, src: src, stream: stream, d: d}
		f := flux
		for i := 1; i <= d.FluxRange; i++ {
			f = r.interact(src.X+o.DX*i, src.Y+o.DY*i, f)
			if f <= 0 {
				break
			}
		}
	}
}

// Stochastic traces d.ReasimCount rays at random headings. The heading is
// rotated cumulatively, so each ray turns from the previous one. Rand must
// be set.
type Stochastic struct {
	Rand entropy.Source
}

// Trace emits the random rays from src.
func (s Stochastic) Trace(g *Grid, src *Column, stream fuel.NType, flux float64, d dials.Dials) {
	rng := s.Rand
	dx, dz := 1.0, 0.0
	for i := 0; i < d.ReasimCount; i++ {
		angle := 2 * math.Pi * rng.Float64()
		sin, cos := math.Sincos(angle)
		dx, dz = dx*cos-dz*sin, dx*sin+dz*cos

		r := ray{g: g, src: src, stream: stream, d: d}
		f := flux
		for j := 1; j <= d.FluxRange; j++ {
			x := int(math.Floor(dx * float64(j)))
			z := int(math.Floor(dz * float64(j)))
			lastX := int(math.Floor(dx * float64(j-1)))
			lastZ := int(math.Floor(dz * float64(j-1)))
			if x == 0 && z == 0 {
				continue
			}
			if x == lastX && z == lastZ {
				continue
			}
			f = r.interact(src.X+x, src.Y+z, f)
			if f <= 0 {
				break
			}
		}
	}
}

// ray is the mutable state of one trace: its stream can be slowed on the way.
type ray struct {
	g      *Grid
	src    *Column
	stream fuel.NType
	d      dials.Dials
}

// interact applies the column at (x, y) to the ray and returns the flux that
// continues. Zero ends the ray.
func (r *ray) interact(x, y int, flux float64) float64 {
	c := r.g.At(x, y)
	if c == nil {
		r.leak(flux)
		return 0
	}
	if c.Moderated {
		r.stream = fuel.Slow
	}
	switch c.Kind {
	case KindFuel:
		if !c.Fuel.Loaded() {
			return flux
		}
		c.Fuel.Receive(r.stream, flux)
		return 0
	case KindControl, KindControlAuto:
		mult := c.Servo().Mult
		if mult == 0 {
			return 0
		}
		return flux * mult
	case KindModerator:
		r.stream = fuel.Slow
		return flux
	case KindReflector:
		stream := r.stream
		if r.src.Moderated {
			stream = fuel.Slow
		}
		r.src.Fuel.Receive(stream, flux)
		return 0
	case KindAbsorber:
		return 0
	case KindBlank, KindBoiler, KindOutgasser, KindStorage, KindCooler, KindHeatex:
		return flux
	}
	return flux
}

// leak records flux escaping the core on the source column. Deeper columns
// (ColumnHeight) let more of it out.
func (r *ray) leak(flux float64) {
	h := r.d.ColumnHeight
	share := LeakFactor
	if h > 0 {
		share = LeakFactor * (math.Floor(h) + 1) / h
	}
	r.src.Fuel.Radioactivity += flux * share
}
