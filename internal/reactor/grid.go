package reactor

import (
	"errors"
	"fmt"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
)

// DefaultSize is used when a grid is created or resized with a non-positive dimension.
const DefaultSize = 15

// ErrOutOfBounds is returned for coordinates outside the grid.
var ErrOutOfBounds = errors.New("coordinates out of bounds")

// Offset is a cardinal step.
type Offset struct{ DX, DY int }

// Neighbors is the canonical direction order (N, E, S, W) shared by heat
// diffusion and directional flux tracing.
var Neighbors = [4]Offset{
	{0, -1}, // North
	{1, 0},  // East
	{0, 1},  // South
	{-1, 0}, // West
}

// Grid is a W×H row-major array of optional columns.
type Grid struct {
	W     int `json:"width"`
	H     int `json:"height"`
	cells []*Column
}

// NewGrid creates an empty grid with a Blank at the center cell.
func NewGrid(w, h int) *Grid {
	g := &Grid{}
	g.Resize(w, h)
	return g
}

// Resize replaces every slot with an empty grid of the new size. A
// non-positive dimension falls back to DefaultSize.
func (g *Grid) Resize(w, h int) {
	if w <= 0 {
		w = DefaultSize
	}
	if h <= 0 {
		h = DefaultSize
	}
	g.W, g.H = w, h
	g.cells = make([]*Column, w*h)
	cx, cy := w/2, h/2
	g.cells[g.Index(cx, cy)] = NewColumn(KindBlank, cx, cy)
}

// Clear removes every column and restores the center Blank.
func (g *Grid) Clear() { g.Resize(g.W, g.H) }

// Index maps (x, y) to the flat slot index.
func (g *Grid) Index(x, y int) int { return x + g.W*y }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the column at (x, y), or nil for an empty slot or a point off the grid.
func (g *Grid) At(x, y int) *Column {
	if !g.InBounds(x, y) {
		return nil
	}
	return g.cells[g.Index(x, y)]
}

// Place puts a fresh column of kind k at (x, y), replacing whatever was there.
func (g *Grid) Place(x, y int, k Kind) (*Column, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("place %s at (%d,%d): %w", k, x, y, ErrOutOfBounds)
	}
	if k >= kindCount {
		return nil, fmt.Errorf("place at (%d,%d): unknown kind %d", x, y, k)
	}
	c := NewColumn(k, x, y)
	g.cells[g.Index(x, y)] = c
	return c, nil
}

// Remove clears the slot at (x, y).
func (g *Grid) Remove(x, y int) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("remove at (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	g.cells[g.Index(x, y)] = nil
	return nil
}

// Len is the number of slots, W*H.
func (g *Grid) Len() int { return len(g.cells) }

// Count returns the number of occupied slots.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c != nil {
			n++
		}
	}
	return n
}

// Each visits occupied columns in row-major order.
func (g *Grid) Each(fn func(c *Column)) {
	for _, c := range g.cells {
		if c != nil {
			fn(c)
		}
	}
}

// Reset returns every column to its transient-free state.
func (g *Grid) Reset() {
	g.Each(func(c *Column) { c.Reset() })
}

// Update advances one tick. Columns are visited once, in row-major order,
// and mutate their neighbors in place, so a column later in the pass sees
// heat already moved earlier in the same tick. The pass stops at the first
// column to overheat, which is returned; nil means the tick completed.
// rng feeds stochastic fuel; with a nil rng those columns trace directionally.
func (g *Grid) Update(d dials.Dials, rng entropy.Source) *Column {
	for _, c := range g.cells {
		if c == nil {
			continue
		}
		if melted := g.updateColumn(c, d, rng); melted {
			return c
		}
	}
	return nil
}

func (g *Grid) updateColumn(c *Column, d dials.Dials, rng entropy.Source) bool {
	switch c.Kind {
	case KindFuel:
		return g.updateFuel(c, d, rng)
	case KindControl:
		c.Control.step(d)
		g.base(c, d)
	case KindControlAuto:
		c.Auto.retarget(c.Heat)
		c.Auto.step(d)
		g.base(c, d)
	case KindBoiler:
		c.Boiler.update(c, d)
		g.base(c, d)
		c.Boiler.turbine()
	case KindCooler:
		c.Cooler.update(c)
		g.base(c, d)
	case KindBlank, KindModerator, KindAbsorber, KindReflector,
		KindOutgasser, KindStorage, KindHeatex:
		g.base(c, d)
	}
	return c.Overheated() && !d.DisableMeltdowns
}

// base runs the behavior shared by every column: diffusion, then passive cooling.
func (g *Grid) base(c *Column, d dials.Dials) {
	g.diffuse(c, d.ColumnHeatFlow)
	c.coolPassively(d.PassiveCooling)
}

// diffuse moves c and its cardinal neighbors a step toward their mean heat.
func (g *Grid) diffuse(c *Column, step float64) {
	var members [5]*Column
	members[0] = c
	n := 1
	total := c.Heat
	for _, o := range Neighbors {
		if nb := g.At(c.X+o.DX, c.Y+o.DY); nb != nil {
			members[n] = nb
			n++
			total += nb.Heat
		}
	}
	if n < 2 {
		return
	}
	avg := total / float64(n)
	for _, m := range members[:n] {
		m.Heat += (avg - m.Heat) * step
	}
}

func (g *Grid) updateFuel(c *Column, d dials.Dials, rng entropy.Source) bool {
	f := c.Fuel
	f.Radioactivity = 0

	if !f.Loaded() {
		f.Rod.CoreHeat, f.Rod.SkinHeat = Ambient, Ambient
		f.FluxFast, f.FluxSlow = 0, 0
		g.base(c, d)
		return c.Overheated() && !d.DisableMeltdowns
	}

	rod := f.Rod
	out := rod.Burn(rod.FluxFor(f.FluxFast, f.FluxSlow), d)
	rod.UpdateHeat(1, d)
	c.Heat += rod.ProvideHeat(c.Heat, 1, d)
	g.base(c, d)

	if c.Overheated() && !d.DisableMeltdowns {
		return true
	}

	stream := rod.Out
	if c.Moderated {
		stream = fuel.Slow
	}
	f.FluxFast, f.FluxSlow = 0, 0
	f.Receive(stream, out)

	var tr Tracer = Directional{}
	if f.Stochastic && rng != nil {
		tr = Stochastic{Rand: rng}
	}
	tr.Trace(g, c, rod.Out, out, d)
	return false
}
