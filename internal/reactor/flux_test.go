package reactor

import (
	"math"
	"testing"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
)

// An absorber between a source and open space stops the ray, so no flux
// leaks past it.
func TestAbsorberStopsLeak(t *testing.T) {
	build := func(shielded bool) *Column {
		g := NewGrid(3, 3)
		src := mustPlace(t, g, 1, 1, KindFuel)
		loadFuel(t, src, "po210be")
		mustPlace(t, g, 1, 0, KindAbsorber)
		mustPlace(t, g, 1, 2, KindAbsorber)
		mustPlace(t, g, 0, 1, KindAbsorber)
		if shielded {
			mustPlace(t, g, 2, 1, KindAbsorber)
		}
		g.Update(dials.Default(), nil)
		return src
	}

	if got := build(true).Fuel.Radioactivity; got != 0 {
		t.Fatalf("radioactivity behind absorbers = %v, want 0", got)
	}
	// 50 flux escaping east: 50 * 0.05 * (4+1)/4.
	if got := build(false).Fuel.Radioactivity; math.Abs(got-3.125) > 1e-9 {
		t.Fatalf("open side leak = %v, want 3.125", got)
	}
}

func traceLine(t *testing.T, kinds ...Kind) (*Grid, *Column) {
	t.Helper()
	g := NewGrid(len(kinds)+1, 1)
	src := mustPlace(t, g, 0, 0, KindFuel)
	loadFuel(t, src, "mep")
	for i, k := range kinds {
		mustPlace(t, g, i+1, 0, k)
	}
	return g, src
}

func TestModeratorSlowsStream(t *testing.T) {
	g, src := traceLine(t, KindModerator, KindFuel)
	dst := g.At(2, 0)
	loadFuel(t, dst, "ueu")

	Directional{}.Trace(g, src, fuel.Fast, 10, dials.Default())
	if dst.Fuel.FluxSlow != 10 || dst.Fuel.FluxFast != 0 {
		t.Fatalf("dst flux fast/slow = %v/%v, want 0/10", dst.Fuel.FluxFast, dst.Fuel.FluxSlow)
	}
}

func TestModeratedColumnSlowsStream(t *testing.T) {
	g, src := traceLine(t, KindBoiler, KindFuel)
	g.At(1, 0).Moderated = true
	dst := g.At(2, 0)
	loadFuel(t, dst, "ueu")

	Directional{}.Trace(g, src, fuel.Fast, 10, dials.Default())
	if dst.Fuel.FluxSlow != 10 {
		t.Fatalf("dst slow flux = %v, want 10", dst.Fuel.FluxSlow)
	}
}

func TestControlAttenuates(t *testing.T) {
	g, src := traceLine(t, KindControl, KindFuel)
	rod := g.At(1, 0).Control
	dst := g.At(2, 0)
	loadFuel(t, dst, "ueu")

	d := dials.Default()
	Directional{}.Trace(g, src, fuel.Fast, 10, d)
	if dst.Fuel.FluxFast != 0 {
		t.Fatalf("fully inserted rod let %v through", dst.Fuel.FluxFast)
	}

	rod.Mult = 0.5
	Directional{}.Trace(g, src, fuel.Fast, 10, d)
	if dst.Fuel.FluxFast != 5 {
		t.Fatalf("half withdrawn rod passed %v, want 5", dst.Fuel.FluxFast)
	}
}

func TestReflectorReturnsFlux(t *testing.T) {
	g, src := traceLine(t, KindReflector)
	src.Fuel.FluxFast, src.Fuel.FluxSlow = 0, 0

	Directional{}.Trace(g, src, fuel.Fast, 10, dials.Default())
	if src.Fuel.FluxFast != 10 {
		t.Fatalf("reflected fast flux = %v, want 10", src.Fuel.FluxFast)
	}

	src.Moderated = true
	Directional{}.Trace(g, src, fuel.Fast, 10, dials.Default())
	if src.Fuel.FluxSlow != 10 {
		t.Fatalf("moderated source got slow flux %v, want 10", src.Fuel.FluxSlow)
	}
}

func TestEmptyFuelPassesFlux(t *testing.T) {
	g, src := traceLine(t, KindFuel, KindFuel)
	dst := g.At(2, 0)
	loadFuel(t, dst, "ueu")

	Directional{}.Trace(g, src, fuel.Fast, 10, dials.Default())
	if dst.Fuel.FluxFast != 10 {
		t.Fatalf("flux through empty rod = %v, want 10", dst.Fuel.FluxFast)
	}
	if g.At(1, 0).Fuel.FluxFast != 0 {
		t.Fatal("empty rod should not absorb flux")
	}
}

func TestFluxRangeLimit(t *testing.T) {
	g, src := traceLine(t, KindBlank, KindBlank, KindFuel)
	dst := g.At(3, 0)
	loadFuel(t, dst, "ueu")

	d := dials.Default()
	d.FluxRange = 2
	Directional{}.Trace(g, src, fuel.Fast, 10, d)
	if dst.Fuel.FluxFast != 0 {
		t.Fatalf("ray reached past flux range: %v", dst.Fuel.FluxFast)
	}
	d.FluxRange = 3
	Directional{}.Trace(g, src, fuel.Fast, 10, d)
	if dst.Fuel.FluxFast != 10 {
		t.Fatalf("ray within range delivered %v, want 10", dst.Fuel.FluxFast)
	}
}

func TestStochasticHeadingEast(t *testing.T) {
	g, src := traceLine(t, KindBlank, KindFuel)
	dst := g.At(2, 0)
	loadFuel(t, dst, "ueu")

	d := dials.Default()
	d.ReasimCount = 1
	Stochastic{Rand: entropy.NewFixed(0)}.Trace(g, src, fuel.Fast, 10, d)
	if dst.Fuel.FluxFast != 10 {
		t.Fatalf("east ray delivered %v, want 10", dst.Fuel.FluxFast)
	}
}

func TestStochasticDeterministic(t *testing.T) {
	run := func(seed int64) (float64, float64) {
		g := NewGrid(9, 9)
		src := mustPlace(t, g, 4, 4, KindFuel)
		loadFuel(t, src, "mep")
		src.Fuel.Stochastic = true
		for _, p := range [][2]int{{2, 2}, {6, 2}, {2, 6}, {6, 6}, {4, 1}, {1, 4}} {
			loadFuel(t, mustPlace(t, g, p[0], p[1], KindFuel), "ueu")
		}
		rng := entropy.NewSeeded(seed)
		for i := 0; i < 10; i++ {
			g.Update(dials.Default(), rng)
		}
		var burned float64
		g.Each(func(c *Column) {
			if c.Kind == KindFuel && c != src {
				burned += c.Fuel.Rod.DefaultYield - c.Fuel.Rod.Yield
			}
		})
		return burned, src.Fuel.Radioactivity
	}

	b1, r1 := run(99)
	b2, r2 := run(99)
	if b1 != b2 || r1 != r2 {
		t.Fatalf("same seed diverged: burned %v vs %v, rads %v vs %v", b1, b2, r1, r2)
	}
}

func TestStochasticWithoutSourceTracesDirectionally(t *testing.T) {
	run := func(stochastic bool) float64 {
		g := NewGrid(9, 9)
		src := mustPlace(t, g, 4, 4, KindFuel)
		loadFuel(t, src, "mep")
		src.Fuel.Stochastic = stochastic
		for _, p := range [][2]int{{4, 2}, {6, 4}, {4, 6}, {2, 4}} {
			loadFuel(t, mustPlace(t, g, p[0], p[1], KindFuel), "ueu")
		}
		for i := 0; i < 10; i++ {
			g.Update(dials.Default(), nil)
		}
		var burned float64
		g.Each(func(c *Column) {
			if c.Kind == KindFuel && c != src {
				burned += c.Fuel.Rod.DefaultYield - c.Fuel.Rod.Yield
			}
		})
		return burned
	}

	if got, want := run(true), run(false); got != want {
		t.Fatalf("stochastic column with no source burned %v, directional %v", got, want)
	}
}
