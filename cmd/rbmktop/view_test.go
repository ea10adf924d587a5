package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

func TestGlyphsCoverEveryKind(t *testing.T) {
	seen := map[rune]reactor.Kind{}
	for _, k := range reactor.Kinds() {
		g := glyph(k)
		if g == '?' {
			t.Fatalf("no glyph for %s", k)
		}
		if other, dup := seen[g]; dup {
			t.Fatalf("%s and %s share glyph %q", k, other, g)
		}
		seen[g] = k
	}
}

func TestHeatColorEnds(t *testing.T) {
	r, g, b := heatColor(reactor.Ambient).RGB()
	if r != 0 || b == 0 {
		t.Fatalf("ambient color = %d,%d,%d, want blue", r, g, b)
	}
	r, g, _ = heatColor(reactor.DefaultMaxHeat * 2).RGB()
	if r != 255 || g != 0 {
		t.Fatalf("overheat color = %d,%d, want red", r, g)
	}
}

func TestDrawGrid(t *testing.T) {
	sim := engine.NewSimulation(4, 3, dials.Default(), entropy.NewSeeded(1))
	if err := sim.Place(1, 0, reactor.KindBoiler); err != nil {
		t.Fatal(err)
	}
	if err := sim.Place(3, 2, reactor.KindControl); err != nil {
		t.Fatal(err)
	}

	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(100, 20)

	v := &view{sim: sim}
	v.draw(screen)

	if r, _, _, _ := screen.GetContent(1*cellWidth, 0); r != 'B' {
		t.Fatalf("boiler glyph = %q", r)
	}
	if r, _, _, _ := screen.GetContent(3*cellWidth, 2); r != 'C' {
		t.Fatalf("control glyph = %q", r)
	}
	if r, _, _, _ := screen.GetContent(3*cellWidth+1, 2); r != '0' {
		t.Fatalf("inserted rod level mark = %q", r)
	}

	var status strings.Builder
	for x := 0; x < 20; x++ {
		r, _, _, _ := screen.GetContent(x, 4)
		status.WriteRune(r)
	}
	if !strings.HasPrefix(status.String(), "idle") {
		t.Fatalf("status line = %q", status.String())
	}
}

func TestKeysDriveSimulation(t *testing.T) {
	sim := engine.NewSimulation(3, 3, dials.Default(), entropy.NewSeeded(1))
	v := &view{sim: sim, cx: 1, cy: 1}

	v.handleRune(' ')
	if sim.Status().State != engine.Running {
		t.Fatal("space did not start the reactor")
	}
	v.handleRune('a')
	if !sim.Status().AZ5 {
		t.Fatal("a did not engage AZ-5")
	}
	v.handleRune('s')
	if v.note == "" {
		t.Fatal("cycling steam on a blank should report an error")
	}
	v.handleKey(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if v.cx != 2 {
		t.Fatalf("cursor x = %d, want 2", v.cx)
	}
	v.handleKey(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if v.cx != 2 {
		t.Fatalf("cursor left the grid: x = %d", v.cx)
	}
	if !v.handleRune('q') {
		t.Fatal("q should quit")
	}
}
