package reactor

import (
	"math"
	"testing"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
)

// Withdrawing from full to zero produces a transient surge that dies out
// when the rod arrives.
func TestServoSurge(t *testing.T) {
	s := &Servo{Level: 1, TargetLevel: 0, StartingLevel: 1}
	d := dials.Default()

	sawSurge := false
	prev := s.Level
	for i := 0; i < 1000 && s.Level > 0; i++ {
		s.step(d)
		if s.Level > prev {
			t.Fatalf("step %d: level rose from %v to %v", i, prev, s.Level)
		}
		prev = s.Level
		if s.Level <= 0.5 && s.Mult > s.Level {
			sawSurge = true
		}
	}
	if !sawSurge {
		t.Fatal("no surge observed during withdrawal")
	}
	if s.Level != 0 {
		t.Fatalf("level = %v, want 0", s.Level)
	}
	s.step(d)
	if s.Mult != s.Level {
		t.Fatalf("surge should vanish at target: mult=%v level=%v", s.Mult, s.Level)
	}
}

func TestServoNoOvershoot(t *testing.T) {
	s := &Servo{}
	s.SetTarget(0.1) // 0.001 of stroke, smaller than one step
	s.step(dials.Default())
	if s.Level != 0.001 {
		t.Fatalf("level = %v, want clamp at target 0.001", s.Level)
	}
}

func TestServoTargetNormalization(t *testing.T) {
	s := &Servo{Level: 0.4}
	s.SetTarget(math.NaN())
	if s.TargetLevel != 0 || s.StartingLevel != 0.4 {
		t.Fatalf("NaN target: target=%v start=%v", s.TargetLevel, s.StartingLevel)
	}
	s.SetTarget(250)
	if s.TargetLevel != 1 {
		t.Fatalf("target = %v, want 1", s.TargetLevel)
	}
	s.SetTarget(-20)
	if s.TargetLevel != 0 {
		t.Fatalf("target = %v, want 0", s.TargetLevel)
	}
}

func TestControlSpeedDial(t *testing.T) {
	s := &Servo{}
	s.SetTarget(100)
	d := dials.Default()
	d.ControlSpeed = 10
	s.step(d)
	if math.Abs(s.Level-ServoSpeed*10) > 1e-12 {
		t.Fatalf("level = %v, want %v", s.Level, ServoSpeed*10)
	}
}

func TestAutoControlInterpolation(t *testing.T) {
	a := &AutoControl{}
	a.Configure(100, 500, 100, 0)

	cases := []struct {
		fn   AutoFunc
		heat float64
		want float64
	}{
		{AutoLinear, 50, 100},
		{AutoLinear, 900, 0},
		{AutoLinear, 300, 50},
		{AutoQuadUp, 300, 75},    // (0.5)² * (0-100) + 100
		{AutoQuadDown, 300, 25},  // (0.5)² * (100-0) + 0
		{AutoQuadDown, 100, 100}, // lower bound
	}
	for _, c := range cases {
		a.Func = c.fn
		if got := a.FauxLevel(c.heat); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%s at %v = %v, want %v", c.fn, c.heat, got, c.want)
		}
	}
}

func TestAutoControlDegenerateRange(t *testing.T) {
	a := &AutoControl{}
	a.Configure(300, 300, 40, 80)
	if got := a.FauxLevel(300); got != 40 {
		t.Fatalf("equal bounds level = %v, want 40", got)
	}
	a.retarget(300)
	if math.IsNaN(a.TargetLevel) || math.Abs(a.TargetLevel-0.4) > 1e-12 {
		t.Fatalf("target = %v, want 0.4", a.TargetLevel)
	}
}

func TestAutoControlConfigureClamps(t *testing.T) {
	a := &AutoControl{}
	a.Configure(-5, 20000, 150, math.NaN())
	if a.HeatLower != 0 || a.HeatUpper != MaxAutoHeat || a.LevelLower != 100 || a.LevelUpper != 0 {
		t.Fatalf("configure clamps: %+v", a)
	}
}

func TestAutoControlCycle(t *testing.T) {
	a := &AutoControl{}
	got := []AutoFunc{a.CycleFunc(), a.CycleFunc(), a.CycleFunc()}
	want := []AutoFunc{AutoQuadUp, AutoQuadDown, AutoLinear}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycle %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAutoControlFollowsHeat(t *testing.T) {
	g := NewGrid(1, 1)
	c := mustPlace(t, g, 0, 0, KindControlAuto)
	c.Auto.Configure(0, 1000, 0, 100)
	c.Heat = 1000
	g.Update(dials.Default(), nil)
	if c.Auto.TargetLevel != 1 {
		t.Fatalf("target = %v, want 1", c.Auto.TargetLevel)
	}
	if c.Auto.Level != ServoSpeed {
		t.Fatalf("level = %v, want one step", c.Auto.Level)
	}
}

func TestAutoControlScramAndReset(t *testing.T) {
	g := NewGrid(1, 1)
	c := mustPlace(t, g, 0, 0, KindControlAuto)
	c.Auto.Configure(0, 1000, 100, 100)
	for i := 0; i < 20; i++ {
		g.Update(dials.Default(), nil)
	}
	c.Auto.Scram()
	g.Update(dials.Default(), nil)
	if c.Auto.TargetLevel != 0 {
		t.Fatalf("scrammed target = %v, want 0", c.Auto.TargetLevel)
	}

	c.Reset()
	a := c.Auto
	if a.Level != 0 || a.TargetLevel != 0 || a.Mult != 0 || a.StartingLevel != 0 || a.Scrammed {
		t.Fatalf("transient state survived reset: %+v", a.Servo)
	}
	if a.LevelLower != 100 || a.LevelUpper != 100 || a.HeatUpper != 1000 {
		t.Fatalf("reset changed the configured curve: %+v", a)
	}
}
