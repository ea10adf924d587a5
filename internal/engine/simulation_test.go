package engine

import (
	"errors"
	"testing"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

func newTestSim(t *testing.T, w, h int) *Simulation {
	t.Helper()
	return NewSimulation(w, h, dials.Default(), entropy.NewSeeded(7))
}

func TestRunStopStateMachine(t *testing.T) {
	s := newTestSim(t, 5, 5)
	if s.Tick() {
		t.Fatal("idle simulation ticked")
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.State != Running || s.RunID == "" {
		t.Fatalf("state=%s run_id=%q", s.State, s.RunID)
	}
	first := s.RunID

	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if s.Frames != 3 {
		t.Fatalf("frames = %d, want 3", s.Frames)
	}

	s.Stop()
	if s.State != Idle {
		t.Fatalf("state after stop = %s", s.State)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if s.Frames != 0 || s.RunID == first {
		t.Fatalf("rerun kept frames=%d or run id", s.Frames)
	}
}

func TestMeltdownLatchesExploded(t *testing.T) {
	s := newTestSim(t, 3, 3)
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	s.Grid.At(1, 1).Heat = 5000
	s.Tick()

	if s.State != Idle || !s.Exploded {
		t.Fatalf("after meltdown state=%s exploded=%v", s.State, s.Exploded)
	}
	last := s.Events[len(s.Events)-1]
	if last.Category != CategoryAlarm || last.Meta["x"] != 1 {
		t.Fatalf("last event = %+v", last)
	}
	if err := s.Run(); !errors.Is(err, ErrExploded) {
		t.Fatalf("run after meltdown err = %v, want ErrExploded", err)
	}

	s.Reset()
	if s.Exploded || s.Grid.At(1, 1).Heat != reactor.Ambient {
		t.Fatalf("reset left exploded=%v heat=%v", s.Exploded, s.Grid.At(1, 1).Heat)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run after reset: %v", err)
	}
}

func TestPlacementRefusedWhileRunning(t *testing.T) {
	s := newTestSim(t, 5, 5)
	if err := s.Place(0, 0, reactor.KindFuel); err != nil {
		t.Fatal(err)
	}
	if err := s.Place(1, 0, reactor.KindControl); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}

	if err := s.Place(2, 2, reactor.KindBoiler); !errors.Is(err, ErrRunning) {
		t.Fatalf("place while running err = %v", err)
	}
	if err := s.Remove(0, 0); !errors.Is(err, ErrRunning) {
		t.Fatalf("remove while running err = %v", err)
	}
	if err := s.Resize(3, 3); !errors.Is(err, ErrRunning) {
		t.Fatalf("resize while running err = %v", err)
	}

	// Always-safe setters still work.
	if err := s.SetFuel(0, 0, "meu"); err != nil {
		t.Fatalf("fuel swap while running: %v", err)
	}
	if err := s.SetTarget(1, 0, 40); err != nil {
		t.Fatalf("target while running: %v", err)
	}
	if got := s.Grid.At(1, 0).Control.TargetLevel; got != 0.4 {
		t.Fatalf("target level = %v, want 0.4", got)
	}
}

func TestCommandErrors(t *testing.T) {
	s := newTestSim(t, 3, 3)
	if err := s.Place(0, 0, reactor.KindBoiler); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"target on boiler", s.SetTarget(0, 0, 50), ErrNotApplicable},
		{"out of bounds", s.SetTarget(9, 9, 50), ErrOutOfBounds},
		{"empty slot", s.SetTarget(2, 2, 50), ErrNoColumn},
		{"unknown fuel", s.SetFuel(0, 0, "unobtainium"), ErrUnknownFuel},
		{"bad size", s.Resize(0, 4), ErrBadSize},
		{"too big", s.Resize(MaxGridSize+1, 4), ErrBadSize},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Errorf("%s: err = %v, want %v", c.name, c.err, c.want)
		}
	}
	if _, err := s.SetDial("warp_factor", 9); !errors.Is(err, ErrUnknownDial) {
		t.Errorf("unknown dial err = %v", err)
	}
	if _, err := s.CycleSteam(1, 1); !errors.Is(err, ErrNotApplicable) {
		t.Errorf("steam on blank err = %v", err)
	}
}

func TestSetDialNormalizes(t *testing.T) {
	s := newTestSim(t, 3, 3)
	v, err := s.SetDial("flux_range", 2.9)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 || s.Dials.FluxRange != 2 {
		t.Fatalf("flux range = %v (stored %v), want 2", v, s.Dials.FluxRange)
	}
}

func TestAZ5InsertsAllRods(t *testing.T) {
	s := newTestSim(t, 3, 1)
	for x, k := range []reactor.Kind{reactor.KindControl, reactor.KindControlAuto, reactor.KindControl} {
		if err := s.Place(x, 0, k); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.PullAll(100); n != 2 {
		t.Fatalf("pull all moved %d rods, want 2", n)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	if n := s.AZ5(); n != 3 {
		t.Fatalf("AZ-5 moved %d rods, want 3", n)
	}
	if !s.Scrammed {
		t.Fatal("AZ5 flag not set")
	}
	for i := 0; i < 500; i++ {
		s.Tick()
	}
	s.Grid.Each(func(c *reactor.Column) {
		if sv := c.Servo(); sv != nil && sv.Level != 0 {
			t.Fatalf("rod at %d level = %v after AZ-5", c.X, sv.Level)
		}
	})
}

func TestAZ5KeepsAutoConfiguration(t *testing.T) {
	s := newTestSim(t, 3, 1)
	if err := s.Place(0, 0, reactor.KindControlAuto); err != nil {
		t.Fatal(err)
	}
	if err := s.ConfigureAuto(0, 0, 0, 1000, 100, 100); err != nil {
		t.Fatal(err)
	}
	auto := s.Grid.At(0, 0).Auto

	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	s.AZ5()
	for i := 0; i < 100; i++ {
		s.Tick()
	}
	if auto.Level != 0 {
		t.Fatalf("auto rod level = %v while scrammed, want 0", auto.Level)
	}

	s.Reset()
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	if auto.LevelLower != 100 || auto.LevelUpper != 100 {
		t.Fatalf("auto bounds = %v/%v after reset, want 100/100", auto.LevelLower, auto.LevelUpper)
	}
	if auto.Scrammed || auto.Level <= 0 {
		t.Fatalf("auto rod did not withdraw after reset: scrammed=%v level=%v", auto.Scrammed, auto.Level)
	}
}

func TestApplyDispatch(t *testing.T) {
	s := newTestSim(t, 4, 4)
	if _, err := s.Apply(Command{Type: "place", X: 0, Y: 0, Kind: "fuel", Fuel: "ueu"}); err != nil {
		t.Fatal(err)
	}
	cell, err := s.Cell(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Kind != reactor.KindFuel || cell.Fuel != "ueu" {
		t.Fatalf("cell = %+v", cell)
	}

	if _, err := s.Apply(Command{Type: "place", X: 1, Y: 0, Kind: "boiler"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Apply(Command{Type: "steam", X: 1, Y: 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != reactor.SteamStages[1].Name {
		t.Fatalf("steam stage = %v", got)
	}

	mod, err := s.Apply(Command{Type: "moderate", X: 1, Y: 0})
	if err != nil || mod != true {
		t.Fatalf("moderate = %v, %v", mod, err)
	}

	if _, err := s.Apply(Command{Type: "place", Kind: "tokamak"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unknown kind err = %v", err)
	}
	if _, err := s.Apply(Command{Type: "warp"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("unknown command err = %v", err)
	}

	if _, err := s.Apply(Command{Type: "run"}); err != nil {
		t.Fatal(err)
	}
	if st := s.Status(); st.State != Running {
		t.Fatalf("state = %s", st.State)
	}
}

func TestStatsFollowTicks(t *testing.T) {
	s := newTestSim(t, 3, 1)
	if _, err := s.Apply(Command{Type: "place", X: 0, Y: 0, Kind: "fuel", Fuel: "po210be"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(Command{Type: "place", X: 2, Y: 0, Kind: "fuel", Fuel: "ueu"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	st := s.Status()
	if st.Stats.AvgHeat <= reactor.Ambient {
		t.Fatalf("avg heat = %v, want above ambient", st.Stats.AvgHeat)
	}
	if st.Stats.AvgDepletion <= 0 {
		t.Fatalf("avg depletion = %v", st.Stats.AvgDepletion)
	}
}

func TestRefillCooler(t *testing.T) {
	s := newTestSim(t, 3, 3)
	if err := s.Place(0, 0, reactor.KindCooler); err != nil {
		t.Fatal(err)
	}
	if err := s.Place(2, 2, reactor.KindBoiler); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}

	got, err := s.RefillCooler(0, 0, 500)
	if err != nil {
		t.Fatalf("refill while running: %v", err)
	}
	if got <= 0 || got > reactor.CryoMax {
		t.Fatalf("cryo after refill = %v", got)
	}
	if got, _ = s.RefillCooler(0, 0, 1e9); got != reactor.CryoMax {
		t.Fatalf("cryo = %v, want capped at %v", got, reactor.CryoMax)
	}
	if _, err := s.RefillCooler(2, 2, 10); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("refill on boiler err = %v", err)
	}
}
