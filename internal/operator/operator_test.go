package operator

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tadjelllol/RBMK-Simulator/internal/api"
	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

const testKey = "secret"

func heatAt(frac float64) float64 {
	return reactor.Ambient + frac*(reactor.DefaultMaxHeat-reactor.Ambient)
}

func snapshot(state string, maxHeat, power, rods float64) *Snapshot {
	return &Snapshot{
		Status: ReactorStatus{RunID: "r1", State: state},
		Stats:  reactor.Totals{MaxHeat: maxHeat, PowerMW: power, AvgRodLevel: rods},
	}
}

func TestTriageLevels(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		frac float64
		want string
	}{
		{0, LevelNominal},
		{0.65, LevelWatch},
		{0.8, LevelWarning},
		{0.95, LevelCritical},
	}
	for _, tt := range tests {
		h := Triage(snapshot("running", heatAt(tt.frac), 0, 50), nil, p)
		if h.Level != tt.want {
			t.Errorf("frac %.2f: level = %s, want %s", tt.frac, h.Level, tt.want)
		}
	}

	snap := snapshot("idle", reactor.Ambient, 0, 0)
	snap.Status.Exploded = true
	if h := Triage(snap, nil, p); h.Level != LevelMeltdown {
		t.Fatalf("exploded level = %s", h.Level)
	}
}

func TestTriageProjectsRise(t *testing.T) {
	p := DefaultPolicy()
	last := &CycleRecord{RunID: "r1", MaxHeat: heatAt(0.3)}
	h := Triage(snapshot("running", heatAt(0.7), 0, 50), last, p)
	if h.Level != LevelCritical {
		t.Fatalf("0.3 -> 0.7 projects past meltdown, level = %s (projected %.2f)", h.Level, h.Projected)
	}

	// A new run does not carry the old rise.
	last.RunID = "r0"
	h = Triage(snapshot("running", heatAt(0.7), 0, 50), last, p)
	if h.HeatRise != 0 || h.Level != LevelWatch {
		t.Fatalf("rise across runs = %.2f, level %s", h.HeatRise, h.Level)
	}
}

func TestDecide(t *testing.T) {
	p := DefaultPolicy()
	p.TargetPowerMW = 100

	tests := []struct {
		name   string
		snap   *Snapshot
		action string
		value  float64
	}{
		{"idle holds", snapshot("idle", heatAt(0.95), 0, 50), ActionNone, 0},
		{"critical scrams", snapshot("running", heatAt(0.95), 0, 50), ActionScram, 0},
		{"warning inserts", snapshot("running", heatAt(0.8), 100, 50), ActionInsert, 45},
		{"warning with rods in holds", snapshot("running", heatAt(0.8), 100, 0), ActionNone, 0},
		{"low power withdraws", snapshot("running", heatAt(0.1), 20, 50), ActionWithdraw, 55},
		{"high power inserts", snapshot("running", heatAt(0.1), 200, 50), ActionInsert, 45},
		{"on target holds", snapshot("running", heatAt(0.1), 100, 50), ActionNone, 0},
		{"withdraw clamps", snapshot("running", heatAt(0.1), 20, 98), ActionWithdraw, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(Triage(tt.snap, nil, p), tt.snap, p)
			if d.Action != tt.action {
				t.Fatalf("action = %s (%s), want %s", d.Action, d.Rationale, tt.action)
			}
			if tt.action == ActionInsert || tt.action == ActionWithdraw {
				if d.Command == nil || d.Command.Type != "pull_all" || d.Command.Value != tt.value {
					t.Fatalf("command = %+v, want pull_all %.0f", d.Command, tt.value)
				}
			}
		})
	}

	latched := snapshot("running", heatAt(0.1), 20, 50)
	latched.Status.AZ5 = true
	if d := Decide(Triage(latched, nil, p), latched, p); d.Action != ActionNone {
		t.Fatalf("AZ-5 latched should hold, got %s", d.Action)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.json")
	m := LoadMemory(path)
	for i := range maxRecords + 5 {
		m.Record(CycleRecord{RunID: "r1", Frame: uint64(i), Action: ActionNone})
	}
	m.Record(CycleRecord{RunID: "r1", Frame: 999, Action: ActionScram})
	m.Save()

	m2 := LoadMemory(path)
	if len(m2.Records) != maxRecords {
		t.Fatalf("records = %d, want %d", len(m2.Records), maxRecords)
	}
	if last := m2.Last(); last == nil || last.Frame != 999 {
		t.Fatalf("last = %+v", last)
	}
	if n := m2.Actions("r1"); n != 1 {
		t.Fatalf("actions = %d, want 1", n)
	}
}

func newOperator(t *testing.T) (*engine.Simulation, *Operator) {
	t.Helper()
	sim := engine.NewSimulation(5, 5, dials.Default(), entropy.NewSeeded(3))
	if err := sim.Place(0, 0, reactor.KindBoiler); err != nil {
		t.Fatal(err)
	}
	if err := sim.Place(2, 2, reactor.KindControl); err != nil {
		t.Fatal(err)
	}
	srv := &api.Server{Sim: sim, AdminKey: testKey}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return sim, &Operator{
		Observer: NewObserver(ts.URL),
		Actor:    NewActor(ts.URL, testKey),
		Memory:   LoadMemory(""),
		Policy:   DefaultPolicy(),
	}
}

func TestCycleScramsHotCore(t *testing.T) {
	sim, op := newOperator(t)
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	sim.Stats.MaxHeat = heatAt(0.95)

	d, err := op.Cycle()
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionScram {
		t.Fatalf("action = %s (%s)", d.Action, d.Rationale)
	}
	if !sim.Status().AZ5 {
		t.Fatal("simulation did not receive AZ-5")
	}

	d, err = op.Cycle()
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionNone {
		t.Fatalf("second cycle action = %s, want none", d.Action)
	}
	if len(op.Memory.Records) != 2 || op.Memory.Actions(sim.Status().RunID) != 1 {
		t.Fatalf("memory = %+v", op.Memory.Records)
	}
}

func TestCycleTracksPower(t *testing.T) {
	sim, op := newOperator(t)
	op.Policy.TargetPowerMW = 50
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}

	d, err := op.Cycle()
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionWithdraw {
		t.Fatalf("action = %s (%s)", d.Action, d.Rationale)
	}
	events := sim.RecentEvents(1)
	if len(events) != 1 || !strings.Contains(events[0].Description, "all rods") {
		t.Fatalf("last event = %+v", events)
	}
}

func TestCycleDryRunAndBadKey(t *testing.T) {
	sim, op := newOperator(t)
	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	sim.Stats.MaxHeat = heatAt(0.95)

	op.DryRun = true
	if d, err := op.Cycle(); err != nil || d.Action != ActionScram {
		t.Fatalf("dry run = %+v, %v", d, err)
	}
	if sim.Status().AZ5 {
		t.Fatal("dry run sent a command")
	}

	op.DryRun = false
	op.Actor.AdminKey = "wrong"
	if _, err := op.Cycle(); err == nil {
		t.Fatal("expected an auth failure")
	}
}
