package persistence

import (
	"path/filepath"
	"testing"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "rbmk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTelemetryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.BeginRun("run-1", 15, 15, 40); err != nil {
		t.Fatal(err)
	}
	for f := uint64(1); f <= 5; f++ {
		s := SampleOf("run-1", f*20, reactor.Totals{AvgHeat: float64(f) * 10, PowerMW: 1.5})
		if err := db.SaveSample(s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.History("run-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("history len = %d, want 3", len(got))
	}
	if got[0].Frame != 60 || got[2].Frame != 100 || got[2].AvgHeat != 50 || got[2].PowerMW != 1.5 {
		t.Fatalf("history = %+v", got)
	}

	none, err := db.History("run-2", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("other run history = %v, %v", none, err)
	}
}

func TestEventsAndMeta(t *testing.T) {
	db := openTestDB(t)
	events := []engine.Event{
		{Frame: 1, Description: "reactor started", Category: engine.CategoryState},
		{Frame: 9, Description: "AZ-5 pressed", Category: engine.CategoryAlarm},
	}
	if err := db.SaveEvents("run-1", events); err != nil {
		t.Fatal(err)
	}
	got, err := db.RecentEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Frame != 9 || got[0].Category != engine.CategoryAlarm {
		t.Fatalf("recent events = %+v", got)
	}

	if err := db.SaveMeta("last_run", "run-1"); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMeta("last_run"); err != nil || v != "run-1" {
		t.Fatalf("meta = %q, %v", v, err)
	}
}

func TestCheckpoint(t *testing.T) {
	db := openTestDB(t)
	sim := engine.NewSimulation(5, 5, dials.Default(), entropy.NewSeeded(3))

	// Nothing to record before the first run.
	if err := db.Checkpoint(sim); err != nil {
		t.Fatal(err)
	}
	if runs, _ := db.Runs(10); len(runs) != 0 {
		t.Fatalf("runs before start = %d", len(runs))
	}

	if err := sim.Run(); err != nil {
		t.Fatal(err)
	}
	sim.Tick()
	if err := db.Checkpoint(sim); err != nil {
		t.Fatal(err)
	}
	sim.Tick()
	if err := db.Checkpoint(sim); err != nil {
		t.Fatal(err)
	}

	runs, err := db.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != sim.RunID || runs[0].Width != 5 {
		t.Fatalf("runs = %+v", runs)
	}
	hist, err := db.History(sim.RunID, 10)
	if err != nil || len(hist) != 2 {
		t.Fatalf("history = %+v, %v", hist, err)
	}
	events, err := db.RecentEvents(10)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %+v, %v", events, err)
	}
}
