// Package persistence provides SQLite-based storage for run history:
// telemetry samples and events. Reactor layouts are not persisted.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		columns INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		avg_heat REAL NOT NULL,
		max_heat REAL NOT NULL,
		avg_rod_level REAL NOT NULL,
		avg_depletion REAL NOT NULL,
		avg_xenon REAL NOT NULL,
		avg_core_heat REAL NOT NULL,
		flux_fast REAL NOT NULL,
		flux_slow REAL NOT NULL,
		power_mw REAL NOT NULL,
		rads REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_run ON telemetry(run_id, frame);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one Idle to Running session.
type Run struct {
	ID        string `db:"id" json:"id"`
	StartedAt int64  `db:"started_at" json:"started_at"` // Unix seconds
	Width     int    `db:"width" json:"width"`
	Height    int    `db:"height" json:"height"`
	Columns   int    `db:"columns" json:"columns"`
}

// Sample is one telemetry row.
type Sample struct {
	RunID        string  `db:"run_id" json:"run_id"`
	Frame        uint64  `db:"frame" json:"frame"`
	AvgHeat      float64 `db:"avg_heat" json:"avg_heat"`
	MaxHeat      float64 `db:"max_heat" json:"max_heat"`
	AvgRodLevel  float64 `db:"avg_rod_level" json:"avg_rod_level"`
	AvgDepletion float64 `db:"avg_depletion" json:"avg_depletion"`
	AvgXenon     float64 `db:"avg_xenon" json:"avg_xenon"`
	AvgCoreHeat  float64 `db:"avg_core_heat" json:"avg_core_heat"`
	FluxFast     float64 `db:"flux_fast" json:"flux_fast"`
	FluxSlow     float64 `db:"flux_slow" json:"flux_slow"`
	PowerMW      float64 `db:"power_mw" json:"power_mw"`
	Rads         float64 `db:"rads" json:"rads"`
}

// SampleOf builds a telemetry row from aggregate totals.
func SampleOf(runID string, frame uint64, t reactor.Totals) Sample {
	return Sample{
		RunID:        runID,
		Frame:        frame,
		AvgHeat:      t.AvgHeat,
		MaxHeat:      t.MaxHeat,
		AvgRodLevel:  t.AvgRodLevel,
		AvgDepletion: t.AvgDepletion,
		AvgXenon:     t.AvgXenon,
		AvgCoreHeat:  t.AvgCoreHeat,
		FluxFast:     t.FluxFast,
		FluxSlow:     t.FluxSlow,
		PowerMW:      t.PowerMW,
		Rads:         t.Rads,
	}
}

// BeginRun records a new run. Recording the same id twice is a no-op.
func (db *DB) BeginRun(id string, width, height, columns int) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO runs (id, started_at, width, height, columns) VALUES (?, ?, ?, ?, ?)",
		id, time.Now().Unix(), width, height, columns,
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", id, err)
	}
	return nil
}

// SaveSample appends one telemetry row.
func (db *DB) SaveSample(s Sample) error {
	_, err := db.conn.NamedExec(`INSERT INTO telemetry
		(run_id, frame, avg_heat, max_heat, avg_rod_level, avg_depletion, avg_xenon,
		 avg_core_heat, flux_fast, flux_slow, power_mw, rads)
		VALUES (:run_id, :frame, :avg_heat, :max_heat, :avg_rod_level, :avg_depletion, :avg_xenon,
		 :avg_core_heat, :flux_fast, :flux_slow, :power_mw, :rads)`, s)
	if err != nil {
		return fmt.Errorf("insert sample %s/%d: %w", s.RunID, s.Frame, err)
	}
	return nil
}

// SaveEvents appends events to the database under runID.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, frame, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Frame, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// Checkpoint records the run if new, stores the current sample and flushes
// pending events.
func (db *DB) Checkpoint(sim *engine.Simulation) error {
	st := sim.Status()
	if st.RunID == "" {
		return nil
	}
	if err := db.BeginRun(st.RunID, st.Width, st.Height, st.Stats.Columns); err != nil {
		return err
	}
	if err := db.SaveSample(SampleOf(st.RunID, st.Frames, st.Stats)); err != nil {
		return fmt.Errorf("save sample: %w", err)
	}
	if err := db.SaveEvents(st.RunID, sim.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_run", st.RunID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Debug("checkpoint saved", "run_id", st.RunID, "frame", st.Frames)
	return nil
}

// History returns up to limit of the latest samples of a run, oldest first.
func (db *DB) History(runID string, limit int) ([]Sample, error) {
	var samples []Sample
	err := db.conn.Select(&samples, `SELECT run_id, frame, avg_heat, max_heat, avg_rod_level,
		avg_depletion, avg_xenon, avg_core_heat, flux_fast, flux_slow, power_mw, rads
		FROM (SELECT * FROM telemetry WHERE run_id = ? ORDER BY frame DESC LIMIT ?)
		ORDER BY frame ASC`,
		runID, limit,
	)
	return samples, err
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT frame, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, started_at, width, height, columns FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}
