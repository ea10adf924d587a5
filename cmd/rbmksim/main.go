// Command rbmksim runs the RBMK reactor simulation behind an HTTP control plane.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/tadjelllol/RBMK-Simulator/internal/api"
	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/layout"
	"github.com/tadjelllol/RBMK-Simulator/internal/persistence"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Samples between report log lines.
const reportEvery = 30

func main() {
	port := flag.Int("port", envIntOrDefault("RBMK_PORT", 8080), "HTTP port")
	dbPath := flag.String("db", envOrDefault("RBMK_DB", "data/rbmk.db"), "telemetry database path, empty to disable")
	width := flag.Int("width", envIntOrDefault("RBMK_WIDTH", reactor.DefaultSize), "grid width")
	height := flag.Int("height", envIntOrDefault("RBMK_HEIGHT", reactor.DefaultSize), "grid height")
	seed := flag.Int64("seed", int64(envIntOrDefault("RBMK_SEED", 0)), "seed for layout and stochastic flux, 0 = random")
	tickMs := flag.Int("tick-ms", envIntOrDefault("RBMK_TICK_MS", 50), "base tick interval in milliseconds")
	dialList := flag.String("dials", os.Getenv("RBMK_DIALS"), "dial overrides, e.g. flux_range=6,control_speed=2")
	demo := flag.Bool("demo", true, "generate a starting core")
	autorun := flag.Bool("run", false, "start the reactor immediately")
	flag.Parse()

	slog.SetDefault(newLogger(slog.LevelInfo))
	slog.Info("RBMK simulator starting", "width", *width, "height", *height, "seed", *seed)

	d := dials.FromMap(dials.ParseList(*dialList))
	sim := engine.NewSimulation(*width, *height, d, entropy.New(*seed))

	if *demo {
		cfg := layout.DefaultConfig()
		cfg.Width, cfg.Height, cfg.Seed = *width, *height, *seed
		if err := layout.Build(sim, cfg); err != nil {
			slog.Error("layout generation failed", "error", err)
			os.Exit(1)
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if *dbPath != "" {
		os.MkdirAll(filepath.Dir(*dbPath), 0755)
		var err error
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", *dbPath)
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = time.Duration(*tickMs) * time.Millisecond

	var samples uint64
	eng.OnTick = func(uint64) { sim.Tick() }
	eng.OnSample = func(uint64) {
		samples++
		if samples%reportEvery == 0 {
			sim.LogReport()
		}
		if db == nil {
			return
		}
		if err := db.Checkpoint(sim); err != nil {
			slog.Error("checkpoint failed", "error", err)
		}
	}

	adminKey := os.Getenv("RBMK_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("RBMK_ADMIN_KEY not set, operator POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     *port,
		AdminKey: adminKey,
		RelayKey: os.Getenv("RBMK_RELAY_KEY"),
	}
	apiServer.Start()

	if *autorun {
		if err := sim.Run(); err != nil {
			slog.Error("autorun failed", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	st := sim.Status()
	fmt.Printf("\nRBMK core ready: %d columns on a %dx%d grid.\n", st.Stats.Columns, st.Width, st.Height)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	fmt.Println("Starting engine... (Ctrl+C to stop)")

	eng.Run()

	if db != nil {
		slog.Info("final checkpoint...")
		if err := db.Checkpoint(sim); err != nil {
			slog.Error("final checkpoint failed", "error", err)
		}
	}
	fmt.Println("Simulation stopped.")
}

// newLogger picks a text handler for terminals and JSON otherwise.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
