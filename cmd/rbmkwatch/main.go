// Command rbmkwatch runs an automated operator against a running rbmksim.
// It polls reactor heat and power, scrams on runaway heat, and optionally
// trims the rods toward a power target.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tadjelllol/RBMK-Simulator/internal/operator"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	p := operator.DefaultPolicy()
	apiURL := flag.String("api", envOrDefault("RBMK_API_URL", "http://localhost:8080"), "rbmksim base URL")
	intervalMs := flag.Int("interval-ms", envIntOrDefault("RBMK_WATCH_INTERVAL_MS", 1000), "poll interval in milliseconds")
	memPath := flag.String("memory", envOrDefault("RBMK_WATCH_MEMORY", ""), "file to keep cycle history in")
	flag.Float64Var(&p.TargetPowerMW, "target-mw", 0, "power to hold, 0 = scram protection only")
	flag.Float64Var(&p.ScramFraction, "scram", p.ScramFraction, "scram at this fraction of meltdown heat")
	flag.Float64Var(&p.RodStep, "rod-step", p.RodStep, "rod move per cycle in percent")
	dryRun := flag.Bool("dry-run", false, "log decisions without sending commands")
	flag.Parse()

	adminKey := os.Getenv("RBMK_ADMIN_KEY")
	if adminKey == "" && !*dryRun {
		slog.Error("RBMK_ADMIN_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(*intervalMs) * time.Millisecond
	slog.Info("RBMK operator starting",
		"api_url", *apiURL,
		"interval", interval,
		"target_mw", p.TargetPowerMW,
		"dry_run", *dryRun,
	)

	op := &operator.Operator{
		Observer: operator.NewObserver(*apiURL),
		Actor:    operator.NewActor(*apiURL, adminKey),
		Memory:   operator.LoadMemory(*memPath),
		Policy:   p,
		DryRun:   *dryRun,
	}

	slog.Info("waiting for rbmksim API...")
	waitForAPI(*apiURL)

	runCycle(op)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runCycle(op)
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Operator stopped.")
			return
		}
	}
}

func runCycle(op *operator.Operator) {
	d, err := op.Cycle()
	if err != nil {
		slog.Error("operator cycle failed", "error", err)
		return
	}
	if d.Action != operator.ActionNone {
		slog.Info("operator decision", "action", d.Action, "rationale", d.Rationale)
	}
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

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("rbmksim API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("rbmksim API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("rbmksim not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}
