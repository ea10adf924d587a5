// Package api provides the HTTP API for observing and driving the reactor.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (operator control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
	"github.com/tadjelllol/RBMK-Simulator/internal/persistence"
)

const maxSSEConns = 4

// Server serves reactor state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; history and charts need it
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for the SSE stream. Empty = streaming disabled.

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	limiter := NewRateLimiter(commandsPerMinute, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/column/", s.handleColumn)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/dials", s.handleDials)
	mux.HandleFunc("/api/v1/fuels", s.handleFuels)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/chart/", s.handleChart)

	// SSE streaming endpoint (GET, requires relay token).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Operator endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/command", s.adminOnly(s.commandHandler(limiter)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "operator endpoints disabled (no RBMK_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	status := map[string]any{
		"name":     "RBMK",
		"run_id":   st.RunID,
		"state":    st.State,
		"frames":   st.Frames,
		"exploded": st.Exploded,
		"az5":      st.AZ5,
		"width":    st.Width,
		"height":   st.Height,
		"columns":  st.Stats.Columns,
		"power_mw": st.Stats.PowerMW,
		"max_heat": st.Stats.MaxHeat,
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.Tick()
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	writeJSON(w, map[string]any{
		"width":  st.Width,
		"height": st.Height,
		"cells":  s.Sim.Cells(),
	})
}

// handleColumn serves GET /api/v1/column/{x}/{y}.
func (s *Server) handleColumn(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/column/"), "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/column/{x}/{y}", http.StatusBadRequest)
		return
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	cell, err := s.Sim.Cell(x, y)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, cell)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Status().Stats)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 1000)

	// Persisted history spans runs; memory only holds the latest events.
	if r.URL.Query().Get("source") == "db" {
		if s.DB == nil {
			http.Error(w, "no database configured", http.StatusServiceUnavailable)
			return
		}
		events, err := s.DB.RecentEvents(limit)
		if err != nil {
			slog.Error("load events", "error", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}

	events := s.Sim.RecentEvents(maxEventsScan)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

const maxEventsScan = 1000

func (s *Server) handleDials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.DialParams())
}

func (s *Server) handleFuels(w http.ResponseWriter, r *http.Request) {
	type fuelSummary struct {
		Name         string  `json:"name"`
		Label        string  `json:"label"`
		FullName     string  `json:"full_name"`
		Yield        float64 `json:"yield"`
		Reactivity   float64 `json:"reactivity"`
		Burn         string  `json:"burn"`
		Deplete      string  `json:"deplete"`
		HeatPerFlux  float64 `json:"heat_per_flux"`
		MeltingPoint float64 `json:"melting_point"`
		In           string  `json:"in"`
		Out          string  `json:"out"`
		Formula      string  `json:"formula"`
	}

	var out []fuelSummary
	for _, a := range fuel.Archetypes() {
		if a.Placeholder() {
			continue
		}
		out = append(out, fuelSummary{
			Name:         a.Name,
			Label:        a.Label,
			FullName:     a.FullName,
			Yield:        a.DefaultYield,
			Reactivity:   a.Reactivity,
			Burn:         a.Func.String(),
			Deplete:      a.Deplete.String(),
			HeatPerFlux:  a.HeatPerFlux,
			MeltingPoint: a.MeltingPoint,
			In:           a.In.String(),
			Out:          a.Out.String(),
			Formula:      fuel.New(a).Describe(),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	samples, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	writeJSON(w, samples)
}

// loadHistory fetches samples for ?run= (default: the current run). It
// writes the error response itself and reports whether to continue.
func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request) ([]persistence.Sample, bool) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return nil, false
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = s.Sim.Status().RunID
	}
	if runID == "" {
		http.Error(w, "no run yet", http.StatusNotFound)
		return nil, false
	}

	samples, err := s.DB.History(runID, queryLimit(r, 500, 5000))
	if err != nil {
		slog.Error("load history", "run_id", runID, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return nil, false
	}
	return samples, true
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs(queryLimit(r, 20, 200))
	if err != nil {
		slog.Error("load runs", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// handleChart serves GET /api/v1/chart/{metric}.png.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/chart/"), ".png")
	metric, ok := chartMetrics[name]
	if !ok {
		http.Error(w, "unknown chart", http.StatusNotFound)
		return
	}

	samples, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	if len(samples) < 2 {
		http.Error(w, "not enough samples yet", http.StatusNotFound)
		return
	}

	png, err := renderChart(metric, samples)
	if err != nil {
		slog.Error("render chart", "chart", name, "error", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleCommand serves POST /api/v1/command.
// commandHandler serves POST /api/v1/command, spending one unit of the
// caller's budget per command.
func (s *Server) commandHandler(limiter *RateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		var cmd engine.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if ok, wait := limiter.AllowCommand(clientIP(r), cmd.Type); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		s.applyCommand(w, cmd)
	}
}

func (s *Server) applyCommand(w http.ResponseWriter, cmd engine.Command) {
	result, err := s.Sim.Apply(cmd)
	if err != nil {
		slog.Info("command rejected", "type", cmd.Type, "x", cmd.X, "y", cmd.Y, "error", err)
		writeCommandError(w, err)
		return
	}

	slog.Info("command applied", "type", cmd.Type, "x", cmd.X, "y", cmd.Y)
	writeJSON(w, map[string]any{
		"ok":     true,
		"type":   cmd.Type,
		"result": result,
	})
}

// writeCommandError maps driver errors onto HTTP status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, engine.ErrRunning), errors.Is(err, engine.ErrExploded):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoColumn), errors.Is(err, engine.ErrOutOfBounds):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNotApplicable):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no engine", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > engine.MaxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%g", engine.MaxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleStream serves GET /api/v1/stream as server-sent events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Auth check uses the relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	// Catch-up with the last 50 events.
	for _, e := range s.Sim.RecentEvents(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

func queryLimit(r *http.Request, def, ceiling int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
