package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// MaxGridSize bounds Resize in either dimension.
const MaxGridSize = 64

var (
	ErrRunning       = errors.New("not allowed while running")
	ErrExploded      = errors.New("reactor exploded, reset required")
	ErrOutOfBounds   = reactor.ErrOutOfBounds
	ErrNoColumn      = errors.New("no column at position")
	ErrNotApplicable = errors.New("command does not apply to this column")
	ErrUnknownKind   = errors.New("unknown column kind")
	ErrUnknownFuel   = errors.New("unknown fuel")
	ErrUnknownDial   = dials.ErrUnknown
	ErrBadSize       = errors.New("grid size out of range")
)

// State is the driver state.
type State uint8

const (
	Idle    State = iota // Placement allowed, no physics
	Running              // Physics advances each tick, placement refused
)

var stateNames = [...]string{"idle", "running"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Simulation owns the grid and everything that mutates it. Every exported
// method takes the simulation lock, and a tick holds it for the whole pass,
// so readers only ever see state between ticks.
type Simulation struct {
	mu sync.Mutex

	Grid     *reactor.Grid
	Dials    dials.Dials
	State    State
	Frames   uint64 // Ticks since the last Run
	Exploded bool   // Sticky until Reset
	Scrammed bool   // AZ-5 engaged this run
	RunID    string
	Stats    reactor.Totals
	Events   []Event

	rng     entropy.Source
	unsaved []Event

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewSimulation creates an idle simulation with a w×h grid. rng drives the
// stochastic flux variant; with nil, stochastic columns trace directionally.
func NewSimulation(w, h int, d dials.Dials, rng entropy.Source) *Simulation {
	s := &Simulation{
		Grid:  reactor.NewGrid(w, h),
		Dials: d,
		rng:   rng,
	}
	s.Stats = s.Grid.Summarize()
	return s
}

// Run moves Idle to Running, clearing all transient column state first.
func (s *Simulation) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exploded {
		return ErrExploded
	}
	if s.State == Running {
		return nil
	}
	s.Grid.Reset()
	s.Frames = 0
	s.Scrammed = false
	s.RunID = uuid.NewString()
	s.State = Running
	s.Stats = s.Grid.Summarize()

	s.EmitEvent(Event{
		Description: "reactor started",
		Category:    CategoryState,
		Meta:        map[string]any{"run_id": s.RunID, "columns": s.Stats.Columns},
	})
	slog.Info("reactor started", "run_id", s.RunID, "columns", s.Stats.Columns,
		"width", s.Grid.W, "height", s.Grid.H)
	return nil
}

// Stop moves Running to Idle and clears transient column state.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != Running {
		return
	}
	s.State = Idle
	s.Grid.Reset()
	s.Stats = s.Grid.Summarize()

	s.EmitEvent(Event{Frame: s.Frames, Description: "reactor stopped", Category: CategoryState})
	slog.Info("reactor stopped", "run_id", s.RunID, "frames", s.Frames)
}

// Reset clears transient state and the exploded flag, leaving the layout intact.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasExploded := s.Exploded
	s.State = Idle
	s.Exploded = false
	s.Scrammed = false
	s.Frames = 0
	s.Grid.Reset()
	s.Stats = s.Grid.Summarize()

	s.EmitEvent(Event{Description: "reactor reset", Category: CategoryState})
	slog.Info("reactor reset", "was_exploded", wasExploded)
}

// Tick advances one frame if running. It reports whether a pass ran.
func (s *Simulation) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State != Running {
		return false
	}
	s.Frames++
	d := s.Dials.Snapshot()

	if melted := s.Grid.Update(d, s.rng); melted != nil {
		s.meltdown(melted)
	}
	s.Stats = s.Grid.Summarize()
	return true
}

func (s *Simulation) meltdown(c *reactor.Column) {
	s.State = Idle
	s.Exploded = true

	s.EmitEvent(Event{
		Frame:       s.Frames,
		Description: fmt.Sprintf("%s column at (%d,%d) melted down at %.0f°C", c.Kind, c.X, c.Y, c.Heat),
		Category:    CategoryAlarm,
		Meta: map[string]any{
			"x":        c.X,
			"y":        c.Y,
			"kind":     c.Kind.String(),
			"heat":     c.Heat,
			"max_heat": c.MaxHeat,
		},
	})
	slog.Warn("reactor meltdown", "run_id", s.RunID, "frame", s.Frames,
		"x", c.X, "y", c.Y, "kind", c.Kind, "heat", c.Heat)
}

// Status is a point-in-time summary for observers.
type Status struct {
	RunID    string         `json:"run_id"`
	State    State          `json:"state"`
	Frames   uint64         `json:"frames"`
	Exploded bool           `json:"exploded"`
	AZ5      bool           `json:"az5"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Stats    reactor.Totals `json:"stats"`
}

// Status returns the current summary.
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		RunID:    s.RunID,
		State:    s.State,
		Frames:   s.Frames,
		Exploded: s.Exploded,
		AZ5:      s.Scrammed,
		Width:    s.Grid.W,
		Height:   s.Grid.H,
		Stats:    s.Stats,
	}
}

// Cells returns a flat view of every occupied column.
func (s *Simulation) Cells() []reactor.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Grid.Cells()
}

// Cell returns the flat view of the column at (x, y).
func (s *Simulation) Cell(x, y int) (reactor.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.column(x, y)
	if err != nil {
		return reactor.Cell{}, err
	}
	return reactor.CellOf(c), nil
}

// DialParams returns the current tunables.
func (s *Simulation) DialParams() []dials.Param {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Dials.Params()
}

// LogReport writes a one-line summary of the current run.
func (s *Simulation) LogReport() {
	st := s.Status()
	slog.Info("reactor report",
		"run_id", st.RunID,
		"state", st.State,
		"frames", humanize.Comma(int64(st.Frames)),
		"columns", st.Stats.Columns,
		"avg_heat", humanize.FormatFloat("#,###.#", st.Stats.AvgHeat),
		"max_heat", humanize.FormatFloat("#,###.#", st.Stats.MaxHeat),
		"rod_level", fmt.Sprintf("%.1f%%", st.Stats.AvgRodLevel),
		"depletion", fmt.Sprintf("%.2f%%", st.Stats.AvgDepletion),
		"xenon", fmt.Sprintf("%.2f%%", st.Stats.AvgXenon),
		"power", humanize.SIWithDigits(st.Stats.PowerMW*1e6, 2, "W"),
		"rads", humanize.FormatFloat("#,###.##", st.Stats.Rads),
		"exploded", st.Exploded,
	)
}

// column resolves an occupied position. Callers hold s.mu.
func (s *Simulation) column(x, y int) (*reactor.Column, error) {
	if !s.Grid.InBounds(x, y) {
		return nil, fmt.Errorf("(%d,%d): %w", x, y, ErrOutOfBounds)
	}
	c := s.Grid.At(x, y)
	if c == nil {
		return nil, fmt.Errorf("(%d,%d): %w", x, y, ErrNoColumn)
	}
	return c, nil
}
