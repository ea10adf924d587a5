// Package engine drives the reactor: the Idle/Running state machine, the
// command surface and the wall-clock tick loop.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default loop settings. One tick is one simulation frame.
const (
	DefaultInterval    = 50 * time.Millisecond
	DefaultSampleEvery = 20 // Telemetry sample roughly once per second at speed 1
	MaxSpeed           = 50.0
)

// Engine paces the simulation against the wall clock.
type Engine struct {
	Interval    time.Duration // Base tick interval
	SampleEvery uint64        // OnSample fires every SampleEvery ticks; 0 disables

	// Callbacks, populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnSample func(tick uint64) // Every SampleEvery ticks

	tick    atomic.Uint64
	running atomic.Bool

	mu    sync.Mutex
	speed float64 // 1.0 = nominal, 0 = paused
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval:    DefaultInterval,
		SampleEvery: DefaultSampleEvery,
		speed:       1.0,
	}
}

// Tick returns the number of ticks stepped so far. It never resets.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Running reports whether Run is looping.
func (e *Engine) Running() bool { return e.running.Load() }

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed sets the speed multiplier, clamped to [0, MaxSpeed].
func (e *Engine) SetSpeed(speed float64) float64 {
	if speed != speed || speed < 0 {
		speed = 0
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	return speed
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "interval", e.Interval)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused, check again shortly.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances by one tick and fires the callbacks.
func (e *Engine) Step() {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.OnSample != nil && e.SampleEvery > 0 && tick%e.SampleEvery == 0 {
		e.OnSample(tick)
	}
}
