package reactor

import (
	"fmt"
	"math"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
)

// ServoSpeed is the base rod travel per tick, as a fraction of full stroke.
const ServoSpeed = 0.00277

// Servo positions a control rod. Level 0 is fully inserted, 1 fully withdrawn.
type Servo struct {
	Level         float64 `json:"level"`
	TargetLevel   float64 `json:"target_level"`
	StartingLevel float64 `json:"starting_level"`
	LastLevel     float64 `json:"last_level"`
	Mult          float64 `json:"mult"` // Flux transmission, level plus surge
}

// SetTarget commands a new position in percent. NaN becomes 0 and the value
// is clamped to [0,100]. The current level is remembered as the start of the move.
func (s *Servo) SetTarget(percent float64) {
	s.StartingLevel = s.Level
	s.TargetLevel = clampPercent(percent) / 100
}

// Insert drives the rod fully in from wherever it is.
func (s *Servo) Insert() {
	s.StartingLevel = s.Level
	s.TargetLevel = 0
}

func (s *Servo) step(d dials.Dials) {
	s.LastLevel = s.Level
	speed := ServoSpeed * d.ControlSpeed

	if s.Level < s.TargetLevel {
		s.Level = math.Min(s.Level+speed, s.TargetLevel)
	}
	if s.Level > s.TargetLevel {
		s.Level = math.Max(s.Level-speed, s.TargetLevel)
	}

	s.Mult = s.Level + s.surge(d)
}

// surge is the transient transmission overshoot while a rod is moving
// toward a target below where it started.
func (s *Servo) surge(d dials.Dials) float64 {
	if s.TargetLevel >= s.StartingLevel || math.Abs(s.Level-s.TargetLevel) <= 0.01 {
		return 0
	}
	return math.Sin(math.Pow(1-s.Level, 15)*math.Pi) * (s.StartingLevel - s.TargetLevel) * d.ControlSurgeMod
}

func (s *Servo) reset() {
	s.Level, s.TargetLevel, s.LastLevel, s.StartingLevel = 0, 0, 0, 0
	s.Mult = 0
}

// AutoFunc is the heat to level interpolation of an automatic rod.
type AutoFunc uint8

const (
	AutoLinear AutoFunc = iota
	AutoQuadUp
	AutoQuadDown
	autoFuncCount
)

func (f AutoFunc) String() string {
	switch f {
	case AutoLinear:
		return "linear"
	case AutoQuadUp:
		return "quad_up"
	case AutoQuadDown:
		return "quad_down"
	}
	return fmt.Sprintf("autofunc(%d)", uint8(f))
}

func (f AutoFunc) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// MaxAutoHeat bounds the configurable heat thresholds.
const MaxAutoHeat = 9999

// AutoControl derives its target from column heat each tick. Levels are in
// percent; heats in degrees.
type AutoControl struct {
	Servo
	Func       AutoFunc `json:"func"`
	HeatLower  float64  `json:"heat_lower"`
	HeatUpper  float64  `json:"heat_upper"`
	LevelLower float64  `json:"level_lower"`        // Level at or below HeatLower
	LevelUpper float64  `json:"level_upper"`        // Level at or above HeatUpper
	Scrammed   bool     `json:"scrammed,omitempty"` // Held inserted until reset
}

// Configure sets the interpolation endpoints, normalizing each value.
func (a *AutoControl) Configure(heatLower, heatUpper, levelLower, levelUpper float64) {
	a.HeatLower = clamp(nanZero(heatLower), 0, MaxAutoHeat)
	a.HeatUpper = clamp(nanZero(heatUpper), 0, MaxAutoHeat)
	a.LevelLower = clampPercent(levelLower)
	a.LevelUpper = clampPercent(levelUpper)
}

// Scram drives the rod in and holds it there until the next reset,
// whatever the column heat.
func (a *AutoControl) Scram() {
	a.Insert()
	a.Scrammed = true
}

// CycleFunc advances to the next interpolation kind.
func (a *AutoControl) CycleFunc() AutoFunc {
	a.Func = (a.Func + 1) % autoFuncCount
	return a.Func
}

// FauxLevel is the commanded level in percent for a column at heat.
func (a *AutoControl) FauxLevel(heat float64) float64 {
	lo := math.Min(a.HeatLower, a.HeatUpper)
	hi := math.Max(a.HeatLower, a.HeatUpper)
	switch {
	case heat < lo:
		return a.LevelLower
	case heat > hi:
		return a.LevelUpper
	case a.HeatUpper == a.HeatLower:
		return a.LevelLower
	}
	switch a.Func {
	case AutoQuadUp:
		t := (heat - a.HeatLower) / (a.HeatUpper - a.HeatLower)
		return t*t*(a.LevelUpper-a.LevelLower) + a.LevelLower
	case AutoQuadDown:
		t := (heat - a.HeatUpper) / (a.HeatLower - a.HeatUpper)
		return t*t*(a.LevelLower-a.LevelUpper) + a.LevelUpper
	default:
		return (heat-a.HeatLower)*((a.LevelUpper-a.LevelLower)/(a.HeatUpper-a.HeatLower)) + a.LevelLower
	}
}

func (a *AutoControl) retarget(heat float64) {
	if a.Scrammed {
		a.TargetLevel = 0
		return
	}
	a.TargetLevel = clamp(a.FauxLevel(heat)*0.01, 0, 1)
}

// reset drops the rod and the scram latch; the configured curve survives.
func (a *AutoControl) reset() {
	a.Servo.reset()
	a.Scrammed = false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	return clamp(nanZero(v), 0, 100)
}
