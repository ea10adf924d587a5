// Package dials holds the tunable simulation parameters ("dials").
// A Dials value is copied once per tick and passed down every update call,
// so a change made between ticks never lands halfway through a pass.
package dials

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknown is returned when a dial name is not recognised.
var ErrUnknown = errors.New("unknown dial")

// Dials is the full set of tunables read by the physics core.
type Dials struct {
	PassiveCooling        float64 // Degrees lost per tick by every column
	ColumnHeatFlow        float64 // Diffusion step toward the neighborhood mean (0-1)
	DiffusionMod          float64 // Scales core→skin diffusion inside fuel rods
	HeatProvision         float64 // Scales skin→column heat transfer (0-2)
	ColumnHeight          float64 // Used by the leak formula
	BoilerHeatConsumption float64
	ControlSpeed          float64 // Multiplies control rod travel speed
	ReactivityMod         float64 // Multiplies enrichment before the depletion curve
	OutgasserSpeedMod     float64
	ControlSurgeMod       float64 // Scales the withdrawal surge
	FluxRange             int     // Steps a flux ray travels
	ReasimRange           int
	ReasimCount           int // Rays emitted by stochastic tracing
	ReasimOutputMod       float64
	ReasimBoilers         bool
	ReasimBoilerSpeed     float64
	DisableMeltdowns      bool
}

// Default returns the stock dial settings.
func Default() Dials {
	return Dials{
		PassiveCooling:        1,
		ColumnHeatFlow:        0.2,
		DiffusionMod:          1,
		HeatProvision:         0.2,
		ColumnHeight:          4,
		BoilerHeatConsumption: 0.1,
		ControlSpeed:          1,
		ReactivityMod:         1,
		OutgasserSpeedMod:     1,
		ControlSurgeMod:       1,
		FluxRange:             5,
		ReasimRange:           10,
		ReasimCount:           6,
		ReasimOutputMod:       1,
		ReasimBoilers:         false,
		ReasimBoilerSpeed:     0.05,
		DisableMeltdowns:      false,
	}
}

// Snapshot returns a copy of d. Dials has no reference fields, so the copy is independent.
func (d Dials) Snapshot() Dials { return d }

// ParamType enumerates dial value kinds.
type ParamType string

const (
	ParamFloat ParamType = "float"
	ParamInt   ParamType = "int"
	ParamBool  ParamType = "bool"
)

// Param describes one dial for listing endpoints and viewers.
type Param struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        ParamType `json:"type"`
	Value       float64   `json:"value"`
	Description string    `json:"description,omitempty"`
}

type entry struct {
	label string
	typ   ParamType
	desc  string
	get   func(*Dials) float64
	set   func(*Dials, float64)
}

func floatEntry(label, desc string, field func(*Dials) *float64) entry {
	return entry{
		label: label,
		typ:   ParamFloat,
		desc:  desc,
		get:   func(d *Dials) float64 { return *field(d) },
		set:   func(d *Dials, v float64) { *field(d) = math.Max(0, v) },
	}
}

// boundedEntry is a floatEntry clamped to [lo, hi].
func boundedEntry(label, desc string, lo, hi float64, field func(*Dials) *float64) entry {
	e := floatEntry(label, desc, field)
	e.set = func(d *Dials, v float64) { *field(d) = math.Max(lo, math.Min(hi, v)) }
	return e
}

func intEntry(label, desc string, field func(*Dials) *int) entry {
	return entry{
		label: label,
		typ:   ParamInt,
		desc:  desc,
		get:   func(d *Dials) float64 { return float64(*field(d)) },
		set: func(d *Dials, v float64) {
			n := int(v)
			if n < 1 {
				n = 1
			}
			*field(d) = n
		},
	}
}

func boolEntry(label, desc string, field func(*Dials) *bool) entry {
	return entry{
		label: label,
		typ:   ParamBool,
		desc:  desc,
		get: func(d *Dials) float64 {
			if *field(d) {
				return 1
			}
			return 0
		},
		set: func(d *Dials, v float64) { *field(d) = v != 0 },
	}
}

var table = map[string]entry{
	"passive_cooling":         floatEntry("Passive cooling", "heat lost per tick by every column", func(d *Dials) *float64 { return &d.PassiveCooling }),
	"column_heat_flow":        boundedEntry("Column heat flow", "diffusion step between neighbors", 0, 1, func(d *Dials) *float64 { return &d.ColumnHeatFlow }),
	"diffusion_mod":           floatEntry("Diffusion mod", "fuel core to skin diffusion multiplier", func(d *Dials) *float64 { return &d.DiffusionMod }),
	"heat_provision":          boundedEntry("Heat provision", "fuel skin to column transfer multiplier", 0, 2, func(d *Dials) *float64 { return &d.HeatProvision }),
	"column_height":           floatEntry("Column height", "", func(d *Dials) *float64 { return &d.ColumnHeight }),
	"boiler_heat_consumption": floatEntry("Boiler heat consumption", "", func(d *Dials) *float64 { return &d.BoilerHeatConsumption }),
	"control_speed":           floatEntry("Control speed", "control rod travel multiplier", func(d *Dials) *float64 { return &d.ControlSpeed }),
	"reactivity_mod":          floatEntry("Reactivity mod", "", func(d *Dials) *float64 { return &d.ReactivityMod }),
	"outgasser_speed_mod":     floatEntry("Outgasser speed mod", "", func(d *Dials) *float64 { return &d.OutgasserSpeedMod }),
	"control_surge_mod":       floatEntry("Control surge mod", "withdrawal surge multiplier", func(d *Dials) *float64 { return &d.ControlSurgeMod }),
	"flux_range":              intEntry("Flux range", "steps travelled by each flux ray", func(d *Dials) *int { return &d.FluxRange }),
	"reasim_range":            intEntry("ReaSim range", "", func(d *Dials) *int { return &d.ReasimRange }),
	"reasim_count":            intEntry("ReaSim count", "rays emitted by stochastic fuel", func(d *Dials) *int { return &d.ReasimCount }),
	"reasim_output_mod":       floatEntry("ReaSim output mod", "", func(d *Dials) *float64 { return &d.ReasimOutputMod }),
	"reasim_boilers":          boolEntry("ReaSim boilers", "", func(d *Dials) *bool { return &d.ReasimBoilers }),
	"reasim_boiler_speed":     floatEntry("ReaSim boiler speed", "", func(d *Dials) *float64 { return &d.ReasimBoilerSpeed }),
	"disable_meltdowns":       boolEntry("Disable meltdowns", "overheating no longer stops the run", func(d *Dials) *bool { return &d.DisableMeltdowns }),
}

// Names lists every dial name in sorted order.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set updates a dial by name. NaN becomes 0; rates are floored at 0 and
// fractional steps are clamped to their range; integer
// dials are truncated and floored at 1, booleans are true for any non-zero value.
func (d *Dials) Set(name string, value float64) error {
	e, ok := table[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if math.IsNaN(value) {
		value = 0
	}
	e.set(d, value)
	return nil
}

// Get returns a dial's current value. Booleans read as 0 or 1.
func (d *Dials) Get(name string) (float64, error) {
	e, ok := table[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return e.get(d), nil
}

// Params lists every dial with its current value.
func (d *Dials) Params() []Param {
	out := make([]Param, 0, len(table))
	for _, name := range Names() {
		e := table[name]
		out = append(out, Param{
			Name:        name,
			Label:       e.label,
			Type:        e.typ,
			Value:       e.get(d),
			Description: e.desc,
		})
	}
	return out
}

// FromMap applies "name=value" style overrides on top of the defaults.
// Unparseable values and unknown names are skipped.
func FromMap(cfg map[string]string) Dials {
	d := Default()
	for name, raw := range cfg {
		raw = strings.TrimSpace(raw)
		var v float64
		switch strings.ToLower(raw) {
		case "true", "on", "yes":
			v = 1
		case "false", "off", "no":
			v = 0
		default:
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			v = parsed
		}
		_ = d.Set(strings.TrimSpace(name), v)
	}
	return d
}

// ParseList splits "a=1,b=2" into a map suitable for FromMap.
func ParseList(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
