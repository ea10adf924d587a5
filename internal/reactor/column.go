// Package reactor provides the RBMK column grid and the per-tick physics:
// heat diffusion, flux tracing, control rod servos, boilers and heat sinks.
// Coordinates are (x, y) with x growing east and y growing south.
package reactor

import (
	"fmt"
	"strings"

	"github.com/tadjelllol/RBMK-Simulator/internal/fuel"
)

// Ambient is the heat floor of every column.
const Ambient = fuel.Ambient

// DefaultMaxHeat is the meltdown threshold for a column.
const DefaultMaxHeat = 1500.0

// Kind tags the column variant.
type Kind uint8

const (
	KindBlank       Kind = iota // Inert structural column
	KindFuel                    // Holds a fuel rod
	KindControl                 // Manually positioned control rod
	KindControlAuto             // Control rod driven by column heat
	KindBoiler                  // Water to steam to power
	KindModerator               // Slows passing flux
	KindAbsorber                // Swallows flux
	KindReflector               // Returns flux to its source
	KindOutgasser
	KindStorage
	KindCooler // Cryogenic heat sink
	KindHeatex
	kindCount
)

var kindNames = [kindCount]string{
	"blank", "fuel", "control", "control_auto", "boiler", "moderator",
	"absorber", "reflector", "outgasser", "storage", "cooler", "heatex",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown column kind %q", string(b))
	}
	*k = parsed
	return nil
}

// ParseKind resolves a kind name, case-insensitively.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Kinds lists every column kind in tag order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Column is one cell of the grid. Exactly one variant payload is set,
// matching Kind; kinds with no state of their own carry none.
type Column struct {
	Kind      Kind    `json:"kind"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Heat      float64 `json:"heat"`
	MaxHeat   float64 `json:"max_heat"`
	Moderated bool    `json:"moderated"`

	Fuel      *FuelCell    `json:"fuel,omitempty"`
	Control   *Servo       `json:"control,omitempty"`
	Auto      *AutoControl `json:"auto,omitempty"`
	Boiler    *Boiler      `json:"boiler,omitempty"`
	Cooler    *Cooler      `json:"cooler,omitempty"`
	Heatex    *Heatex      `json:"heatex,omitempty"`
	Outgasser *Outgasser   `json:"outgasser,omitempty"`
}

// NewColumn builds a column of kind k at (x, y) in its initial state.
func NewColumn(k Kind, x, y int) *Column {
	c := &Column{Kind: k, X: x, Y: y, Heat: Ambient, MaxHeat: DefaultMaxHeat}
	switch k {
	case KindFuel:
		c.Fuel = newFuelCell()
	case KindControl:
		c.Control = &Servo{}
	case KindControlAuto:
		c.Auto = &AutoControl{}
	case KindBoiler:
		c.Boiler = newBoiler()
	case KindCooler:
		c.Cooler = &Cooler{}
	case KindHeatex:
		c.Heatex = &Heatex{}
	case KindOutgasser:
		c.Outgasser = &Outgasser{GasType: 9}
	}
	return c
}

// Servo returns the control actuator of a Control or ControlAuto column.
func (c *Column) Servo() *Servo {
	switch c.Kind {
	case KindControl:
		return c.Control
	case KindControlAuto:
		return &c.Auto.Servo
	}
	return nil
}

// Reset clears transient state: heat returns to ambient and every reservoir,
// servo and rod goes back to its loaded state. Placement is untouched.
func (c *Column) Reset() {
	c.Heat = Ambient
	switch c.Kind {
	case KindFuel:
		c.Fuel.reset()
	case KindControl:
		c.Control.reset()
	case KindControlAuto:
		c.Auto.reset()
	case KindBoiler:
		c.Boiler.reset()
	case KindCooler:
		c.Cooler.reset()
	case KindHeatex:
		c.Heatex.reset()
	case KindOutgasser:
		c.Outgasser.reset()
	}
}

// Overheated reports whether heat is past the column's limit.
func (c *Column) Overheated() bool { return c.Heat > c.MaxHeat }

// coolPassively bleeds heat toward ambient.
func (c *Column) coolPassively(rate float64) {
	c.Heat -= rate
	if c.Heat < Ambient {
		c.Heat = Ambient
	}
}

// FuelCell is the Fuel column payload. Rod always holds an archetype; the
// empty placeholder makes the column inert.
type FuelCell struct {
	Rod           *fuel.Rod `json:"rod"`
	FluxFast      float64   `json:"flux_fast"`
	FluxSlow      float64   `json:"flux_slow"`
	Radioactivity float64   `json:"radioactivity"` // Flux leaked out of the core this tick
	Stochastic    bool      `json:"stochastic"`    // Trace random rays instead of the four cardinal ones
}

func newFuelCell() *FuelCell {
	return &FuelCell{Rod: fuel.New(fuel.Empty())}
}

// Loaded reports whether the cell holds a real rod.
func (f *FuelCell) Loaded() bool { return f.Rod != nil && !f.Rod.Placeholder() }

// Load swaps in a fresh rod of archetype a.
func (f *FuelCell) Load(a fuel.Archetype) {
	f.Rod = fuel.New(a)
	f.FluxFast, f.FluxSlow = 0, 0
}

// Receive adds incoming flux to the accumulator for stream.
func (f *FuelCell) Receive(stream fuel.NType, flux float64) {
	switch stream {
	case fuel.Slow:
		f.FluxSlow += flux
	default:
		f.FluxFast += flux
	}
}

func (f *FuelCell) reset() {
	f.Rod.Reset()
	f.FluxFast, f.FluxSlow = 0, 0
	f.Radioactivity = 0
}
