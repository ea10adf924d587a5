// Package fuel models a single RBMK fuel rod: yield depletion, xenon poisoning,
// the reactivity curves that turn incoming flux into outgoing flux, and the
// two-node core/skin heat model that feeds the host column.
package fuel

import (
	"fmt"
	"math"
	"strings"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
)

// Ambient is the temperature floor shared by every heat value in the core.
const Ambient = 20.0

// HeatCeiling is the upper clamp applied by Rectify.
const HeatCeiling = 1_000_000.0

// NType is a neutron speed class.
type NType uint8

const (
	Slow NType = iota
	Fast
	Any
)

func (n NType) String() string {
	switch n {
	case Slow:
		return "slow"
	case Fast:
		return "fast"
	case Any:
		return "any"
	}
	return fmt.Sprintf("ntype(%d)", uint8(n))
}

func (n NType) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// BurnFunc selects the reactivity curve.
type BurnFunc uint8

const (
	Passive BurnFunc = iota
	LogTen
	Plateau
	Arch
	Sigmoid
	SquareRoot
	Linear
	Quadratic
	Experimental
)

var burnFuncNames = [...]string{"passive", "log_ten", "plateau", "arch", "sigmoid", "square_root", "linear", "quadratic", "experimental"}

func (b BurnFunc) String() string {
	if int(b) < len(burnFuncNames) {
		return burnFuncNames[b]
	}
	return fmt.Sprintf("burnfunc(%d)", uint8(b))
}

func (b BurnFunc) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// DepleteFunc selects how enrichment scales reactivity.
type DepleteFunc uint8

const (
	GentleSlope DepleteFunc = iota
	LinearSlope
	RaisingSlope
	BoostedSlope
	Static
)

var depleteFuncNames = [...]string{"gentle_slope", "linear", "raising_slope", "boosted_slope", "static"}

func (d DepleteFunc) String() string {
	if int(d) < len(depleteFuncNames) {
		return depleteFuncNames[d]
	}
	return fmt.Sprintf("deplete(%d)", uint8(d))
}

func (d DepleteFunc) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Modifier maps enrichment e to the reactivity multiplier.
func (d DepleteFunc) Modifier(e float64) float64 {
	switch d {
	case LinearSlope:
		return e
	case Static:
		return 1
	case BoostedSlope:
		return e + math.Sin((e-1)*(e-1)*math.Pi)
	case RaisingSlope:
		return e + math.Sin(e*math.Pi)/2
	case GentleSlope:
		return e + math.Sin(e*math.Pi)/3
	}
	return e
}

// Rectify snaps NaN and sub-ambient values to ambient and clamps runaway heat.
func Rectify(v float64) float64 {
	if math.IsNaN(v) || v < Ambient {
		return Ambient
	}
	if v > HeatCeiling {
		return HeatCeiling
	}
	return v
}

// Rod is the live state of one fuel rod. Rods are created from an Archetype
// and discarded on a fuel swap.
type Rod struct {
	Archetype

	Yield    float64 `json:"yield"`
	Xenon    float64 `json:"xenon"`
	CoreHeat float64 `json:"core_heat"`
	SkinHeat float64 `json:"skin_heat"`
}

// New returns a fresh rod of archetype a.
func New(a Archetype) *Rod {
	r := &Rod{Archetype: a}
	r.Reset()
	return r
}

// Reset restores burn state to a freshly loaded rod.
func (r *Rod) Reset() {
	r.Yield = r.DefaultYield
	r.Xenon = 0
	r.CoreHeat = Ambient
	r.SkinHeat = Ambient
}

// Enrichment is remaining yield over initial yield. Archetypes without a
// yield have nothing to enrich and read as fully depleted.
func (r *Rod) Enrichment() float64 {
	if r.DefaultYield <= 0 {
		return 0
	}
	return r.Yield / r.DefaultYield
}

// Depletion is the consumed share of the initial yield, in percent.
func (r *Rod) Depletion() float64 {
	return (1 - r.Enrichment()) * 100
}

// Poison is the xenon attenuation fraction.
func (r *Rod) Poison() float64 { return r.Xenon / 100 }

// FluxFor weights the accumulated fast/slow flux by the rod's input type.
func (r *Rod) FluxFor(fast, slow float64) float64 {
	switch r.In {
	case Slow:
		return fast*0.5 + slow
	case Fast:
		return fast + slow*0.3
	default:
		return fast + slow
	}
}

// Burn consumes inFlux and returns the emitted flux. The poison fraction is
// taken from the xenon level at the start of the burn.
func (r *Rod) Burn(inFlux float64, d dials.Dials) float64 {
	inFlux += r.SelfRate

	poison := r.Poison()
	xenon := r.Xenon - inFlux*inFlux/r.XenonBurn
	inFlux *= 1 - poison
	xenon += inFlux * r.XenonGen
	r.Xenon = math.Min(100, math.Max(0, xenon))

	out := r.reactivity(inFlux, r.Enrichment()*d.ReactivityMod)

	r.Yield = math.Max(0, r.Yield-inFlux)
	r.CoreHeat = Rectify(r.CoreHeat + out*r.HeatPerFlux)
	return out
}

func (r *Rod) reactivity(x, enrichment float64) float64 {
	mod := r.Deplete.Modifier(enrichment)
	R := r.Reactivity * mod
	switch r.Func {
	case Passive:
		return r.SelfRate * mod
	case LogTen:
		return math.Log10(x+1) * 0.5 * R
	case Plateau:
		return (1 - math.Exp(-x/25)) * R
	case Arch:
		return math.Max((x-x*x/10000)/100*R, 0)
	case Sigmoid:
		return R / (1 + math.Exp(-(x-50)/10))
	case SquareRoot:
		return math.Sqrt(x) * R / 10
	case Linear:
		return x / 100 * R
	case Quadratic:
		return x * x / 10000 * R
	case Experimental:
		return x * (math.Sin(x) + 1) * R
	}
	return 0
}

// UpdateHeat moves heat from core to skin.
func (r *Rod) UpdateHeat(mod float64, d dials.Dials) {
	if r.CoreHeat <= r.SkinHeat {
		return
	}
	step := (r.CoreHeat - r.SkinHeat) / 2 * r.Diffusion * d.DiffusionMod * mod
	r.CoreHeat = Rectify(r.CoreHeat - step)
	r.SkinHeat = Rectify(r.SkinHeat + step)
}

// ProvideHeat returns the heat the skin hands to a column at columnHeat.
// A skin above the melting point collapses core, skin and column to their
// mean and returns the column's delta.
func (r *Rod) ProvideHeat(columnHeat, mod float64, d dials.Dials) float64 {
	if r.SkinHeat > r.MeltingPoint {
		avg := (columnHeat + r.SkinHeat + r.CoreHeat) / 3
		r.CoreHeat = avg
		r.SkinHeat = avg
		return avg - columnHeat
	}
	if r.SkinHeat <= columnHeat {
		return 0
	}
	ret := (r.SkinHeat - columnHeat) / 2 * d.HeatProvision * mod
	r.SkinHeat -= ret
	return ret
}

// Melting reports whether the skin is past the melting point.
func (r *Rod) Melting() bool { return r.SkinHeat > r.MeltingPoint }

var funcTemplates = map[BurnFunc]string{
	LogTen:       "log10(%1 + 1) * 0.5 * %2",
	Plateau:      "(1 - e^-%1 / 25)) * %2",
	Arch:         "(%1 - %1² / 10000) / 100 * %2 [0;∞]",
	Sigmoid:      "%2 / (1 + e^(-(%1 - 50) / 10)",
	SquareRoot:   "sqrt(%1) * %2 / 10",
	Linear:       "%1 / 100 * %2",
	Quadratic:    "%1² / 10000 * %2",
	Experimental: "%1 * (sin(%1) + 1) * %2",
}

// Describe renders the rod's flux function with its current effective
// reactivity, e.g. "log10(x + 1) * 0.5 * 15.0".
func (r *Rod) Describe() string {
	if r.Func == Passive {
		return fmt.Sprintf("%g", r.SelfRate)
	}
	tmpl, ok := funcTemplates[r.Func]
	if !ok {
		return "ERROR"
	}
	x := "x"
	if r.SelfRate > 0 {
		x = fmt.Sprintf("(x + %.1f)", r.SelfRate)
	}
	e := r.Enrichment()
	if e < 1 {
		mod := r.Deplete.Modifier(e)
		s := strings.NewReplacer("%1", x, "%2", fmt.Sprintf("%.1f", r.Reactivity*mod)).Replace(tmpl)
		return fmt.Sprintf("%s %.1f%%", s, mod*100)
	}
	return strings.NewReplacer("%1", x, "%2", fmt.Sprintf("%.1f", r.Reactivity)).Replace(tmpl)
}
