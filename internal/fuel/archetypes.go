package fuel

import (
	"fmt"
	"strings"
)

// Archetype is the static description of a fuel type. Rod state is seeded
// from it on every fuel swap.
type Archetype struct {
	Name         string      `json:"name"`
	Label        string      `json:"label"`
	FullName     string      `json:"full_name"`
	DefaultYield float64     `json:"default_yield"`
	Reactivity   float64     `json:"reactivity"`
	SelfRate     float64     `json:"self_rate"`
	Func         BurnFunc    `json:"func"`
	Deplete      DepleteFunc `json:"deplete"`
	XenonGen     float64     `json:"xenon_gen"`
	XenonBurn    float64     `json:"xenon_burn"`
	HeatPerFlux  float64     `json:"heat_per_flux"`
	MeltingPoint float64     `json:"melting_point"`
	Diffusion    float64     `json:"diffusion"`
	In           NType       `json:"in"`
	Out          NType       `json:"out"`
}

// Placeholder reports whether the archetype is the empty rod slot.
func (a Archetype) Placeholder() bool { return a.Name == EmptyName }

// EmptyName names the placeholder archetype loaded into new fuel columns.
const EmptyName = "empty"

// base fills the fields every archetype shares unless overridden.
func base(name, label, full string) Archetype {
	return Archetype{
		Name:         name,
		Label:        label,
		FullName:     full,
		Func:         LogTen,
		Deplete:      GentleSlope,
		XenonGen:     0.5,
		XenonBurn:    50,
		HeatPerFlux:  1,
		MeltingPoint: 1000,
		Diffusion:    0.2,
		In:           Slow,
		Out:          Fast,
	}
}

type opt func(*Archetype)

func stats(reactivity, selfRate float64) opt {
	return func(a *Archetype) { a.Reactivity, a.SelfRate = reactivity, selfRate }
}
func yield(y float64) opt { return func(a *Archetype) { a.DefaultYield = y } }
func burn(f BurnFunc) opt { return func(a *Archetype) { a.Func = f } }
func deplete(f DepleteFunc) opt { return func(a *Archetype) { a.Deplete = f } }
func heat(h float64) opt { return func(a *Archetype) { a.HeatPerFlux = h } }
func melting(m float64) opt { return func(a *Archetype) { a.MeltingPoint = m } }
func diffusion(d float64) opt { return func(a *Archetype) { a.Diffusion = d } }
func ntypes(in, out NType) opt { return func(a *Archetype) { a.In, a.Out = in, out } }
func xenon(gen, burn float64) opt { return func(a *Archetype) { a.XenonGen, a.XenonBurn = gen, burn } }

func def(name, label, full string, opts ...opt) Archetype {
	a := base(name, label, full)
	for _, o := range opts {
		o(&a)
	}
	return a
}

// archetypes is ordered as fuel types appear in the selector: index 0 is the
// empty placeholder.
var archetypes = []Archetype{
	def(EmptyName, "Empty RBMK Fuel Rod", "It's empty. What do you expect?"),
	def("ueu", "NU RBMK Fuel Rod", "Unenriched Uranium",
		yield(1e8), stats(15, 0), burn(LogTen), deplete(RaisingSlope), heat(0.65), melting(2865)),
	def("meu", "MEU RBMK Fuel Rod", "Medium Enriched Uranium-235",
		yield(1e8), stats(20, 0), burn(LogTen), deplete(RaisingSlope), heat(0.65), melting(2865)),
	def("heu233", "HEU-233 RBMK Fuel Rod", "Highly Enriched Uranium-233",
		yield(1e8), stats(27.5, 0), burn(Linear), heat(1.25), melting(2865)),
	def("heu235", "HEU-235 RBMK Fuel Rod", "Highly Enriched Uranium-235",
		yield(1e8), stats(50, 0), burn(SquareRoot), melting(2865)),
	def("thmeu", "ThMEU RBMK Fuel Rod", "Thorium with MEU Driver Fuel",
		yield(1e8), stats(20, 0), burn(Plateau), deplete(BoostedSlope), heat(0.65), melting(3350)),
	def("lep", "LEP-239 RBMK Fuel Rod", "Low Enriched Plutonium-239",
		yield(1e8), stats(35, 0), burn(LogTen), deplete(RaisingSlope), heat(0.75), melting(2744)),
	def("mep", "MEP-239 RBMK Fuel Rod", "Medium Enriched Plutonium-239",
		yield(1e8), stats(35, 20), burn(SquareRoot), melting(2744)),
	def("hep", "HEP-239 RBMK Fuel Rod", "Highly Enriched Plutonium-239",
		yield(1e8), stats(30, 0), burn(Linear), heat(1.25), melting(2744)),
	def("hep241", "HEP-241 RBMK Fuel Rod", "Highly Enriched Plutonium-241",
		yield(1e8), stats(40, 0), burn(Linear), heat(1.75), melting(2744)),
	def("lea", "LEA RBMK Fuel Rod", "Low Enriched Americium-242",
		yield(1e8), stats(60, 10), burn(SquareRoot), deplete(RaisingSlope), heat(1.5), melting(2386)),
	def("mea", "MEA RBMK Fuel Rod", "Medium Enriched Americium-242",
		yield(1e8), stats(35, 20), burn(Arch), heat(1.75), melting(2386)),
	def("hea241", "HEA-241 RBMK Fuel Rod", "Highly Enriched Americium-241",
		yield(1e8), stats(65, 15), burn(SquareRoot), heat(1.85), melting(2386), ntypes(Fast, Fast)),
	def("hea242", "HEA-242 RBMK Fuel Rod", "Highly Enriched Americium-242",
		yield(1e8), stats(45, 0), burn(Linear), heat(2), melting(2386)),
	def("men", "MEN RBMK Fuel Rod", "Medium Enriched Neptunium-237",
		yield(1e8), stats(30, 0), burn(SquareRoot), deplete(RaisingSlope), heat(0.75), melting(2800), ntypes(Any, Fast)),
	def("hen", "HEN RBMK Fuel Rod", "Highly Enriched Neptunium-237",
		yield(1e8), stats(40, 0), burn(SquareRoot), melting(2800), ntypes(Fast, Fast)),
	def("mox", "MOX RBMK Fuel Rod", "Mixed MEU & LEP Oxide",
		yield(1e8), stats(40, 0), burn(LogTen), deplete(RaisingSlope), melting(2815)),
	def("les", "LES RBMK Fuel Rod", "Low Enriched Schrabidium-326",
		yield(1e8), stats(50, 0), burn(SquareRoot), heat(1.25), melting(2800), ntypes(Slow, Slow)),
	def("mes", "MES RBMK Fuel Rod", "Medium Enriched Schrabidium-326",
		yield(1e8), stats(75, 0), burn(Arch), heat(1.5), melting(2750)),
	def("hes", "HES RBMK Fuel Rod", "Highly Enriched Schrabidium-326",
		yield(1e8), stats(90, 0), burn(Linear), deplete(LinearSlope), heat(1.75), melting(3000)),
	def("leaus", "LEAus RBMK Fuel Rod", "Low Enriched Australium (Tasmanite)",
		yield(1e8), stats(30, 0), burn(Sigmoid), deplete(LinearSlope), xenon(0.05, 50), heat(1.5), melting(7029)),
	def("heaus", "HEAus RBMK Fuel Rod", "Highly Enriched Australium (Ayerite)",
		yield(1e8), stats(35, 0), burn(SquareRoot), xenon(0.05, 50), heat(2), melting(5211)),
	def("po210be", "Po210Be RBMK Neutron Source", "Polonium-210 & Beryllium Neutron Source",
		yield(2.5e7), stats(0, 50), burn(Passive), deplete(LinearSlope), xenon(0, 50), heat(0.1), diffusion(0.05), melting(1287), ntypes(Slow, Slow)),
	def("ra226be", "Ra226Be RBMK Neutron Source", "Radium-226 & Beryllium Neutron Source",
		yield(1e8), stats(0, 20), burn(Passive), deplete(LinearSlope), xenon(0, 50), heat(0.035), diffusion(0.5), melting(700), ntypes(Slow, Slow)),
	def("pu238be", "Pu238Be RBMK Neutron Source", "Plutonium-238 & Beryllium Neutron Source",
		yield(5e7), stats(40, 40), burn(SquareRoot), heat(0.1), diffusion(0.05), melting(1287), ntypes(Slow, Slow)),
	def("balefire_gold", "Flashgold RBMK Fuel Rod", "Antihydrogen in a Magnetized Gold-198 Lattice",
		yield(1e8), stats(40, 40), burn(Arch), deplete(LinearSlope), xenon(0, 50), melting(2000)),
	def("flashlead", "Flashlead RBMK Fuel Rod", "Antihydrogen confined by a Magnetized Gold-198 and Lead-209 Lattice",
		yield(2.5e8), stats(40, 50), burn(Arch), deplete(LinearSlope), xenon(0, 50), melting(2050)),
	def("balefire", "Balefire RBMK Fuel Rod", "Draconic Flames",
		yield(1e8), stats(100, 35), burn(Arch), deplete(LinearSlope), xenon(0, 50), heat(3), melting(3652)),
	def("zfb_bismuth", "Bismuth RBMK ZFB Rod", "Zirconium Fast Breeder - LEU/HEP-241#Bi",
		yield(5e7), stats(20, 0), burn(SquareRoot), heat(1.75), melting(2744)),
	def("zfb_pu241", "Pu-241 RBMK ZFB Rod", "Zirconium Fast Breeder - HEU-235/HEP-240#Pu-241",
		yield(5e7), stats(20, 0), burn(SquareRoot), melting(2865)),
	def("zfb_am_mix", "Fuel Grade Americium RBMK ZFB Rod", "Zirconium Fast Breeder - HEP-241#MEA",
		yield(5e7), stats(20, 0), burn(Linear), heat(1.75), melting(2744)),
	def("drx", "Digamma RBMK Fuel Rod", "can't you hear, can't you hear the thunder?",
		yield(1e6), stats(1000, 10), burn(Quadratic), heat(0.1), melting(100000)),
	def("test", "rbmk_fuel_test", "THE VOICES",
		yield(1e6), stats(100, 0), burn(Experimental), heat(1), melting(100000)),
}

var byName = func() map[string]int {
	m := make(map[string]int, len(archetypes))
	for i, a := range archetypes {
		m[a.Name] = i
	}
	return m
}()

// Archetypes returns a copy of the archetype table in selector order.
func Archetypes() []Archetype {
	out := make([]Archetype, len(archetypes))
	copy(out, archetypes)
	return out
}

// Lookup finds an archetype by short name ("ueu") or by its item id
// ("rbmk_fuel_ueu"). Matching is case-insensitive.
func Lookup(name string) (Archetype, bool) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "rbmk_fuel_")
	i, ok := byName[name]
	if !ok {
		return Archetype{}, false
	}
	return archetypes[i], true
}

// ByIndex returns the archetype at selector position i.
func ByIndex(i int) (Archetype, error) {
	if i < 0 || i >= len(archetypes) {
		return Archetype{}, fmt.Errorf("fuel index %d out of range [0,%d)", i, len(archetypes))
	}
	return archetypes[i], nil
}

// Empty returns the placeholder archetype.
func Empty() Archetype { return archetypes[0] }
