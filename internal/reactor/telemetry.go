package reactor

import "math"

// Totals aggregates grid telemetry for the stats panel and charts.
type Totals struct {
	Columns      int     `json:"columns"`
	AvgHeat      float64 `json:"avg_heat"`
	MaxHeat      float64 `json:"max_heat"`
	AvgRodLevel  float64 `json:"avg_rod_level"` // Percent, over Control and ControlAuto
	AvgDepletion float64 `json:"avg_depletion"` // Percent, over loaded fuel
	AvgXenon     float64 `json:"avg_xenon"`
	AvgCoreHeat  float64 `json:"avg_core_heat"`
	FluxFast     float64 `json:"flux_fast"`
	FluxSlow     float64 `json:"flux_slow"`
	PowerMW      float64 `json:"power_mw"`
	Rads         float64 `json:"rads"`
}

// Summarize computes Totals over every occupied column.
func (g *Grid) Summarize() Totals {
	var t Totals
	var rods, fuels int
	var heat, level, depletion, xenon, core float64

	g.Each(func(c *Column) {
		t.Columns++
		heat += c.Heat
		t.MaxHeat = math.Max(t.MaxHeat, c.Heat)

		switch c.Kind {
		case KindFuel:
			f := c.Fuel
			t.FluxFast += f.FluxFast
			t.FluxSlow += f.FluxSlow
			t.Rads += f.Radioactivity
			if f.Loaded() {
				fuels++
				depletion += f.Rod.Depletion()
				xenon += f.Rod.Xenon
				core += f.Rod.CoreHeat
			}
		case KindControl, KindControlAuto:
			rods++
			level += c.Servo().Level * 100
		case KindBoiler:
			t.PowerMW += c.Boiler.ProducedMW
		}
	})

	if t.Columns > 0 {
		t.AvgHeat = heat / float64(t.Columns)
	}
	if rods > 0 {
		t.AvgRodLevel = level / float64(rods)
	}
	if fuels > 0 {
		t.AvgDepletion = depletion / float64(fuels)
		t.AvgXenon = xenon / float64(fuels)
		t.AvgCoreHeat = core / float64(fuels)
	}
	return t
}

// Cell is a flat read-only view of one column for display layers.
type Cell struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Kind      Kind    `json:"kind"`
	Heat      float64 `json:"heat"`
	Moderated bool    `json:"moderated,omitempty"`

	Fuel       string  `json:"fuel,omitempty"`
	Depletion  float64 `json:"depletion,omitempty"`
	Xenon      float64 `json:"xenon,omitempty"`
	CoreHeat   float64 `json:"core_heat,omitempty"`
	SkinHeat   float64 `json:"skin_heat,omitempty"`
	Level      float64 `json:"level,omitempty"`
	Feedwater  float64 `json:"feedwater,omitempty"`
	Steam      float64 `json:"steam,omitempty"`
	SteamType  int     `json:"steam_type,omitempty"`
	ProducedMW float64 `json:"produced_mw,omitempty"`
	Cryo       float64 `json:"cryo,omitempty"`
}

// CellOf flattens c.
func CellOf(c *Column) Cell {
	v := Cell{X: c.X, Y: c.Y, Kind: c.Kind, Heat: c.Heat, Moderated: c.Moderated}
	switch c.Kind {
	case KindFuel:
		r := c.Fuel.Rod
		v.Fuel = r.Name
		v.Depletion = r.Depletion()
		v.Xenon = r.Xenon
		v.CoreHeat = r.CoreHeat
		v.SkinHeat = r.SkinHeat
	case KindControl, KindControlAuto:
		v.Level = c.Servo().Level
	case KindBoiler:
		v.Feedwater = c.Boiler.Feedwater
		v.Steam = c.Boiler.Steam
		v.SteamType = c.Boiler.SteamType
		v.ProducedMW = c.Boiler.ProducedMW
	case KindCooler:
		v.Cryo = c.Cooler.Cryo
	}
	return v
}

// Cells returns a view of every occupied column in row-major order.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, 0, g.Count())
	g.Each(func(c *Column) { out = append(out, CellOf(c)) })
	return out
}
