package reactor

import (
	"math"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
)

// Boiler reservoir limits and fixed per-tick rates, in litres.
const (
	FeedwaterMax     = 10000.0
	FeedwaterInitial = 5000.0
	SteamMax         = 50000.0
	Steam2Max        = 25000.0
	SpentSteamMax    = 100000.0

	WaterRate        = 200.0 // Max feedwater boiled per tick
	TempSpan         = 200.0 // Degrees above the stage minimum for full throughput
	TurbineRate      = 200.0
	CondensationRate = 300.0
	RefillFraction   = 0.1 // Feedwater is topped up by this share once below it
)

// SteamStage is one of the four steam densities a boiler can produce.
type SteamStage struct {
	Name       string  `json:"name"`
	MinTemp    float64 `json:"min_temp"`
	Factor     float64 `json:"factor"`      // Litres of water per unit of steam, /100
	AmountReq  float64 `json:"amount_req"`  // Buffered steam consumed per turbine op
	Produced   float64 `json:"produced"`    // Spent steam per op
	Efficiency float64 `json:"efficiency"`
	HeatEnergy float64 `json:"heat_energy"`
}

// SteamStages lists stages 0 through 3.
var SteamStages = [4]SteamStage{
	{"steam", 100, 1, 100, 1, 0.7, 100},
	{"dense steam", 250, 5, 20, 1, 0.8, 200},
	{"super dense steam", 400, 20, 5, 1, 0.9, 400},
	{"ultra dense steam", 600, 50, 2, 1, 1.0, 800},
}

// Boiler turns column heat into steam and steam into power.
type Boiler struct {
	Feedwater     float64 `json:"feedwater"`
	Steam         float64 `json:"steam"`
	Steam2        float64 `json:"steam2"` // Buffer between the steam drum and the turbine
	SpentSteam    float64 `json:"spent_steam"`
	SteamType     int     `json:"steam_type"`
	ProducedPower float64 `json:"produced_power"`
	ProducedMW    float64 `json:"produced_mw"`
}

func newBoiler() *Boiler {
	return &Boiler{Feedwater: FeedwaterInitial}
}

// Stage returns the active steam stage.
func (b *Boiler) Stage() SteamStage {
	if b.SteamType < 0 || b.SteamType >= len(SteamStages) {
		return SteamStages[0]
	}
	return SteamStages[b.SteamType]
}

// CycleSteam advances to the next stage, wrapping after the last.
func (b *Boiler) CycleSteam() int {
	b.SteamType = (b.SteamType + 1) % len(SteamStages)
	return b.SteamType
}

// update clamps the reservoirs and boils feedwater using column heat.
func (b *Boiler) update(c *Column, d dials.Dials) {
	b.Feedwater = math.Min(b.Feedwater, FeedwaterMax)
	b.SpentSteam = math.Min(b.SpentSteam, SpentSteamMax)

	st := b.Stage()
	if c.Heat < st.MinTemp {
		return
	}
	tempFactor := math.Min(1, (c.Heat-st.MinTemp)/TempSpan)
	water := math.Min(WaterRate*tempFactor, b.Feedwater)
	produced := math.Floor(water * 100 / st.Factor)

	extracted := water * d.BoilerHeatConsumption * (1 + float64(b.SteamType)*0.5)
	c.Heat = math.Max(Ambient, c.Heat-extracted)

	b.Feedwater -= water
	b.Steam = math.Min(b.Steam+produced, SteamMax)
}

// turbine runs steam through the turbine, then condenses and refills.
func (b *Boiler) turbine() {
	out := math.Min(TurbineRate, b.Steam)
	b.Steam -= out
	b.Steam2 = math.Min(b.Steam2+out, Steam2Max)

	b.ProducedPower = 0
	b.ProducedMW = 0
	if out > 0 {
		st := b.Stage()
		inputOps := math.Floor(b.Steam2 / st.AmountReq)
		outputOps := SpentSteamMax - b.SpentSteam
		capOps := math.Ceil(b.Steam2 / st.AmountReq / 5)
		ops := math.Min(inputOps, math.Min(outputOps, capOps))

		b.Steam2 -= ops * st.AmountReq
		b.SpentSteam += ops * st.Produced
		b.ProducedPower = ops * st.HeatEnergy * st.Efficiency
		b.ProducedMW = b.ProducedPower * math.Pow(2, float64(b.SteamType)) / 100
	}

	convert := math.Min(CondensationRate, math.Min(b.SpentSteam, FeedwaterMax-b.Feedwater))
	b.SpentSteam -= convert
	b.Feedwater += convert

	if b.Feedwater < FeedwaterMax*RefillFraction {
		b.Feedwater = math.Min(b.Feedwater+FeedwaterMax*RefillFraction, FeedwaterMax)
	}
}

func (b *Boiler) reset() {
	b.Feedwater, b.Steam, b.Steam2, b.SpentSteam = 0, 0, 0, 0
	b.ProducedPower, b.ProducedMW = 0, 0
}
