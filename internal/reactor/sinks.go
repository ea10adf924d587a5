package reactor

import "math"

// Cooler limits.
const (
	CryoMax       = 8000.0
	CoolThreshold = 750.0 // Coolers only act above this heat
	CryoType      = 37
)

// Cooler spends cryogenic coolant to hold its column at CoolThreshold.
type Cooler struct {
	Cryo   float64 `json:"cryo"`
	Cooled float64 `json:"cooled"` // Heat removed on the last tick
}

// Refill adds coolant, normalizing NaN and negatives to 0 and capping at CryoMax.
func (k *Cooler) Refill(amount float64) float64 {
	k.Cryo = math.Min(CryoMax, k.Cryo+math.Max(0, nanZero(amount)))
	return k.Cryo
}

func (k *Cooler) update(c *Column) {
	k.Cryo = math.Min(k.Cryo, CryoMax)
	k.Cooled = 0
	if c.Heat <= CoolThreshold {
		return
	}
	cooling := math.Min(c.Heat-CoolThreshold, k.Cryo)
	c.Heat -= cooling
	k.Cryo -= cooling
	k.Cooled = cooling
}

func (k *Cooler) reset() {
	k.Cryo, k.Cooled = 0, 0
}

// Heat-exchanger limits.
const (
	CoolantMax    = 16000.0
	HotCoolantMax = 16000.0
)

// Heatex carries coolant reservoirs. It has no transfer behavior yet and
// acts as a plain column during the tick.
type Heatex struct {
	Coolant    float64 `json:"coolant"`
	HotCoolant float64 `json:"hot_coolant"`
}

func (h *Heatex) reset() {
	h.Coolant, h.HotCoolant = 0, 0
}

// Outgasser state. Irradiation is not modeled, so the column is passive.
type Outgasser struct {
	Gas      float64 `json:"gas"`
	GasMax   float64 `json:"gas_max"`
	GasType  int     `json:"gas_type"`
	Progress float64 `json:"progress"`
}

func (o *Outgasser) reset() {
	o.Gas, o.Progress = 0, 0
}
