package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Each column is drawn two cells wide so the grid stays roughly square.
const cellWidth = 2

var glyphs = map[reactor.Kind]rune{
	reactor.KindBlank:       '·',
	reactor.KindFuel:        'F',
	reactor.KindControl:     'C',
	reactor.KindControlAuto: 'A',
	reactor.KindBoiler:      'B',
	reactor.KindModerator:   'M',
	reactor.KindAbsorber:    'X',
	reactor.KindReflector:   'R',
	reactor.KindOutgasser:   'O',
	reactor.KindStorage:     'S',
	reactor.KindCooler:      'K',
	reactor.KindHeatex:      'H',
}

func glyph(k reactor.Kind) rune {
	if g, ok := glyphs[k]; ok {
		return g
	}
	return '?'
}

// heatColor runs from dark blue at ambient through green and yellow to red
// at the meltdown threshold.
func heatColor(heat float64) tcell.Color {
	t := (heat - reactor.Ambient) / (reactor.DefaultMaxHeat - reactor.Ambient)
	t = math.Max(0, math.Min(1, t))

	var r, g, b float64
	switch {
	case t < 0.33:
		u := t / 0.33
		r, g, b = 0, 80+120*u, 160*(1-u)
	case t < 0.66:
		u := (t - 0.33) / 0.33
		r, g, b = 255*u, 200+55*u, 0
	default:
		u := (t - 0.66) / 0.34
		r, g, b = 255, 255*(1-u), 0
	}
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// view holds the viewer's cursor and draws the simulation.
type view struct {
	sim    *engine.Simulation
	cx, cy int
	note   string
}

func (v *view) move(dx, dy int) {
	st := v.sim.Status()
	v.cx = max(0, min(st.Width-1, v.cx+dx))
	v.cy = max(0, min(st.Height-1, v.cy+dy))
}

func (v *view) draw(s tcell.Screen) {
	s.Clear()
	st := v.sim.Status()

	for _, c := range v.sim.Cells() {
		style := tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(heatColor(c.Heat))
		if c.Moderated {
			style = style.Underline(true)
		}
		if c.X == v.cx && c.Y == v.cy {
			style = style.Reverse(true)
		}
		x := c.X * cellWidth
		s.SetContent(x, c.Y, glyph(c.Kind), nil, style)
		s.SetContent(x+1, c.Y, levelMark(c), nil, style)
	}
	// Cursor over an empty slot.
	if _, err := v.sim.Cell(v.cx, v.cy); err != nil {
		s.SetContent(v.cx*cellWidth, v.cy, '_', nil, tcell.StyleDefault.Reverse(true))
	}

	row := st.Height + 1
	drawText(s, 0, row, statusStyle(st), statusLine(st))
	drawText(s, 0, row+1, tcell.StyleDefault, statsLine(st.Stats))
	drawText(s, 0, row+2, tcell.StyleDefault, v.detail())
	drawText(s, 0, row+3, tcell.StyleDefault.Dim(true),
		"space run/stop  a AZ-5  r reset  +/- rods  m moderate  s steam  arrows move  q quit")
	if v.note != "" {
		drawText(s, 0, row+4, tcell.StyleDefault.Foreground(tcell.ColorYellow), v.note)
	}
	s.Show()
}

// levelMark shows rod level as a digit for control columns.
func levelMark(c reactor.Cell) rune {
	switch c.Kind {
	case reactor.KindControl, reactor.KindControlAuto:
		d := int(math.Round(c.Level * 9))
		return rune('0' + max(0, min(9, d)))
	}
	return ' '
}

func statusStyle(st engine.Status) tcell.Style {
	switch {
	case st.Exploded:
		return tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed).Bold(true)
	case st.AZ5:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case st.State == engine.Running:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
	return tcell.StyleDefault
}

func statusLine(st engine.Status) string {
	line := fmt.Sprintf("%-7s frame %s  %s", st.State, humanize.Comma(int64(st.Frames)),
		humanize.SIWithDigits(st.Stats.PowerMW*1e6, 2, "W"))
	if st.AZ5 {
		line += "  AZ-5"
	}
	if st.Exploded {
		line += "  MELTDOWN, press r"
	}
	return line
}

func statsLine(t reactor.Totals) string {
	return fmt.Sprintf("heat avg %s max %s  rods %.0f%%  depletion %.2f%%  xenon %.1f%%  flux %s/%s",
		humanize.FormatFloat("#,###.", t.AvgHeat),
		humanize.FormatFloat("#,###.", t.MaxHeat),
		t.AvgRodLevel, t.AvgDepletion, t.AvgXenon,
		humanize.FormatFloat("#,###.#", t.FluxFast),
		humanize.FormatFloat("#,###.#", t.FluxSlow))
}

func (v *view) detail() string {
	c, err := v.sim.Cell(v.cx, v.cy)
	if err != nil {
		return fmt.Sprintf("(%d,%d) empty", v.cx, v.cy)
	}
	head := fmt.Sprintf("(%d,%d) %s %.1f°C", c.X, c.Y, c.Kind, c.Heat)
	if c.Moderated {
		head += " moderated"
	}
	switch c.Kind {
	case reactor.KindFuel:
		return fmt.Sprintf("%s  %s depletion %.3f%% xenon %.2f%% core %.0f skin %.0f",
			head, c.Fuel, c.Depletion, c.Xenon, c.CoreHeat, c.SkinHeat)
	case reactor.KindControl, reactor.KindControlAuto:
		return fmt.Sprintf("%s  level %.1f%%", head, c.Level*100)
	case reactor.KindBoiler:
		return fmt.Sprintf("%s  %s water %s steam %s  %.2f MW", head,
			reactor.SteamStages[c.SteamType].Name,
			humanize.FormatFloat("#,###.", c.Feedwater),
			humanize.FormatFloat("#,###.", c.Steam), c.ProducedMW)
	case reactor.KindCooler:
		return fmt.Sprintf("%s  cryo %s", head, humanize.FormatFloat("#,###.", c.Cryo))
	}
	return head
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
