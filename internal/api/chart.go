package api

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tadjelllol/RBMK-Simulator/internal/persistence"
)

// chartLine is one plotted telemetry field.
type chartLine struct {
	name  string
	value func(persistence.Sample) float64
	color drawing.Color
}

type chartMetric struct {
	title string
	lines []chartLine
}

var chartMetrics = map[string]chartMetric{
	"temp": {"Heat (°C)", []chartLine{
		{"max column", func(s persistence.Sample) float64 { return s.MaxHeat }, chart.ColorRed},
		{"avg column", func(s persistence.Sample) float64 { return s.AvgHeat }, drawing.Color{R: 255, G: 165, B: 0, A: 255}},
		{"avg core", func(s persistence.Sample) float64 { return s.AvgCoreHeat }, chart.ColorBlue},
	}},
	"flux": {"Flux", []chartLine{
		{"fast", func(s persistence.Sample) float64 { return s.FluxFast }, chart.ColorRed},
		{"slow", func(s persistence.Sample) float64 { return s.FluxSlow }, chart.ColorBlue},
	}},
	"power": {"Power (MW)", []chartLine{
		{"turbines", func(s persistence.Sample) float64 { return s.PowerMW }, chart.ColorGreen},
	}},
	"fuel": {"Fuel (%)", []chartLine{
		{"depletion", func(s persistence.Sample) float64 { return s.AvgDepletion }, chart.ColorBlack},
		{"xenon", func(s persistence.Sample) float64 { return s.AvgXenon }, drawing.Color{R: 128, G: 0, B: 128, A: 255}},
		{"rod level", func(s persistence.Sample) float64 { return s.AvgRodLevel }, chart.ColorGreen},
	}},
}

// renderChart plots samples against frame number as a PNG.
func renderChart(m chartMetric, samples []persistence.Sample) ([]byte, error) {
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s.Frame)
	}

	series := make([]chart.Series, 0, len(m.lines))
	for _, l := range m.lines {
		ys := make([]float64, len(samples))
		for i, s := range samples {
			ys[i] = l.value(s)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    l.name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: l.color, StrokeWidth: 2.0},
		})
	}

	graph := chart.Chart{
		Title:  m.title,
		Width:  800,
		Height: 300,
		XAxis: chart.XAxis{
			Name:  "frame",
			Style: chart.Style{FontSize: 9.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 9.0},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
