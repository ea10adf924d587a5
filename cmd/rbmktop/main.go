// Command rbmktop runs a reactor in-process and shows it in the terminal.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"

	"github.com/tadjelllol/RBMK-Simulator/internal/dials"
	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/entropy"
	"github.com/tadjelllol/RBMK-Simulator/internal/layout"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

const rodStep = 10.0 // Percent per +/- press

func main() {
	width := flag.Int("width", reactor.DefaultSize, "grid width")
	height := flag.Int("height", reactor.DefaultSize, "grid height")
	seed := flag.Int64("seed", 0, "seed for layout and stochastic flux, 0 = random")
	tickMs := flag.Int("tick-ms", 100, "tick interval in milliseconds")
	dialList := flag.String("dials", "", "dial overrides, e.g. flux_range=6,control_speed=2")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "rbmktop needs a terminal")
		os.Exit(1)
	}

	// The screen owns stdout; logs go to a file or nowhere.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log:", err)
			os.Exit(1)
		}
		defer f.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}

	d := dials.FromMap(dials.ParseList(*dialList))
	sim := engine.NewSimulation(*width, *height, d, entropy.New(*seed))
	cfg := layout.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = *width, *height, *seed
	if err := layout.Build(sim, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "layout:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := &view{sim: sim, cx: *width / 2, cy: *height / 2}

	// Ticks run on their own goroutine and wake the event loop to redraw.
	eng := engine.NewEngine()
	eng.Interval = time.Duration(*tickMs) * time.Millisecond
	eng.OnTick = func(uint64) {
		if sim.Tick() {
			screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
	}
	go eng.Run()
	defer eng.Stop()

	v.draw(screen)
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if quit := v.handleKey(ev); quit {
				return
			}
		}
		v.draw(screen)
	}
}

// handleKey applies one key press and reports whether to quit.
func (v *view) handleKey(ev *tcell.EventKey) bool {
	v.note = ""
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.move(0, -1)
	case tcell.KeyDown:
		v.move(0, 1)
	case tcell.KeyLeft:
		v.move(-1, 0)
	case tcell.KeyRight:
		v.move(1, 0)
	case tcell.KeyRune:
		return v.handleRune(ev.Rune())
	}
	return false
}

func (v *view) handleRune(r rune) bool {
	var err error
	switch r {
	case 'q':
		return true
	case ' ':
		if v.sim.Status().State == engine.Running {
			v.sim.Stop()
		} else {
			err = v.sim.Run()
		}
	case 'a':
		v.sim.AZ5()
	case 'r':
		v.sim.Reset()
	case '+', '=':
		v.sim.PullAll(v.sim.Status().Stats.AvgRodLevel + rodStep)
	case '-':
		v.sim.PullAll(v.sim.Status().Stats.AvgRodLevel - rodStep)
	case 'm':
		_, err = v.sim.ToggleModeration(v.cx, v.cy)
	case 's':
		_, err = v.sim.CycleSteam(v.cx, v.cy)
	}
	if err != nil {
		v.note = err.Error()
	}
	return false
}
