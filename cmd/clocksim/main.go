// clocksim runs the clock-cycling firmware against an emulated Nucleo-144
// and prints its console. A scenario file scripts the button presses.
//
//	clocksim [-scenario run.yaml] [-config board.yaml] [-itm trace.bin]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"clockcycle-go/bus"
	"clockcycle-go/internal/app"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/internal/irq"
	"clockcycle-go/internal/itm"
	"clockcycle-go/internal/platform/sim"
	"clockcycle-go/services/config"
	"clockcycle-go/services/monitor"
	"clockcycle-go/x/logx"
)

var oscByName = map[string]sim.Osc{
	"msi":   sim.OscMSI,
	"hsi16": sim.OscHSI16,
	"hse":   sim.OscHSE,
	"pll":   sim.OscPLL,
	"lse":   sim.OscLSE,
}

func main() {
	scenarioPath := flag.String("scenario", "", "scenario YAML (default: one click per mode)")
	configPath := flag.String("config", "", "config overlay YAML; overrides the scenario's")
	itmPath := flag.String("itm", "", "also write the console as ITM stimulus packets to this file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if err := run(*scenarioPath, *configPath, *itmPath, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "clocksim:", err)
		os.Exit(1)
	}
}

func run(scenarioPath, configPath, itmPath string, verbose bool) error {
	sc := DefaultScenario()
	if scenarioPath != "" {
		var err error
		if sc, err = loadScenario(scenarioPath); err != nil {
			return err
		}
		if configPath == "" && sc.Config != "" {
			configPath = sc.Config
			if !filepath.IsAbs(configPath) {
				configPath = filepath.Join(filepath.Dir(scenarioPath), configPath)
			}
		}
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	var out io.Writer = os.Stdout
	if itmPath != "" {
		f, err := os.Create(itmPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := f.Write(itm.Sync()); err != nil {
			return err
		}
		out = io.MultiWriter(os.Stdout, itm.Writer{W: f})
	}
	logx.SetOutput(out)
	defer logx.SetOutput(nil)
	if verbose {
		logx.SetLevel(logx.LevelDebug)
	}

	ticks := irq.NewTickSource(cfg.Queues.TickBacklog)
	sb := sim.NewBoard(sim.Options{
		Osc:         cfg.Oscillators(),
		SettlePolls: sc.SettlePolls,
		Scale:       sc.Scale,
		ExternalHSE: cfg.Board.ExternalHSE,
		MaxLatency:  cfg.Board.MaxLatency,
	}, ticks.Pulse)
	for _, name := range sc.Stuck {
		sb.Chip.Stick(oscByName[name], true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(cfg.Queues.BusLen)
	config.NewService(cfg).Start(ctx, b.NewConnection("config"))
	mon := &monitor.Service{Interval: time.Second}
	if err := mon.Start(ctx, b.NewConnection("monitor")); err != nil {
		return err
	}

	board := app.Board{
		Regs:       sb.Chip.Map(),
		Indicators: [2]halcore.OutputPin{sb.LD1, sb.LD2},
		LED:        sb.LD3,
		Button:     sb.Button,
		Timer:      sb.Timer,
		Retune: func(hclk uint32) {
			if cfg.Console.SWOBaud != 0 {
				logx.Debug("swo acpr", hclk/cfg.Console.SWOBaud-1)
			}
		},
	}
	if sb.Synth != nil {
		board.HSESource = sb.Synth
	}
	fw, err := app.New(cfg, app.Table(cfg), ticks, board, b.NewConnection("firmware"))
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	scaled := func(d time.Duration) time.Duration { return d / time.Duration(sc.Scale) }
	for _, st := range sc.Steps {
		select {
		case err := <-done:
			return report(sb, fw, err)
		case <-time.After(scaled(st.After)):
		}
		sb.Button.Bounce(st.Bounce)
	}
	select {
	case err := <-done:
		return report(sb, fw, err)
	case <-time.After(scaled(sc.Tail)):
	}
	cancel()
	return report(sb, fw, <-done)
}

func report(sb *sim.Board, fw *app.Firmware, runErr error) error {
	fmt.Printf("final mode %v hclk %d latency %d switches %d faults %d toggles %d\n",
		fw.Mode(), sb.Chip.HCLK(), sb.Chip.Latency(), sb.Chip.Switches(), fw.Faults(), sb.LD3.Toggles())
	for _, v := range sb.Chip.Violations() {
		fmt.Printf("latency violation: %s at %d Hz with %d wait states\n", v.Op, v.HCLK, v.Latency)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if n := len(sb.Chip.Violations()); n > 0 {
		return fmt.Errorf("%d flash latency violations", n)
	}
	return nil
}
