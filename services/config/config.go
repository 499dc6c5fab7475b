// Package config holds the firmware's tunables. Images are built with the
// compiled-in defaults; host tools may overlay a YAML file.
package config

import (
	"time"

	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/debounce"
	"clockcycle-go/internal/eventloop"
	"clockcycle-go/internal/regs"
)

type Config struct {
	Board    Board    `yaml:"board"`
	Debounce Debounce `yaml:"debounce"`
	Timing   Timing   `yaml:"timing"`
	Wait     Wait     `yaml:"wait"`
	Queues   Queues   `yaml:"queues"`
	Console  Console  `yaml:"console"`
}

// Board wiring and limits.
type Board struct {
	Name        string `yaml:"name"`
	HSEHz       uint32 `yaml:"hse_hz"`
	MaxHCLKHz   uint32 `yaml:"max_hclk_hz"`
	SafeLatency uint32 `yaml:"safe_latency"`
	MaxLatency  uint32 `yaml:"max_latency"` // FLASH_ACR.LATENCY limit
	// ExternalHSE: HSE is fed by an Si5351 that must be programmed first.
	ExternalHSE bool  `yaml:"external_hse"`
	Si5351Addr  uint8 `yaml:"si5351_addr"`
}

// Debounce windows in ticks.
type Debounce struct {
	Window      int16 `yaml:"window"`
	DoubleClick int16 `yaml:"double_click"`
}

type Timing struct {
	TicksPerSecond uint32 `yaml:"ticks_per_second"`
	BlinkBase      uint32 `yaml:"blink_base"`
	BlinkRefHz     uint32 `yaml:"blink_ref_hz"`
	SettleMs       uint32 `yaml:"settle_ms"`
}

// Wait bounds readiness polls; 0 polls forever.
type Wait struct {
	MaxPolls uint32 `yaml:"max_polls"`
}

type Queues struct {
	TickBacklog uint32 `yaml:"tick_backlog"`
	BusLen      int    `yaml:"bus_len"`
}

type Console struct {
	SWOBaud uint32 `yaml:"swo_baud"`
}

// Default is the configuration compiled into the firmware image.
func Default() Config {
	return Config{
		Board: Board{
			Name:        "nucleo-l4r5zi",
			HSEHz:       clockmodel.BoardHSEHz,
			MaxHCLKHz:   120_000_000,
			SafeLatency: 5,
			MaxLatency:  15,
			Si5351Addr:  0x60,
		},
		Debounce: Debounce{Window: 2, DoubleClick: 4},
		Timing: Timing{
			TicksPerSecond: 10,
			BlinkBase:      40,
			BlinkRefHz:     4_000_000,
			SettleMs:       20,
		},
		Wait:    Wait{MaxPolls: 1_000_000},
		Queues:  Queues{TickBacklog: 16, BusLen: 8},
		Console: Console{SWOBaud: 115_200},
	}
}

// Validate rejects values the firmware cannot run with.
func (c Config) Validate() error {
	bad := func(msg string) error {
		return errcode.Wrap(errcode.InvalidParams, "config.validate", msg, nil)
	}
	switch {
	case c.Debounce.Window <= 0:
		return bad("debounce window must be positive")
	case c.Debounce.DoubleClick <= 0:
		return bad("double click window must be positive")
	case c.Timing.TicksPerSecond == 0:
		return bad("ticks_per_second must be positive")
	case c.Timing.BlinkBase == 0 || c.Timing.BlinkRefHz == 0:
		return bad("blink base and reference must be positive")
	case c.Queues.TickBacklog == 0 || c.Queues.BusLen <= 0:
		return bad("queue sizes must be positive")
	case c.Console.SWOBaud == 0:
		return bad("swo baud must be positive")
	case c.Board.MaxLatency == 0 || c.Board.MaxLatency > 15:
		return bad("max latency outside LATENCY field")
	case c.Board.SafeLatency > c.Board.MaxLatency:
		return bad("safe latency above max latency")
	case c.Board.ExternalHSE && c.Board.HSEHz == 0:
		return bad("external hse needs hse_hz")
	}
	return nil
}

func (c Config) Oscillators() clockmodel.Oscillators {
	o := clockmodel.DefaultOscillators()
	o.HSE = c.Board.HSEHz
	o.MaxHCLK = c.Board.MaxHCLKHz
	return o
}

func (c Config) Windows() debounce.Windows {
	return debounce.Windows{Debounce: c.Debounce.Window, DoubleClick: c.Debounce.DoubleClick}
}

func (c Config) LoopTiming() eventloop.Timing {
	return eventloop.Timing{
		TickPeriod:  time.Second / time.Duration(c.Timing.TicksPerSecond),
		BlinkBase:   c.Timing.BlinkBase,
		BlinkRefHz:  c.Timing.BlinkRefHz,
		SettleDelay: time.Duration(c.Timing.SettleMs) * time.Millisecond,
	}
}

func (c Config) WaitPolicy() regs.WaitPolicy { return regs.WaitPolicy{MaxPolls: c.Wait.MaxPolls} }
