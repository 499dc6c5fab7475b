// Package clocktree sequences oscillator, PLL and flash writes so that the
// core never runs faster than its flash latency allows.
package clocktree

import (
	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/regs"
	"clockcycle-go/x/logx"
	"clockcycle-go/x/mathx"
)

// State of the controller between and during transitions.
type State uint8

const (
	Idle State = iota
	Configuring
	Stable
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Stable:
		return "stable"
	}
	return "?"
}

// Capability handles. The rcc package implements all of them.
type (
	Flash interface {
		SetLatency(ws uint32)
		Latency() uint32
	}
	MSI interface {
		Start(rng uint32, w regs.WaitPolicy) error
		Reset()
		Range() uint32
	}
	Oscillator interface {
		Start(w regs.WaitPolicy) error
		Reset()
	}
	External interface {
		Start(hz uint32, w regs.WaitPolicy) error
		Reset()
	}
	PLL interface {
		Configure(src clockmodel.PLLSource, m, n, r uint32)
		Enable(w regs.WaitPolicy) error
		Disable(w regs.WaitPolicy) error
		Reset(w regs.WaitPolicy) error
		Readback() (src clockmodel.PLLSource, m, n, r uint32)
	}
	Switch interface {
		Select(src clockmodel.Source)
		Status() clockmodel.Source
		Reset()
	}
)

// Hardware bundles the handles the controller drives.
type Hardware struct {
	Flash  Flash
	LSE    Oscillator
	MSI    MSI
	HSI16  Oscillator
	HSE    External
	PLL    PLL
	Switch Switch
}

// Options tune the controller.
type Options struct {
	// Wait bounds every readiness poll.
	Wait regs.WaitPolicy
	// SafeLatency is the flash latency used while frequencies are in flux.
	// It is widened further if the target needs more.
	SafeLatency uint32
	// MaxLatency is the largest wait-state count the device accepts; 0
	// leaves clamping to the flash driver.
	MaxLatency uint32
	// Retune is called whenever the core clock changes so clock-derived
	// peripherals (the log console) can follow.
	Retune func(hclk uint32)
	// Flush drains clock-derived output (console bytes still in flight at
	// the old rate) before every Retune.
	Flush func()
}

// Controller owns the clock tree registers.
type Controller struct {
	hw      Hardware
	osc     clockmodel.Oscillators
	opt     Options
	state   State
	derived clockmodel.Derived
}

func New(hw Hardware, osc clockmodel.Oscillators, opt Options) *Controller {
	return &Controller{hw: hw, osc: osc, opt: opt}
}

func (c *Controller) State() State                { return c.state }
func (c *Controller) Derived() clockmodel.Derived { return c.derived }

// Apply moves the clock tree to cfg. It runs to completion; on error the
// tree is in an undefined state and the caller must treat it as fatal.
func (c *Controller) Apply(cfg clockmodel.Config) (clockmodel.Derived, error) {
	c.state = Configuring
	w := c.opt.Wait

	// Latency first: it must cover whatever frequency comes next.
	target := clockmodel.Derive(cfg, c.osc)
	c.setLatency(mathx.Max(c.opt.SafeLatency, target.FlashWaitStates))

	if err := c.hw.LSE.Start(w); err != nil {
		return c.derived, err
	}
	if err := c.hw.MSI.Start(cfg.MSIRange, w); err != nil {
		return c.derived, err
	}
	if cfg.UsesHSI16() {
		if err := c.hw.HSI16.Start(w); err != nil {
			return c.derived, err
		}
		c.retune(c.osc.HSI16)
	}
	if cfg.UsesHSE() {
		if c.hw.HSE == nil {
			return c.derived, errcode.Wrap(errcode.Unsupported, "clocktree.apply", "board has no HSE", nil)
		}
		if err := c.hw.HSE.Start(c.osc.HSE, w); err != nil {
			return c.derived, err
		}
	}
	if cfg.Source == clockmodel.SourcePLL {
		if err := c.hw.PLL.Disable(w); err != nil {
			return c.derived, err
		}
		c.hw.PLL.Configure(cfg.PLLSource, cfg.PLLM, cfg.PLLN, cfg.PLLR)
		if err := c.hw.PLL.Enable(w); err != nil {
			return c.derived, err
		}
	}

	c.hw.Switch.Select(cfg.Source)
	if err := c.waitSwitch(cfg.Source); err != nil {
		return c.derived, err
	}

	c.settle()
	c.state = Stable
	return c.derived, nil
}

// Reset returns every oscillator, the PLL and the SYSCLK switch to their
// power-on defaults. Every transition starts from here.
func (c *Controller) Reset() error {
	c.state = Configuring
	c.hw.Switch.Reset()
	if err := c.waitSwitch(clockmodel.SourceMSI); err != nil {
		return err
	}
	c.hw.LSE.Reset()
	if err := c.hw.PLL.Reset(c.opt.Wait); err != nil {
		return err
	}
	c.hw.MSI.Reset()
	c.hw.HSI16.Reset()
	if c.hw.HSE != nil {
		c.hw.HSE.Reset()
	}
	c.settle()
	c.state = Idle
	return nil
}

// Readback rebuilds the running configuration from live registers.
func (c *Controller) Readback() clockmodel.Config {
	src, m, n, r := c.hw.PLL.Readback()
	return clockmodel.Config{
		Source:    c.hw.Switch.Status(),
		PLLSource: src,
		PLLM:      m,
		PLLN:      n,
		PLLR:      r,
		MSIRange:  c.hw.MSI.Range(),
	}
}

// settle derives the realised clock from live registers and narrows the
// flash latency to exactly what it needs.
func (c *Controller) settle() {
	c.derived = clockmodel.Derive(c.Readback(), c.osc)
	c.derived.FlashWaitStates = c.setLatency(c.derived.FlashWaitStates)
	c.retune(c.derived.HCLK)
	logx.Debug("clock", c.derived, "latency", c.hw.Flash.Latency())
}

func (c *Controller) setLatency(ws uint32) uint32 {
	if c.opt.MaxLatency != 0 {
		ws = mathx.Min(ws, c.opt.MaxLatency)
	}
	c.hw.Flash.SetLatency(ws)
	return ws
}

func (c *Controller) waitSwitch(src clockmodel.Source) error {
	return c.opt.Wait.Until("sysclk.switch", func() bool { return c.hw.Switch.Status() == src })
}

func (c *Controller) retune(hclk uint32) {
	if c.opt.Flush != nil {
		c.opt.Flush()
	}
	if c.opt.Retune != nil {
		c.opt.Retune(hclk)
	}
}
