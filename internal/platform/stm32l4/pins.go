//go:build stm32l4

package stm32l4

import (
	"machine"

	"clockcycle-go/errcode"
	"clockcycle-go/internal/halcore"
)

// Nucleo-144 user LEDs and button.
const (
	PinLD1    = machine.PC7
	PinLD2    = machine.PB7
	PinLD3    = machine.PB14
	PinButton = machine.PC13
)

type outPin struct{ p machine.Pin }

// Output configures p as a push-pull output, initially low.
func Output(p machine.Pin) halcore.OutputPin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return outPin{p}
}

func (o outPin) Set(on bool) { o.p.Set(on) }

type irqPin struct{ p machine.Pin }

// Input configures p as an EXTI-capable input. The Nucleo button has an
// external pull-down and reads high while pressed.
func Input(p machine.Pin) halcore.IRQPin {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return irqPin{p}
}

func (i irqPin) Get() bool { return i.p.Get() }

func (i irqPin) SetIRQ(edge halcore.Edge, handler func()) error {
	var ch machine.PinChange
	switch edge {
	case halcore.EdgeRising:
		ch = machine.PinRising
	case halcore.EdgeFalling:
		ch = machine.PinFalling
	case halcore.EdgeBoth:
		ch = machine.PinRising | machine.PinFalling
	default:
		return errcode.Wrap(errcode.InvalidParams, "pin.irq", "no edge", nil)
	}
	return i.p.SetInterrupt(ch, func(machine.Pin) { handler() })
}

func (i irqPin) ClearIRQ() error { return i.p.SetInterrupt(0, nil) }
