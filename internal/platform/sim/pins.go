package sim

import (
	"sync"

	"clockcycle-go/errcode"
	"clockcycle-go/internal/halcore"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// LED drives a gpiotest pin and counts level changes.
type LED struct {
	Pin *gpiotest.Pin

	mu      sync.Mutex
	toggles int
}

func NewLED(name string, num int) *LED {
	return &LED{Pin: &gpiotest.Pin{N: name, Num: num, Fn: "Out"}}
}

func (l *LED) Set(on bool) {
	prev := l.Pin.Read()
	_ = l.Pin.Out(gpio.Level(on))
	if gpio.Level(on) != prev {
		l.mu.Lock()
		l.toggles++
		l.mu.Unlock()
	}
}

func (l *LED) On() bool { return l.Pin.Read() == gpio.High }

// Toggles counts level changes since creation.
func (l *LED) Toggles() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toggles
}

// Button is the user button. Press and Release drive the pin level and run
// the registered handler for matching edges, as the EXTI line would.
type Button struct {
	Pin *gpiotest.Pin

	mu      sync.Mutex
	edge    halcore.Edge
	handler func()
}

func NewButton(name string, num int) *Button {
	return &Button{Pin: &gpiotest.Pin{N: name, Num: num, Fn: "In"}}
}

func (b *Button) Get() bool { return b.Pin.Read() == gpio.High }

func (b *Button) SetIRQ(edge halcore.Edge, handler func()) error {
	if edge == halcore.EdgeNone || handler == nil {
		return errcode.InvalidParams
	}
	b.mu.Lock()
	b.edge, b.handler = edge, handler
	b.mu.Unlock()
	return nil
}

func (b *Button) ClearIRQ() error {
	b.mu.Lock()
	b.edge, b.handler = halcore.EdgeNone, nil
	b.mu.Unlock()
	return nil
}

func (b *Button) Press()   { b.drive(gpio.High) }
func (b *Button) Release() { b.drive(gpio.Low) }

// Bounce presses once with n extra contact bounces.
func (b *Button) Bounce(n int) {
	b.Press()
	for i := 0; i < n; i++ {
		b.Release()
		b.Press()
	}
	b.Release()
}

func (b *Button) drive(l gpio.Level) {
	prev := b.Pin.Read()
	_ = b.Pin.Out(l)
	if prev == l {
		return
	}
	b.mu.Lock()
	edge, h := b.edge, b.handler
	b.mu.Unlock()
	if h == nil {
		return
	}
	rising := l == gpio.High
	if edge == halcore.EdgeBoth || (rising && edge == halcore.EdgeRising) || (!rising && edge == halcore.EdgeFalling) {
		h()
	}
}
