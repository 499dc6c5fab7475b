// Package eventloop is the listen phase of the firmware: it merges the tick
// and button streams, runs the debounce filter and blinks the status LED
// until a confirmed click has settled.
package eventloop

import (
	"context"
	"time"

	"clockcycle-go/bus"
	"clockcycle-go/errcode"
	"clockcycle-go/internal/debounce"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/internal/irq"
	"clockcycle-go/types"
	"clockcycle-go/x/logx"
	"clockcycle-go/x/timex"
)

// Deps are the handles a Loop needs. Conn may be nil.
type Deps struct {
	Ticks *irq.TickSource
	Edges *irq.EdgeSource
	Timer halcore.Timer
	LED   halcore.OutputPin
	Conn  *bus.Connection
}

type Loop struct {
	d      Deps
	filter *debounce.Filter
	timing Timing
	led    bool
}

func New(d Deps, w debounce.Windows, t Timing) *Loop {
	return &Loop{d: d, filter: debounce.New(w), timing: t}
}

// Listen runs one session at core clock hclk. It returns nil once an
// accepted click has settled, errcode.StreamOverflow if ticks were lost,
// or the context error.
func (l *Loop) Listen(ctx context.Context, hclk uint32) error {
	logx.Info("enter listen")

	l.filter.Reset()
	l.d.Ticks.Restart()
	l.d.Edges.Arm()
	defer l.d.Edges.Disarm()
	if err := l.d.Timer.Start(hclk, l.timing.TickPeriod); err != nil {
		return err
	}
	defer l.d.Timer.Stop()

	ival := BlinkInterval(hclk, l.timing.BlinkBase, l.timing.BlinkRefHz)
	var count uint32
	l.setLED(true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-l.d.Ticks.C():
			n, err := l.d.Ticks.Take()
			if err != nil {
				return errcode.Wrap(errcode.StreamOverflow, "eventloop.listen", "tick backlog", err)
			}
			for ; n > 0; n-- {
				l.filter.Tick()
				if l.filter.Ready() {
					return nil
				}
				count++
				if count >= ival {
					count = 0
					l.setLED(!l.led)
				}
			}

		case <-l.d.Edges.C():
			switch l.filter.Edge() {
			case debounce.Accepted:
				logx.Info("--")
				l.d.Edges.Disarm()
				l.click(true)
			case debounce.Rejected:
				logx.Info("++")
				l.click(false)
			}
		}
	}
}

// Delay blocks for d, timed by the tick source at core clock hclk.
func (l *Loop) Delay(ctx context.Context, d time.Duration, hclk uint32) error {
	l.d.Ticks.Restart()
	if err := l.d.Timer.Start(hclk, d); err != nil {
		return err
	}
	defer l.d.Timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.d.Ticks.C():
		if _, err := l.d.Ticks.Take(); err != nil {
			return errcode.Wrap(errcode.StreamOverflow, "eventloop.delay", "", err)
		}
		return nil
	}
}

// Settle waits the configured settle delay; it lets a Loop act as the
// mode sequencer's settler.
func (l *Loop) Settle(ctx context.Context, hclk uint32) error {
	return l.Delay(ctx, l.timing.SettleDelay, hclk)
}

func (l *Loop) setLED(on bool) {
	l.led = on
	l.d.LED.Set(on)
	if l.d.Conn != nil {
		var v uint8
		if on {
			v = 1
		}
		l.d.Conn.Publish(l.d.Conn.NewMessage(types.TopicLED, types.LEDValue{Level: v}, true))
	}
}

func (l *Loop) click(accepted bool) {
	if l.d.Conn == nil {
		return
	}
	ev := types.ClickEvent{Accepted: accepted, TS: timex.NowMs()}
	l.d.Conn.Publish(l.d.Conn.NewMessage(types.TopicClick, ev, false))
}
