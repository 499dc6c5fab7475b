// Package app wires the clock tree, the mode sequencer and the listen loop
// into the firmware's main cycle: reset, apply, listen, advance.
package app

import (
	"context"
	"errors"
	"sync/atomic"

	"clockcycle-go/bus"
	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/clocktree"
	"clockcycle-go/internal/eventloop"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/internal/irq"
	"clockcycle-go/internal/modeseq"
	"clockcycle-go/internal/rcc"
	"clockcycle-go/services/config"
	"clockcycle-go/types"
	"clockcycle-go/x/logx"
	"clockcycle-go/x/timex"
)

// Board is what a platform hands to the firmware. Timer must pulse the
// TickSource passed to New.
type Board struct {
	Regs       rcc.Map
	HSESource  rcc.ExternalClock // nil when HSE needs no programming
	Indicators [2]halcore.OutputPin
	LED        halcore.OutputPin
	Button     halcore.IRQPin
	Timer      halcore.Timer
	// Retune follows core clock changes (console baud prescaler); Flush
	// drains the console before each one.
	Retune func(hclk uint32)
	Flush  func()
}

// Table picks the mode table for the board. With an external synthesizer
// on HSE the PLL runs from HSE instead of HSI16.
func Table(cfg config.Config) modeseq.Table {
	if cfg.Board.ExternalHSE {
		return modeseq.DefaultTable.WithPLLSource(clockmodel.PLLHSE)
	}
	return modeseq.DefaultTable
}

type Firmware struct {
	cfg    config.Config
	board  Board
	ticks  *irq.TickSource
	edges  *irq.EdgeSource
	clock  *clocktree.Controller
	seq    *modeseq.Sequencer
	loop   *eventloop.Loop
	conn   *bus.Connection
	faults uint32
}

// New validates the mode table against cfg and builds the firmware. conn
// may be nil.
func New(cfg config.Config, table modeseq.Table, ticks *irq.TickSource, b Board, conn *bus.Connection) (*Firmware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ticks == nil || b.Timer == nil || b.LED == nil || b.Button == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "app.new", "incomplete board", nil)
	}
	f := &Firmware{cfg: cfg, board: b, ticks: ticks, edges: irq.NewEdgeSource(), conn: conn}

	f.clock = clocktree.New(rcc.Tree(b.Regs, b.HSESource), cfg.Oscillators(), clocktree.Options{
		Wait:        cfg.WaitPolicy(),
		SafeLatency: cfg.Board.SafeLatency,
		MaxLatency:  cfg.Board.MaxLatency,
		Retune:      b.Retune,
		Flush:       b.Flush,
	})
	f.loop = eventloop.New(eventloop.Deps{
		Ticks: ticks,
		Edges: f.edges,
		Timer: b.Timer,
		LED:   b.LED,
		Conn:  conn,
	}, cfg.Windows(), cfg.LoopTiming())

	seq, err := modeseq.New(table, cfg.Oscillators(), modeseq.Deps{
		Clock:      f.clock,
		Indicators: b.Indicators,
		Settle:     f.loop,
		Conn:       conn,
	})
	if err != nil {
		return nil, err
	}
	f.seq = seq
	return f, nil
}

func (f *Firmware) Mode() modeseq.Mode { return f.seq.Mode() }

// Faults counts recoverable faults since boot.
func (f *Firmware) Faults() uint32 { return atomic.LoadUint32(&f.faults) }

// Run cycles modes until ctx ends or a fatal fault occurs. A fatal fault is
// published and returned; the caller must halt.
func (f *Firmware) Run(ctx context.Context) error {
	if err := f.edges.Attach(f.board.Button, halcore.EdgeRising); err != nil {
		return f.fatal(err)
	}
	defer f.edges.Detach()

	if _, err := f.seq.Start(ctx); err != nil {
		return f.fatal(err)
	}
	for {
		err := f.loop.Listen(ctx, f.seq.Derived().HCLK)
		switch {
		case err == nil:
			if _, err := f.seq.Advance(ctx); err != nil {
				return f.fatal(err)
			}
		case !errcode.Fatal(err):
			atomic.AddUint32(&f.faults, 1)
			logx.Warn("listen:", err)
			f.publishFault(err, false)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return f.fatal(err)
		}
	}
}

func (f *Firmware) fatal(err error) error {
	logx.Error("halt:", err)
	f.publishFault(err, true)
	return err
}

func (f *Firmware) publishFault(err error, fatal bool) {
	if f.conn == nil {
		return
	}
	var op string
	var e *errcode.E
	if errors.As(err, &e) {
		op = e.Op
	}
	ft := types.Fault{Code: string(errcode.Of(err)), Op: op, Fatal: fatal, TS: timex.NowMs()}
	f.conn.Publish(f.conn.NewMessage(types.TopicFault, ft, false))
}
