package modeseq

import (
	"context"
	"errors"

	"clockcycle-go/bus"
	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/types"
	"clockcycle-go/x/logx"
	"clockcycle-go/x/timex"
)

// Clock is the part of the clock tree controller the sequencer drives.
type Clock interface {
	Reset() error
	Apply(cfg clockmodel.Config) (clockmodel.Derived, error)
	Derived() clockmodel.Derived
}

// Settler waits for the clock tree to settle at hclk. It is timed on the
// tick stream, so it can fail with a stream overflow.
type Settler interface {
	Settle(ctx context.Context, hclk uint32) error
}

// Deps are the handles a Sequencer needs. Indicator pins, Settle and Conn
// may be nil.
type Deps struct {
	Clock      Clock
	Indicators [2]halcore.OutputPin
	Settle     Settler
	Conn       *bus.Connection
}

// Sequencer owns the current mode.
type Sequencer struct {
	table   Table
	deps    Deps
	cur     Mode
	derived clockmodel.Derived
}

// New validates table and returns a sequencer positioned at the first mode.
func New(table Table, osc clockmodel.Oscillators, d Deps) (*Sequencer, error) {
	if d.Clock == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "modeseq.new", "no clock", nil)
	}
	if err := table.Validate(osc); err != nil {
		return nil, err
	}
	return &Sequencer{table: table, deps: d}, nil
}

func (s *Sequencer) Mode() Mode                  { return s.cur }
func (s *Sequencer) Derived() clockmodel.Derived { return s.derived }

// Start brings the clock tree to the current mode from a reset baseline.
func (s *Sequencer) Start(ctx context.Context) (clockmodel.Derived, error) {
	s.indicate()
	return s.enter(ctx)
}

// Advance moves to the successor mode and applies it.
func (s *Sequencer) Advance(ctx context.Context) (clockmodel.Derived, error) {
	s.cur = s.cur.Next()
	s.indicate()
	return s.enter(ctx)
}

// enter always resets first, then applies the current entry.
func (s *Sequencer) enter(ctx context.Context) (clockmodel.Derived, error) {
	clk := s.deps.Clock
	if err := clk.Reset(); err != nil {
		return s.derived, err
	}
	s.settle(ctx, clk.Derived().HCLK)

	d, err := clk.Apply(s.table[s.cur].Config)
	if err != nil {
		return s.derived, err
	}
	s.derived = d
	s.settle(ctx, d.HCLK)

	logx.Info("speed", d.HCLK)
	s.publish()
	return d, nil
}

// settle failures only shorten the settle time; the clock is already
// running.
func (s *Sequencer) settle(ctx context.Context, hclk uint32) {
	if s.deps.Settle == nil {
		return
	}
	err := s.deps.Settle.Settle(ctx, hclk)
	switch {
	case err == nil:
	case errors.Is(err, errcode.StreamOverflow):
		logx.Warn("settle:", err)
	default:
		logx.Warn("settle aborted:", err)
	}
}

func (s *Sequencer) indicate() {
	ind := s.table[s.cur].Indicator
	for i, p := range s.deps.Indicators {
		if p != nil {
			p.Set(ind[i])
		}
	}
}

func (s *Sequencer) publish() {
	if s.deps.Conn == nil {
		return
	}
	st := types.ClockState{
		Mode:       s.cur.String(),
		HCLK:       s.derived.HCLK,
		WaitStates: s.derived.FlashWaitStates,
		Indicator:  s.table[s.cur].Indicator,
		TS:         timex.NowMs(),
	}
	s.deps.Conn.Publish(s.deps.Conn.NewMessage(types.TopicClockState, st, true))
}
