package modeseq

import (
	"context"
	"errors"
	"testing"
	"time"

	"clockcycle-go/bus"
	"clockcycle-go/errcode"
	"clockcycle-go/internal/clockmodel"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/types"
)

type fakeClock struct {
	osc     clockmodel.Oscillators
	calls   []string
	derived clockmodel.Derived
	failOn  string
}

func (c *fakeClock) Reset() error {
	c.calls = append(c.calls, "reset")
	if c.failOn == "reset" {
		return errcode.HardwareNotReady
	}
	c.derived = clockmodel.Derive(DefaultTable[Reset4MHz].Config, c.osc)
	return nil
}

func (c *fakeClock) Apply(cfg clockmodel.Config) (clockmodel.Derived, error) {
	c.calls = append(c.calls, "apply")
	if c.failOn == "apply" {
		return c.derived, errcode.HardwareNotReady
	}
	c.derived = clockmodel.Derive(cfg, c.osc)
	return c.derived, nil
}

func (c *fakeClock) Derived() clockmodel.Derived { return c.derived }

type fakePin struct{ level bool }

func (p *fakePin) Set(v bool) { p.level = v }

type fakeSettler struct {
	hclks []uint32
	err   error
}

func (s *fakeSettler) Settle(_ context.Context, hclk uint32) error {
	s.hclks = append(s.hclks, hclk)
	return s.err
}

func newSeq(t *testing.T, d Deps) *Sequencer {
	t.Helper()
	s, err := New(DefaultTable, clockmodel.DefaultOscillators(), d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNextCyclesThroughFourModes(t *testing.T) {
	m := Reset4MHz
	seen := map[Mode]bool{}
	for i := 0; i < int(NumModes); i++ {
		if seen[m] {
			t.Fatalf("mode %v repeated at step %d", m, i)
		}
		seen[m] = true
		m = m.Next()
	}
	if m != Reset4MHz {
		t.Fatalf("after 4 steps at %v, want %v", m, Reset4MHz)
	}
}

func TestDefaultTableFrequencies(t *testing.T) {
	osc := clockmodel.DefaultOscillators()
	want := [NumModes]uint32{4_000_000, 16_000_000, 48_000_000, 80_000_000}
	for m := Mode(0); m < NumModes; m++ {
		if got := clockmodel.Derive(DefaultTable[m].Config, osc).HCLK; got != want[m] {
			t.Errorf("%v: hclk = %d, want %d", m, got, want[m])
		}
	}
	if err := DefaultTable.Validate(osc); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestWithPLLSourceOnlyTouchesPLLModes(t *testing.T) {
	tbl := DefaultTable.WithPLLSource(clockmodel.PLLHSE)
	if tbl[Full80MHz].Config.PLLSource != clockmodel.PLLHSE {
		t.Fatalf("pll source = %v", tbl[Full80MHz].Config.PLLSource)
	}
	if tbl[Slow16MHz] != DefaultTable[Slow16MHz] {
		t.Fatal("non-PLL entry changed")
	}
	if DefaultTable[Full80MHz].Config.PLLSource != clockmodel.PLLHSI16 {
		t.Fatal("DefaultTable mutated")
	}

	// 48 MHz HSE would push the PLL to 240 MHz; a 16 MHz synthesizer keeps 80.
	osc := clockmodel.DefaultOscillators()
	if err := tbl.Validate(osc); !errors.Is(err, errcode.ConfigurationFault) {
		t.Fatalf("48 MHz HSE: err = %v", err)
	}
	osc.HSE = 16_000_000
	if err := tbl.Validate(osc); err != nil {
		t.Fatal(err)
	}
	if got := clockmodel.Derive(tbl[Full80MHz].Config, osc).HCLK; got != 80_000_000 {
		t.Fatalf("hclk = %d", got)
	}
}

func TestNewRejectsBadTable(t *testing.T) {
	tbl := DefaultTable
	tbl[Full80MHz].Config.PLLSource = clockmodel.PLLNone
	_, err := New(tbl, clockmodel.DefaultOscillators(), Deps{Clock: &fakeClock{}})
	if !errors.Is(err, errcode.ConfigurationFault) {
		t.Fatalf("err = %v, want configuration_fault", err)
	}
	if _, err := New(DefaultTable, clockmodel.DefaultOscillators(), Deps{}); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("nil clock: err = %v", err)
	}
}

func TestAdvanceResetsThenApplies(t *testing.T) {
	clk := &fakeClock{osc: clockmodel.DefaultOscillators()}
	st := &fakeSettler{}
	p0, p1 := &fakePin{}, &fakePin{}
	s := newSeq(t, Deps{Clock: clk, Settle: st, Indicators: [2]halcore.OutputPin{p0, p1}})

	d, err := s.Start(context.Background())
	if err != nil || d.HCLK != 4_000_000 {
		t.Fatalf("Start = %v, %v", d, err)
	}

	want := []struct {
		mode Mode
		hclk uint32
		ind  [2]bool
	}{
		{Slow16MHz, 16_000_000, [2]bool{true, false}},
		{Medium48MHz, 48_000_000, [2]bool{false, true}},
		{Full80MHz, 80_000_000, [2]bool{true, true}},
		{Reset4MHz, 4_000_000, [2]bool{false, false}},
	}
	for _, w := range want {
		clk.calls = nil
		st.hclks = nil
		d, err := s.Advance(context.Background())
		if err != nil {
			t.Fatalf("Advance to %v: %v", w.mode, err)
		}
		if s.Mode() != w.mode || d.HCLK != w.hclk {
			t.Fatalf("mode=%v hclk=%d, want %v %d", s.Mode(), d.HCLK, w.mode, w.hclk)
		}
		if len(clk.calls) != 2 || clk.calls[0] != "reset" || clk.calls[1] != "apply" {
			t.Fatalf("calls = %v", clk.calls)
		}
		if len(st.hclks) != 2 || st.hclks[0] != 4_000_000 || st.hclks[1] != w.hclk {
			t.Fatalf("settle hclks = %v", st.hclks)
		}
		if p0.level != w.ind[0] || p1.level != w.ind[1] {
			t.Fatalf("%v: indicator = %v,%v want %v", w.mode, p0.level, p1.level, w.ind)
		}
	}
}

func TestSettleOverflowIsNotFatal(t *testing.T) {
	clk := &fakeClock{osc: clockmodel.DefaultOscillators()}
	s := newSeq(t, Deps{Clock: clk, Settle: &fakeSettler{err: errcode.StreamOverflow}})
	if _, err := s.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if s.Derived().HCLK != 16_000_000 {
		t.Fatalf("hclk = %d", s.Derived().HCLK)
	}
}

func TestHardwareFaultPropagates(t *testing.T) {
	for _, stage := range []string{"reset", "apply"} {
		clk := &fakeClock{osc: clockmodel.DefaultOscillators(), failOn: stage}
		s := newSeq(t, Deps{Clock: clk})
		_, err := s.Advance(context.Background())
		if !errors.Is(err, errcode.HardwareNotReady) {
			t.Fatalf("%s: err = %v", stage, err)
		}
	}
}

func TestPublishesRetainedState(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("seq")
	clk := &fakeClock{osc: clockmodel.DefaultOscillators()}
	s := newSeq(t, Deps{Clock: clk, Conn: conn})
	s.cur = Medium48MHz
	if _, err := s.Advance(context.Background()); err != nil {
		t.Fatal(err)
	}

	sub := b.NewConnection("late").Subscribe(types.TopicClockState)
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.ClockState)
		if !ok {
			t.Fatalf("payload %T", m.Payload)
		}
		if st.Mode != Full80MHz.String() || st.HCLK != 80_000_000 || st.WaitStates != 5 {
			t.Fatalf("state = %+v", st)
		}
		if !m.Retained {
			t.Fatal("state not retained")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no retained clock state")
	}
}
