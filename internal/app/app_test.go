package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"clockcycle-go/bus"
	"clockcycle-go/errcode"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/internal/irq"
	"clockcycle-go/internal/modeseq"
	"clockcycle-go/internal/platform/sim"
	"clockcycle-go/services/config"
	"clockcycle-go/types"
)

type rig struct {
	fw     *Firmware
	board  *sim.Board
	ticks  *irq.TickSource
	states *bus.Subscription
	faults *bus.Subscription
}

func newRig(t *testing.T, timer func(*sim.Board, *irq.TickSource) Board) *rig {
	return newRigFor(t, config.Default(), timer)
}

func newRigFor(t *testing.T, cfg config.Config, timer func(*sim.Board, *irq.TickSource) Board) *rig {
	t.Helper()
	cfg.Wait.MaxPolls = 10_000
	ticks := irq.NewTickSource(cfg.Queues.TickBacklog)
	sb := sim.NewBoard(sim.Options{
		Osc:         cfg.Oscillators(),
		SettlePolls: 3,
		Scale:       100,
		ExternalHSE: cfg.Board.ExternalHSE,
		MaxLatency:  cfg.Board.MaxLatency,
	}, ticks.Pulse)

	b := bus.NewBus(16)
	obs := b.NewConnection("test")
	r := &rig{
		board:  sb,
		ticks:  ticks,
		states: obs.Subscribe(types.TopicClockState),
		faults: obs.Subscribe(types.TopicFault),
	}
	board := Board{
		Regs:       sb.Chip.Map(),
		Indicators: [2]halcore.OutputPin{sb.LD1, sb.LD2},
		LED:        sb.LD3,
		Button:     sb.Button,
		Timer:      sb.Timer,
	}
	if sb.Synth != nil {
		board.HSESource = sb.Synth
	}
	if timer != nil {
		board = timer(sb, ticks)
	}
	fw, err := New(cfg, Table(cfg), ticks, board, b.NewConnection("fw"))
	if err != nil {
		t.Fatal(err)
	}
	r.fw = fw
	return r
}

func (r *rig) wantState(t *testing.T, mode modeseq.Mode) types.ClockState {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-r.states.Channel():
			st := m.Payload.(types.ClockState)
			if st.Mode == mode.String() {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %v", mode)
		}
	}
}

// click waits past the double-click window, then presses with some bounce.
func (r *rig) click() {
	time.Sleep(15 * time.Millisecond)
	r.board.Button.Bounce(3)
}

func TestFirmwareCyclesThroughModes(t *testing.T) {
	r := newRig(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.fw.Run(ctx) }()

	st := r.wantState(t, modeseq.Reset4MHz)
	if st.HCLK != 4_000_000 {
		t.Fatalf("boot hclk = %d", st.HCLK)
	}
	steps := []struct {
		mode modeseq.Mode
		hclk uint32
		ws   uint32
	}{
		{modeseq.Slow16MHz, 16_000_000, 1},
		{modeseq.Medium48MHz, 48_000_000, 3},
		{modeseq.Full80MHz, 80_000_000, 5},
		{modeseq.Reset4MHz, 4_000_000, 0},
	}
	for _, s := range steps {
		r.click()
		st := r.wantState(t, s.mode)
		if st.HCLK != s.hclk || st.WaitStates != s.ws {
			t.Fatalf("%v: state %+v", s.mode, st)
		}
		if r.board.Chip.HCLK() != s.hclk || r.board.Chip.Latency() != s.ws {
			t.Fatalf("%v: chip at %d Hz latency %d", s.mode, r.board.Chip.HCLK(), r.board.Chip.Latency())
		}
		ind := modeseq.DefaultTable[s.mode].Indicator
		if r.board.LD1.On() != ind[0] || r.board.LD2.On() != ind[1] {
			t.Fatalf("%v: indicators %v %v", s.mode, r.board.LD1.On(), r.board.LD2.On())
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if v := r.board.Chip.Violations(); len(v) != 0 {
		t.Fatalf("flash latency violations: %+v", v)
	}
	if r.board.LD3.Toggles() == 0 {
		t.Fatal("status LED never blinked")
	}
}

func TestFirmwareHaltsOnDeadOscillator(t *testing.T) {
	r := newRig(t, nil)
	r.board.Chip.Stick(sim.OscPLL, true)
	done := make(chan error, 1)
	go func() { done <- r.fw.Run(context.Background()) }()

	r.wantState(t, modeseq.Reset4MHz)
	r.click()
	r.wantState(t, modeseq.Slow16MHz)
	r.click()
	r.wantState(t, modeseq.Medium48MHz)
	r.click()

	select {
	case err := <-done:
		if !errors.Is(err, errcode.HardwareNotReady) {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not halt")
	}
	select {
	case m := <-r.faults.Channel():
		f := m.Payload.(types.Fault)
		if !f.Fatal || f.Code != string(errcode.HardwareNotReady) || f.Op != "pll.ready" {
			t.Fatalf("fault = %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no fault published")
	}
}

// burstTimer floods the tick source the first time a listen session
// starts, as a consumer stalled for longer than the backlog would see.
type burstTimer struct {
	*sim.Timer
	ticks *irq.TickSource
	n     int
	done  bool
}

func (b *burstTimer) Start(hclk uint32, period time.Duration) error {
	if err := b.Timer.Start(hclk, period); err != nil {
		return err
	}
	if period == 100*time.Millisecond && !b.done {
		b.done = true
		for i := 0; i < b.n; i++ {
			b.ticks.Pulse()
		}
	}
	return nil
}

func TestFirmwareRecoversFromTickOverflow(t *testing.T) {
	r := newRig(t, func(sb *sim.Board, ticks *irq.TickSource) Board {
		return Board{
			Regs:       sb.Chip.Map(),
			Indicators: [2]halcore.OutputPin{sb.LD1, sb.LD2},
			LED:        sb.LD3,
			Button:     sb.Button,
			Timer:      &burstTimer{Timer: sb.Timer, ticks: ticks, n: 64},
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.fw.Run(ctx) }()

	r.wantState(t, modeseq.Reset4MHz)
	select {
	case m := <-r.faults.Channel():
		f := m.Payload.(types.Fault)
		if f.Fatal || f.Code != string(errcode.StreamOverflow) {
			t.Fatalf("fault = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("overflow not reported")
	}
	// Listening resumed: a click still advances.
	r.click()
	r.wantState(t, modeseq.Slow16MHz)
	if r.fw.Faults() != 1 {
		t.Fatalf("faults = %d", r.fw.Faults())
	}
}

func TestNewRejectsIncompleteBoard(t *testing.T) {
	_, err := New(config.Default(), modeseq.DefaultTable, irq.NewTickSource(0), Board{}, nil)
	if !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("err = %v", err)
	}
}

func TestTableFollowsBoardHSE(t *testing.T) {
	if got := Table(config.Default()); got != modeseq.DefaultTable {
		t.Fatal("default board should use the default table")
	}
	cfg, ok := config.BoardLookup("nucleo-l4r5zi-si5351")
	if !ok {
		t.Fatal("missing si5351 preset")
	}
	tbl := Table(cfg)
	if err := tbl.Validate(cfg.Oscillators()); err != nil {
		t.Fatal(err)
	}
	if !tbl[modeseq.Full80MHz].Config.UsesHSE() {
		t.Fatal("80 MHz mode should run from HSE")
	}
}

func TestFirmwareKeepsSynthesizerReachableAcrossModes(t *testing.T) {
	cfg, ok := config.BoardLookup("nucleo-l4r5zi-si5351")
	if !ok {
		t.Fatal("missing si5351 preset")
	}
	r := newRigFor(t, cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.fw.Run(ctx) }()

	r.wantState(t, modeseq.Reset4MHz)
	// Two full laps: every entry into the 80 MHz mode reprograms the
	// synthesizer after a reset.
	for lap := 0; lap < 2; lap++ {
		for _, m := range []modeseq.Mode{modeseq.Slow16MHz, modeseq.Medium48MHz, modeseq.Full80MHz, modeseq.Reset4MHz} {
			r.click()
			st := r.wantState(t, m)
			if m == modeseq.Full80MHz && st.HCLK != 80_000_000 {
				t.Fatalf("lap %d: 80 MHz mode at %d Hz", lap, st.HCLK)
			}
		}
	}

	select {
	case m := <-r.faults.Channel():
		t.Fatalf("fault: %+v", m.Payload)
	default:
	}
	if got := r.board.Synth.Enables(); len(got) != 2 || got[0] != 16_000_000 || got[1] != 16_000_000 {
		t.Fatalf("synth enables = %v", got)
	}
	if !r.board.Chip.I2C1Clocked() {
		t.Fatal("I2C1 gated")
	}
	cancel()
	<-done
}

func TestFirmwareHoldsL496LatencyLimit(t *testing.T) {
	cfg, ok := config.BoardLookup("nucleo-l496zg")
	if !ok {
		t.Fatal("missing l496 preset")
	}
	r := newRigFor(t, cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.fw.Run(ctx) }()

	r.wantState(t, modeseq.Reset4MHz)
	for _, m := range []modeseq.Mode{modeseq.Slow16MHz, modeseq.Medium48MHz, modeseq.Full80MHz} {
		r.click()
		r.wantState(t, m)
	}
	if r.board.Chip.HCLK() != 80_000_000 || r.board.Chip.Latency() != 4 {
		t.Fatalf("chip at %d Hz latency %d", r.board.Chip.HCLK(), r.board.Chip.Latency())
	}
	if v := r.board.Chip.Violations(); len(v) != 0 {
		t.Fatalf("latency violations: %+v", v)
	}
	cancel()
	<-done
}
