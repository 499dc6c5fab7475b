package sim

import (
	"sync"
	"time"

	"clockcycle-go/internal/eventloop"
)

// Timer emulates SysTick. It programs the same reload value the hardware
// would get and pulses at the resulting period, divided by Scale.
type Timer struct {
	pulse func()
	scale uint32

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	starts []Start
}

// Start records one timer programming.
type Start struct {
	HCLK   uint32
	Reload uint32
}

// NewTimer calls pulse on every expiry; scale > 1 runs faster than real
// time.
func NewTimer(pulse func(), scale uint32) *Timer {
	if scale == 0 {
		scale = 1
	}
	return &Timer{pulse: pulse, scale: scale}
}

func (t *Timer) Start(hclk uint32, period time.Duration) error {
	reload, err := eventloop.SysTickReload(hclk, period)
	if err != nil {
		return err
	}
	t.Stop()

	every := time.Duration(uint64(reload+1) * eventloop.SysTickDiv * uint64(time.Second) / uint64(hclk))
	every /= time.Duration(t.scale)
	if every <= 0 {
		every = time.Microsecond
	}

	t.mu.Lock()
	t.starts = append(t.starts, Start{HCLK: hclk, Reload: reload})
	stop, done := make(chan struct{}), make(chan struct{})
	t.stop, t.done = stop, done
	t.mu.Unlock()

	go func() {
		defer close(done)
		tk := time.NewTicker(every)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				t.pulse()
			}
		}
	}()
	return nil
}

func (t *Timer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

// Starts returns every programming since creation.
func (t *Timer) Starts() []Start {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Start(nil), t.starts...)
}
