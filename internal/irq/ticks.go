package irq

import (
	"sync/atomic"

	"clockcycle-go/errcode"
)

// DefaultBacklog is how many undrained ticks a TickSource tolerates.
const DefaultBacklog = 16

// TickSource is a periodic tick stream with a bounded backlog. Ticks are
// counted, not queued; a consumer that falls more than the backlog behind
// ends the stream with errcode.StreamOverflow until Restart.
type TickSource struct {
	ch       chan struct{}
	pending  uint32
	overflow uint32
	backlog  uint32
}

func NewTickSource(backlog uint32) *TickSource {
	if backlog == 0 {
		backlog = DefaultBacklog
	}
	return &TickSource{ch: make(chan struct{}, 1), backlog: backlog}
}

// Pulse is the timer interrupt handler.
func (s *TickSource) Pulse() {
	if atomic.LoadUint32(&s.overflow) != 0 {
		return
	}
	if atomic.AddUint32(&s.pending, 1) > s.backlog {
		atomic.StoreUint32(&s.overflow, 1)
	}
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C signals that ticks (or an overflow) are waiting to be taken.
func (s *TickSource) C() <-chan struct{} { return s.ch }

// Take drains the pending tick count. After an overflow it keeps failing
// until Restart.
func (s *TickSource) Take() (uint32, error) {
	if atomic.LoadUint32(&s.overflow) != 0 {
		return 0, errcode.StreamOverflow
	}
	return atomic.SwapUint32(&s.pending, 0), nil
}

// Restart clears the backlog and the overflow flag for a new session.
func (s *TickSource) Restart() {
	atomic.StoreUint32(&s.overflow, 1)
	select {
	case <-s.ch:
	default:
	}
	atomic.StoreUint32(&s.pending, 0)
	atomic.StoreUint32(&s.overflow, 0)
}
