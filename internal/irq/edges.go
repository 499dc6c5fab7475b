// Package irq turns interrupt handlers into event streams the control loop
// can select on. Producers run in interrupt context: they never block and
// never allocate.
package irq

import (
	"sync/atomic"

	"clockcycle-go/internal/halcore"
)

// EdgeSource is a saturating stream of button edges. It holds at most one
// pending edge; edges arriving while one is pending are counted and dropped.
type EdgeSource struct {
	// Written by ISR; MUST NOT block the ISR:
	ch    chan struct{}
	armed uint32
	drops uint32
	edges uint32

	pin halcore.IRQPin
}

func NewEdgeSource() *EdgeSource {
	return &EdgeSource{ch: make(chan struct{}, 1)}
}

// Attach registers the ISR on pin. The source starts disarmed.
func (s *EdgeSource) Attach(pin halcore.IRQPin, edge halcore.Edge) error {
	if err := pin.SetIRQ(edge, s.Post); err != nil {
		return err
	}
	s.pin = pin
	return nil
}

// Detach removes the ISR.
func (s *EdgeSource) Detach() error {
	s.Disarm()
	if s.pin == nil {
		return nil
	}
	err := s.pin.ClearIRQ()
	s.pin = nil
	return err
}

// Post is the interrupt handler: fast gate check + non-blocking send.
func (s *EdgeSource) Post() {
	if atomic.LoadUint32(&s.armed) == 0 {
		return
	}
	atomic.AddUint32(&s.edges, 1)
	select {
	case s.ch <- struct{}{}:
	default:
		atomic.AddUint32(&s.drops, 1) // saturated
	}
}

// C delivers one value per pending edge.
func (s *EdgeSource) C() <-chan struct{} { return s.ch }

// Arm flushes any stale edge and starts accepting new ones.
func (s *EdgeSource) Arm() {
	atomic.StoreUint32(&s.armed, 0)
	s.flush()
	atomic.StoreUint32(&s.drops, 0)
	atomic.StoreUint32(&s.edges, 0)
	atomic.StoreUint32(&s.armed, 1)
}

// Disarm stops accepting edges until the next Arm; a pending edge is
// discarded.
func (s *EdgeSource) Disarm() {
	atomic.StoreUint32(&s.armed, 0)
	s.flush()
}

func (s *EdgeSource) Armed() bool { return atomic.LoadUint32(&s.armed) != 0 }

// Drops returns how many edges were dropped since the last Arm.
func (s *EdgeSource) Drops() uint32 { return atomic.LoadUint32(&s.drops) }

// Edges returns how many edges were seen since the last Arm.
func (s *EdgeSource) Edges() uint32 { return atomic.LoadUint32(&s.edges) }

func (s *EdgeSource) flush() {
	select {
	case <-s.ch:
	default:
	}
}
