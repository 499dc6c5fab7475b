// Package monitor logs what the control core publishes: clock changes,
// clicks and faults, plus a periodic heartbeat with the current mode.
package monitor

import (
	"context"
	"time"

	"clockcycle-go/bus"
	"clockcycle-go/types"
	"clockcycle-go/x/logx"
)

type Service struct {
	// Interval between heartbeat lines; zero disables them.
	Interval time.Duration
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, ready chan<- struct{}) {
	stateSub := conn.Subscribe(types.TopicClockState)
	clickSub := conn.Subscribe(types.TopicClick)
	faultSub := conn.Subscribe(types.TopicFault)
	defer conn.Unsubscribe(stateSub)
	defer conn.Unsubscribe(clickSub)
	defer conn.Unsubscribe(faultSub)
	close(ready)

	var tickC <-chan time.Time
	if s.Interval > 0 {
		tick := time.NewTicker(s.Interval)
		defer tick.Stop()
		tickC = tick.C
	}

	var last types.ClockState
	var clicks, rejected uint32
	for {
		select {
		case <-ctx.Done():
			logx.Info("monitor stopping")
			return
		case <-tickC:
			logx.Info("heartbeat", last.Mode, last.HCLK, "clicks", clicks, "rejected", rejected)
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.ClockState); ok {
				last = st
				logx.Info("clock", st.Mode, st.HCLK, "ws", st.WaitStates)
			}
		case msg := <-clickSub.Channel():
			if ev, ok := msg.Payload.(types.ClickEvent); ok {
				if ev.Accepted {
					clicks++
				} else {
					rejected++
				}
			}
		case msg := <-faultSub.Channel():
			if f, ok := msg.Payload.(types.Fault); ok {
				if f.Fatal {
					logx.Error("fault", f.Op, f.Code)
				} else {
					logx.Warn("fault", f.Op, f.Code)
				}
			}
		}
	}
}

// Start the monitor. It returns once its subscriptions are in place.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	ready := make(chan struct{})
	go s.serviceLoop(ctx, conn, ready)
	<-ready
	return nil
}
