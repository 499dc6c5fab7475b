package types

import "clockcycle-go/bus"

// Topics shared by publishers and subscribers.
var (
	TopicClockState = bus.T("clock", "state")
	TopicClick      = bus.T("button", "click")
	TopicLED        = bus.T("led", "status")
	TopicFault      = bus.T("loop", "fault")
)
