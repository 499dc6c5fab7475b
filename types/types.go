package types

// ---- Clock tree state (retained) ----

// ClockState is published whenever a clock mode has been applied.
type ClockState struct {
	Mode       string  `json:"mode"`
	HCLK       uint32  `json:"hclk_hz"`
	WaitStates uint32  `json:"wait_states"`
	Indicator  [2]bool `json:"indicator"`
	TS         int64   `json:"ts_ms"`
}

// ---- Button ----

// ClickEvent reports one filtered button edge.
type ClickEvent struct {
	Accepted bool  `json:"accepted"` // false: rejected as a double click
	TS       int64 `json:"ts_ms"`
}

// ---- Faults ----

// Fault carries an errcode and the failing operation.
type Fault struct {
	Code  string `json:"code"`
	Op    string `json:"op,omitempty"`
	Fatal bool   `json:"fatal"`
	TS    int64  `json:"ts_ms"`
}

// ---- LED ----

// LEDValue is the status LED level after a toggle.
type LEDValue struct {
	Level uint8 `json:"level"` // 0 or 1
}
