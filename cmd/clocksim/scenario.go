package main

import (
	"os"
	"time"

	"clockcycle-go/errcode"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a run of the emulated board.
//
//	config: board.yaml     # optional overlay, relative to the scenario
//	scale: 100             # board time runs this much faster than wall time
//	settle_polls: 3
//	stuck: [pll]           # oscillators that never report ready
//	steps:
//	  - after: 1s          # board time since the previous step
//	    bounce: 3
type Scenario struct {
	Config      string   `yaml:"config"`
	Scale       uint32   `yaml:"scale"`
	SettlePolls uint32   `yaml:"settle_polls"`
	Stuck       []string `yaml:"stuck"`
	Steps       []Step   `yaml:"steps"`
	// Tail is how long to keep running after the last step.
	Tail time.Duration `yaml:"tail"`
}

// Step presses the button once after a delay, with Bounce extra contact
// bounces.
type Step struct {
	After  time.Duration `yaml:"after"`
	Bounce int           `yaml:"bounce"`
}

// DefaultScenario clicks through every mode once.
func DefaultScenario() Scenario {
	s := Scenario{Scale: 50, SettlePolls: 3, Tail: time.Second}
	for i := 0; i < 4; i++ {
		s.Steps = append(s.Steps, Step{After: 2 * time.Second, Bounce: 2})
	}
	return s
}

func loadScenario(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return parseScenario(b)
}

func parseScenario(b []byte) (Scenario, error) {
	s := DefaultScenario()
	s.Steps = nil
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Scenario{}, errcode.Wrap(errcode.InvalidParams, "scenario.parse", "", err)
	}
	if s.Scale == 0 {
		return Scenario{}, errcode.Wrap(errcode.InvalidParams, "scenario.parse", "scale must be > 0", nil)
	}
	for _, name := range s.Stuck {
		if _, ok := oscByName[name]; !ok {
			return Scenario{}, errcode.Wrap(errcode.InvalidParams, "scenario.parse", "unknown oscillator "+name, nil)
		}
	}
	return s, nil
}
