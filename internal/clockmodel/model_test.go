package clockmodel

import (
	"errors"
	"testing"

	"clockcycle-go/errcode"
)

func msiCfg(r uint32) Config {
	return Config{Source: SourceMSI, PLLSource: PLLNone, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: r}
}

func TestDeriveDocumentedOperatingPoints(t *testing.T) {
	osc := DefaultOscillators()
	cases := []struct {
		name   string
		cfg    Config
		hz, ws uint32
	}{
		{"msi-reset-4MHz", msiCfg(0b0110), 4_000_000, 0},
		{"hsi16-16MHz", Config{Source: SourceHSI16, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 0b0110}, 16_000_000, 1},
		{"msi-48MHz", msiCfg(0b1011), 48_000_000, 3},
		{"pll-hsi16-80MHz", Config{Source: SourcePLL, PLLSource: PLLHSI16, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 0b0110}, 80_000_000, 5},
		{"hse-48MHz", Config{Source: SourceHSE, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 6}, 48_000_000, 3},
		{"pll-msi-4MHz-x20-r2", Config{Source: SourcePLL, PLLSource: PLLMSI, PLLM: 1, PLLN: 20, PLLR: 2, MSIRange: 6}, 40_000_000, 2},
		{"pll-hse-div3", Config{Source: SourcePLL, PLLSource: PLLHSE, PLLM: 3, PLLN: 10, PLLR: 4, MSIRange: 6}, 40_000_000, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Derive(c.cfg, osc)
			if d.HCLK != c.hz || d.FlashWaitStates != c.ws {
				t.Fatalf("Derive = %d Hz / %d ws, want %d Hz / %d ws", d.HCLK, d.FlashWaitStates, c.hz, c.ws)
			}
		})
	}
}

func TestDeriveIsPure(t *testing.T) {
	osc := DefaultOscillators()
	cfg := Config{Source: SourcePLL, PLLSource: PLLHSI16, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 6}
	before := osc
	a := Derive(cfg, osc)
	b := Derive(cfg, osc)
	if a != b {
		t.Fatalf("Derive not idempotent: %+v vs %+v", a, b)
	}
	if osc != before {
		t.Fatal("Derive mutated its oscillator table")
	}
}

func TestDerivePLLWithoutInputIsDegenerate(t *testing.T) {
	cfg := Config{Source: SourcePLL, PLLSource: PLLNone, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 6}
	if d := Derive(cfg, DefaultOscillators()); d.HCLK != 0 || d.FlashWaitStates != 0 {
		t.Fatalf("expected 0 Hz, got %+v", d)
	}
	// Zero divisors must not trap either.
	cfg.PLLSource = PLLHSI16
	cfg.PLLM = 0
	if d := Derive(cfg, DefaultOscillators()); d.HCLK != 0 {
		t.Fatalf("expected 0 Hz with PLLM=0, got %+v", d)
	}
}

func TestValidateRejectsDegenerateConfigs(t *testing.T) {
	osc := DefaultOscillators()
	good := Config{Source: SourcePLL, PLLSource: PLLHSI16, PLLM: 1, PLLN: 10, PLLR: 2, MSIRange: 6}
	if err := Validate(good, osc); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := map[string]func(c *Config){
		"pll-without-input": func(c *Config) { c.PLLSource = PLLNone },
		"m-zero":            func(c *Config) { c.PLLM = 0 },
		"r-odd":             func(c *Config) { c.PLLR = 3 },
		"r-too-small":       func(c *Config) { c.PLLR = 0 },
		"msi-range":         func(c *Config) { c.MSIRange = 12 },
		"n-too-small":       func(c *Config) { c.PLLN = 4 },
		"too-fast":          func(c *Config) { c.PLLN = 40 },
	}
	for name, mut := range bad {
		t.Run(name, func(t *testing.T) {
			c := good
			mut(&c)
			err := Validate(c, osc)
			if !errors.Is(err, errcode.ConfigurationFault) {
				t.Fatalf("expected configuration_fault, got %v", err)
			}
		})
	}
}

func TestUsesOscillator(t *testing.T) {
	if !(Config{Source: SourcePLL, PLLSource: PLLHSI16}).UsesHSI16() {
		t.Fatal("PLL fed by HSI16 must need HSI16")
	}
	if (Config{Source: SourceMSI, PLLSource: PLLHSI16}).UsesHSI16() {
		t.Fatal("an unused PLL input must not start HSI16")
	}
	if !(Config{Source: SourceHSE}).UsesHSE() {
		t.Fatal("HSE as SYSCLK must need HSE")
	}
}

func TestDerivedString(t *testing.T) {
	if got := (Derived{HCLK: 80_000_000}).String(); got != "80MHz" {
		t.Fatalf("String() = %q", got)
	}
}
