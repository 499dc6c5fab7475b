package config

// -----------------------------------------------------------------------------
// Board presets
//
// Key: board name (the value of Board.Name)
// -----------------------------------------------------------------------------

// BoardLookup allows overriding how presets are resolved.
var BoardLookup = func(name string) (Config, bool) {
	f, ok := boards[name]
	if !ok {
		return Config{}, false
	}
	c := Default()
	f(&c)
	return c, true
}

var boards = map[string]func(*Config){
	"nucleo-l4r5zi": func(*Config) {},
	// HSE from an Si5351 breakout on I2C1 instead of the ST-LINK MCO.
	"nucleo-l4r5zi-si5351": func(c *Config) {
		c.Board.Name = "nucleo-l4r5zi-si5351"
		c.Board.ExternalHSE = true
		c.Board.HSEHz = 16_000_000
	},
	// STM32L496: 80 MHz ceiling and a 3-bit LATENCY field (4 wait states
	// max). The register bits the clock tree uses sit where they do on L4+.
	"nucleo-l496zg": func(c *Config) {
		c.Board.Name = "nucleo-l496zg"
		c.Board.MaxHCLKHz = 80_000_000
		c.Board.SafeLatency = 4
		c.Board.MaxLatency = 4
	},
}
