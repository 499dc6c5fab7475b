//go:build stm32l4

package stm32l4

import (
	"machine"

	"clockcycle-go/drivers/si5351"
	"clockcycle-go/internal/app"
	"clockcycle-go/internal/halcore"
	"clockcycle-go/internal/irq"
	"clockcycle-go/services/config"
)

// resetHCLK is the core clock out of reset (MSI range 6).
const resetHCLK = 4_000_000

// NewBoard configures the pins, SysTick, the SWO console and, when the
// board takes HSE from an Si5351, I2C1 and the synthesizer.
func NewBoard(cfg config.Config, ticks *irq.TickSource) (app.Board, *SWO, error) {
	swo := NewSWO(resetHCLK, cfg.Console.SWOBaud)

	b := app.Board{
		Regs: Map(),
		Indicators: [2]halcore.OutputPin{
			Output(PinLD1),
			Output(PinLD2),
		},
		LED:    Output(PinLD3),
		Button: Input(PinButton),
		Timer:  NewSysTick(ticks.Pulse),
		Retune: swo.Retune,
		Flush:  swo.Flush,
	}

	if cfg.Board.ExternalHSE {
		if err := machine.I2C1.Configure(machine.I2CConfig{Frequency: 400_000}); err != nil {
			return app.Board{}, nil, err
		}
		d := si5351.New(machine.I2C1)
		if err := d.Configure(si5351.Config{Address: uint16(cfg.Board.Si5351Addr)}); err != nil {
			return app.Board{}, nil, err
		}
		b.HSESource = d
	}
	return b, swo, nil
}
