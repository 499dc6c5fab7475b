//go:build stm32l4

// nucleo-clockcycle cycles the core clock of a Nucleo-144 STM32L4+ through
// 4, 16, 48 and 80 MHz, one step per button click, blinking LD3 while it
// waits.
package main

import (
	"context"
	"device/arm"

	"clockcycle-go/bus"
	"clockcycle-go/internal/app"
	"clockcycle-go/internal/irq"
	"clockcycle-go/internal/platform/stm32l4"
	"clockcycle-go/services/config"
	"clockcycle-go/services/monitor"
	"clockcycle-go/x/logx"
)

// boardName selects the preset; override with -ldflags "-X main.boardName=...".
var boardName = "nucleo-l4r5zi"

func main() {
	ctx := context.Background()

	cfg, ok := config.BoardLookup(boardName)
	if !ok {
		cfg = config.Default()
	}

	ticks := irq.NewTickSource(cfg.Queues.TickBacklog)
	board, swo, err := stm32l4.NewBoard(cfg, ticks)
	if err != nil {
		println("board:", err.Error())
		halt()
	}
	logx.SetOutput(swo)
	logx.Info("boot", cfg.Board.Name)

	b := bus.NewBus(cfg.Queues.BusLen)
	cfgConn := b.NewConnection("config")
	monConn := b.NewConnection("monitor")
	fwConn := b.NewConnection("firmware")

	config.NewService(cfg).Start(ctx, cfgConn)
	// No heartbeat: the runtime timebase does not follow clock switches.
	mon := &monitor.Service{}
	if err := mon.Start(ctx, monConn); err != nil {
		logx.Warn("monitor:", err)
	}

	fw, err := app.New(cfg, app.Table(cfg), ticks, board, fwConn)
	if err != nil {
		logx.Error("init:", err)
		halt()
	}
	_ = fw.Run(ctx)
	halt()
}

// halt stops SysTick and sleeps forever.
func halt() {
	stm32l4.SysTick{}.Stop()
	for {
		arm.Asm("wfi")
	}
}
