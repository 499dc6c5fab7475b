package config

import (
	"context"

	"clockcycle-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Service publishes the running configuration, one retained message per
// section, so late subscribers see what the firmware booted with.
type Service struct {
	Name string
	cfg  Config
}

func NewService(cfg Config) *Service {
	return &Service{Name: serviceName, cfg: cfg}
}

func (s *Service) publish(conn *bus.Connection) {
	sections := []struct {
		key string
		val any
	}{
		{"board", s.cfg.Board},
		{"debounce", s.cfg.Debounce},
		{"timing", s.cfg.Timing},
		{"wait", s.cfg.Wait},
		{"queues", s.cfg.Queues},
		{"console", s.cfg.Console},
	}
	for _, sec := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, sec.key), sec.val, true))
	}
}

// Start publishes synchronously; retained messages need no goroutine.
func (s *Service) Start(_ context.Context, conn *bus.Connection) {
	s.publish(conn)
}
