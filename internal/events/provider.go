// Package events wires the configured EventBus implementation into a
// relaymesh process, used to fan device-presence and pylon-registration
// changes out across process instances sharing a NATS deployment.
package events

import (
	"fmt"
	"strings"

	"github.com/relaymesh/relaymesh/internal/events/bus"
	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
)

// ProvidedBus wraps the active event bus implementation.
type ProvidedBus struct {
	Bus    bus.EventBus
	Memory *bus.MemoryEventBus
	NATS   *bus.NATSEventBus
}

// Provide builds the configured event bus implementation: NATS when
// cfg.NATS.URL is set, an in-process memory bus otherwise. The memory
// bus fans events out only within the calling process; multi-process
// fanout requires NATS.
func Provide(cfg *config.Config, log *logger.Logger) (*ProvidedBus, func() error, error) {
	if strings.TrimSpace(cfg.NATS.URL) != "" {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize NATS event bus: %w", err)
		}
		cleanup := func() error {
			natsBus.Close()
			return nil
		}
		return &ProvidedBus{Bus: natsBus, NATS: natsBus}, cleanup, nil
	}

	memBus := bus.NewMemoryEventBus(log)
	return &ProvidedBus{Bus: memBus, Memory: memBus}, func() error { return nil }, nil
}
