package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/events/bus"
)

// Presence event types published onto an optional event bus, letting
// other relay instances (or observability tooling) see device
// connect/disconnect activity without going through the wire protocol.
const (
	EventDeviceConnected    = "relay.device.connected"
	EventDeviceDisconnected = "relay.device.disconnected"
)

// SetPresenceBus attaches an EventBus that device connect/disconnect
// events are published to. Optional: a Server with no bus attached
// behaves exactly as before.
func (s *Server) SetPresenceBus(b bus.EventBus) {
	s.mu.Lock()
	s.presence = b
	s.mu.Unlock()
}

func (s *Server) publishPresence(eventType string, client ClientState) {
	s.mu.RLock()
	b := s.presence
	s.mu.RUnlock()
	if b == nil {
		return
	}

	data := map[string]interface{}{
		"deviceType": string(client.DeviceType),
		"ip":         client.IP,
	}
	if client.DeviceId != nil {
		data["deviceId"] = uint32(*client.DeviceId)
	}

	event := bus.NewEvent(eventType, "relay", data)
	if err := b.Publish(context.Background(), eventType, event); err != nil {
		s.log.Warn("failed to publish presence event", zap.Error(err))
	}
}
