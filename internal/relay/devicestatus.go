package relay

import "github.com/relaymesh/relaymesh/internal/wire"

// deviceStatusEntries lists every currently authenticated client, per
// the device_status payload shape.
func deviceStatusEntries(clients map[ClientID]ClientState) []wire.DeviceStatusEntry {
	var entries []wire.DeviceStatusEntry
	for _, cs := range clients {
		if !cs.Authenticated || cs.DeviceId == nil {
			continue
		}
		entries = append(entries, wire.DeviceStatusEntry{
			DeviceId:    int(*cs.DeviceId),
			DeviceType:  string(cs.DeviceType),
			Name:        cs.Name,
			Icon:        cs.Icon,
			ConnectedAt: cs.ConnectedAt,
		})
	}
	return entries
}

// broadcastDeviceStatus fans a fresh device_status snapshot out to
// every client currently known to the caller, authenticated or not
// (an unauthenticated client still sees who else is connected once it
// authenticates).
func broadcastDeviceStatus(clients map[ClientID]ClientState, now int64) Action {
	to := make([]ClientID, 0, len(clients))
	for id := range clients {
		to = append(to, id)
	}
	env := mustEnvelope(wire.TypeDeviceStatus, &wire.DeviceStatusPayload{Devices: deviceStatusEntries(clients)}, now)
	return BroadcastAction{To: to, Env: env}
}
