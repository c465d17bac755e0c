package relay

import (
	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/wire"
)

// Reduce is the relay's pure reducer: given a snapshot of the
// shared state and one incoming envelope from clientID, it returns the
// actions the I/O layer must execute. It never mutates any of its
// arguments.
func Reduce(
	clientID ClientID,
	client ClientState,
	msg *wire.Envelope,
	clients map[ClientID]ClientState,
	devices Devices,
	allocatorSnapshot AllocatorSnapshot,
	validateShare ShareValidator,
	now int64,
) []Action {
	switch msg.Type {
	case wire.TypeAuth:
		return reduceAuth(clientID, client, msg, clients, devices, allocatorSnapshot, validateShare, now)

	case wire.TypePing:
		if !client.Authenticated {
			return []Action{notAuthenticated(clientID, now)}
		}
		return []Action{SendAction{To: clientID, Env: mustEnvelope(wire.TypePong, struct{}{}, now)}}

	case wire.TypeGetDevices:
		if !client.Authenticated {
			return []Action{notAuthenticated(clientID, now)}
		}
		payload := &wire.DeviceStatusPayload{Devices: deviceStatusEntries(clients)}
		return []Action{SendAction{To: clientID, Env: mustEnvelope(wire.TypeDeviceList, payload, now)}}

	default:
		if !client.Authenticated {
			return []Action{notAuthenticated(clientID, now)}
		}
		return routeMessage(clientID, client, msg, clients)
	}
}

func reduceAuth(
	clientID ClientID,
	client ClientState,
	msg *wire.Envelope,
	clients map[ClientID]ClientState,
	devices Devices,
	allocatorSnapshot AllocatorSnapshot,
	validateShare ShareValidator,
	now int64,
) []Action {
	var payload wire.AuthPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return []Action{SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
			Success: false, Error: "malformed auth payload",
		}, now)}}
	}

	actions := handleAuth(clientID, client, payload, devices, allocatorSnapshot, validateShare, now)
	if !authSucceeded(actions) {
		return actions
	}

	merged := withUpdatesApplied(clients, actions)
	return append(actions, broadcastDeviceStatus(merged, now))
}

func notAuthenticated(clientID ClientID, now int64) Action {
	return SendAction{To: clientID, Env: mustEnvelope(wire.TypeError, &wire.ErrorPayload{Error: "Not authenticated"}, now)}
}

// authSucceeded reports whether actions contains the UpdateClientAction
// handleAuth emits on a successful authentication.
func authSucceeded(actions []Action) bool {
	for _, a := range actions {
		if u, ok := a.(UpdateClientAction); ok && u.Updates.Authenticated != nil && *u.Updates.Authenticated {
			return true
		}
	}
	return false
}

// withUpdatesApplied returns clients with every UpdateClientAction in
// actions applied, so a device_status computed within the same
// reduction already reflects the newly authenticated client. The real
// registry is mutated only by the I/O layer, never here.
func withUpdatesApplied(clients map[ClientID]ClientState, actions []Action) map[ClientID]ClientState {
	merged := make(map[ClientID]ClientState, len(clients)+1)
	for id, cs := range clients {
		merged[id] = cs
	}
	for _, a := range actions {
		if u, ok := a.(UpdateClientAction); ok {
			merged[u.Client] = u.Updates.Apply(merged[u.Client])
		}
	}
	return merged
}

// HandleDisconnect computes the actions for clientID's connection
// closing: a non-pylon disconnect is broadcast to every
// pylon as client_disconnect, every remaining client gets a fresh
// device_status, and the disconnecting client's pool index (if any)
// is released.
func HandleDisconnect(clientID ClientID, client ClientState, clients map[ClientID]ClientState, now int64) []Action {
	remaining := make(map[ClientID]ClientState, len(clients))
	for id, cs := range clients {
		if id != clientID {
			remaining[id] = cs
		}
	}

	var actions []Action

	if client.Authenticated && client.DeviceId != nil && client.DeviceType != identifier.DeviceTypePylon {
		disconnectEnv := mustEnvelope(wire.TypeClientDisconnect, &wire.ClientDisconnectPayload{
			DeviceId:   int(*client.DeviceId),
			DeviceType: string(client.DeviceType),
		}, now)
		var pylons []ClientID
		for id, cs := range remaining {
			if cs.Authenticated && cs.DeviceType == identifier.DeviceTypePylon {
				pylons = append(pylons, id)
			}
		}
		if len(pylons) > 0 {
			actions = append(actions, BroadcastAction{To: pylons, Env: disconnectEnv})
		}
	}

	if client.Authenticated {
		actions = append(actions, broadcastDeviceStatus(remaining, now))
	}

	if idx, ok := poolIndexOf(client); ok {
		actions = append(actions, ReleaseClientIndexAction{Index: idx})
	}

	return actions
}

// poolIndexOf reports the allocator index to release for client, if
// it holds one. Pylon deviceIds are configuration-assigned, never
// pool-allocated.
func poolIndexOf(client ClientState) (int, bool) {
	if client.DeviceId == nil {
		return 0, false
	}
	switch client.DeviceType {
	case identifier.DeviceTypeApp, identifier.DeviceTypeViewer:
		return client.DeviceId.Index(), true
	default:
		return 0, false
	}
}
