package relay

import (
	"fmt"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/wire"
)

// envID is a relay-wide constant distinguishing this relay instance's
// devices at the DeviceId bit layout level; single-relay deployments
// use 0.
const envID = 0

func handleAuth(
	clientID ClientID,
	client ClientState,
	payload wire.AuthPayload,
	devices Devices,
	allocatorSnapshot AllocatorSnapshot,
	validateShare ShareValidator,
	now int64,
) []Action {
	if err := payload.Validate(); err != nil {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: err.Error(),
			}, now)},
		}
	}

	switch identifier.DeviceType(payload.DeviceType) {
	case identifier.DeviceTypePylon:
		return authenticatePylon(clientID, client, payload, devices, now)
	case identifier.DeviceTypeApp:
		return authenticateIndexed(clientID, client, identifier.DeviceTypeApp, payload.Name, allocatorSnapshot, now, "")
	case identifier.DeviceTypeViewer:
		conversationID, ok := validateShare(payload.ShareId)
		if !ok {
			return []Action{
				SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
					Success: false, Error: "invalid or expired shareId",
				}, now)},
			}
		}
		return authenticateIndexed(clientID, client, identifier.DeviceTypeViewer, payload.Name, allocatorSnapshot, now, conversationID)
	default:
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: "unknown deviceType",
			}, now)},
		}
	}
}

func authenticatePylon(clientID ClientID, client ClientState, payload wire.AuthPayload, devices Devices, now int64) []Action {
	deviceID := *payload.DeviceId
	record, ok := devices[deviceID]
	if !ok {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: "unknown pylon deviceId",
			}, now)},
		}
	}
	if !ipAllowed(record.AllowedIPs, client.IP) {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: "IP not allowed for this deviceId",
			}, now)},
		}
	}

	id, err := identifier.EncodeDevice(envID, identifier.DeviceTypePylon, deviceID)
	if err != nil {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: err.Error(),
			}, now)},
		}
	}
	dt := identifier.DeviceTypePylon
	authTrue := true
	name := record.Name

	device := &wire.Device{DeviceId: id, DeviceType: dt, Name: record.Name, Icon: record.Icon}
	deviceIDInt := int(id)

	return []Action{
		UpdateClientAction{Client: clientID, Updates: ClientUpdates{
			DeviceId: &id, DeviceType: &dt, Name: &name, Authenticated: &authTrue,
		}},
		SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
			Success: true, DeviceId: &deviceIDInt, Device: device,
		}, now)},
	}
}

// authenticateIndexed handles the app and viewer auth paths, both of
// which get a server-assigned pool index.
func authenticateIndexed(
	clientID ClientID,
	client ClientState,
	deviceType identifier.DeviceType,
	name string,
	allocatorSnapshot AllocatorSnapshot,
	now int64,
	conversationID string,
) []Action {
	idx, ok := NextFree(allocatorSnapshot)
	if !ok {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: "client index pool exhausted",
			}, now)},
		}
	}

	id, err := identifier.EncodeDevice(envID, deviceType, idx)
	if err != nil {
		return []Action{
			SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
				Success: false, Error: err.Error(),
			}, now)},
		}
	}

	authTrue := true
	dt := deviceType
	device := &wire.Device{DeviceId: id, DeviceType: dt, Name: name}
	deviceIDInt := int(id)

	updates := ClientUpdates{DeviceId: &id, DeviceType: &dt, Name: &name, Authenticated: &authTrue}
	if conversationID != "" {
		updates.ConversationId = &conversationID
	}

	return []Action{
		AllocateClientIndexAction{Client: clientID, Index: idx},
		UpdateClientAction{Client: clientID, Updates: updates},
		SendAction{To: clientID, Env: mustEnvelope(wire.TypeAuthResult, &wire.AuthResultPayload{
			Success: true, DeviceId: &deviceIDInt, Device: device,
		}, now)},
	}
}

func mustEnvelope(msgType string, payload any, now int64) *wire.Envelope {
	env, err := wire.WithPayload(msgType, payload, now)
	if err != nil {
		// payload types here are all statically known to marshal cleanly;
		// a failure indicates a programming error, not a runtime condition.
		panic(fmt.Sprintf("relay: failed to build %q envelope: %v", msgType, err))
	}
	return env
}
