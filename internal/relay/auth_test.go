package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/wire"
)

func authEnvelope(t *testing.T, payload wire.AuthPayload) *wire.Envelope {
	t.Helper()
	env, err := wire.WithPayload(wire.TypeAuth, &payload, 1000)
	require.NoError(t, err)
	return env
}

func TestReduceAuthPylonSuccess(t *testing.T) {
	devices := Devices{7: {Name: "garage", Icon: "garage.png", AllowedIPs: []string{"10.0.0.5"}}}
	client := ClientState{IP: "10.0.0.5", ConnectedAt: 1000}
	deviceID := 7
	payload := wire.AuthPayload{DeviceType: "pylon", DeviceId: &deviceID}

	actions := Reduce("c1", client, authEnvelope(t, payload), map[ClientID]ClientState{"c1": client},
		devices, AllocatorSnapshot{}, nil, 1000)

	require.Len(t, actions, 3)
	update, ok := actions[0].(UpdateClientAction)
	require.True(t, ok)
	assert.True(t, *update.Updates.Authenticated)
	assert.Equal(t, identifier.DeviceTypePylon, *update.Updates.DeviceType)

	send, ok := actions[1].(SendAction)
	require.True(t, ok)
	var result wire.AuthResultPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.True(t, result.Success)

	_, ok = actions[2].(BroadcastAction)
	assert.True(t, ok, "auth success broadcasts device_status")
}

func TestReduceAuthPylonRejectsUnknownDevice(t *testing.T) {
	devices := Devices{}
	client := ClientState{IP: "10.0.0.5"}
	deviceID := 9
	payload := wire.AuthPayload{DeviceType: "pylon", DeviceId: &deviceID}

	actions := Reduce("c1", client, authEnvelope(t, payload), map[ClientID]ClientState{"c1": client},
		devices, AllocatorSnapshot{}, nil, 1000)

	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	var result wire.AuthResultPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.False(t, result.Success)
}

func TestReduceAuthPylonRejectsDisallowedIP(t *testing.T) {
	devices := Devices{7: {Name: "garage", AllowedIPs: []string{"10.0.0.5"}}}
	client := ClientState{IP: "192.168.1.1"}
	deviceID := 7
	payload := wire.AuthPayload{DeviceType: "pylon", DeviceId: &deviceID}

	actions := Reduce("c1", client, authEnvelope(t, payload), map[ClientID]ClientState{"c1": client},
		devices, AllocatorSnapshot{}, nil, 1000)

	send := actions[0].(SendAction)
	var result wire.AuthResultPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.False(t, result.Success)
}

func TestReduceAuthAppAllocatesIndex(t *testing.T) {
	client := ClientState{IP: "10.0.0.9"}
	payload := wire.AuthPayload{DeviceType: "app", Name: "dashboard"}

	actions := Reduce("c2", client, authEnvelope(t, payload), map[ClientID]ClientState{"c2": client},
		Devices{}, NewAllocator(16).Snapshot(), nil, 1000)

	require.Len(t, actions, 4)
	alloc, ok := actions[0].(AllocateClientIndexAction)
	require.True(t, ok)
	assert.Equal(t, 0, alloc.Index)
}

func TestReduceAuthViewerBindsConversation(t *testing.T) {
	client := ClientState{IP: "10.0.0.9"}
	payload := wire.AuthPayload{DeviceType: "viewer", ShareId: "share-123"}
	validate := func(shareID string) (string, bool) {
		if shareID == "share-123" {
			return "conv-1", true
		}
		return "", false
	}

	actions := Reduce("c3", client, authEnvelope(t, payload), map[ClientID]ClientState{"c3": client},
		Devices{}, NewAllocator(16).Snapshot(), validate, 1000)

	update := actions[1].(UpdateClientAction)
	require.NotNil(t, update.Updates.ConversationId)
	assert.Equal(t, "conv-1", *update.Updates.ConversationId)
}

func TestReduceAuthViewerRejectsBadShare(t *testing.T) {
	client := ClientState{IP: "10.0.0.9"}
	payload := wire.AuthPayload{DeviceType: "viewer", ShareId: "bogus"}
	validate := func(string) (string, bool) { return "", false }

	actions := Reduce("c3", client, authEnvelope(t, payload), map[ClientID]ClientState{"c3": client},
		Devices{}, AllocatorSnapshot{}, validate, 1000)

	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	var result wire.AuthResultPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.False(t, result.Success)
}

func TestReduceAuthIndexPoolExhausted(t *testing.T) {
	full := AllocatorSnapshot{}
	full = fullSnapshot(16)
	client := ClientState{IP: "10.0.0.9"}
	payload := wire.AuthPayload{DeviceType: "app", Name: "dashboard"}

	actions := Reduce("c2", client, authEnvelope(t, payload), map[ClientID]ClientState{"c2": client},
		Devices{}, full, nil, 1000)

	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	var result wire.AuthResultPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.False(t, result.Success)
}

func fullSnapshot(size int) AllocatorSnapshot {
	a := NewAllocator(size)
	for i := 0; i < size; i++ {
		_ = a.Commit(i)
	}
	return a.Snapshot()
}
