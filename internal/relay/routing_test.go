package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/wire"
)

func mustDeviceID(t *testing.T, dt identifier.DeviceType, idx int) identifier.DeviceId {
	t.Helper()
	id, err := identifier.EncodeDevice(0, dt, idx)
	require.NoError(t, err)
	return id
}

func authedClient(t *testing.T, dt identifier.DeviceType, idx int, name, conversationID string) ClientState {
	t.Helper()
	id := mustDeviceID(t, dt, idx)
	return ClientState{
		DeviceId: &id, DeviceType: dt, Name: name,
		Authenticated: true, ConversationId: conversationID,
	}
}

func plainEnvelope(t *testing.T, msgType string, payload map[string]any) *wire.Envelope {
	t.Helper()
	env, err := wire.WithPayload(msgType, payload, 2000)
	require.NoError(t, err)
	return env
}

func TestRouteMessageUnicastTo(t *testing.T) {
	pylon := authedClient(t, identifier.DeviceTypePylon, 0, "garage", "")
	app := authedClient(t, identifier.DeviceTypeApp, 0, "dashboard", "")
	clients := map[ClientID]ClientState{"pylon1": pylon, "app1": app}

	env := plainEnvelope(t, "custom", nil)
	env.To = []identifier.DeviceId{*app.DeviceId}

	actions := Reduce("pylon1", pylon, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)
	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	assert.Equal(t, ClientID("app1"), send.To)
	assert.Equal(t, *pylon.DeviceId, send.Env.From.DeviceId)
}

func TestRouteMessageBroadcastApps(t *testing.T) {
	pylon := authedClient(t, identifier.DeviceTypePylon, 0, "garage", "")
	app1 := authedClient(t, identifier.DeviceTypeApp, 0, "a1", "")
	app2 := authedClient(t, identifier.DeviceTypeApp, 1, "a2", "")
	viewer := authedClient(t, identifier.DeviceTypeViewer, 2, "v1", "conv-1")
	clients := map[ClientID]ClientState{"pylon1": pylon, "app1": app1, "app2": app2, "viewer1": viewer}

	env := plainEnvelope(t, "custom", nil)
	env.Broadcast = wire.BroadcastApps

	actions := Reduce("pylon1", pylon, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)
	require.Len(t, actions, 1)
	b := actions[0].(BroadcastAction)
	assert.ElementsMatch(t, []ClientID{"app1", "app2"}, b.To)
}

func TestRouteMessageDefaultPylonToApps(t *testing.T) {
	pylon := authedClient(t, identifier.DeviceTypePylon, 0, "garage", "")
	app := authedClient(t, identifier.DeviceTypeApp, 0, "a1", "")
	clients := map[ClientID]ClientState{"pylon1": pylon, "app1": app}

	env := plainEnvelope(t, "custom", nil)
	actions := Reduce("pylon1", pylon, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)

	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	assert.Equal(t, ClientID("app1"), send.To)
}

func TestRouteMessageDefaultAppToPylon(t *testing.T) {
	pylon := authedClient(t, identifier.DeviceTypePylon, 0, "garage", "")
	app := authedClient(t, identifier.DeviceTypeApp, 0, "a1", "")
	clients := map[ClientID]ClientState{"pylon1": pylon, "app1": app}

	env := plainEnvelope(t, "custom", nil)
	actions := Reduce("app1", app, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)

	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	assert.Equal(t, ClientID("pylon1"), send.To)
}

func TestRouteMessageViewerNeverSends(t *testing.T) {
	viewer := authedClient(t, identifier.DeviceTypeViewer, 0, "v1", "conv-1")
	clients := map[ClientID]ClientState{"viewer1": viewer}

	env := plainEnvelope(t, "custom", nil)
	env.Broadcast = wire.BroadcastAll

	actions := Reduce("viewer1", viewer, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)
	assert.Empty(t, actions)
}

func TestRouteMessageViewerConversationFilter(t *testing.T) {
	pylon := authedClient(t, identifier.DeviceTypePylon, 0, "garage", "")
	viewerMatch := authedClient(t, identifier.DeviceTypeViewer, 0, "v1", "conv-1")
	viewerOther := authedClient(t, identifier.DeviceTypeViewer, 1, "v2", "conv-2")
	clients := map[ClientID]ClientState{"pylon1": pylon, "vmatch": viewerMatch, "vother": viewerOther}

	env := plainEnvelope(t, "custom", map[string]any{"conversationId": "conv-1"})
	env.Broadcast = wire.BroadcastAll

	actions := Reduce("pylon1", pylon, env, clients, Devices{}, AllocatorSnapshot{}, nil, 2000)
	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	assert.Equal(t, ClientID("vmatch"), send.To)
}

func TestRouteMessageRequiresAuthentication(t *testing.T) {
	client := ClientState{}
	env := plainEnvelope(t, "custom", nil)

	actions := Reduce("c1", client, env, map[ClientID]ClientState{"c1": client}, Devices{}, AllocatorSnapshot{}, nil, 2000)
	require.Len(t, actions, 1)
	send := actions[0].(SendAction)
	var result wire.ErrorPayload
	require.NoError(t, send.Env.DecodePayload(&result))
	assert.Equal(t, "Not authenticated", result.Error)
}
