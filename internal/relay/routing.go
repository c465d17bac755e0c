package relay

import (
	"encoding/json"
	"sort"

	"github.com/relaymesh/relaymesh/internal/identifier"
	"github.com/relaymesh/relaymesh/internal/wire"
)

func deviceOf(client ClientState) *wire.Device {
	if client.DeviceId == nil {
		return nil
	}
	return &wire.Device{
		DeviceId:   *client.DeviceId,
		DeviceType: client.DeviceType,
		Name:       client.Name,
		Icon:       client.Icon,
	}
}

type conversationCarrier struct {
	ConversationId string `json:"conversationId"`
}

// payloadMatchesConversation implements the viewer filter: viewers
// only receive messages whose payload.conversationId equals their
// bound conversation.
func payloadMatchesConversation(payload json.RawMessage, conversationID string) bool {
	if len(payload) == 0 || conversationID == "" {
		return false
	}
	var c conversationCarrier
	if err := json.Unmarshal(payload, &c); err != nil {
		return false
	}
	return c.ConversationId != "" && c.ConversationId == conversationID
}

// routeMessage routes any non-control envelope from an authenticated
// sender. Viewers never send; their frames are dropped silently.
func routeMessage(clientID ClientID, client ClientState, msg *wire.Envelope, clients map[ClientID]ClientState) []Action {
	if client.DeviceType == identifier.DeviceTypeViewer {
		return nil
	}

	routed := *msg
	routed.From = deviceOf(client)

	var recipients []ClientID
	switch {
	case len(msg.To) > 0:
		recipients = recipientsByTo(msg.To, clientID, clients, routed.Payload)
	case msg.Broadcast != "":
		if !msg.Broadcast.Valid() {
			return nil
		}
		recipients = recipientsByBroadcast(msg.Broadcast, clientID, clients, routed.Payload)
	default:
		recipients = recipientsByDefault(client.DeviceType, clientID, clients)
	}

	if len(recipients) == 0 {
		return nil
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })

	if len(recipients) == 1 {
		return []Action{SendAction{To: recipients[0], Env: &routed}}
	}
	return []Action{BroadcastAction{To: recipients, Env: &routed}}
}

func recipientsByTo(to []identifier.DeviceId, sender ClientID, clients map[ClientID]ClientState, payload json.RawMessage) []ClientID {
	var out []ClientID
	for id, cs := range clients {
		if id == sender || !cs.Authenticated || cs.DeviceId == nil {
			continue
		}
		matched := false
		for _, t := range to {
			if *cs.DeviceId == t {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if cs.DeviceType == identifier.DeviceTypeViewer && !payloadMatchesConversation(payload, cs.ConversationId) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func recipientsByBroadcast(target wire.BroadcastTarget, sender ClientID, clients map[ClientID]ClientState, payload json.RawMessage) []ClientID {
	var out []ClientID
	for id, cs := range clients {
		if id == sender || !cs.Authenticated {
			continue
		}
		switch target {
		case wire.BroadcastAll:
			if cs.DeviceType == identifier.DeviceTypeViewer && !payloadMatchesConversation(payload, cs.ConversationId) {
				continue
			}
		case wire.BroadcastPylons:
			if cs.DeviceType != identifier.DeviceTypePylon {
				continue
			}
		case wire.BroadcastApps:
			if cs.DeviceType != identifier.DeviceTypeApp {
				continue
			}
		case wire.BroadcastViewers:
			if cs.DeviceType != identifier.DeviceTypeViewer || !payloadMatchesConversation(payload, cs.ConversationId) {
				continue
			}
		default:
			continue
		}
		out = append(out, id)
	}
	return out
}

// recipientsByDefault applies the default-by-sender-type rule:
// pylons default-broadcast to apps, apps default-send to the
// registered pylon(s).
func recipientsByDefault(senderType identifier.DeviceType, sender ClientID, clients map[ClientID]ClientState) []ClientID {
	var want identifier.DeviceType
	switch senderType {
	case identifier.DeviceTypePylon:
		want = identifier.DeviceTypeApp
	case identifier.DeviceTypeApp:
		want = identifier.DeviceTypePylon
	default:
		return nil
	}

	var out []ClientID
	for id, cs := range clients {
		if id == sender || !cs.Authenticated || cs.DeviceType != want {
			continue
		}
		out = append(out, id)
	}
	return out
}
