package server

import "encoding/json"

// Frame is the local control surface's wire envelope: a flat
// {type, payload} shape, distinct from relay's device-routed
// wire.Envelope since there are no device identities on this side of
// the boundary.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Frame type discriminators. Inbound types drive Hub.dispatch;
// outbound types are what conversations publish back.
const (
	FrameSend              = "send"
	FramePermission        = "permission"
	FrameAnswer            = "answer"
	FrameControl           = "control"
	FrameSetPermissionMode = "set_permission_mode"
	FrameListWorkspaces    = "list_workspaces"
	FrameListConversations = "list_conversations"
	FrameGetConversation   = "get_conversation"

	FrameEvent = "event"
	FrameError = "error"
	FrameOk    = "ok"
)

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func newFrame(typ string, v any) (Frame, error) {
	if v == nil {
		return Frame{Type: typ}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: typ, Payload: data}, nil
}

func marshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
