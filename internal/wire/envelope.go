// Package wire defines the JSON envelope and payload shapes that flow
// between clients, the relay, and workstations, per the wire protocol.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/relaymesh/relaymesh/internal/identifier"
)

// BroadcastTarget is the typed fan-out selector carried by an envelope.
type BroadcastTarget string

const (
	BroadcastAll     BroadcastTarget = "all"
	BroadcastPylons  BroadcastTarget = "pylons"
	BroadcastApps    BroadcastTarget = "apps"
	BroadcastViewers BroadcastTarget = "viewers"
)

func (b BroadcastTarget) Valid() bool {
	switch b {
	case BroadcastAll, BroadcastPylons, BroadcastApps, BroadcastViewers:
		return true
	default:
		return false
	}
}

// Control message types interpreted by the relay itself.
const (
	TypeAuth             = "auth"
	TypeAuthResult       = "auth_result"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeDeviceStatus     = "device_status"
	TypeClientDisconnect = "client_disconnect"
	TypeGetDevices       = "get_devices"
	TypeDeviceList       = "device_list"
	TypeError            = "error"
	TypeConnected        = "connected"
)

// Blob transport message types, layered on the same envelope.
const (
	TypeBlobStart   = "blob_start"
	TypeBlobChunk   = "blob_chunk"
	TypeBlobEnd     = "blob_end"
	TypeBlobRequest = "blob_request"
)

// Device identifies the authenticated sender or an addressed recipient
// of an envelope.
type Device struct {
	DeviceId   identifier.DeviceId `json:"deviceId"`
	DeviceType identifier.DeviceType `json:"deviceType"`
	Name       string              `json:"name,omitempty"`
	Icon       string              `json:"icon,omitempty"`
}

// Envelope is the top-level JSON object carried by every WebSocket
// frame: {type, from?, to?, broadcast?, payload?, timestamp}.
type Envelope struct {
	Type      string              `json:"type"`
	From      *Device             `json:"from,omitempty"`
	To        []identifier.DeviceId `json:"to,omitempty"`
	Broadcast BroadcastTarget     `json:"broadcast,omitempty"`
	Payload   json.RawMessage     `json:"payload,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// DecodePayload unmarshals the envelope's payload into v.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("wire: envelope %q has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// WithPayload returns a new envelope of msgType with payload set to
// the JSON encoding of v.
func WithPayload(msgType string, v any, timestamp int64) (*Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload for %q: %w", msgType, err)
	}
	return &Envelope{Type: msgType, Payload: raw, Timestamp: timestamp}, nil
}

// Encode marshals the envelope to JSON bytes for a single WebSocket
// frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a single WebSocket frame into an Envelope. Malformed
// JSON is the caller's responsibility to treat as a dropped frame,
// per the failure semantics.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, fmt.Errorf("wire: envelope missing type")
	}
	return &e, nil
}
