// Package protocol is the client-facing mirror of the relay's wire
// format: envelope and payload shapes a Go client can depend on
// without reaching into internal/wire. It intentionally duplicates
// rather than aliases those types, so a client module can vendor this
// package alone without pulling in relay-internal packages.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeviceId is the small integer identifying a connected client at the
// relay, encoded by the server from (envId, deviceType, deviceIndex).
type DeviceId uint32

// DeviceType is one of the three roles a relay client authenticates
// as.
type DeviceType string

const (
	DeviceTypePylon  DeviceType = "pylon"
	DeviceTypeApp    DeviceType = "app"
	DeviceTypeViewer DeviceType = "viewer"
)

// BroadcastTarget selects a fan-out group for an outbound envelope.
type BroadcastTarget string

const (
	BroadcastAll     BroadcastTarget = "all"
	BroadcastPylons  BroadcastTarget = "pylons"
	BroadcastApps    BroadcastTarget = "apps"
	BroadcastViewers BroadcastTarget = "viewers"
)

// Control and blob message type discriminators a client may send or
// receive.
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

	TypeBlobStart   = "blob_start"
	TypeBlobChunk   = "blob_chunk"
	TypeBlobEnd     = "blob_end"
	TypeBlobRequest = "blob_request"
)

// Device identifies the authenticated sender or an addressed
// recipient of an envelope.
type Device struct {
	DeviceId   DeviceId   `json:"deviceId"`
	DeviceType DeviceType `json:"deviceType"`
	Name       string     `json:"name,omitempty"`
	Icon       string     `json:"icon,omitempty"`
}

// Envelope is the top-level JSON object carried by every WebSocket
// frame.
type Envelope struct {
	Type      string          `json:"type"`
	From      *Device         `json:"from,omitempty"`
	To        []DeviceId      `json:"to,omitempty"`
	Broadcast BroadcastTarget `json:"broadcast,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope builds an Envelope carrying v's JSON encoding as
// payload, timestamped at now.
func NewEnvelope(msgType string, v any, now time.Time) (*Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal payload for %q: %w", msgType, err)
	}
	return &Envelope{Type: msgType, Payload: raw, Timestamp: now.Unix()}, nil
}

// DecodePayload unmarshals the envelope's payload into v.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("protocol: envelope %q has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// Encode marshals the envelope to a single WebSocket text frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses one WebSocket frame into an Envelope.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, fmt.Errorf("protocol: envelope missing type")
	}
	return &e, nil
}
