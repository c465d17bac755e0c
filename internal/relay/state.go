// Package relay implements the central message router (R): device
// authentication, client-index allocation, and envelope routing,
// factored as a pure reducer plus an I/O layer that is the only thing
// permitted to write sockets or mutate the client registry.
package relay

import "github.com/relaymesh/relaymesh/internal/identifier"

// ClientID is the opaque id the relay's I/O layer assigns to each
// live connection, independent of the wire-level DeviceId.
type ClientID string

// DeviceRecord is a static, read-mostly entry in the devices table,
// keyed by pylon deviceId.
type DeviceRecord struct {
	Name       string
	Icon       string
	Role       string
	AllowedIPs []string
}

// ClientState is everything the reducer needs to know about one live
// connection.
type ClientState struct {
	DeviceId       *identifier.DeviceId
	DeviceType     identifier.DeviceType
	Name           string
	Icon           string
	IP             string
	ConnectedAt    int64
	Authenticated  bool
	ConversationId string // bound conversation, viewers only
}

// ClientUpdates is a partial patch applied to a ClientState by an
// UpdateClientAction; nil fields are left unchanged.
type ClientUpdates struct {
	DeviceId       *identifier.DeviceId
	DeviceType     *identifier.DeviceType
	Name           *string
	Icon           *string
	Authenticated  *bool
	ConversationId *string
}

// Apply returns a copy of cs with the non-nil fields of u applied.
func (u ClientUpdates) Apply(cs ClientState) ClientState {
	if u.DeviceId != nil {
		cs.DeviceId = u.DeviceId
	}
	if u.DeviceType != nil {
		cs.DeviceType = *u.DeviceType
	}
	if u.Name != nil {
		cs.Name = *u.Name
	}
	if u.Icon != nil {
		cs.Icon = *u.Icon
	}
	if u.Authenticated != nil {
		cs.Authenticated = *u.Authenticated
	}
	if u.ConversationId != nil {
		cs.ConversationId = *u.ConversationId
	}
	return cs
}

// ShareValidator resolves a shareId to the conversationId it is bound
// to, injected so the reducer never touches the share store directly.
type ShareValidator func(shareID string) (conversationID string, ok bool)
