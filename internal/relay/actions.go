package relay

import "github.com/relaymesh/relaymesh/internal/wire"

// Action is the union of side effects the reducer can request. The
// I/O layer is the only code that interprets these: it is the sole
// writer of sockets and the sole mutator of the live client registry
// and index allocator.
type Action interface {
	actionTag()
}

// SendAction delivers env to exactly one client.
type SendAction struct {
	To  ClientID
	Env *wire.Envelope
}

func (SendAction) actionTag() {}

// BroadcastAction delivers env to every listed client.
type BroadcastAction struct {
	To  []ClientID
	Env *wire.Envelope
}

func (BroadcastAction) actionTag() {}

// UpdateClientAction merges Updates into the client registry entry
// for Client.
type UpdateClientAction struct {
	Client  ClientID
	Updates ClientUpdates
}

func (UpdateClientAction) actionTag() {}

// AllocateClientIndexAction commits the index the reducer computed
// (from the allocator snapshot it was given) into the real,
// mutable allocator.
type AllocateClientIndexAction struct {
	Client ClientID
	Index  int
}

func (AllocateClientIndexAction) actionTag() {}

// ReleaseClientIndexAction frees idx in the real allocator.
type ReleaseClientIndexAction struct {
	Index int
}

func (ReleaseClientIndexAction) actionTag() {}
