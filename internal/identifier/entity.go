// Package identifier implements the 21-bit EntityId packing used to
// address pylons, workspaces, and conversations with a single integer,
// and the small DeviceId packing used by the relay.
package identifier

import (
	"fmt"
	"strconv"
	"strings"
)

// Level describes which fields of an EntityId are meaningful.
type Level string

const (
	LevelPylon        Level = "pylon"
	LevelWorkspace     Level = "workspace"
	LevelConversation Level = "conversation"
)

const (
	pylonBits        = 4
	workspaceBits    = 7
	conversationBits = 10

	pylonShift     = workspaceBits + conversationBits
	workspaceShift = conversationBits

	pylonMask        = (1 << pylonBits) - 1
	workspaceMask    = (1 << workspaceBits) - 1
	conversationMask = (1 << conversationBits) - 1

	MinPylonID = 1
	MaxPylonID = 10

	MinWorkspaceID = 0
	MaxWorkspaceID = 127

	MinConversationID = 0
	MaxConversationID = 1023
)

// EntityId is the packed 21-bit address of a pylon, workspace, or
// conversation.
type EntityId uint32

// Encode packs pylonId, workspaceId, conversationId into an EntityId.
// pylonId must be in [1,10]; workspaceId in [0,127]; conversationId in
// [0,1023]. Any value outside those ranges is a validation failure.
func Encode(pylonID, workspaceID, conversationID int) (EntityId, error) {
	if pylonID < MinPylonID || pylonID > MaxPylonID {
		return 0, fmt.Errorf("identifier: pylonId %d out of range [%d,%d]", pylonID, MinPylonID, MaxPylonID)
	}
	if workspaceID < MinWorkspaceID || workspaceID > MaxWorkspaceID {
		return 0, fmt.Errorf("identifier: workspaceId %d out of range [%d,%d]", workspaceID, MinWorkspaceID, MaxWorkspaceID)
	}
	if conversationID < MinConversationID || conversationID > MaxConversationID {
		return 0, fmt.Errorf("identifier: conversationId %d out of range [%d,%d]", conversationID, MinConversationID, MaxConversationID)
	}
	v := uint32(pylonID&pylonMask)<<pylonShift |
		uint32(workspaceID&workspaceMask)<<workspaceShift |
		uint32(conversationID&conversationMask)
	return EntityId(v), nil
}

// MustEncode panics if Encode fails. Intended for tests and constants.
func MustEncode(pylonID, workspaceID, conversationID int) EntityId {
	id, err := Encode(pylonID, workspaceID, conversationID)
	if err != nil {
		panic(err)
	}
	return id
}

// Decode is total: every uint32 value (even ones Encode would reject)
// decodes to some (pylonId, workspaceId, conversationId) triple.
func (e EntityId) Decode() (pylonID, workspaceID, conversationID int) {
	v := uint32(e)
	pylonID = int((v >> pylonShift) & pylonMask)
	workspaceID = int((v >> workspaceShift) & workspaceMask)
	conversationID = int(v & conversationMask)
	return
}

// Level infers the addressing level from which trailing fields are
// zero: a zero conversationId means workspace-level; additionally a
// zero workspaceId means pylon-level.
func (e EntityId) Level() Level {
	_, workspaceID, conversationID := e.Decode()
	if conversationID != 0 {
		return LevelConversation
	}
	if workspaceID != 0 {
		return LevelWorkspace
	}
	return LevelPylon
}

// PylonID returns the pylon component.
func (e EntityId) PylonID() int {
	p, _, _ := e.Decode()
	return p
}

// WorkspaceID returns the workspace component.
func (e EntityId) WorkspaceID() int {
	_, w, _ := e.Decode()
	return w
}

// ConversationID returns the conversation component.
func (e EntityId) ConversationID() int {
	_, _, c := e.Decode()
	return c
}

// String renders the EntityId as "P:W:C".
func (e EntityId) String() string {
	p, w, c := e.Decode()
	return fmt.Sprintf("%d:%d:%d", p, w, c)
}

// MarshalJSON renders the EntityId as a JSON string in "P:W:C" form,
// matching the wire protocol's use of EntityId strings for addressing.
func (e EntityId) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(e.String())), nil
}

// UnmarshalJSON parses a "P:W:C" JSON string into an EntityId.
func (e *EntityId) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("identifier: invalid EntityId JSON: %w", err)
	}
	id, err := Parse(s)
	if err != nil {
		return err
	}
	*e = id
	return nil
}

// Parse parses a "P:W:C" string into an EntityId, validating each
// field's range the same way Encode does.
func Parse(s string) (EntityId, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("identifier: malformed EntityId string %q", s)
	}
	vals := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("identifier: malformed EntityId string %q: %w", s, err)
		}
		vals[i] = n
	}
	return Encode(vals[0], vals[1], vals[2])
}
