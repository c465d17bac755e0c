// Package store implements the workstation's WorkspaceStore:
// an ordered set of Workspaces, each holding an ordered set of
// Conversations, with exactly one conversation per entityId and a
// single writer per process.
package store

import (
	"fmt"
	"sync"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
)

// Workspace is an ordered set of Conversations.
type Workspace struct {
	Id   string
	Name string

	order         []string
	conversations map[string]*Conversation
	active        string
}

func newWorkspace(id, name string) *Workspace {
	return &Workspace{Id: id, Name: name, conversations: make(map[string]*Conversation)}
}

// Conversations returns the workspace's conversations in insertion
// order. The returned slice is a fresh copy-on-read snapshot.
func (w *Workspace) Conversations() []*Conversation {
	out := make([]*Conversation, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.conversations[id])
	}
	return out
}

// ActiveConversationId returns the workspace's active conversation,
// if any.
func (w *Workspace) ActiveConversationId() string { return w.active }

// Store is the workstation's WorkspaceStore. It is mutated only by a
// single writer per process; Snapshot gives readers a coherent,
// independent copy.
type Store struct {
	mu sync.RWMutex

	order      []string
	workspaces map[string]*Workspace

	activeWorkspaceId    string
	activeConversationId string
}

// New creates an empty Store.
func New() *Store {
	return &Store{workspaces: make(map[string]*Workspace)}
}

// CreateWorkspace appends a new, empty Workspace.
func (s *Store) CreateWorkspace(id, name string) *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := newWorkspace(id, name)
	s.workspaces[id] = w
	s.order = append(s.order, id)
	if s.activeWorkspaceId == "" {
		s.activeWorkspaceId = id
	}
	return w
}

// Workspace returns the workspace with the given id.
func (s *Store) Workspace(id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("unknown workspace %q", id), nil)
	}
	return w, nil
}

// CreateConversation adds a conversation to the named workspace.
// entityId uniquely identifies the conversation store-wide: exactly
// one conversation may exist per entityId.
func (s *Store) CreateConversation(workspaceId, entityId, name string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[workspaceId]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("unknown workspace %q", workspaceId), nil)
	}
	for otherId, other := range s.workspaces {
		if _, exists := other.conversations[entityId]; exists {
			return nil, errs.Conflict(fmt.Sprintf("conversation %q already exists in workspace %q", entityId, otherId), nil)
		}
	}
	c := NewConversation(entityId, name)
	w.conversations[entityId] = c
	w.order = append(w.order, entityId)
	if w.active == "" {
		w.active = entityId
	}
	if s.activeConversationId == "" {
		s.activeConversationId = entityId
	}
	return c, nil
}

// Conversation finds a conversation by entityId across every
// workspace.
func (s *Store) Conversation(entityId string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.workspaces {
		if c, ok := w.conversations[entityId]; ok {
			return c, nil
		}
	}
	return nil, errs.NotFound(fmt.Sprintf("unknown conversation %q", entityId), nil)
}

// DeleteConversation removes a conversation: lifecycle spans explicit
// create/delete only; lingering in-flight work is the caller's
// responsibility to abort first.
func (s *Store) DeleteConversation(workspaceId, entityId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[workspaceId]
	if !ok {
		return errs.NotFound(fmt.Sprintf("unknown workspace %q", workspaceId), nil)
	}
	if _, ok := w.conversations[entityId]; !ok {
		return errs.NotFound(fmt.Sprintf("unknown conversation %q", entityId), nil)
	}
	delete(w.conversations, entityId)
	for i, id := range w.order {
		if id == entityId {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	if w.active == entityId {
		w.active = ""
		if len(w.order) > 0 {
			w.active = w.order[0]
		}
	}
	if s.activeConversationId == entityId {
		s.activeConversationId = w.active
	}
	return nil
}

// SetActiveWorkspace marks id as the active workspace.
func (s *Store) SetActiveWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return errs.NotFound(fmt.Sprintf("unknown workspace %q", id), nil)
	}
	s.activeWorkspaceId = id
	return nil
}

// SetActiveConversation marks entityId as the active conversation
// within workspaceId.
func (s *Store) SetActiveConversation(workspaceId, entityId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[workspaceId]
	if !ok {
		return errs.NotFound(fmt.Sprintf("unknown workspace %q", workspaceId), nil)
	}
	if _, ok := w.conversations[entityId]; !ok {
		return errs.NotFound(fmt.Sprintf("unknown conversation %q", entityId), nil)
	}
	w.active = entityId
	s.activeWorkspaceId = workspaceId
	s.activeConversationId = entityId
	return nil
}

// Snapshot is a read-only, independent view of the store for
// persistence or wire serialization.
type Snapshot struct {
	ActiveWorkspaceId    string              `json:"activeWorkspaceId"`
	ActiveConversationId string              `json:"activeConversationId"`
	Workspaces           []WorkspaceSnapshot `json:"workspaces"`
}

// WorkspaceSnapshot is one workspace's read-only view.
type WorkspaceSnapshot struct {
	Id                   string          `json:"id"`
	Name                 string          `json:"name"`
	ActiveConversationId string          `json:"activeConversationId"`
	Conversations        []*Conversation `json:"conversations"`
}

// Restore rebuilds the store's workspace/conversation metadata from a
// previously saved Snapshot. Message logs and pending requests travel
// with each Conversation value already; it is the caller's
// responsibility to load per-conversation text from persistence
// separately if a conversation's Log was truncated before saving.
func Restore(snap Snapshot) *Store {
	s := New()
	for _, ws := range snap.Workspaces {
		w := s.CreateWorkspace(ws.Id, ws.Name)
		for _, c := range ws.Conversations {
			w.conversations[c.EntityId] = c
			w.order = append(w.order, c.EntityId)
		}
		w.active = ws.ActiveConversationId
	}
	if snap.ActiveWorkspaceId != "" {
		s.activeWorkspaceId = snap.ActiveWorkspaceId
	}
	s.activeConversationId = snap.ActiveConversationId
	return s
}

// Snapshot copies the store's current state for a reader.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{ActiveWorkspaceId: s.activeWorkspaceId, ActiveConversationId: s.activeConversationId}
	for _, id := range s.order {
		w := s.workspaces[id]
		ws := WorkspaceSnapshot{Id: w.Id, Name: w.Name, ActiveConversationId: w.active}
		for _, cid := range w.order {
			c := *w.conversations[cid]
			ws.Conversations = append(ws.Conversations, &c)
		}
		out.Workspaces = append(out.Workspaces, ws)
	}
	return out
}
