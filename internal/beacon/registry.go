// Package beacon implements the process-local TCP lookup service (B):
// pylon registration, tool-use-id to conversation resolution, and a
// thin query passthrough onto an injected ClaudeAdapter. All state is
// in-memory and single-node; it is lost on restart.
package beacon

import (
	"context"
	"sync"

	"github.com/relaymesh/relaymesh/internal/events/bus"
	"github.com/relaymesh/relaymesh/internal/obs/errs"
)

// Registry event types published onto an optional event bus, letting a
// cluster of beacon instances (or the relay) observe pylon
// registration changes on one node.
const (
	EventPylonRegistered   = "beacon.pylon.registered"
	EventPylonUnregistered = "beacon.pylon.unregistered"
)

// PylonEntry is one registered pylon's MCP reachability.
type PylonEntry struct {
	PylonId int    `json:"pylonId"`
	McpHost string `json:"mcpHost"`
	McpPort int    `json:"mcpPort"`
	Env     string `json:"env"`
}

// Registry is the beacon's pylonId -> PylonEntry table.
type Registry struct {
	mu       sync.RWMutex
	entries  map[int]PylonEntry
	presence bus.EventBus
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]PylonEntry)}
}

// SetPresenceBus attaches an EventBus that registration/unregistration
// events are published to. Optional: a Registry with no bus attached
// behaves exactly as before.
func (r *Registry) SetPresenceBus(b bus.EventBus) {
	r.mu.Lock()
	r.presence = b
	r.mu.Unlock()
}

// Register adds entry. A duplicate PylonId fails unless force is set,
// in which case the existing entry is replaced.
func (r *Registry) Register(entry PylonEntry, force bool) error {
	r.mu.Lock()
	if _, exists := r.entries[entry.PylonId]; exists && !force {
		r.mu.Unlock()
		return errs.Conflict("already registered", nil)
	}
	r.entries[entry.PylonId] = entry
	b := r.presence
	r.mu.Unlock()
	publishPylonEvent(b, EventPylonRegistered, entry)
	return nil
}

// Unregister removes pylonId's entry.
func (r *Registry) Unregister(pylonId int) error {
	r.mu.Lock()
	entry, ok := r.entries[pylonId]
	if !ok {
		r.mu.Unlock()
		return errs.NotFound("not found", nil)
	}
	delete(r.entries, pylonId)
	b := r.presence
	r.mu.Unlock()
	publishPylonEvent(b, EventPylonUnregistered, entry)
	return nil
}

func publishPylonEvent(b bus.EventBus, eventType string, entry PylonEntry) {
	if b == nil {
		return
	}
	event := bus.NewEvent(eventType, "beacon", map[string]interface{}{
		"pylonId": entry.PylonId,
		"mcpHost": entry.McpHost,
		"mcpPort": entry.McpPort,
		"env":     entry.Env,
	})
	_ = b.Publish(context.Background(), eventType, event)
}

// Lookup returns pylonId's entry, if registered.
func (r *Registry) Lookup(pylonId int) (PylonEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[pylonId]
	return e, ok
}

func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
