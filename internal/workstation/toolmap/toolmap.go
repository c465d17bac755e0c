// Package toolmap implements the tool-use context map, shared
// in shape between the workstation and the beacon: a mapping from an
// externally generated toolUseId to the entity and raw tool_use block
// that produced it, with a background sweep for stale entries.
package toolmap

import (
	"sync"
	"time"
)

// Entry is one tool-use context record.
type Entry struct {
	EntityId  string
	Raw       RawToolUse
	insertedAt time.Time
}

// RawToolUse is the content_block_start.tool_use block as emitted by
// the AI backend.
type RawToolUse struct {
	Type  string `json:"type"`
	Id    string `json:"id"`
	Name  string `json:"name"`
	Input any    `json:"input"`
}

// Map is a toolUseId -> Entry table with a background cleanup of
// entries older than MaxAge. The tool-use-id namespace is assumed
// globally unique within its operational window, so Map never needs
// to disambiguate collisions.
type Map struct {
	mu      sync.RWMutex
	entries map[string]Entry
	maxAge  time.Duration

	stop chan struct{}
	once sync.Once
}

// DefaultMaxAge is the default cleanup threshold (30 minutes).
const DefaultMaxAge = 30 * time.Minute

// New creates a Map. maxAge <= 0 uses DefaultMaxAge.
func New(maxAge time.Duration) *Map {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Map{
		entries: make(map[string]Entry),
		maxAge:  maxAge,
		stop:    make(chan struct{}),
	}
}

// Put records a tool-use context, called on every content_block_start
// of type tool_use that flows through the workstation.
func (m *Map) Put(toolUseId, entityId string, raw RawToolUse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[toolUseId] = Entry{EntityId: entityId, Raw: raw, insertedAt: now()}
}

// Get looks up a tool-use context by id.
func (m *Map) Get(toolUseId string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[toolUseId]
	return e, ok
}

// Delete removes a tool-use context, e.g. once its tool_complete has
// been recorded.
func (m *Map) Delete(toolUseId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, toolUseId)
}

// Len reports how many contexts are currently tracked.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes every entry older than maxAge and returns how many
// were removed. Exposed directly for tests; StartCleanup drives it on
// a ticker in production.
func (m *Map) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now().Add(-m.maxAge)
	removed := 0
	for id, e := range m.entries {
		if e.insertedAt.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Sweep on a ticker until Stop is called.
func (m *Map) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts the background cleanup goroutine, if one was started.
func (m *Map) Stop() {
	m.once.Do(func() { close(m.stop) })
}

var now = time.Now
