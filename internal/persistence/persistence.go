package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	keyWorkspaceStore = "workspace_store"
	keyShareStore     = "share_store"
	keyLastAccount    = "last_account"
	messageSessionPrefix = "message_session:"
)

// Persistence implements the durable-storage capability: workspace snapshots,
// per-conversation message session logs, the share store, and the
// last-account document, all as JSON-encoded values in a KVStore.
//
// Writes are serialised per key via keyLocks so a save of the same
// document never interleaves with itself; reads never block on that
// lock, satisfying "tolerate concurrent reads while writes are
// serialised per-key".
type Persistence struct {
	store    KVStore
	keyLocks sync.Map // key string -> *sync.Mutex
}

// New wraps a KVStore backend in the Persistence capability.
func New(store KVStore) *Persistence {
	return &Persistence{store: store}
}

func (p *Persistence) lockFor(key string) *sync.Mutex {
	mu, _ := p.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (p *Persistence) save(ctx context.Context, key string, v any) error {
	mu := p.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persistence: marshal %q: %w", key, err)
	}
	return p.store.Put(ctx, key, data)
}

func (p *Persistence) load(ctx context.Context, key string, out any) (bool, error) {
	data, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("persistence: unmarshal %q: %w", key, err)
	}
	return true, nil
}

// LoadWorkspaceStore loads the single workspace snapshot document, if
// one exists yet.
func (p *Persistence) LoadWorkspaceStore(ctx context.Context, out any) (bool, error) {
	return p.load(ctx, keyWorkspaceStore, out)
}

// SaveWorkspaceStore persists the workspace snapshot document.
func (p *Persistence) SaveWorkspaceStore(ctx context.Context, snapshot any) error {
	return p.save(ctx, keyWorkspaceStore, snapshot)
}

func messageSessionKey(sessionID string) string {
	return messageSessionPrefix + sessionID
}

// LoadMessageSession loads a single conversation's message log.
func (p *Persistence) LoadMessageSession(ctx context.Context, sessionID string, out any) (bool, error) {
	return p.load(ctx, messageSessionKey(sessionID), out)
}

// SaveMessageSession persists a single conversation's message log.
func (p *Persistence) SaveMessageSession(ctx context.Context, sessionID string, data any) error {
	return p.save(ctx, messageSessionKey(sessionID), data)
}

// DeleteMessageSession removes a conversation's persisted message log.
func (p *Persistence) DeleteMessageSession(ctx context.Context, sessionID string) error {
	mu := p.lockFor(messageSessionKey(sessionID))
	mu.Lock()
	defer mu.Unlock()
	return p.store.Delete(ctx, messageSessionKey(sessionID))
}

// ListMessageSessions returns all persisted session ids.
func (p *Persistence) ListMessageSessions(ctx context.Context) ([]string, error) {
	keys, err := p.store.ListKeys(ctx, messageSessionPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, messageSessionPrefix))
	}
	return ids, nil
}

// LoadShareStore loads the share-id -> conversation-id document.
func (p *Persistence) LoadShareStore(ctx context.Context, out any) (bool, error) {
	return p.load(ctx, keyShareStore, out)
}

// SaveShareStore persists the share-id -> conversation-id document.
func (p *Persistence) SaveShareStore(ctx context.Context, data any) error {
	return p.save(ctx, keyShareStore, data)
}

// LoadLastAccount loads the last-account document.
func (p *Persistence) LoadLastAccount(ctx context.Context, out any) (bool, error) {
	return p.load(ctx, keyLastAccount, out)
}

// SaveLastAccount persists the last-account document.
func (p *Persistence) SaveLastAccount(ctx context.Context, data any) error {
	return p.save(ctx, keyLastAccount, data)
}

// Close releases the underlying KVStore's resources.
func (p *Persistence) Close() error {
	return p.store.Close()
}
