package persistence

import "context"

// KVStore is the minimal storage primitive the Persistence capability
// is built on: a durable key-value map of opaque JSON documents. Both
// the sqlite and postgres backends implement it against a single
// table, each persisted document keyed by a stable name.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
