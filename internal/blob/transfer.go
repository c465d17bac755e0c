package blob

import (
	"sync/atomic"

	"github.com/relaymesh/relaymesh/internal/wire"
)

// Transfer is the in-memory state of one in-flight file transfer
//. Chunks are written into a pre-sized slot array and may be
// filled concurrently without locking, because each slot has a unique
// index; receivedCount is updated atomically since multiple chunk
// handlers can race on it.
type Transfer struct {
	BlobId      string
	Filename    string
	MimeType    string
	TotalSize   int64
	ChunkSize   int
	TotalChunks int
	Context     wire.BlobContext
	From        string
	SavePath    string

	Chunks     [][]byte
	received   atomic.Int64
	Completed  atomic.Bool
	SameDevice bool
	LocalPath  string
}

// ReceivedCount reports how many chunk slots are currently filled.
func (t *Transfer) ReceivedCount() int {
	return int(t.received.Load())
}

// setChunk installs data at index and reports whether this index had
// not already been filled (a duplicate chunk for the same index does
// not double-count).
func (t *Transfer) setChunk(index int, data []byte) bool {
	if index < 0 || index >= len(t.Chunks) {
		return false
	}
	isNew := t.Chunks[index] == nil
	t.Chunks[index] = data
	if isNew {
		t.received.Add(1)
	}
	return isNew
}

// concat returns the chunks joined in index order. Callers must only
// call this once every slot is non-nil.
func (t *Transfer) concat() []byte {
	total := 0
	for _, c := range t.Chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range t.Chunks {
		out = append(out, c...)
	}
	return out
}
