// Package blob implements the blob transport (T): chunked file
// transfer layered on the relay's envelope protocol.
package blob

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/wire"
)

// OutboundChunkSize sizes the chunks pushed in response to a
// blob_request.
const OutboundChunkSize = 256 * 1024

// Manager owns every in-flight transfer a workstation is receiving or
// serving. Transfers that never complete are retained with no
// automatic eviction; Cleanup is the explicit escape hatch callers use
// to discard them.
type Manager struct {
	baseDir string
	log     *logger.Logger

	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// New creates a Manager rooted at baseDir; each conversation gets a
// subdirectory under it.
func New(baseDir string, log *logger.Logger) *Manager {
	return &Manager{
		baseDir:   baseDir,
		log:       log,
		transfers: make(map[string]*Transfer),
	}
}

// Start handles a blob_start envelope.
func (m *Manager) Start(from string, payload wire.BlobStartPayload) (*Transfer, error) {
	if err := payload.Validate(); err != nil {
		return nil, errs.Validation("invalid blob_start payload", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transfers[payload.BlobId]; ok {
		return nil, errs.Conflict(fmt.Sprintf("blob %q already has an in-flight transfer", payload.BlobId), nil)
	}

	savePath, err := m.savePathFor(payload.Context.ConversationId, payload.Filename)
	if err != nil {
		return nil, errs.Internal("could not prepare save path", err)
	}

	t := &Transfer{
		BlobId:      payload.BlobId,
		Filename:    filepath.Base(savePath),
		MimeType:    payload.MimeType,
		TotalSize:   payload.TotalSize,
		ChunkSize:   payload.ChunkSize,
		TotalChunks: payload.TotalChunks,
		Context:     payload.Context,
		From:        from,
		SavePath:    savePath,
		SameDevice:  payload.SameDevice,
		LocalPath:   payload.LocalPath,
	}

	if payload.SameDevice && payload.LocalPath != "" {
		if _, err := os.Stat(payload.LocalPath); err == nil {
			t.Completed.Store(true)
			m.transfers[payload.BlobId] = t
			return t, nil
		}
	}

	t.Chunks = make([][]byte, payload.TotalChunks)
	m.transfers[payload.BlobId] = t
	return t, nil
}

// Chunk handles a blob_chunk envelope (the "indices may arrive in
// any order").
func (m *Manager) Chunk(payload wire.BlobChunkPayload) error {
	if err := payload.Validate(); err != nil {
		return errs.Validation("invalid blob_chunk payload", err)
	}

	t, err := m.get(payload.BlobId)
	if err != nil {
		return err
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return errs.Validation("blob_chunk data is not valid base64", err)
	}

	t.setChunk(payload.Index, data)
	return nil
}

// Finish handles a blob_end envelope.
func (m *Manager) Finish(payload wire.BlobEndPayload) (*Transfer, error) {
	if err := payload.Validate(); err != nil {
		return nil, errs.Validation("invalid blob_end payload", err)
	}

	t, err := m.get(payload.BlobId)
	if err != nil {
		return nil, err
	}

	if t.Completed.Load() {
		return t, nil
	}

	if t.ReceivedCount() != t.TotalChunks {
		return nil, errs.Validation(fmt.Sprintf("Missing chunks %d/%d", t.ReceivedCount(), t.TotalChunks), nil)
	}

	assembled := t.concat()

	if payload.Checksum != "" {
		if err := verifyChecksum(payload.Checksum, assembled); err != nil {
			return nil, err
		}
	}

	if err := writeAtomic(t.SavePath, assembled); err != nil {
		return nil, errs.Internal("could not write assembled blob", err)
	}

	t.Chunks = nil
	t.Completed.Store(true)
	return t, nil
}

// Get returns the transfer for blobId, or a NotFoundError.
func (m *Manager) Get(blobId string) (*Transfer, error) {
	return m.get(blobId)
}

func (m *Manager) get(blobId string) (*Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[blobId]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("unknown blobId %q", blobId), nil)
	}
	return t, nil
}

// Cleanup discards transfer state for blobId. This is an explicit,
// caller-driven operation: there is no automatic eviction of
// incomplete transfers.
func (m *Manager) Cleanup(blobId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transfers, blobId)
}

func (m *Manager) savePathFor(conversationID, filename string) (string, error) {
	dir := filepath.Join(m.baseDir, sanitizeFilename(conversationID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, sanitizeFilename(filename)), nil
}

func verifyChecksum(checksum string, data []byte) error {
	algo, hexDigest, ok := strings.Cut(checksum, ":")
	if !ok || algo != "sha256" {
		return errs.Validation(fmt.Sprintf("unsupported checksum format %q", checksum), nil)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != strings.ToLower(hexDigest) {
		return errs.Checksum("blob checksum mismatch", nil)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
