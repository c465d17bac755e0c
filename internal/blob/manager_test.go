package blob

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/wire"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return New(dir, nil)
}

func TestTransferLifecycleOutOfOrderChunks(t *testing.T) {
	m := newTestManager(t)
	payload := wire.BlobStartPayload{
		BlobId: "blob-1", Filename: "notes.txt", Encoding: "base64",
		TotalChunks: 3, Context: wire.BlobContext{Type: "file", ConversationId: "conv-1"},
	}
	tr, err := m.Start("pylon", payload)
	require.NoError(t, err)
	assert.False(t, tr.Completed.Load())

	parts := [][]byte{[]byte("hello "), []byte("world"), []byte("!")}
	order := []int{2, 0, 1}
	for _, idx := range order {
		require.NoError(t, m.Chunk(wire.BlobChunkPayload{
			BlobId: "blob-1", Index: idx,
			Data: base64.StdEncoding.EncodeToString(parts[idx]),
			Size: len(parts[idx]),
		}))
	}

	full := []byte("hello world!")
	sum := sha256.Sum256(full)
	checksum := "sha256:" + hex.EncodeToString(sum[:])

	done, err := m.Finish(wire.BlobEndPayload{BlobId: "blob-1", Checksum: checksum, TotalReceived: 3})
	require.NoError(t, err)
	assert.True(t, done.Completed.Load())

	written, err := os.ReadFile(done.SavePath)
	require.NoError(t, err)
	assert.Equal(t, full, written)
}

func TestFinishRejectsMissingChunks(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Start("pylon", wire.BlobStartPayload{BlobId: "blob-2", Filename: "f.bin", TotalChunks: 2})
	require.NoError(t, err)
	require.NoError(t, m.Chunk(wire.BlobChunkPayload{BlobId: "blob-2", Index: 0, Data: base64.StdEncoding.EncodeToString([]byte("x"))}))

	_, err = m.Finish(wire.BlobEndPayload{BlobId: "blob-2", TotalReceived: 2})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestFinishRejectsChecksumMismatch(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Start("pylon", wire.BlobStartPayload{BlobId: "blob-3", Filename: "f.bin", TotalChunks: 1})
	require.NoError(t, err)
	require.NoError(t, m.Chunk(wire.BlobChunkPayload{BlobId: "blob-3", Index: 0, Data: base64.StdEncoding.EncodeToString([]byte("data"))}))

	_, err = m.Finish(wire.BlobEndPayload{BlobId: "blob-3", Checksum: "sha256:deadbeef", TotalReceived: 1})
	require.Error(t, err)
	assert.Equal(t, errs.KindChecksum, errs.KindOf(err))
}

func TestStartSameDeviceSkipsChunks(t *testing.T) {
	m := newTestManager(t)
	local := filepath.Join(t.TempDir(), "already-here.bin")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	tr, err := m.Start("pylon", wire.BlobStartPayload{
		BlobId: "blob-4", Filename: "already-here.bin", SameDevice: true, LocalPath: local,
	})
	require.NoError(t, err)
	assert.True(t, tr.Completed.Load())
	assert.Nil(t, tr.Chunks)
}

func TestStartSanitizesFilename(t *testing.T) {
	m := newTestManager(t)
	tr, err := m.Start("pylon", wire.BlobStartPayload{
		BlobId: "blob-5", Filename: `weird<>:"/\|?*name.txt`, TotalChunks: 1,
	})
	require.NoError(t, err)
	assert.NotContains(t, tr.SavePath, "<")
	assert.NotContains(t, tr.SavePath, "?")
}

func TestGetUnknownBlobIsNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("missing")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestConcurrentChunkWritesDoNotRace(t *testing.T) {
	m := newTestManager(t)
	const n = 64
	_, err := m.Start("pylon", wire.BlobStartPayload{BlobId: "blob-6", Filename: "big.bin", TotalChunks: n})
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func(idx int) {
			buf := make([]byte, 16)
			rand.Read(buf)
			_ = m.Chunk(wire.BlobChunkPayload{BlobId: "blob-6", Index: idx, Data: base64.StdEncoding.EncodeToString(buf)})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	tr, err := m.Get("blob-6")
	require.NoError(t, err)
	assert.Equal(t, n, tr.ReceivedCount())
}

func TestPrepareOutboundRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(src, []byte("the quick brown fox"), 0o644))

	out, err := PrepareOutbound("blob-7", src, wire.BlobContext{Type: "file", ConversationId: "conv-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Start.TotalChunks)
	assert.Len(t, out.Chunks, 1)

	decoded, err := base64.StdEncoding.DecodeString(out.Chunks[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox", string(decoded))
}
