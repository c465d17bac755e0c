package blob

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/wire"
)

// Outbound is a file read into memory and sliced into chunks, ready to
// be pushed back to a requester as blob_start / blob_chunk* / blob_end.
type Outbound struct {
	Start  wire.BlobStartPayload
	Chunks []wire.BlobChunkPayload
	End    wire.BlobEndPayload
}

// PrepareOutbound reads filePath and produces the full blob_start /
// blob_chunk* / blob_end sequence a holder sends in response to a
// blob_request, using OutboundChunkSize as the transport's chunk size.
func PrepareOutbound(blobId, filePath string, context wire.BlobContext) (*Outbound, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errs.NotFound(fmt.Sprintf("could not read %q", filePath), err)
	}

	totalChunks := (len(data) + OutboundChunkSize - 1) / OutboundChunkSize
	if totalChunks == 0 {
		totalChunks = 1
	}

	chunks := make([]wire.BlobChunkPayload, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		lo := i * OutboundChunkSize
		hi := lo + OutboundChunkSize
		if hi > len(data) {
			hi = len(data)
		}
		slice := data[lo:hi]
		chunks = append(chunks, wire.BlobChunkPayload{
			BlobId: blobId,
			Index:  i,
			Data:   base64.StdEncoding.EncodeToString(slice),
			Size:   len(slice),
		})
	}

	sum := sha256.Sum256(data)

	return &Outbound{
		Start: wire.BlobStartPayload{
			BlobId:      blobId,
			Filename:    sanitizeFilename(baseName(filePath)),
			TotalSize:   int64(len(data)),
			ChunkSize:   OutboundChunkSize,
			TotalChunks: totalChunks,
			Encoding:    "base64",
			Context:     context,
		},
		Chunks: chunks,
		End: wire.BlobEndPayload{
			BlobId:        blobId,
			Checksum:      "sha256:" + hex.EncodeToString(sum[:]),
			TotalReceived: totalChunks,
		},
	}, nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
