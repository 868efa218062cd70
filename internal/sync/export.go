// Package sync periodically exports every chunk as JSONL to backup
// destinations.
package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version          string    `json:"version"`
	Type             string    `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	ChunkCount       int       `json:"chunk_count"`
	InlineChunkCount int       `json:"inline_chunk_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Record types written after the header.
const (
	TypeChunk       = "chunk"
	TypeInlineChunk = "inline_chunk"
)

// ExportJSONL writes all global and inline chunks from the store as JSONL
// to w: a header line, then chunks, then inline chunks, each sorted by ID.
// Content is written verbatim alongside any pinned builder.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	// Fetch all chunks (no filter, no limit).
	chunks, _, err := s.ListChunks(ctx, model.ChunkFilter{})
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})

	inline, _, err := s.ListInlineChunks(ctx, model.InlineChunkFilter{})
	if err != nil {
		return fmt.Errorf("list inline chunks: %w", err)
	}
	sort.Slice(inline, func(i, j int) bool {
		return inline[i].ID < inline[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:          "1",
		Type:             "header",
		Timestamp:        time.Now().UTC(),
		ChunkCount:       len(chunks),
		InlineChunkCount: len(inline),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, c := range chunks {
		if err := enc.Encode(record{Type: TypeChunk, Data: c}); err != nil {
			return fmt.Errorf("encode chunk %s: %w", c.ID, err)
		}
	}

	for _, c := range inline {
		if err := enc.Encode(record{Type: TypeInlineChunk, Data: c}); err != nil {
			return fmt.Errorf("encode inline chunk %s: %w", c.ID, err)
		}
	}

	return nil
}

// readHeader decodes the header line of an export payload.
func readHeader(data []byte) (header, bool) {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	var h header
	if err := json.Unmarshal(line, &h); err != nil || h.Type != "header" {
		return header{}, false
	}
	return h, true
}

// recordsDigest hashes everything after the header line, so two exports
// of the same chunks match even though their timestamps differ.
func recordsDigest(data []byte) string {
	_, rest, _ := bytes.Cut(data, []byte("\n"))
	sum := sha256.Sum256(rest)
	return hex.EncodeToString(sum[:])
}
