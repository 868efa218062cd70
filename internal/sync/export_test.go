package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store/storetest"
)

func TestExportJSONL_Empty(t *testing.T) {
	st := storetest.New()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.ChunkCount != 0 || h.InlineChunkCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_WithChunks(t *testing.T) {
	st := storetest.New()
	// Keys sort opposite to IDs to verify ID ordering.
	st.PutChunk(&model.Chunk{ID: "ch-zzz", Key: "a", Content: "<b>first</b>"})
	st.PutChunk(&model.Chunk{ID: "ch-aaa", Key: "b", Content: "chunk=template\nHi {{.Key}}"})
	st.PutInlineChunk(&model.InlineChunk{ID: "ic-2", Owner: model.OwnerRef{Type: "article", ID: "1"}, Key: "x"})
	st.PutInlineChunk(&model.InlineChunk{ID: "ic-1", Owner: model.OwnerRef{Type: "page", ID: "9"}, Key: "y", Order: 3})

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 chunks + 2 inline chunks
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.ChunkCount != 2 || h.InlineChunkCount != 2 {
		t.Fatalf("header counts: chunk=%d inline=%d", h.ChunkCount, h.InlineChunkCount)
	}

	type line struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	var got []line
	for _, l := range lines[1:] {
		var rec line
		if err := json.Unmarshal([]byte(l), &rec); err != nil {
			t.Fatalf("unmarshal %q: %v", l, err)
		}
		got = append(got, rec)
	}

	wantTypes := []string{TypeChunk, TypeChunk, TypeInlineChunk, TypeInlineChunk}
	wantIDs := []string{"ch-aaa", "ch-zzz", "ic-1", "ic-2"}
	for i, rec := range got {
		if rec.Type != wantTypes[i] {
			t.Errorf("line %d type = %q, want %q", i+1, rec.Type, wantTypes[i])
		}
		var id struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(rec.Data, &id); err != nil {
			t.Fatal(err)
		}
		if id.ID != wantIDs[i] {
			t.Errorf("line %d id = %q, want %q", i+1, id.ID, wantIDs[i])
		}
	}

	var c model.Chunk
	if err := json.Unmarshal(got[0].Data, &c); err != nil {
		t.Fatal(err)
	}
	if c.Content != "chunk=template\nHi {{.Key}}" {
		t.Errorf("content not exported verbatim: %q", c.Content)
	}
	if !strings.Contains(lines[2], "<b>first</b>") {
		t.Errorf("HTML should not be escaped: %s", lines[2])
	}

	var ic model.InlineChunk
	if err := json.Unmarshal(got[2].Data, &ic); err != nil {
		t.Fatal(err)
	}
	if ic.Owner != (model.OwnerRef{Type: "page", ID: "9"}) || ic.Order != 3 {
		t.Errorf("inline chunk = %+v", ic)
	}
}

func TestExportJSONL_StoreError(t *testing.T) {
	st := storetest.New()
	st.Err = errors.New("db down")
	if err := ExportJSONL(context.Background(), st, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordsDigest_IgnoresHeader(t *testing.T) {
	a := []byte(`{"type":"header","timestamp":"2026-01-01T00:00:00Z"}` + "\n" + `{"type":"chunk"}` + "\n")
	b := []byte(`{"type":"header","timestamp":"2026-02-01T00:00:00Z"}` + "\n" + `{"type":"chunk"}` + "\n")
	c := []byte(`{"type":"header","timestamp":"2026-02-01T00:00:00Z"}` + "\n" + `{"type":"inline_chunk"}` + "\n")

	if recordsDigest(a) != recordsDigest(b) {
		t.Error("digest should not depend on the header")
	}
	if recordsDigest(b) == recordsDigest(c) {
		t.Error("digest should change with the records")
	}
}

func TestReadHeader(t *testing.T) {
	st := storetest.New()
	st.PutChunk(&model.Chunk{ID: "ch-1", Key: "a"})
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatal(err)
	}

	h, ok := readHeader(buf.Bytes())
	if !ok || h.ChunkCount != 1 || h.InlineChunkCount != 0 || h.Timestamp.IsZero() {
		t.Errorf("readHeader = %+v, %v", h, ok)
	}
	if _, ok := readHeader([]byte(`{"type":"chunk"}` + "\n")); ok {
		t.Error("non-header first line should not parse as a header")
	}
	if _, ok := readHeader([]byte("garbage")); ok {
		t.Error("garbage should not parse as a header")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
