package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/chunks/internal/model"
)

type createInlineChunkInput struct {
	OwnerType   string `json:"owner_type"`
	OwnerID     string `json:"owner_id"`
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Builder     string `json:"builder"`
	Order       int    `json:"order"`
}

type updateInlineChunkInput struct {
	OwnerType   *string `json:"owner_type"`
	OwnerID     *string `json:"owner_id"`
	Key         *string `json:"key"`
	Content     *string `json:"content"`
	Description *string `json:"description"`
	Builder     *string `json:"builder"`
	Order       *int    `json:"order"`
}

// handleCreateInlineChunk handles POST /v1/inline-chunks.
func (s *ChunksServer) handleCreateInlineChunk(w http.ResponseWriter, r *http.Request) {
	var in createInlineChunkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := &model.InlineChunk{
		Owner:       model.OwnerRef{Type: in.OwnerType, ID: in.OwnerID},
		Key:         in.Key,
		Content:     in.Content,
		Description: in.Description,
		Builder:     in.Builder,
		Order:       in.Order,
	}
	if err := s.svc.SaveInlineChunk(r.Context(), c); err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to create inline chunk")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleListInlineChunks handles GET /v1/inline-chunks.
// owner_type and owner_id filter by owner only when both are given.
func (s *ChunksServer) handleListInlineChunks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.InlineChunkFilter{Search: q.Get("search")}
	if typ, id := q.Get("owner_type"), q.Get("owner_id"); typ != "" && id != "" {
		filter.Owner = &model.OwnerRef{Type: typ, ID: id}
	}
	filter.Limit, filter.Offset = paging(r)

	chunks, total, err := s.store.ListInlineChunks(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to list inline chunks")
		return
	}
	if chunks == nil {
		chunks = []*model.InlineChunk{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"inline_chunks": chunks,
		"total":         total,
	})
}

// handleGetInlineChunk handles GET /v1/inline-chunks/{id}.
func (s *ChunksServer) handleGetInlineChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	c, err := s.store.GetInlineChunk(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to get inline chunk")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleUpdateInlineChunk handles PATCH /v1/inline-chunks/{id}.
func (s *ChunksServer) handleUpdateInlineChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in updateInlineChunkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.store.GetInlineChunk(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to get inline chunk")
		return
	}
	if in.OwnerType != nil {
		c.Owner.Type = *in.OwnerType
	}
	if in.OwnerID != nil {
		c.Owner.ID = *in.OwnerID
	}
	if in.Key != nil {
		c.Key = *in.Key
	}
	if in.Content != nil {
		c.Content = *in.Content
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Builder != nil {
		c.Builder = *in.Builder
	}
	if in.Order != nil {
		c.Order = *in.Order
	}

	if err := s.svc.SaveInlineChunk(r.Context(), c); err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to update inline chunk")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteInlineChunk handles DELETE /v1/inline-chunks/{id}.
func (s *ChunksServer) handleDeleteInlineChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.svc.DeleteInlineChunk(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to delete inline chunk")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
