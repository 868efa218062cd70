package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/chunks/internal/model"
)

type createChunkInput struct {
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Builder     string `json:"builder"`
}

// updateChunkInput carries optional fields; nil leaves the field unchanged.
type updateChunkInput struct {
	Key         *string `json:"key"`
	Content     *string `json:"content"`
	Description *string `json:"description"`
	Builder     *string `json:"builder"`
}

// handleCreateChunk handles POST /v1/chunks.
func (s *ChunksServer) handleCreateChunk(w http.ResponseWriter, r *http.Request) {
	var in createChunkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := &model.Chunk{Key: in.Key, Content: in.Content, Description: in.Description, Builder: in.Builder}
	if err := s.svc.SaveChunk(r.Context(), c); err != nil {
		s.writeStoreError(w, err, "chunk", "failed to create chunk")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleListChunks handles GET /v1/chunks.
func (s *ChunksServer) handleListChunks(w http.ResponseWriter, r *http.Request) {
	filter := model.ChunkFilter{Search: r.URL.Query().Get("search")}
	filter.Limit, filter.Offset = paging(r)

	chunks, total, err := s.store.ListChunks(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err, "chunk", "failed to list chunks")
		return
	}

	// Ensure chunks is never null in JSON output.
	if chunks == nil {
		chunks = []*model.Chunk{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chunks": chunks,
		"total":  total,
	})
}

// handleGetChunk handles GET /v1/chunks/{id}.
func (s *ChunksServer) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	c, err := s.store.GetChunk(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "chunk", "failed to get chunk")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleGetChunkByKey handles GET /v1/chunks/key/{key...}.
func (s *ChunksServer) handleGetChunkByKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	c, err := s.store.GetChunkByKey(r.Context(), key)
	if err != nil {
		s.writeStoreError(w, err, "chunk", "failed to get chunk")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleUpdateChunk handles PATCH /v1/chunks/{id}.
func (s *ChunksServer) handleUpdateChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in updateChunkInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.store.GetChunk(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "chunk", "failed to get chunk")
		return
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

	if err := s.svc.SaveChunk(r.Context(), c); err != nil {
		s.writeStoreError(w, err, "chunk", "failed to update chunk")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteChunk handles DELETE /v1/chunks/{id}.
func (s *ChunksServer) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.svc.DeleteChunk(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "chunk", "failed to delete chunk")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
