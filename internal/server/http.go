package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// NewHTTPHandler returns an http.Handler with all API routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *ChunksServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chunks", s.handleCreateChunk)
	mux.HandleFunc("GET /v1/chunks", s.handleListChunks)
	mux.HandleFunc("GET /v1/chunks/key/{key...}", s.handleGetChunkByKey)
	mux.HandleFunc("GET /v1/chunks/{id}", s.handleGetChunk)
	mux.HandleFunc("PATCH /v1/chunks/{id}", s.handleUpdateChunk)
	mux.HandleFunc("DELETE /v1/chunks/{id}", s.handleDeleteChunk)
	mux.HandleFunc("POST /v1/inline-chunks", s.handleCreateInlineChunk)
	mux.HandleFunc("GET /v1/inline-chunks", s.handleListInlineChunks)
	mux.HandleFunc("GET /v1/inline-chunks/{id}", s.handleGetInlineChunk)
	mux.HandleFunc("PATCH /v1/inline-chunks/{id}", s.handleUpdateInlineChunk)
	mux.HandleFunc("DELETE /v1/inline-chunks/{id}", s.handleDeleteInlineChunk)
	mux.HandleFunc("GET /v1/render/{key...}", s.handleRenderGlobal)
	mux.HandleFunc("GET /v1/owners/{type}/{id}/render", s.handleRenderOwner)
	mux.HandleFunc("GET /v1/owners/{type}/{id}/render/{key...}", s.handleRenderScoped)
	mux.HandleFunc("GET /v1/builders", s.handleListBuilders)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *ChunksServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListBuilders handles GET /v1/builders.
func (s *ChunksServer) handleListBuilders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"builders": s.svc.Chain().Choices()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a store or service error onto a status code.
// Unexpected errors are logged and reported with the generic message.
func (s *ChunksServer) writeStoreError(w http.ResponseWriter, err error, what, fallback string) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, what+" key already exists")
	default:
		s.log.Error(fallback, "err", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// paging reads limit and offset query parameters, ignoring bad values.
func paging(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
