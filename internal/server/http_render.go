package server

import (
	"net/http"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
	"github.com/alfredjeanlab/chunks/internal/resolve"
)

// Render endpoints resolve for an anonymous viewer, so no wrap markup is
// ever returned and missing global keys are created as on a page render.

// handleRenderGlobal handles GET /v1/render/{key...}.
func (s *ChunksServer) handleRenderGlobal(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	content, err := s.svc.ResolveGlobal(r.Context(), key, request.Anonymous())
	if err != nil {
		s.writeStoreError(w, err, "chunk", "failed to render chunk")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "content": content})
}

// handleRenderOwner handles GET /v1/owners/{type}/{id}/render.
func (s *ChunksServer) handleRenderOwner(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}

	m, err := s.svc.ResolveAllForOwner(r.Context(), owner, request.Anonymous())
	if err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to render inline chunks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "chunks": m})
}

// handleRenderScoped handles GET /v1/owners/{type}/{id}/render/{key...}.
// ?default= names a global chunk used when the owner has no such key.
func (s *ChunksServer) handleRenderScoped(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromPath(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	var opts []resolve.Option
	if def := r.URL.Query().Get("default"); def != "" {
		opts = append(opts, resolve.WithDefault(def))
	}

	content, err := s.svc.ResolveScoped(r.Context(), owner, key, request.Anonymous(), opts...)
	if err != nil {
		s.writeStoreError(w, err, "inline chunk", "failed to render inline chunk")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"owner": owner, "key": key, "content": content})
}

func ownerFromPath(w http.ResponseWriter, r *http.Request) (model.OwnerRef, bool) {
	owner := model.OwnerRef{Type: r.PathValue("type"), ID: r.PathValue("id")}
	if owner.Type == "" || owner.ID == "" {
		writeError(w, http.StatusBadRequest, "owner type and id are required")
		return owner, false
	}
	return owner, true
}
