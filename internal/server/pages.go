package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/alfredjeanlab/chunks/internal/request"
	"github.com/alfredjeanlab/chunks/internal/resolve"
	"github.com/alfredjeanlab/chunks/internal/tags"
)

// PageData is the data passed to page templates.
type PageData struct {
	Request *request.Request
	Path    string
	Query   url.Values

	ctx context.Context
	svc *resolve.Service
}

// Chunks returns the raw content of every global chunk keyed by key. It
// is only queried when a template uses it.
func (d PageData) Chunks() (map[string]string, error) {
	return d.svc.GlobalMap(d.ctx)
}

// PageHandler serves *.html templates from a directory. "/" maps to
// index.html and "/about" to about.html. It must run behind
// RequestMiddleware.
type PageHandler struct {
	svc  *resolve.Service
	lib  *tags.Library
	tmpl *template.Template
	log  *slog.Logger
}

// NewPageHandler parses and validates every *.html template in fsys.
// Malformed chunk tags fail here rather than at render time.
func NewPageHandler(svc *resolve.Service, fsys fs.FS, logger *slog.Logger) (*PageHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lib := tags.New(svc)
	t, err := lib.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &PageHandler{svc: svc, lib: lib, tmpl: t, log: logger}, nil
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index"
	}
	name += ".html"
	if h.tmpl.Lookup(name) == nil {
		http.NotFound(w, r)
		return
	}

	req := request.FromContext(r.Context())
	if req == nil {
		h.log.Error("page served without request middleware", "path", r.URL.Path, "err", resolve.ErrMissingRequest)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	t, err := h.lib.Bind(r.Context(), h.tmpl)
	if err != nil {
		h.log.Error("bind page template", "template", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := PageData{
		Request: req,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		ctx:     r.Context(),
		svc:     h.svc,
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render page", "template", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
