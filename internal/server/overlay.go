package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"

	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/request"
)

var closeBody = []byte("</body>")

// DefaultOverlay lists the chunks touched by a page with edit or create
// links, followed by the same entries as a JSON payload for scripts.
var DefaultOverlay = template.Must(template.New("overlay").Parse(
	`<div id="chunks-overlay" class="chunks-overlay"><ul>` +
		`{{range .Items}}<li class="{{if .Exists}}chunk{{else}}newchunk{{end}}">` +
		`<a href="{{.EditURL}}">{{.Key}}</a>` +
		`{{with .Description}} <span class="chunk-description">{{.}}</span>{{end}}</li>` +
		`{{else}}<li class="empty">no chunks on this page</li>{{end}}</ul></div>` +
		`<script type="application/json" id="chunks-data">{{.Data}}</script>`,
))

// PageOptions configures RequestMiddleware.
type PageOptions struct {
	// Wrap enables the collector and overlay for privileged viewers.
	Wrap    bool
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Overlay replaces DefaultOverlay. It receives Items and Data.
	Overlay *template.Template
}

type overlayItem struct {
	ID          string `json:"id,omitempty"`
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Exists      bool   `json:"exists"`
	EditURL     string `json:"edit_url"`
}

// RequestMiddleware attaches a request.Request to every request context.
// With wrap mode on and a privileged viewer it also attaches a collector,
// buffers the response and, for HTML bodies, injects the overlay before
// the last </body>. Overlay failures are logged and the page is served
// without it.
func RequestMiddleware(opts PageOptions, identify Identify, next http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	overlay := opts.Overlay
	if overlay == nil {
		overlay = DefaultOverlay
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &request.Request{}
		if identify != nil {
			req.User, req.Privileged = identify(r)
		}
		if !opts.Wrap || !req.Privileged {
			next.ServeHTTP(w, r.WithContext(request.NewContext(r.Context(), req)))
			return
		}

		req.Collector = request.NewCollector()
		buf := newBufferedResponse()
		next.ServeHTTP(buf, r.WithContext(request.NewContext(r.Context(), req)))

		body := buf.body.Bytes()
		entries := req.Collector.Entries()
		if isHTML(buf.header) {
			if out, err := injectOverlay(overlay, body, entries); err != nil {
				logger.Warn("chunk overlay omitted", "path", r.URL.Path, "err", err)
				opts.Metrics.OverlayFailed()
			} else {
				body = out
			}
		}

		for k, v := range buf.header {
			w.Header()[k] = v
		}
		w.Header().Del("Content-Length")
		w.WriteHeader(buf.status)
		_, _ = w.Write(body)
	})
}

// injectOverlay renders the overlay for entries and inserts it before the
// last </body> of body. A body without </body> is returned unchanged.
func injectOverlay(overlay *template.Template, body []byte, entries []request.Entry) ([]byte, error) {
	idx := bytes.LastIndex(body, closeBody)
	if idx < 0 {
		return body, nil
	}

	items := make([]overlayItem, len(entries))
	for i, e := range entries {
		items[i] = overlayItem{
			ID:          e.ID,
			Key:         e.Key,
			Content:     e.Content,
			Description: e.Description,
			Exists:      e.Exists,
			EditURL:     e.EditURL(),
		}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode overlay data: %w", err)
	}

	var frag bytes.Buffer
	err = overlay.Execute(&frag, map[string]any{
		"Items": items,
		"Data":  template.JS(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("render overlay: %w", err)
	}

	out := make([]byte, 0, len(body)+frag.Len())
	out = append(out, body[:idx]...)
	out = append(out, frag.Bytes()...)
	out = append(out, body[idx:]...)
	return out, nil
}

func isHTML(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == "text/html"
}

// bufferedResponse holds a handler's response until the overlay is added.
type bufferedResponse struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	if b.header.Get("Content-Type") == "" {
		b.header.Set("Content-Type", http.DetectContentType(p))
	}
	return b.body.Write(p)
}
