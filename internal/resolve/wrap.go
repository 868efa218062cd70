package resolve

import (
	"html"

	"github.com/alfredjeanlab/chunks/internal/request"
)

func (s *Service) shouldWrap(req *request.Request, co callOptions) bool {
	return co.wrap && s.opts.Wrap && req.Privileged
}

// wrapGlobal marks a global chunk with its id, or as new when it has no
// backing record.
func (s *Service) wrapGlobal(e entry, req *request.Request, co callOptions) string {
	if !s.shouldWrap(req, co) {
		return e.Content
	}
	if !e.Exists {
		return `<chunk ckey="` + html.EscapeString(e.Key) + `" class="newchunk">` + e.Content + `</chunk>`
	}
	return `<chunk cid="` + html.EscapeString(e.ID) + `">` + e.Content + `</chunk>`
}

func (s *Service) wrapInline(e entry, req *request.Request, co callOptions) string {
	if !s.shouldWrap(req, co) {
		return e.Content
	}
	return `<chunk icid="` + html.EscapeString(e.ID) + `">` + e.Content + `</chunk>`
}
