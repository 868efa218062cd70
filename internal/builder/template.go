package builder

import (
	"context"
	"html"
	"log/slog"
	"maps"
	"strings"
	"text/template"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
)

// Template renders chunk content as a text/template. The data is the
// extra context plus Key, Owner, User and Vars, so content with template
// actions is rendered for every request.
type Template struct {
	Base
	Logger *slog.Logger
}

// NewTemplate returns a Template builder restricted to keys (nil = all).
func NewTemplate(keys []string, logger *slog.Logger) *Template {
	if logger == nil {
		logger = slog.Default()
	}
	return &Template{Base: Base{ID: "template", Name: "Template", Keys: keys}, Logger: logger}
}

func (t *Template) Render(_ context.Context, req *request.Request, rec model.Record, parent *model.OwnerRef, extra map[string]any) string {
	body := rec.RecordContent()
	if !hasActions(body) {
		return body
	}
	tmpl, err := template.New(rec.RecordKey()).Parse(body)
	if err != nil {
		t.Logger.Warn("parse chunk template", "key", rec.RecordKey(), "err", err)
		return body
	}

	data := make(map[string]any, len(extra)+4)
	maps.Copy(data, extra)
	data["Key"] = rec.RecordKey()
	data["Owner"] = parent
	if req != nil {
		data["User"] = req.User
		data["Vars"] = req.Vars
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		t.Logger.Warn("execute chunk template", "key", rec.RecordKey(), "err", err)
		return body
	}
	return sb.String()
}

// PerRequest reports whether rec contains template actions.
func (t *Template) PerRequest(rec model.Record) bool {
	return rec != nil && hasActions(rec.RecordContent())
}

func hasActions(body string) bool { return strings.Contains(body, "{{") }

// Escape HTML-escapes content so it renders as literal text.
type Escape struct {
	Base
}

// NewEscape returns an Escape builder restricted to keys (nil = all).
func NewEscape(keys []string) *Escape {
	return &Escape{Base: Base{ID: "escape", Name: "Plain text", Keys: keys}}
}

func (e *Escape) Render(_ context.Context, _ *request.Request, rec model.Record, _ *model.OwnerRef, _ map[string]any) string {
	return html.EscapeString(content(rec))
}
