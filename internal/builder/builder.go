// Package builder implements the ordered chain of content transformers
// applied to chunk records during resolution.
package builder

import (
	"context"
	"slices"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
)

// DefaultIdent is the ident of the catch-all builder appended to every chain.
const DefaultIdent = "default"

// Builder turns a stored record into rendered text.
type Builder interface {
	Ident() string
	Title() string
	// AppropriateKey reports whether the builder handles key. rec and
	// owner may be nil.
	AppropriateKey(key string, rec model.Record, owner *model.OwnerRef) bool
	// Render must not fail; builders degrade to the raw content.
	Render(ctx context.Context, req *request.Request, rec model.Record, parent *model.OwnerRef, extra map[string]any) string
}

// Base carries the identity and key allow-list shared by builders.
type Base struct {
	ID   string
	Name string
	// Keys restricts the builder to these chunk keys. Nil matches all keys.
	Keys []string
}

func (b Base) Ident() string { return b.ID }

func (b Base) Title() string {
	if b.Name == "" {
		return b.ID
	}
	return b.Name
}

// AppropriateKey honours a pinned builder first: a record pinned to a
// builder matches only that builder. Otherwise the allow-list decides.
func (b Base) AppropriateKey(key string, rec model.Record, _ *model.OwnerRef) bool {
	if rec != nil {
		if ident := rec.RecordBuilder(); ident != "" {
			return ident == b.ID
		}
	}
	return b.Keys == nil || slices.Contains(b.Keys, key)
}

// PerRequest is implemented by builders whose output for a record depends
// on the viewer or the call's extra data. Such output is never cached.
type PerRequest interface {
	PerRequest(rec model.Record) bool
}

// content returns the stored content of rec, or "" for nil.
func content(rec model.Record) string {
	if rec == nil {
		return ""
	}
	return rec.RecordContent()
}

// Default returns content verbatim and matches every key.
type Default struct{}

func (Default) Ident() string { return DefaultIdent }
func (Default) Title() string { return "Default" }

func (Default) AppropriateKey(string, model.Record, *model.OwnerRef) bool { return true }

func (Default) Render(_ context.Context, _ *request.Request, rec model.Record, _ *model.OwnerRef, _ map[string]any) string {
	return content(rec)
}
