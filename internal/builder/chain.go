package builder

import (
	"context"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
)

// Chain evaluates builders in order; the first match renders.
type Chain struct {
	builders []Builder
}

// Choice is an (ident, title) pair offered by the admin builder picker.
type Choice struct {
	Ident string `json:"ident"`
	Title string `json:"title"`
}

// New returns a chain of the given builders followed by Default.
func New(builders ...Builder) *Chain {
	bs := make([]Builder, 0, len(builders)+1)
	bs = append(bs, builders...)
	bs = append(bs, Default{})
	return &Chain{builders: bs}
}

// Resolve returns the first builder that accepts key. It never returns nil.
func (c *Chain) Resolve(key string, rec model.Record, owner *model.OwnerRef) Builder {
	for _, b := range c.builders {
		if b.AppropriateKey(key, rec, owner) {
			return b
		}
	}
	return Default{}
}

// Render renders rec with the first matching builder.
func (c *Chain) Render(ctx context.Context, req *request.Request, rec model.Record, parent *model.OwnerRef, extra map[string]any) string {
	key := ""
	if rec != nil {
		key = rec.RecordKey()
	}
	return c.Resolve(key, rec, parent).Render(ctx, req, rec, parent, extra)
}

// Cacheable reports whether the output of rec may be shared between viewers.
func (c *Chain) Cacheable(rec model.Record, parent *model.OwnerRef) bool {
	key := ""
	if rec != nil {
		key = rec.RecordKey()
	}
	if pr, ok := c.Resolve(key, rec, parent).(PerRequest); ok {
		return !pr.PerRequest(rec)
	}
	return true
}

// Builders returns the chain in evaluation order, Default last.
func (c *Chain) Builders() []Builder {
	out := make([]Builder, len(c.builders))
	copy(out, c.builders)
	return out
}

// Choices lists the configured builders, excluding Default.
func (c *Chain) Choices() []Choice {
	var out []Choice
	for _, b := range c.builders {
		if b.Ident() == DefaultIdent {
			continue
		}
		out = append(out, Choice{Ident: b.Ident(), Title: b.Title()})
	}
	return out
}
