// Package request holds per-request chunk state: who is viewing and which
// chunks were resolved while rendering.
package request

import "context"

// Request is the explicit per-request context passed to chunk resolution.
type Request struct {
	User       string
	Privileged bool
	// Collector is nil unless wrap mode is enabled and the viewer is privileged.
	Collector *Collector
	// Vars are extra values exposed to builders.
	Vars map[string]any
}

// Anonymous returns a request for an unauthenticated viewer with no collector.
func Anonymous() *Request {
	return &Request{}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying req.
func NewContext(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, req)
}

// FromContext returns the request stored in ctx, or nil.
func FromContext(ctx context.Context) *Request {
	req, _ := ctx.Value(ctxKey{}).(*Request)
	return req
}

// Collect appends e to the request's collector if one is attached.
func (r *Request) Collect(e Entry) {
	if r == nil || r.Collector == nil {
		return
	}
	r.Collector.Add(e)
}
