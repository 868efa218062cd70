package resolve

import (
	"context"
	"testing"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
)

func TestWrap(t *testing.T) {
	ctx := context.Background()
	editor := func() *request.Request {
		return &request.Request{User: "editor", Privileged: true, Collector: request.NewCollector()}
	}

	for _, tc := range []struct {
		name   string
		wrapOn bool
		req    *request.Request
		opts   []Option
		want   string
	}{
		{"Privileged", true, editor(), []Option{WithWrap()}, `<chunk cid="ch-1">Hello</chunk>`},
		{"NotRequested", true, editor(), nil, "Hello"},
		{"ModeOff", false, editor(), []Option{WithWrap()}, "Hello"},
		{"Anonymous", true, request.Anonymous(), []Option{WithWrap()}, "Hello"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Wrap: tc.wrapOn})
			f.store.PutChunk(&model.Chunk{ID: "ch-1", Key: "greeting", Content: "Hello"})

			got, err := f.svc.ResolveGlobal(ctx, "greeting", tc.req, tc.opts...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWrap_CacheHoldsUnwrapped(t *testing.T) {
	f := newFixture(t, Options{Wrap: true})
	f.store.PutChunk(&model.Chunk{ID: "ch-1", Key: "greeting", Content: "Hello"})
	ctx := context.Background()

	editor := &request.Request{Privileged: true}
	if got, _ := f.svc.ResolveGlobal(ctx, "greeting", editor, WithWrap()); got != `<chunk cid="ch-1">Hello</chunk>` {
		t.Fatalf("editor got %q", got)
	}
	if got, _ := f.svc.ResolveGlobal(ctx, "greeting", request.Anonymous(), WithWrap()); got != "Hello" {
		t.Errorf("anonymous got %q from cache", got)
	}
	// Wrap is applied on cache hits too.
	if got, _ := f.svc.ResolveGlobal(ctx, "greeting", editor, WithWrap()); got != `<chunk cid="ch-1">Hello</chunk>` {
		t.Errorf("editor cache hit got %q", got)
	}
}

func TestWrap_Inline(t *testing.T) {
	f := newFixture(t, Options{Wrap: true})
	f.store.PutInlineChunk(&model.InlineChunk{ID: "ic-1", Owner: article42, Key: "subtitle", Content: "S"})

	got, _ := f.svc.ResolveScoped(context.Background(), article42, "subtitle", &request.Request{Privileged: true}, WithWrap())
	if got != `<chunk icid="ic-1">S</chunk>` {
		t.Errorf("got %q", got)
	}
}

func TestWrap_NewChunkMarkup(t *testing.T) {
	f := newFixture(t, Options{Wrap: true})
	got := f.svc.wrapGlobal(entry{Key: `a"b`}, &request.Request{Privileged: true}, callOptions{wrap: true})
	if got != `<chunk ckey="a&#34;b" class="newchunk"></chunk>` {
		t.Errorf("got %q", got)
	}
}

func TestCollector_FedOnMissAndHit(t *testing.T) {
	f := newFixture(t, Options{Wrap: true})
	f.store.PutChunk(&model.Chunk{ID: "ch-1", Key: "greeting", Content: "Hello", Description: "Home greeting"})
	f.store.PutChunk(&model.Chunk{ID: "ch-2", Key: "fallback", Content: "F"})
	ctx := context.Background()

	first := &request.Request{Privileged: true, Collector: request.NewCollector()}
	f.svc.ResolveGlobal(ctx, "greeting", first)
	f.svc.ResolveGlobal(ctx, "brand-new", first)
	f.svc.ResolveScoped(ctx, article42, "missing", first, WithDefault("fallback"))
	f.svc.ResolveScoped(ctx, article42, "missing", first)

	entries := first.Collector.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %+v", entries)
	}
	want := request.Entry{ID: "ch-1", Key: "greeting", Content: "Hello", Description: "Home greeting", Exists: true}
	if entries[0] != want {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].Key != "brand-new" || !entries[1].Exists || entries[1].ID == "" {
		t.Errorf("entry[1] = %+v", entries[1])
	}
	if entries[2].Key != "fallback" {
		t.Errorf("entry[2] = %+v", entries[2])
	}

	second := &request.Request{Privileged: true, Collector: request.NewCollector()}
	f.svc.ResolveGlobal(ctx, "greeting", second)
	if got := second.Collector.Entries(); len(got) != 1 || got[0] != want {
		t.Errorf("cache hit entries = %+v", got)
	}
}
