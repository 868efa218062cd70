package tags

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
	"github.com/alfredjeanlab/chunks/internal/resolve"
	"github.com/alfredjeanlab/chunks/internal/store/storetest"
)

type page struct {
	Request *request.Request
	Article model.Owner
	Wrap    bool
}

type article struct{ id string }

func (a *article) OwnerType() string { return "article" }
func (a *article) OwnerID() string   { return a.id }

func newLibrary(t *testing.T, wrap bool) (*Library, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	st.PutChunk(&model.Chunk{ID: "ch-1", Key: "greeting", Content: "Hello <b>world</b>"})
	st.PutChunk(&model.Chunk{ID: "ch-2", Key: "fallback", Content: "Default subtitle"})
	st.PutInlineChunk(&model.InlineChunk{ID: "ic-1", Owner: model.OwnerRef{Type: "article", ID: "42"}, Key: "subtitle", Content: "Breaking News"})
	svc := resolve.New(st, cache.NewMemory(0, 0), nil, resolve.Options{Wrap: wrap})
	return New(svc), st
}

func render(t *testing.T, lib *Library, src string, data any) string {
	t.Helper()
	tmpl, err := lib.Parse("page", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bound, err := lib.Bind(context.Background(), tmpl)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	var sb strings.Builder
	if err := bound.Execute(&sb, data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return sb.String()
}

func TestFuncs_Render(t *testing.T) {
	lib, st := newLibrary(t, true)
	data := page{Request: request.Anonymous(), Article: &article{id: "42"}}

	for _, tc := range []struct {
		name string
		src  string
		want string
	}{
		{"Chunk", `{{chunk .Request "greeting"}}`, "Hello <b>world</b>"},
		{"ChunkAutoCreate", `{{chunk .Request "brand-new"}}`, "brand-new"},
		{"ChunkWithOptions", `{{chunk .Request "greeting" true 300}}`, "Hello <b>world</b>"},
		{"Filter", `{{"greeting" | chunkfilter .Request}}`, "Hello <b>world</b>"},
		{"ObjectChunk", `{{object_chunk .Request .Article "subtitle"}}`, "Breaking News"},
		{"ObjectChunkDefault", `{{object_chunk .Request .Article "teaser" false 0 "fallback"}}`, "Default subtitle"},
		{"ObjectChunkMissing", `[{{object_chunk .Request .Article "teaser"}}]`, "[]"},
		{"ObjectChunkOwnerFunc", `{{object_chunk .Request (owner "article" "42") "subtitle"}}`, "Breaking News"},
		{"ObjectChunks", `{{$c := object_chunks .Request .Article}}{{index $c "subtitle"}}`, "Breaking News"},
		{"AllChunks", `{{index all_chunks "fallback"}}`, "Default subtitle"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := render(t, lib, tc.src, data); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := st.GetChunkByKey(context.Background(), "teaser"); err == nil {
		t.Error("scoped lookups must not create global chunks")
	}
}

func TestFuncs_WrapForPrivileged(t *testing.T) {
	lib, _ := newLibrary(t, true)
	req := &request.Request{Privileged: true, Collector: request.NewCollector()}

	got := render(t, lib, `{{chunk .Request "greeting" .Wrap}}`, page{Request: req, Wrap: true})
	if got != `<chunk cid="ch-1">Hello <b>world</b></chunk>` {
		t.Errorf("got %q", got)
	}
	if req.Collector.Len() != 1 {
		t.Errorf("collector len = %d", req.Collector.Len())
	}
}

func TestFuncs_NilOwnerRendersEmpty(t *testing.T) {
	lib, _ := newLibrary(t, false)
	var missing *article
	got := render(t, lib, `[{{object_chunk .Request .Article "subtitle"}}]`, page{Request: request.Anonymous(), Article: missing})
	if got != "[]" {
		t.Errorf("got %q", got)
	}
}

func TestFuncs_MissingRequestFails(t *testing.T) {
	lib, _ := newLibrary(t, false)
	tmpl, err := lib.Parse("page", `{{chunk .Request "greeting"}}`)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	err = tmpl.Execute(&sb, page{})
	if err == nil || !strings.Contains(err.Error(), resolve.ErrMissingRequest.Error()) {
		t.Fatalf("expected missing request error, got %v", err)
	}
}

func TestFuncs_RuntimeArgumentErrors(t *testing.T) {
	lib, _ := newLibrary(t, false)
	tmpl, err := lib.Parse("page", `{{chunk .Request "greeting" .Wrap}}`)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	err = tmpl.Execute(&sb, map[string]any{"Request": request.Anonymous(), "Wrap": "yes"})
	if err == nil || !strings.Contains(err.Error(), "wrap argument must be a bool") {
		t.Fatalf("expected wrap type error, got %v", err)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	lib, _ := newLibrary(t, false)

	for _, tc := range []struct {
		name    string
		src     string
		wantTag string
		wantMsg string
	}{
		{"UnquotedKey", `{{chunk .Request .Key}}`, TagChunk, "argument 2 must be a quoted string"},
		{"TooFewArgs", `{{chunk .Request}}`, TagChunk, "takes 2 to 4 arguments, got 1"},
		{"TooManyArgs", `{{chunk .Request "k" true 1 2}}`, TagChunk, "takes 2 to 4 arguments, got 5"},
		{"WrapNotBool", `{{chunk .Request "k" "yes"}}`, TagChunk, "(wrap) must be true or false"},
		{"NegativeTTL", `{{chunk .Request "k" true -5}}`, TagChunk, "(cache time) must be a non-negative integer"},
		{"FractionalTTL", `{{chunk .Request "k" true 1.5}}`, TagChunk, "(cache time)"},
		{"ObjectKeyUnquoted", `{{object_chunk .Request .A .K}}`, TagObjectChunk, "argument 3 must be a quoted string"},
		{"ObjectDefaultUnquoted", `{{object_chunk .Request .A "k" true 0 .Def}}`, TagObjectChunk, "argument 6 must be a quoted string"},
		{"ObjectChunksArity", `{{object_chunks .Request}}`, TagObjectChunks, "takes 2 arguments, got 1"},
		{"FilterArity", `{{chunkfilter .Request "k"}}`, TagChunkFilter, "takes 2 arguments, got 1"},
		{"FilterPipedTooMany", `{{"k" | chunkfilter .Request "x"}}`, TagChunkFilter, "takes 2 arguments, got 3"},
		{"Nested", `{{if .X}}{{range .Y}}{{chunk .Request 1}}{{end}}{{end}}`, TagChunk, "argument 2 must be a quoted string"},
		{"InParens", `{{printf "%s" (chunk .Request)}}`, TagChunk, "got 1"},
		{"Defined", `{{define "part"}}{{chunk}}{{end}}body`, TagChunk, "got 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lib.Parse("page", tc.src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if se.Tag != tc.wantTag || !strings.Contains(se.Msg, tc.wantMsg) {
				t.Errorf("got tag=%q msg=%q", se.Tag, se.Msg)
			}
			if !strings.HasPrefix(se.Location, "page:") && !strings.HasPrefix(se.Location, "part:") {
				t.Errorf("location = %q", se.Location)
			}
		})
	}
}

func TestParse_ValidTemplates(t *testing.T) {
	lib, _ := newLibrary(t, false)
	for _, src := range []string{
		`{{chunk .Request "k"}}`,
		"{{chunk .Request `k` .Wrap .TTL}}",
		`{{object_chunk .Request .A "k" false 10 "d"}}`,
		`{{$c := object_chunks .Request .A}}{{range $k, $v := $c}}{{$k}}={{$v}}{{end}}`,
		`{{with .X}}{{"k" | chunkfilter $.Request}}{{else}}{{chunk $.Request "k"}}{{end}}`,
		`{{template "t" .}}{{define "t"}}{{chunk .Request "k"}}{{end}}`,
	} {
		if _, err := lib.Parse("page", src); err != nil {
			t.Errorf("Parse(%q): %v", src, err)
		}
	}
}

func TestParseFS(t *testing.T) {
	lib, _ := newLibrary(t, false)
	fsys := fstest.MapFS{
		"good.html": {Data: []byte(`{{chunk .Request "greeting"}}`)},
		"bad.html":  {Data: []byte(`{{chunk .Request greeting}}`)},
	}
	if _, err := lib.ParseFS(fsys, "good.html"); err != nil {
		t.Fatalf("good: %v", err)
	}
	if _, err := lib.ParseFS(fsys, "*.html"); err == nil {
		t.Fatal("expected error for bad.html")
	}
}
