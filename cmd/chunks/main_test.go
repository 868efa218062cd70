package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alfredjeanlab/chunks/internal/builder"
	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/resolve"
	"github.com/alfredjeanlab/chunks/internal/server"
	"github.com/alfredjeanlab/chunks/internal/store/storetest"
)

// newTestAPI starts the admin API over an in-memory store.
func newTestAPI(t *testing.T) (*storetest.Store, string) {
	t.Helper()
	st := storetest.New()
	m := metrics.New()
	chain := builder.New(builder.NewEscape([]string{"escaped"}))
	svc := resolve.New(st, cache.NewInstrumented(cache.NewMemory(0, 0), m), chain, resolve.Options{Metrics: m})
	srv := httptest.NewServer(server.NewChunksServer(st, svc, m, nil).NewHTTPHandler(""))
	t.Cleanup(srv.Close)
	return st, srv.URL
}

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	w.Close()
	os.Stdout = orig
	out, _ := io.ReadAll(r)
	return string(out), runErr
}

func TestCLI_SetShowListDelete(t *testing.T) {
	st, url := newTestAPI(t)

	out, err := runCLI(t, "", "--http-url", url, "set", "welcome", "<h1>Hi</h1>", "--description", "banner")
	if err != nil {
		t.Fatalf("set (create): %v", err)
	}
	if !strings.HasPrefix(out, "Created welcome (") {
		t.Errorf("set output = %q, want Created welcome", out)
	}

	if _, err := runCLI(t, "", "--http-url", url, "set", "welcome", "<h1>Hello</h1>"); err != nil {
		t.Fatalf("set (update): %v", err)
	}
	c, err := st.GetChunkByKey(context.Background(), "welcome")
	if err != nil {
		t.Fatalf("GetChunkByKey: %v", err)
	}
	if c.Content != "<h1>Hello</h1>" || c.Description != "banner" {
		t.Errorf("stored chunk = %q / %q, want updated content and kept description", c.Content, c.Description)
	}

	out, err = runCLI(t, "", "--http-url", url, "show", "welcome")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Key:         welcome") || !strings.Contains(out, "<h1>Hello</h1>") {
		t.Errorf("show output = %q", out)
	}

	out, err = runCLI(t, "", "--http-url", url, "--json", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed []*model.Chunk
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("list --json output is not JSON: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Key != "welcome" {
		t.Errorf("listed = %+v, want [welcome]", listed)
	}

	if _, err := runCLI(t, "", "--http-url", url, "delete", "welcome"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if st.ChunkCount() != 0 {
		t.Errorf("ChunkCount = %d after delete, want 0", st.ChunkCount())
	}
}

func TestCLI_SetFromStdin(t *testing.T) {
	st, url := newTestAPI(t)

	if _, err := runCLI(t, "from stdin\n", "--http-url", url, "set", "footer", "-"); err != nil {
		t.Fatalf("set: %v", err)
	}
	c, err := st.GetChunkByKey(context.Background(), "footer")
	if err != nil {
		t.Fatalf("GetChunkByKey: %v", err)
	}
	if c.Content != "from stdin" {
		t.Errorf("content = %q, want from stdin", c.Content)
	}
}

func TestCLI_SetNothingToUpdate(t *testing.T) {
	_, url := newTestAPI(t)

	if _, err := runCLI(t, "", "--http-url", url, "set", "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, err := runCLI(t, "", "--http-url", url, "set", "k")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("expected nothing to update error, got %v", err)
	}
}

func TestCLI_SetBuilderPin(t *testing.T) {
	st, url := newTestAPI(t)

	if _, err := runCLI(t, "", "--http-url", url, "set", "note", "<i>x</i>", "--builder", "escape"); err != nil {
		t.Fatalf("set (create): %v", err)
	}
	out, err := runCLI(t, "", "--http-url", url, "render", "note")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "&lt;i&gt;x&lt;/i&gt;\n" {
		t.Errorf("pinned render = %q", out)
	}

	if _, err := runCLI(t, "", "--http-url", url, "set", "note", "--builder", ""); err != nil {
		t.Fatalf("set (unpin): %v", err)
	}
	c, err := st.GetChunkByKey(context.Background(), "note")
	if err != nil {
		t.Fatal(err)
	}
	if c.Builder != "" || c.Content != "<i>x</i>" {
		t.Errorf("stored chunk = %+v, want unpinned with content kept", c)
	}
}

func TestCLI_ShowMissing(t *testing.T) {
	_, url := newTestAPI(t)

	_, err := runCLI(t, "", "--http-url", url, "show", "nope")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}

func TestCLI_RenderAutoCreates(t *testing.T) {
	st, url := newTestAPI(t)

	out, err := runCLI(t, "", "--http-url", url, "render", "sidebar")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "sidebar\n" {
		t.Errorf("render output = %q, want the key as placeholder content", out)
	}
	if _, err := st.GetChunkByKey(context.Background(), "sidebar"); err != nil {
		t.Errorf("render should auto-create the chunk: %v", err)
	}
}

func TestCLI_InlineFlow(t *testing.T) {
	_, url := newTestAPI(t)

	if _, err := runCLI(t, "", "--http-url", url, "set", "fallback", "global text"); err != nil {
		t.Fatalf("set global: %v", err)
	}
	out, err := runCLI(t, "", "--http-url", url, "inline", "set", "page", "42", "intro", "page intro", "--order", "2")
	if err != nil {
		t.Fatalf("inline set: %v", err)
	}
	if !strings.HasPrefix(out, "Created page#42/intro (") {
		t.Errorf("inline set output = %q, want Created page#42/intro", out)
	}

	if _, err := runCLI(t, "", "--http-url", url, "inline", "set", "page", "42", "intro", "--order", "5"); err != nil {
		t.Fatalf("inline set (update): %v", err)
	}

	out, err = runCLI(t, "", "--http-url", url, "--json", "inline", "list", "page", "42")
	if err != nil {
		t.Fatalf("inline list: %v", err)
	}
	var listed []*model.InlineChunk
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("inline list --json output is not JSON: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Order != 5 || listed[0].Content != "page intro" {
		t.Errorf("listed = %+v, want one chunk with order 5", listed)
	}

	out, err = runCLI(t, "", "--http-url", url, "--json", "render-owner", "page", "42")
	if err != nil {
		t.Fatalf("render-owner: %v", err)
	}
	var rendered map[string]string
	if err := json.Unmarshal([]byte(out), &rendered); err != nil {
		t.Fatalf("render-owner output is not JSON: %v\n%s", err, out)
	}
	if rendered["intro"] != "page intro" {
		t.Errorf("rendered = %v", rendered)
	}

	out, err = runCLI(t, "", "--http-url", url, "render", "page", "42", "missing", "--default", "fallback")
	if err != nil {
		t.Fatalf("render scoped: %v", err)
	}
	if out != "global text\n" {
		t.Errorf("scoped render = %q, want global text", out)
	}
}

func TestCLI_BuildersAndHealth(t *testing.T) {
	_, url := newTestAPI(t)

	out, err := runCLI(t, "", "--http-url", url, "builders")
	if err != nil {
		t.Fatalf("builders: %v", err)
	}
	if !strings.HasPrefix(out, "IDENT") || !strings.Contains(out, "escape") {
		t.Errorf("builders output = %q", out)
	}

	out, err = runCLI(t, "", "--http-url", url, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if out != "Health: ok\n" {
		t.Errorf("health output = %q", out)
	}
}

func TestCLI_RenderArgs(t *testing.T) {
	_, url := newTestAPI(t)

	if _, err := runCLI(t, "", "--http-url", url, "render", "a", "b"); err == nil {
		t.Error("render with two args should fail")
	}
	if _, err := runCLI(t, "", "--http-url", url, "inline", "list", "page"); err == nil {
		t.Error("inline list with one arg should fail")
	}
}
