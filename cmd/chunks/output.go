package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// preview flattens content to one line and truncates it to n runes.
func preview(content string, n int) string {
	s := strings.Join(strings.Fields(content), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func printChunkTable(w io.Writer, c *model.Chunk) {
	fmt.Fprintf(w, "ID:          %s\n", c.ID)
	fmt.Fprintf(w, "Key:         %s\n", ui.RenderKey(c.Key))
	if c.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", c.Description)
	}
	if c.Builder != "" {
		fmt.Fprintf(w, "Builder:     %s\n", c.Builder)
	}
	if !c.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", c.CreatedAt.Format(timeLayout))
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", c.UpdatedAt.Format(timeLayout))
	}
	printContent(w, c.Content)
}

func printInlineChunkTable(w io.Writer, c *model.InlineChunk) {
	fmt.Fprintf(w, "ID:          %s\n", c.ID)
	fmt.Fprintf(w, "Owner:       %s\n", c.Owner)
	fmt.Fprintf(w, "Key:         %s\n", ui.RenderKey(c.Key))
	fmt.Fprintf(w, "Order:       %d\n", c.Order)
	if c.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", c.Description)
	}
	if c.Builder != "" {
		fmt.Fprintf(w, "Builder:     %s\n", c.Builder)
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", c.UpdatedAt.Format(timeLayout))
	}
	printContent(w, c.Content)
}

func printContent(w io.Writer, content string) {
	fmt.Fprintln(w)
	if content == "" {
		fmt.Fprintln(w, ui.RenderMissing("(empty)"))
		return
	}
	fmt.Fprintln(w, content)
}

func printChunkListTable(w io.Writer, chunks []*model.Chunk, total, width int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEY\tDESCRIPTION\tCONTENT")
	for _, c := range chunks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Key, preview(c.Description, 30), preview(c.Content, width))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d chunks (%d total)\n", len(chunks), total)
}

func printInlineListTable(w io.Writer, chunks []*model.InlineChunk, total, width int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tKEY\tORDER\tCONTENT")
	for _, c := range chunks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Owner, c.Key, c.Order, preview(c.Content, width))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d inline chunks (%d total)\n", len(chunks), total)
}

// printRenderedMap prints key/content pairs sorted by key.
func printRenderedMap(w io.Writer, chunks map[string]string) {
	keys := make([]string, 0, len(chunks))
	for k := range chunks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\n%s\n\n", ui.RenderKey("["+k+"]"), chunks[k])
	}
	if len(keys) == 0 {
		fmt.Fprintln(w, ui.RenderMissing("(no chunks)"))
	}
}

// contentWidth is the room left for content previews in list tables.
func contentWidth() int {
	w := ui.Width(120) - 60
	if w < 20 {
		return 20
	}
	return w
}
