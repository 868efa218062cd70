package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/chunks/internal/ui"
)

// helpRule recolors one kind of fragment in cobra's plain help text.
type helpRule struct {
	re    *regexp.Regexp
	apply func(groups []string) string
}

// helpRules run in order over the usage text.
var helpRules = []helpRule{
	// Group headers like "Chunks:" or "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`), func(g []string) string {
		return ui.RenderAccent(strings.TrimSpace(g[0]))
	}},
	// Command names in a group listing.
	{regexp.MustCompile(`(?m)^(  )(\S+)(  )`), func(g []string) string {
		return g[1] + ui.RenderCommand(g[2]) + g[3]
	}},
	// Flag value types, e.g. "--http-url string".
	{regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice|stringArray)\b`), func(g []string) string {
		return g[1] + ui.RenderMuted(g[2])
	}},
	{regexp.MustCompile(`\(default "[^"]*"\)`), func(g []string) string {
		return ui.RenderMuted(g[0])
	}},
}

// colorizedHelpFunc renders cobra's usage text, colored when stdout
// supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if noColor || !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, rule := range helpRules {
		rule := rule
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.apply(rule.re.FindStringSubmatch(match))
		})
	}
	return s
}
