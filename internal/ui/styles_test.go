package ui

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	defer func() { noColor = false }()

	noColor = false
	got := RenderKey("welcome")
	if !strings.HasPrefix(got, "\x1b[38;5;179m") || !strings.HasSuffix(got, "welcome\x1b[0m") {
		t.Errorf("RenderKey = %q, want amber escape", got)
	}

	ForceNoColor()
	if ColorEnabled() {
		t.Error("ColorEnabled() = true after ForceNoColor")
	}
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderCommand, RenderKey, RenderMissing} {
		if got := fn("x"); got != "x" {
			t.Errorf("no-color render = %q, want x", got)
		}
	}
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"NO_COLOR wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false},
		{"force", map[string]string{"CLICOLOR_FORCE": "1"}, true},
		{"disabled", map[string]string{"CLICOLOR": "0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR_FORCE", "CLICOLOR"} {
				t.Setenv(k, tt.env[k])
			}
			if got := ShouldUseColor(); got != tt.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.want)
			}
		})
	}
}
