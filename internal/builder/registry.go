package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrUnknownBuilder is returned when configuration names an unregistered builder.
var ErrUnknownBuilder = errors.New("unknown builder")

// Spec is one configured builder entry.
type Spec struct {
	Ident string   `toml:"ident" json:"ident"`
	Title string   `toml:"title" json:"title,omitempty"`
	Keys  []string `toml:"keys" json:"keys,omitempty"`
}

// Factory constructs a builder from its configuration.
type Factory func(spec Spec, logger *slog.Logger) (Builder, error)

// Registry maps builder idents to factories.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry returns a registry with the built-in builders registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{factories: make(map[string]Factory), logger: logger}
	r.Register("template", func(spec Spec, logger *slog.Logger) (Builder, error) {
		t := NewTemplate(spec.Keys, logger)
		if spec.Title != "" {
			t.Name = spec.Title
		}
		return t, nil
	})
	r.Register("escape", func(spec Spec, _ *slog.Logger) (Builder, error) {
		e := NewEscape(spec.Keys)
		if spec.Title != "" {
			e.Name = spec.Title
		}
		return e, nil
	})
	return r
}

// Register adds or replaces the factory for ident.
func (r *Registry) Register(ident string, f Factory) {
	r.factories[ident] = f
}

// Idents returns the registered idents, sorted.
func (r *Registry) Idents() []string {
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Load builds a chain in configured order. Unknown or repeated idents are errors.
func (r *Registry) Load(specs []Spec) (*Chain, error) {
	seen := make(map[string]bool, len(specs))
	builders := make([]Builder, 0, len(specs))
	for _, spec := range specs {
		if spec.Ident == DefaultIdent {
			return nil, fmt.Errorf("builder %q is implicit and cannot be configured", DefaultIdent)
		}
		if seen[spec.Ident] {
			return nil, fmt.Errorf("builder %q configured twice", spec.Ident)
		}
		seen[spec.Ident] = true

		f, ok := r.factories[spec.Ident]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBuilder, spec.Ident)
		}
		b, err := f(spec, r.logger)
		if err != nil {
			return nil, fmt.Errorf("create builder %q: %w", spec.Ident, err)
		}
		builders = append(builders, b)
	}
	return New(builders...), nil
}
