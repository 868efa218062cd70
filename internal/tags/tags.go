// Package tags exposes chunk resolution to html/template.
//
// Templates call the functions with the request explicitly:
//
//	{{chunk .Request "greeting"}}
//	{{chunk .Request "greeting" true 300}}
//	{{object_chunk .Request .Article "subtitle" true 0 "default-subtitle"}}
//	{{$c := object_chunks .Request .Article}}{{index $c "subtitle"}}
//	{{"greeting" | chunkfilter .Request}}
//
// Chunk content is trusted markup and is returned as template.HTML.
package tags

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"reflect"
	"time"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
	"github.com/alfredjeanlab/chunks/internal/resolve"
)

// Tag function names.
const (
	TagChunk        = "chunk"
	TagObjectChunk  = "object_chunk"
	TagObjectChunks = "object_chunks"
	TagChunkFilter  = "chunkfilter"
	TagAllChunks    = "all_chunks"
	TagOwner        = "owner"
)

// Library binds template functions to a resolution service.
type Library struct {
	svc *resolve.Service
}

// New returns a Library for svc.
func New(svc *resolve.Service) *Library {
	return &Library{svc: svc}
}

// Funcs returns the template functions bound to ctx.
func (l *Library) Funcs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		TagChunk: func(req *request.Request, key string, args ...any) (template.HTML, error) {
			opts, err := globalOpts(TagChunk, args)
			if err != nil {
				return "", err
			}
			s, err := l.svc.ResolveGlobal(ctx, key, req, opts...)
			return template.HTML(s), err
		},
		TagObjectChunk: func(req *request.Request, owner any, key string, args ...any) (template.HTML, error) {
			o, ok := asOwner(owner)
			if !ok {
				return "", nil
			}
			opts, err := scopedOpts(args)
			if err != nil {
				return "", err
			}
			s, err := l.svc.ResolveScoped(ctx, o, key, req, opts...)
			return template.HTML(s), err
		},
		TagObjectChunks: func(req *request.Request, owner any) (map[string]template.HTML, error) {
			o, ok := asOwner(owner)
			if !ok {
				return map[string]template.HTML{}, nil
			}
			m, err := l.svc.ResolveAllForOwner(ctx, o, req)
			if err != nil {
				return nil, err
			}
			out := make(map[string]template.HTML, len(m))
			for k, v := range m {
				out[k] = template.HTML(v)
			}
			return out, nil
		},
		TagChunkFilter: func(req *request.Request, key string) (template.HTML, error) {
			s, err := l.svc.ResolveGlobal(ctx, key, req)
			return template.HTML(s), err
		},
		TagAllChunks: func() (map[string]string, error) {
			return l.svc.GlobalMap(ctx)
		},
		TagOwner: func(typ, id string) model.OwnerRef {
			return model.OwnerRef{Type: typ, ID: id}
		},
	}
}

// Parse parses src as a named template and validates every chunk tag in it.
func (l *Library) Parse(name, src string) (*template.Template, error) {
	t, err := template.New(name).Funcs(l.Funcs(context.Background())).Parse(src)
	if err != nil {
		return nil, err
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseFS parses the templates matching patterns in fsys and validates them.
func (l *Library) ParseFS(fsys fs.FS, patterns ...string) (*template.Template, error) {
	t, err := template.New("").Funcs(l.Funcs(context.Background())).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, err
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Bind returns a clone of t whose chunk functions use ctx. t itself must
// not have been executed.
func (l *Library) Bind(ctx context.Context, t *template.Template) (*template.Template, error) {
	c, err := t.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone template: %w", err)
	}
	return c.Funcs(l.Funcs(ctx)), nil
}

// asOwner accepts any model.Owner. A nil or non-owner value renders nothing.
func asOwner(v any) (model.Owner, bool) {
	o, ok := v.(model.Owner)
	if !ok || o == nil {
		return nil, false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	return o, true
}

// globalOpts reads the optional [wrap] [ttlSeconds] arguments.
func globalOpts(tag string, args []any) ([]resolve.Option, error) {
	if len(args) > 2 {
		return nil, fmt.Errorf("%s: too many arguments", tag)
	}
	var opts []resolve.Option
	if len(args) > 0 {
		wrap, ok := args[0].(bool)
		if !ok {
			return nil, fmt.Errorf("%s: wrap argument must be a bool, got %T", tag, args[0])
		}
		if wrap {
			opts = append(opts, resolve.WithWrap())
		}
	}
	if len(args) > 1 {
		secs, err := seconds(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		opts = append(opts, resolve.WithTTL(secs))
	}
	return opts, nil
}

// scopedOpts reads [wrap] [ttlSeconds] ["defaultKey"].
func scopedOpts(args []any) ([]resolve.Option, error) {
	if len(args) > 3 {
		return nil, fmt.Errorf("%s: too many arguments", TagObjectChunk)
	}
	head := args
	if len(head) > 2 {
		head = head[:2]
	}
	opts, err := globalOpts(TagObjectChunk, head)
	if err != nil {
		return nil, err
	}
	if len(args) == 3 {
		def, ok := args[2].(string)
		if !ok {
			return nil, fmt.Errorf("%s: default key must be a string, got %T", TagObjectChunk, args[2])
		}
		opts = append(opts, resolve.WithDefault(def))
	}
	return opts, nil
}

func seconds(v any) (time.Duration, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("cache time must not be negative")
		}
		return time.Duration(n) * time.Second, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("cache time must not be negative")
		}
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("cache time must be an integer number of seconds, got %T", v)
	}
}
