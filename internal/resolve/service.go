// Package resolve turns chunk keys into rendered content. It fronts the
// store with the cache, runs the builder chain, feeds the request
// collector and keeps the cache coherent on writes.
package resolve

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/chunks/internal/builder"
	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/events"
	"github.com/alfredjeanlab/chunks/internal/idgen"
	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/request"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// ErrMissingRequest is returned when a resolution is attempted without a
// request context. Pages must be served behind the request middleware.
var ErrMissingRequest = errors.New("chunk resolution requires a request context")

// Options configures a Service.
type Options struct {
	// DefaultTTL applies when a call does not set WithTTL. Zero keeps
	// entries until they are invalidated.
	DefaultTTL time.Duration
	// Wrap enables edit markup around chunks rendered for privileged viewers.
	Wrap bool
	// Source identifies this instance on published events.
	Source    string
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Service resolves chunks.
type Service struct {
	store store.Store
	cache cache.Cache
	chain *builder.Chain
	opts  Options
	log   *slog.Logger
}

// New creates a Service. A nil chain means the default builder only.
func New(s store.Store, c cache.Cache, chain *builder.Chain, opts Options) *Service {
	if chain == nil {
		chain = builder.New()
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{store: s, cache: c, chain: chain, opts: opts, log: opts.Logger}
}

// Chain returns the builder chain used for rendering.
func (s *Service) Chain() *builder.Chain { return s.chain }

// WrapEnabled reports whether wrap mode is on.
func (s *Service) WrapEnabled() bool { return s.opts.Wrap }

// Option adjusts a single resolution call.
type Option func(*callOptions)

type callOptions struct {
	ttl        time.Duration
	wrap       bool
	defaultKey string
	extra      map[string]any
}

// WithTTL overrides the default cache TTL for this call.
func WithTTL(d time.Duration) Option {
	return func(o *callOptions) { o.ttl = d }
}

// WithWrap requests edit markup when wrap mode is on and the viewer is privileged.
func WithWrap() Option {
	return func(o *callOptions) { o.wrap = true }
}

// WithDefault names a global chunk to fall back to when a scoped chunk is missing.
func WithDefault(key string) Option {
	return func(o *callOptions) { o.defaultKey = key }
}

// WithExtra passes extra data to builders.
func WithExtra(extra map[string]any) Option {
	return func(o *callOptions) { o.extra = extra }
}

func (s *Service) callOpts(opts []Option) callOptions {
	co := callOptions{ttl: s.opts.DefaultTTL}
	for _, o := range opts {
		o(&co)
	}
	return co
}

// entry is the cached form of a resolved chunk. Content is the rendered,
// unwrapped text.
type entry struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Exists      bool   `json:"exists"`
}

func (e entry) collected() request.Entry {
	return request.Entry{ID: e.ID, Key: e.Key, Content: e.Content, Description: e.Description, Exists: e.Exists}
}

// ResolveGlobal returns the rendered content of the global chunk key,
// creating it with content equal to its key on first use.
func (s *Service) ResolveGlobal(ctx context.Context, key string, req *request.Request, opts ...Option) (string, error) {
	if req == nil {
		return "", ErrMissingRequest
	}
	co := s.callOpts(opts)

	e, err := s.globalEntry(ctx, key, req, co, true)
	if err != nil {
		return "", err
	}
	req.Collect(e.collected())
	return s.wrapGlobal(e, req, co), nil
}

// ResolveScoped returns the rendered content of owner's inline chunk key.
// A missing chunk falls back to the existing global chunk named by
// WithDefault, or to empty text. Nothing is created on a miss.
func (s *Service) ResolveScoped(ctx context.Context, owner model.Owner, key string, req *request.Request, opts ...Option) (string, error) {
	if req == nil {
		return "", ErrMissingRequest
	}
	co := s.callOpts(opts)
	ref := model.Ref(owner)
	cacheKey := cache.InlineKey(ref, key)

	if e, ok := s.cached(ctx, cacheKey); ok {
		return s.wrapInline(e, req, co), nil
	}

	c, err := s.store.GetInlineChunkByKey(ctx, ref, key)
	switch {
	case err == nil:
		e := entry{
			ID:          c.ID,
			Key:         c.Key,
			Content:     s.chain.Render(ctx, req, c, &ref, co.extra),
			Description: c.Description,
			Exists:      true,
		}
		if s.chain.Cacheable(c, &ref) {
			s.cacheEntry(ctx, cacheKey, e, co.ttl)
		}
		return s.wrapInline(e, req, co), nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("resolve inline chunk %s %q: %w", ref, key, err)
	}

	if co.defaultKey == "" {
		return "", nil
	}
	e, err := s.globalEntry(ctx, co.defaultKey, req, co, false)
	if err != nil {
		return "", err
	}
	if !e.Exists {
		return "", nil
	}
	req.Collect(e.collected())
	return s.wrapGlobal(e, req, co), nil
}

// ResolveAllForOwner returns every inline chunk of owner rendered, keyed
// by chunk key. The whole map is cached, including an empty one, unless
// some chunk renders per request.
func (s *Service) ResolveAllForOwner(ctx context.Context, owner model.Owner, req *request.Request) (map[string]string, error) {
	if req == nil {
		return nil, ErrMissingRequest
	}
	ref := model.Ref(owner)
	cacheKey := cache.OwnerKey(ref)

	if raw, ok := s.cacheGet(ctx, cacheKey); ok {
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err == nil {
			return m, nil
		}
		s.log.Warn("discarding corrupt owner cache entry", "owner", ref.String())
	}

	chunks, _, err := s.store.ListInlineChunks(ctx, model.InlineChunkFilter{Owner: &ref})
	if err != nil {
		return nil, fmt.Errorf("list inline chunks for %s: %w", ref, err)
	}
	m := make(map[string]string, len(chunks))
	shared := true
	for _, c := range chunks {
		m[c.Key] = s.chain.Render(ctx, req, c, &ref, nil)
		shared = shared && s.chain.Cacheable(c, &ref)
	}

	if !shared {
		return m, nil
	}
	if raw, err := json.Marshal(m); err == nil {
		s.cacheSet(ctx, cacheKey, raw, s.opts.DefaultTTL)
	}
	return m, nil
}

// GlobalMap returns the raw content of every global chunk keyed by key.
func (s *Service) GlobalMap(ctx context.Context) (map[string]string, error) {
	chunks, _, err := s.store.ListChunks(ctx, model.ChunkFilter{})
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	m := make(map[string]string, len(chunks))
	for _, c := range chunks {
		m[c.Key] = c.Content
	}
	return m, nil
}

// Text resolves a global chunk from code paths that have no viewer.
func (s *Service) Text(ctx context.Context, key string) (string, error) {
	return s.ResolveGlobal(ctx, key, request.Anonymous())
}

// globalEntry looks key up through the item cache. When create is set a
// missing chunk is created; otherwise a miss yields an entry with Exists
// false, which is not cached.
func (s *Service) globalEntry(ctx context.Context, key string, req *request.Request, co callOptions, create bool) (entry, error) {
	cacheKey := cache.ItemKey(key)
	if e, ok := s.cached(ctx, cacheKey); ok {
		return e, nil
	}

	c, err := s.store.GetChunkByKey(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		if !create {
			return entry{Key: key}, nil
		}
		c, err = s.autoCreate(ctx, key)
	}
	if err != nil {
		return entry{}, fmt.Errorf("resolve chunk %q: %w", key, err)
	}

	e := entry{
		ID:          c.ID,
		Key:         c.Key,
		Content:     s.chain.Render(ctx, req, c, nil, co.extra),
		Description: c.Description,
		Exists:      true,
	}
	if s.chain.Cacheable(c, nil) {
		s.cacheEntry(ctx, cacheKey, e, co.ttl)
	}
	return e, nil
}

// autoCreate persists a chunk whose content is its key. A concurrent
// creator winning the unique constraint is resolved by re-reading.
func (s *Service) autoCreate(ctx context.Context, key string) (*model.Chunk, error) {
	id, err := idgen.ChunkID()
	if err != nil {
		return nil, err
	}
	c := &model.Chunk{ID: id, Key: key, Content: key}
	if err := model.ValidateChunk(c); err != nil {
		return nil, err
	}
	err = s.store.CreateChunk(ctx, c)
	if errors.Is(err, store.ErrDuplicate) {
		return s.store.GetChunkByKey(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}
	s.opts.Metrics.Autocreated()
	s.log.Info("created chunk on first use", "key", key, "id", c.ID)
	return c, nil
}

func (s *Service) cached(ctx context.Context, key string) (entry, bool) {
	raw, ok := s.cacheGet(ctx, key)
	if !ok {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.log.Warn("discarding corrupt cache entry", "cache_key", key, "err", err)
		return entry{}, false
	}
	return e, true
}

// cacheEntry writes e to the cache under key.
func (s *Service) cacheEntry(ctx context.Context, key string, e entry, ttl time.Duration) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.log.Warn("encode cache entry", "cache_key", key, "err", err)
		return
	}
	s.cacheSet(ctx, key, raw, ttl)
}

// cacheGet treats cache errors as misses; the store stays authoritative.
func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache get failed", "cache_key", key, "err", err)
		return nil, false
	}
	return raw, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, raw []byte, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.log.Warn("cache set failed", "cache_key", key, "err", err)
	}
}
