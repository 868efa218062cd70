// Package storetest provides an in-memory store.Store for tests. It keeps
// the same not-found and duplicate semantics as the postgres store and
// counts reads so tests can assert cache behaviour.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	mu     sync.Mutex
	chunks map[string]*model.Chunk
	inline map[string]*model.InlineChunk
	calls  map[string]int

	// Err, when set, is returned by every operation.
	Err error
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		chunks: make(map[string]*model.Chunk),
		inline: make(map[string]*model.InlineChunk),
		calls:  make(map[string]int),
	}
}

// Calls returns how many times the named method has been called.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Reads returns the total number of read calls.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for m, c := range s.calls {
		if strings.HasPrefix(m, "Get") || strings.HasPrefix(m, "List") {
			n += c
		}
	}
	return n
}

// ChunkCount returns the number of stored global chunks.
func (s *Store) ChunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// PutChunk stores c directly, bypassing counters and constraints.
func (s *Store) PutChunk(c *model.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.chunks[cp.ID] = &cp
}

// PutInlineChunk stores c directly, bypassing counters and constraints.
func (s *Store) PutInlineChunk(c *model.InlineChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.inline[cp.ID] = &cp
}

func (s *Store) enter(method string) error {
	s.calls[method]++
	return s.Err
}

func (s *Store) CreateChunk(_ context.Context, c *model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateChunk"); err != nil {
		return err
	}
	for _, existing := range s.chunks {
		if existing.Key == c.Key {
			return fmt.Errorf("%w: chunks_key_unique", store.ErrDuplicate)
		}
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.chunks[c.ID] = &cp
	return nil
}

func (s *Store) GetChunk(_ context.Context, id string) (*model.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetChunk"); err != nil {
		return nil, err
	}
	c, ok := s.chunks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetChunkByKey(_ context.Context, key string) (*model.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetChunkByKey"); err != nil {
		return nil, err
	}
	for _, c := range s.chunks {
		if c.Key == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) ListChunks(_ context.Context, filter model.ChunkFilter) ([]*model.Chunk, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListChunks"); err != nil {
		return nil, 0, err
	}
	var out []*model.Chunk
	for _, c := range s.chunks {
		if filter.Search != "" && !matches(filter.Search, c.Description, c.Key, c.Content) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	total := len(out)
	return page(out, filter.Limit, filter.Offset), total, nil
}

func (s *Store) UpdateChunk(_ context.Context, c *model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateChunk"); err != nil {
		return err
	}
	existing, ok := s.chunks[c.ID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, other := range s.chunks {
		if other.ID != c.ID && other.Key == c.Key {
			return fmt.Errorf("%w: chunks_key_unique", store.ErrDuplicate)
		}
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.chunks[c.ID] = &cp
	return nil
}

func (s *Store) DeleteChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteChunk"); err != nil {
		return err
	}
	if _, ok := s.chunks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.chunks, id)
	return nil
}

func (s *Store) CreateInlineChunk(_ context.Context, c *model.InlineChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateInlineChunk"); err != nil {
		return err
	}
	if s.inlineConflict(c) {
		return fmt.Errorf("%w: inline_chunks_owner_key_unique", store.ErrDuplicate)
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.inline[c.ID] = &cp
	return nil
}

func (s *Store) GetInlineChunk(_ context.Context, id string) (*model.InlineChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetInlineChunk"); err != nil {
		return nil, err
	}
	c, ok := s.inline[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetInlineChunkByKey(_ context.Context, owner model.OwnerRef, key string) (*model.InlineChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetInlineChunkByKey"); err != nil {
		return nil, err
	}
	for _, c := range s.inline {
		if c.Owner == owner && c.Key == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) ListInlineChunks(_ context.Context, filter model.InlineChunkFilter) ([]*model.InlineChunk, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListInlineChunks"); err != nil {
		return nil, 0, err
	}
	var out []*model.InlineChunk
	for _, c := range s.inline {
		if filter.Owner != nil && c.Owner != *filter.Owner {
			continue
		}
		if filter.Search != "" && !matches(filter.Search, c.Description, c.Key, c.Content) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Owner.Type != b.Owner.Type {
			return a.Owner.Type < b.Owner.Type
		}
		if a.Owner.ID != b.Owner.ID {
			return a.Owner.ID < b.Owner.ID
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Key < b.Key
	})
	total := len(out)
	return page(out, filter.Limit, filter.Offset), total, nil
}

func (s *Store) UpdateInlineChunk(_ context.Context, c *model.InlineChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateInlineChunk"); err != nil {
		return err
	}
	existing, ok := s.inline[c.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if s.inlineConflict(c) {
		return fmt.Errorf("%w: inline_chunks_owner_key_unique", store.ErrDuplicate)
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.inline[c.ID] = &cp
	return nil
}

func (s *Store) DeleteInlineChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteInlineChunk"); err != nil {
		return err
	}
	if _, ok := s.inline[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.inline, id)
	return nil
}

// RunInTransaction calls fn with the store itself; writes are not rolled back.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *Store) Close() error { return nil }

func (s *Store) inlineConflict(c *model.InlineChunk) bool {
	for _, other := range s.inline {
		if other.ID != c.ID && other.Owner == c.Owner && other.Key == c.Key {
			return true
		}
	}
	return false
}

func matches(search string, fields ...string) bool {
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
