package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/chunks/internal/model"
)

// ErrDuplicate is returned when a write violates a uniqueness constraint
// (chunk key, or key+owner for inline chunks). Not-found is reported as
// sql.ErrNoRows.
var ErrDuplicate = errors.New("duplicate chunk key")

// Store defines the persistence interface for chunks.
type Store interface {
	// Global chunks
	CreateChunk(ctx context.Context, chunk *model.Chunk) error
	GetChunk(ctx context.Context, id string) (*model.Chunk, error)
	GetChunkByKey(ctx context.Context, key string) (*model.Chunk, error)
	ListChunks(ctx context.Context, filter model.ChunkFilter) ([]*model.Chunk, int, error) // returns chunks, total count, error
	UpdateChunk(ctx context.Context, chunk *model.Chunk) error
	DeleteChunk(ctx context.Context, id string) error

	// Inline chunks
	CreateInlineChunk(ctx context.Context, chunk *model.InlineChunk) error
	GetInlineChunk(ctx context.Context, id string) (*model.InlineChunk, error)
	GetInlineChunkByKey(ctx context.Context, owner model.OwnerRef, key string) (*model.InlineChunk, error)
	ListInlineChunks(ctx context.Context, filter model.InlineChunkFilter) ([]*model.InlineChunk, int, error)
	UpdateInlineChunk(ctx context.Context, chunk *model.InlineChunk) error
	DeleteInlineChunk(ctx context.Context, id string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
