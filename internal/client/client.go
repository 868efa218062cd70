// Package client provides a transport-agnostic interface for the chunks
// service and an HTTP/JSON implementation that talks to its admin API.
package client

import (
	"context"

	"github.com/alfredjeanlab/chunks/internal/builder"
	"github.com/alfredjeanlab/chunks/internal/model"
)

// ChunksClient is the interface that all CLI commands use to communicate
// with the chunks server.
type ChunksClient interface {
	// Global chunks
	CreateChunk(ctx context.Context, req *CreateChunkRequest) (*model.Chunk, error)
	GetChunk(ctx context.Context, id string) (*model.Chunk, error)
	GetChunkByKey(ctx context.Context, key string) (*model.Chunk, error)
	ListChunks(ctx context.Context, req *ListChunksRequest) (*ListChunksResponse, error)
	UpdateChunk(ctx context.Context, id string, req *UpdateChunkRequest) (*model.Chunk, error)
	DeleteChunk(ctx context.Context, id string) error

	// Inline chunks
	CreateInlineChunk(ctx context.Context, req *CreateInlineChunkRequest) (*model.InlineChunk, error)
	GetInlineChunk(ctx context.Context, id string) (*model.InlineChunk, error)
	ListInlineChunks(ctx context.Context, req *ListInlineChunksRequest) (*ListInlineChunksResponse, error)
	UpdateInlineChunk(ctx context.Context, id string, req *UpdateInlineChunkRequest) (*model.InlineChunk, error)
	DeleteInlineChunk(ctx context.Context, id string) error

	// Rendering
	Render(ctx context.Context, key string) (string, error)
	RenderScoped(ctx context.Context, owner model.OwnerRef, key, defaultKey string) (string, error)
	RenderOwner(ctx context.Context, owner model.OwnerRef) (map[string]string, error)

	// Builders
	ListBuilders(ctx context.Context) ([]builder.Choice, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateChunkRequest holds parameters for creating a global chunk.
type CreateChunkRequest struct {
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Builder     string `json:"builder,omitempty"`
}

// ListChunksRequest holds parameters for listing global chunks.
type ListChunksRequest struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ListChunksResponse is the response from ListChunks.
type ListChunksResponse struct {
	Chunks []*model.Chunk `json:"chunks"`
	Total  int            `json:"total"`
}

// UpdateChunkRequest holds optional parameters for updating a chunk.
// Nil pointer fields mean "don't change".
type UpdateChunkRequest struct {
	Key         *string `json:"key,omitempty"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
	Builder     *string `json:"builder,omitempty"`
}

// CreateInlineChunkRequest holds parameters for creating an inline chunk.
type CreateInlineChunkRequest struct {
	OwnerType   string `json:"owner_type"`
	OwnerID     string `json:"owner_id"`
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Builder     string `json:"builder,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// ListInlineChunksRequest holds parameters for listing inline chunks.
// The owner filter applies only when both OwnerType and OwnerID are set.
type ListInlineChunksRequest struct {
	OwnerType string `json:"owner_type,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ListInlineChunksResponse is the response from ListInlineChunks.
type ListInlineChunksResponse struct {
	InlineChunks []*model.InlineChunk `json:"inline_chunks"`
	Total        int                  `json:"total"`
}

// UpdateInlineChunkRequest holds optional parameters for updating an
// inline chunk. Nil pointer fields mean "don't change".
type UpdateInlineChunkRequest struct {
	OwnerType   *string `json:"owner_type,omitempty"`
	OwnerID     *string `json:"owner_id,omitempty"`
	Key         *string `json:"key,omitempty"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
	Builder     *string `json:"builder,omitempty"`
	Order       *int    `json:"order,omitempty"`
}
