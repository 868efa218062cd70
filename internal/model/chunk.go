package model

import (
	"fmt"
	"time"
)

// Chunk is a piece of content associated with a unique key that can be
// inserted into any template.
type Chunk struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Content     string    `json:"content"`
	Description string    `json:"description"`
	Builder     string    `json:"builder,omitempty"` // pinned builder ident; empty = key-based choice
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecordKey returns the chunk key.
func (c *Chunk) RecordKey() string { return c.Key }

// RecordContent returns the stored content.
func (c *Chunk) RecordContent() string { return c.Content }

// RecordBuilder returns the pinned builder ident, if any.
func (c *Chunk) RecordBuilder() string { return c.Builder }

// InlineChunk is a chunk scoped to an owning record. Keys are unique only
// within the same owner.
type InlineChunk struct {
	ID          string    `json:"id"`
	Owner       OwnerRef  `json:"owner"`
	Key         string    `json:"key"`
	Content     string    `json:"content"`
	Description string    `json:"description"`
	Builder     string    `json:"builder,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecordKey returns the chunk key.
func (c *InlineChunk) RecordKey() string { return c.Key }

// RecordContent returns the stored content.
func (c *InlineChunk) RecordContent() string { return c.Content }

// RecordBuilder returns the pinned builder ident, if any.
func (c *InlineChunk) RecordBuilder() string { return c.Builder }

// Record is implemented by both chunk kinds so builders can treat them alike.
type Record interface {
	RecordKey() string
	RecordContent() string
	RecordBuilder() string
}

// Owner is implemented by any entity that can own inline chunks.
type Owner interface {
	OwnerType() string
	OwnerID() string
}

// OwnerRef is a weak reference to an owning record: a type tag plus an id.
// It never implies ownership of the referenced record.
type OwnerRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// OwnerType returns the owner's type tag.
func (o OwnerRef) OwnerType() string { return o.Type }

// OwnerID returns the owner's id.
func (o OwnerRef) OwnerID() string { return o.ID }

// IsZero reports whether the reference is empty.
func (o OwnerRef) IsZero() bool { return o.Type == "" && o.ID == "" }

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s#%s", o.Type, o.ID)
}

// Ref normalizes an Owner into an OwnerRef.
func Ref(o Owner) OwnerRef {
	if r, ok := o.(OwnerRef); ok {
		return r
	}
	if r, ok := o.(*OwnerRef); ok && r != nil {
		return *r
	}
	return OwnerRef{Type: o.OwnerType(), ID: o.OwnerID()}
}

// ChunkFilter holds criteria for listing global chunks.
type ChunkFilter struct {
	Search string `json:"search,omitempty"` // case-insensitive match on description, key, content
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// InlineChunkFilter holds criteria for listing inline chunks.
type InlineChunkFilter struct {
	Owner  *OwnerRef `json:"owner,omitempty"`
	Search string    `json:"search,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}
