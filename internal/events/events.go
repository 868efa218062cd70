// Package events publishes chunk change notifications so every server
// instance can drop stale cache entries.
package events

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/chunks/internal/model"
)

// Event topic constants
const (
	TopicChunkSaved    = "chunks.chunk.saved"
	TopicChunkDeleted  = "chunks.chunk.deleted"
	TopicInlineSaved   = "chunks.inline.saved"
	TopicInlineDeleted = "chunks.inline.deleted"

	// TopicAll matches every chunk topic.
	TopicAll = "chunks.>"
)

// ChunkEvent describes a write to a global chunk. OldKey is set when a
// save renamed the chunk.
type ChunkEvent struct {
	Source string `json:"source,omitempty"`
	ID     string `json:"id"`
	Key    string `json:"key"`
	OldKey string `json:"old_key,omitempty"`
}

// InlineEvent describes a write to an inline chunk. OldKey and OldOwner
// are set when a save moved the chunk.
type InlineEvent struct {
	Source   string          `json:"source,omitempty"`
	ID       string          `json:"id"`
	Owner    model.OwnerRef  `json:"owner"`
	Key      string          `json:"key"`
	OldOwner *model.OwnerRef `json:"old_owner,omitempty"`
	OldKey   string          `json:"old_key,omitempty"`
}

// Envelope pairs a topic with its raw payload as delivered by a Subscriber.
type Envelope struct {
	Topic string
	Data  []byte
}

// IsInline reports whether topic carries an InlineEvent.
func IsInline(topic string) bool {
	return strings.HasPrefix(topic, "chunks.inline.")
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
