// Package cache provides the key-value cache fronting chunk resolution.
// Entries are derived data; the store is always authoritative.
package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/chunks/internal/model"
)

// Cache is a byte-valued cache with per-entry TTL. A ttl of 0 means the
// entry never expires on its own and lives until deleted.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const prefix = "chunks"

// Key kinds. Each kind is the second component of a cache key.
const (
	KindItem   = "item"
	KindInline = "inline"
	KindOwner  = "owner"
)

// ItemKey is the cache key for a global chunk.
func ItemKey(key string) string {
	return join(KindItem, key)
}

// InlineKey is the cache key for one inline chunk of owner.
func InlineKey(owner model.OwnerRef, key string) string {
	return join(KindInline, owner.Type, owner.ID, key)
}

// OwnerKey is the cache key for the full key→content map of owner.
func OwnerKey(owner model.OwnerRef) string {
	return join(KindOwner, owner.Type, owner.ID)
}

// KindOf returns the kind component of a key built by this package.
func KindOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 || parts[0] != prefix {
		return ""
	}
	return parts[1]
}

// join escapes every component so ':' only ever appears as a separator.
func join(kind string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	sb.WriteString(kind)
	for _, p := range parts {
		sb.WriteByte(':')
		sb.WriteString(url.QueryEscape(p))
	}
	return sb.String()
}
