// Package idgen generates short, URL-safe record IDs for chunks.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Record ID prefixes. The prefix tells the two chunk tables apart in logs,
// URLs and backup exports.
const (
	ChunkPrefix  = "ch-"
	InlinePrefix = "ic-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// ChunkID returns a new ID for a global chunk.
func ChunkID() (string, error) {
	return withPrefix(ChunkPrefix)
}

// InlineChunkID returns a new ID for an inline chunk.
func InlineChunkID() (string, error) {
	return withPrefix(InlinePrefix)
}

func withPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
