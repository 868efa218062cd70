package resolve

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/events"
	"github.com/alfredjeanlab/chunks/internal/idgen"
	"github.com/alfredjeanlab/chunks/internal/model"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// SaveChunk creates c when it has no ID and updates it otherwise. The
// cache entries for the new and any previous key are dropped before it
// returns.
func (s *Service) SaveChunk(ctx context.Context, c *model.Chunk) error {
	if err := model.ValidateChunk(c); err != nil {
		return err
	}

	var oldKey string
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if c.ID == "" {
			id, err := idgen.ChunkID()
			if err != nil {
				return err
			}
			c.ID = id
			return tx.CreateChunk(ctx, c)
		}
		old, err := tx.GetChunk(ctx, c.ID)
		if err != nil {
			return err
		}
		oldKey = old.Key
		return tx.UpdateChunk(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("save chunk: %w", err)
	}

	evt := events.ChunkEvent{Source: s.opts.Source, ID: c.ID, Key: c.Key}
	if oldKey != c.Key {
		evt.OldKey = oldKey
	}
	s.invalidate(ctx, "chunk", chunkKeys(evt)...)
	s.publish(ctx, events.TopicChunkSaved, evt)
	return nil
}

// DeleteChunk removes the chunk with id and drops its cache entry.
func (s *Service) DeleteChunk(ctx context.Context, id string) error {
	var key string
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		old, err := tx.GetChunk(ctx, id)
		if err != nil {
			return err
		}
		key = old.Key
		return tx.DeleteChunk(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}

	evt := events.ChunkEvent{Source: s.opts.Source, ID: id, Key: key}
	s.invalidate(ctx, "chunk", chunkKeys(evt)...)
	s.publish(ctx, events.TopicChunkDeleted, evt)
	return nil
}

// SaveInlineChunk creates or updates c. Its item entry and its owner's
// map are dropped, and so are those of its previous owner and key when
// the save moved it.
func (s *Service) SaveInlineChunk(ctx context.Context, c *model.InlineChunk) error {
	if err := model.ValidateInlineChunk(c); err != nil {
		return err
	}

	var old *model.InlineChunk
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if c.ID == "" {
			id, err := idgen.InlineChunkID()
			if err != nil {
				return err
			}
			c.ID = id
			return tx.CreateInlineChunk(ctx, c)
		}
		var err error
		old, err = tx.GetInlineChunk(ctx, c.ID)
		if err != nil {
			return err
		}
		return tx.UpdateInlineChunk(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("save inline chunk: %w", err)
	}

	evt := events.InlineEvent{Source: s.opts.Source, ID: c.ID, Owner: c.Owner, Key: c.Key}
	if old != nil {
		if old.Owner != c.Owner {
			prev := old.Owner
			evt.OldOwner = &prev
		}
		if old.Key != c.Key {
			evt.OldKey = old.Key
		}
	}
	s.invalidate(ctx, "inline", inlineKeys(evt)...)
	s.publish(ctx, events.TopicInlineSaved, evt)
	return nil
}

// DeleteInlineChunk removes the inline chunk with id and drops its item
// entry and its owner's map.
func (s *Service) DeleteInlineChunk(ctx context.Context, id string) error {
	var old *model.InlineChunk
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		old, err = tx.GetInlineChunk(ctx, id)
		if err != nil {
			return err
		}
		return tx.DeleteInlineChunk(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete inline chunk: %w", err)
	}

	evt := events.InlineEvent{Source: s.opts.Source, ID: id, Owner: old.Owner, Key: old.Key}
	s.invalidate(ctx, "inline", inlineKeys(evt)...)
	s.publish(ctx, events.TopicInlineDeleted, evt)
	return nil
}

// chunkKeys lists the cache keys a global chunk write makes stale.
func chunkKeys(evt events.ChunkEvent) []string {
	keys := []string{cache.ItemKey(evt.Key)}
	if evt.OldKey != "" && evt.OldKey != evt.Key {
		keys = append(keys, cache.ItemKey(evt.OldKey))
	}
	return keys
}

// inlineKeys lists the cache keys an inline chunk write makes stale.
func inlineKeys(evt events.InlineEvent) []string {
	keys := []string{cache.InlineKey(evt.Owner, evt.Key), cache.OwnerKey(evt.Owner)}

	oldOwner := evt.Owner
	if evt.OldOwner != nil {
		oldOwner = *evt.OldOwner
	}
	oldKey := evt.Key
	if evt.OldKey != "" {
		oldKey = evt.OldKey
	}
	if oldOwner != evt.Owner || oldKey != evt.Key {
		keys = append(keys, cache.InlineKey(oldOwner, oldKey))
	}
	if oldOwner != evt.Owner {
		keys = append(keys, cache.OwnerKey(oldOwner))
	}
	return keys
}

// invalidate drops keys from the cache. Failures are logged; entries left
// behind expire with their TTL.
func (s *Service) invalidate(ctx context.Context, kind string, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", "kind", kind, "keys", keys, "err", err)
		return
	}
	s.opts.Metrics.Invalidated(kind)
}

func (s *Service) publish(ctx context.Context, topic string, evt any) {
	err := s.opts.Publisher.Publish(ctx, topic, evt)
	s.opts.Metrics.EventPublished(topic, err)
	if err != nil {
		s.log.Warn("publish event failed", "topic", topic, "err", err)
	}
}
