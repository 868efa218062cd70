package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/chunks/internal/cache"
	"github.com/alfredjeanlab/chunks/internal/events"
	"github.com/alfredjeanlab/chunks/internal/metrics"
)

// Invalidator drops local cache entries for chunk writes made by other
// instances, as announced on the event bus.
type Invalidator struct {
	cache   cache.Cache
	source  string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewInvalidator creates an Invalidator for c. Events stamped with source
// were already applied locally and are skipped.
func NewInvalidator(c cache.Cache, source string, m *metrics.Metrics, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{cache: c, source: source, metrics: m, logger: logger}
}

// Run listens for chunk events and invalidates matching entries. It
// blocks until ctx is cancelled or the subscription closes.
func (i *Invalidator) Run(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("invalidator: subscribe: %w", err)
	}
	defer cancel()

	i.logger.Info("invalidator: subscriber started")

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("invalidator: subscriber stopping")
			return nil
		case env, ok := <-ch:
			if !ok {
				i.logger.Info("invalidator: subscription channel closed")
				return nil
			}
			i.Handle(ctx, env)
		}
	}
}

// Handle applies a single event.
func (i *Invalidator) Handle(ctx context.Context, env events.Envelope) {
	var (
		kind   string
		keys   []string
		source string
	)
	if events.IsInline(env.Topic) {
		var evt events.InlineEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			i.logger.Warn("invalidator: bad event payload", "topic", env.Topic, "err", err)
			return
		}
		kind, keys, source = "inline", inlineKeys(evt), evt.Source
	} else {
		var evt events.ChunkEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			i.logger.Warn("invalidator: bad event payload", "topic", env.Topic, "err", err)
			return
		}
		kind, keys, source = "chunk", chunkKeys(evt), evt.Source
	}

	if source != "" && source == i.source {
		return
	}
	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.logger.Warn("invalidator: cache delete failed", "topic", env.Topic, "err", err)
		return
	}
	i.metrics.Invalidated(kind)
}
