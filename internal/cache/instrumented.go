package cache

import (
	"context"
	"time"

	"github.com/alfredjeanlab/chunks/internal/metrics"
)

// Instrumented wraps a Cache and records request outcomes per key kind.
type Instrumented struct {
	next    Cache
	metrics *metrics.Metrics
}

// NewInstrumented wraps next. A nil m disables recording.
func NewInstrumented(next Cache, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.next.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	c.metrics.CacheRequest(KindOf(key), result)
	return v, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	c.metrics.CacheRequest(KindOf(key), "set")
	return err
}

func (c *Instrumented) Delete(ctx context.Context, keys ...string) error {
	err := c.next.Delete(ctx, keys...)
	for _, k := range keys {
		c.metrics.CacheRequest(KindOf(k), "delete")
	}
	return err
}
