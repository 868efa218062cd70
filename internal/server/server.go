// Package server exposes chunks over HTTP: an admin JSON API, the
// request middleware that drives wrap mode, and template-backed pages.
package server

import (
	"log/slog"

	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/resolve"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// ChunksServer serves the admin API on top of a store and a resolution
// service. Writes go through the service so the cache stays coherent.
type ChunksServer struct {
	store   store.Store
	svc     *resolve.Service
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewChunksServer returns a ChunksServer. Nil metrics disables /metrics.
func NewChunksServer(s store.Store, svc *resolve.Service, m *metrics.Metrics, logger *slog.Logger) *ChunksServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunksServer{store: s, svc: svc, metrics: m, log: logger}
}
