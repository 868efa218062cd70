package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/chunks/internal/metrics"
	"github.com/alfredjeanlab/chunks/internal/store"
)

// Destination is a backup target for export payloads.
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Write stores the JSONL payload.
	Write(ctx context.Context, data []byte) error
}

// Scheduler exports the store on an interval and fans the payload out to
// its destinations. A destination is skipped when its last successful
// write already holds the same records.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	mu     sync.Mutex
	synced map[string]string // destination name -> records digest

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. m may be nil.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		metrics:      m,
		logger:       logger,
		synced:       make(map[string]string),
	}
}

// Start syncs immediately and then on every tick until Stop. A
// non-positive interval syncs once.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight sync.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.tick(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("sync failed", "err", err)
	}
}

// RunOnce exports the store and writes the payload to every destination
// whose copy is stale. Failures do not stop other destinations; they are
// returned joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		return fmt.Errorf("sync export: %w", err)
	}
	data := buf.Bytes()
	digest := recordsDigest(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		errs    []error
		written int
	)
	for _, dest := range s.destinations {
		name := dest.Name()
		if s.synced[name] == digest {
			s.metrics.SyncWrite(name, "unchanged")
			continue
		}
		if err := dest.Write(ctx, data); err != nil {
			s.metrics.SyncWrite(name, "error")
			s.logger.Error("sync destination write failed", "destination", name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		s.synced[name] = digest
		s.metrics.SyncWrite(name, "ok")
		written++
	}

	s.logger.Info("sync completed",
		"destinations", len(s.destinations),
		"written", written,
		"failed", len(errs),
		"bytes", len(data),
	)
	return errors.Join(errs...)
}
