package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the entry bound used when NewMemory is given a
// non-positive size.
const DefaultMemorySize = 10000

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Cache bounded to a fixed number of entries; the
// least recently used entry is evicted first. Expired entries are dropped
// on read and by a periodic sweep once Start is called.
type Memory struct {
	// mu orders expiry removal against Set so a fresh value is never
	// dropped in place of the expired one it replaced.
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	now     func() time.Time

	sweepEvery time.Duration
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Compile-time check that Memory implements Cache.
var _ Cache = (*Memory)(nil)

// NewMemory creates an empty memory cache holding at most size entries
// (DefaultMemorySize when size <= 0). It sweeps expired entries every
// sweepEvery after Start; a non-positive interval defaults to one minute.
func NewMemory(size int, sweepEvery time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	// lru.New fails only for a non-positive size.
	entries, _ := lru.New[string, entry](size)
	return &Memory{
		entries:    entries,
		now:        time.Now,
		sweepEvery: sweepEvery,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		m.removeIfExpired(key, m.now())
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries.Add(key, e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.entries.Remove(k)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	return m.entries.Len()
}

// Sweep removes expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	n := 0
	for _, k := range m.entries.Keys() {
		if m.removeIfExpired(k, now) {
			n++
		}
	}
	return n
}

func (m *Memory) removeIfExpired(key string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries.Peek(key)
	if !ok || !cur.expired(now) {
		return false
	}
	return m.entries.Remove(key)
}

// Start begins the background sweeper.
func (m *Memory) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit.
func (m *Memory) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
