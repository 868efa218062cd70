package request

import (
	"net/url"
	"sync"
)

// Entry identifies one chunk resolved during a request.
type Entry struct {
	ID          string `json:"id,omitempty"`
	Key         string `json:"key"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Exists      bool   `json:"exists"`
}

// EditURL links to the admin edit form for an existing chunk, or to the
// create form prefilled with the key when there is no backing record.
func (e Entry) EditURL() string {
	if e.Exists && e.ID != "" {
		return "/admin/chunks/" + url.PathEscape(e.ID)
	}
	return "/admin/chunks/new?key=" + url.QueryEscape(e.Key)
}

// Collector accumulates chunk entries for a single request. It is read
// once when the response is finalized; later reads return nil.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	drained bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records e. Adds after the collector has been drained are dropped.
func (c *Collector) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drained {
		return
	}
	c.entries = append(c.entries, e)
}

// Entries returns the collected entries and marks the collector drained.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drained {
		return nil
	}
	c.drained = true
	out := c.entries
	c.entries = nil
	return out
}

// Len returns the number of entries collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
