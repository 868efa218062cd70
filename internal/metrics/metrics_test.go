package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

// counterValue returns the value of the named counter with the given labels.
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	m := New()
	m.CacheRequest("item", "hit")
	m.CacheRequest("item", "hit")
	m.CacheRequest("", "miss")
	m.Autocreated()
	m.Invalidated("inline")
	m.OverlayFailed()
	m.EventPublished("chunks.chunk.saved", nil)
	m.EventPublished("chunks.chunk.saved", errors.New("boom"))
	m.SyncWrite("s3://b/k", "unchanged")

	for _, tc := range []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"chunks_cache_requests_total", map[string]string{"kind": "item", "result": "hit"}, 2},
		{"chunks_cache_requests_total", map[string]string{"kind": "unknown", "result": "miss"}, 1},
		{"chunks_autocreated_total", nil, 1},
		{"chunks_invalidations_total", map[string]string{"kind": "inline"}, 1},
		{"chunks_overlay_failures_total", nil, 1},
		{"chunks_events_published_total", map[string]string{"topic": "chunks.chunk.saved", "result": "error"}, 1},
		{"chunks_sync_writes_total", map[string]string{"destination": "s3://b/k", "result": "unchanged"}, 1},
	} {
		if got := counterValue(t, m, tc.name, tc.labels); got != tc.want {
			t.Errorf("%s%v = %v, want %v", tc.name, tc.labels, got, tc.want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CacheRequest("item", "hit")
	m.Autocreated()
	m.Invalidated("chunk")
	m.OverlayFailed()
	m.EventPublished("x", nil)
	m.SyncWrite("git:x", "ok")
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Autocreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "chunks_autocreated_total 1") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}
