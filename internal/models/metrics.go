package models

import "go.uber.org/atomic"

// Metrics stores running cache counters.
type Metrics struct {
	Hits   *atomic.Int64
	Misses *atomic.Int64
	Errors *atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		Hits:   atomic.NewInt64(0),
		Misses: atomic.NewInt64(0),
		Errors: atomic.NewInt64(0),
	}
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.Hits.Store(0)
	m.Misses.Store(0)
	m.Errors.Store(0)
}

// Snapshot copies the counters into a CacheStats value.
func (m *Metrics) Snapshot(size int) CacheStats {
	hits, misses := m.Hits.Load(), m.Misses.Load()
	stats := CacheStats{
		Size:   size,
		Hits:   hits,
		Misses: misses,
		Errors: m.Errors.Load(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// CacheStats is a point-in-time view of the cache counters.
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}
