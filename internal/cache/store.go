// Package cache implements the bounded, TTL-based store that backs every search lookup.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/models"
)

// Store is a volatile key/value store with lazy expiry and oldest-first eviction.
// Failures inside the store are counted and logged, never returned to callers.
type Store struct {
	mu      sync.Mutex
	entries map[string]*models.Entry
	seq     uint64

	maxAge  time.Duration
	maxSize int
	now     func() time.Time

	metrics *models.Metrics
	filter  *KeyFilter
	logger  *zap.Logger
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new Store instance.
func New(cfg config.CacheConfig, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		entries: make(map[string]*models.Entry, cfg.MaxSize),
		maxAge:  cfg.MaxAge,
		maxSize: cfg.MaxSize,
		now:     time.Now,
		metrics: models.NewMetrics(),
		filter:  NewKeyFilter(cfg.BloomFilterSettings, logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the data stored under key while it is younger than maxAge.
// Expired entries are deleted on access.
func (s *Store) Get(key string) (data any, found bool) {
	if key == "" {
		s.metrics.Errors.Inc()
		s.logger.Warn("Attempted to get cached data with invalid key", zap.Error(models.ErrInvalidKey))
		return nil, false
	}
	defer s.recoverInto("get", key, func() { data, found = nil, false })

	if !s.filter.Test(key) {
		s.metrics.Misses.Inc()
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.metrics.Misses.Inc()
		return nil, false
	}

	if entry.IsExpired(s.now(), s.maxAge) {
		delete(s.entries, key)
		s.metrics.Misses.Inc()
		s.logger.Debug("Cache entry expired", zap.String("key", key))
		return nil, false
	}

	s.metrics.Hits.Inc()
	return entry.Data, true
}

// Set stores data under key, evicting the oldest entry when the store is full.
// It returns false for an empty key or nil data.
func (s *Store) Set(key string, data any) (ok bool) {
	if key == "" || data == nil {
		s.logger.Warn("Attempted to cache invalid data", zap.String("key", key), zap.Bool("nilData", data == nil))
		return false
	}
	defer s.recoverInto("set", key, func() { ok = false })

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	s.seq++
	s.entries[key] = models.NewEntry(key, data, s.now(), s.seq)
	s.filter.Add(key)
	return true
}

// evictOldest removes the entry with the smallest timestamp. Callers hold mu.
func (s *Store) evictOldest() {
	var oldest *models.Entry
	for _, entry := range s.entries {
		if oldest == nil || entry.OlderThan(oldest) {
			oldest = entry
		}
	}
	if oldest == nil {
		return
	}
	delete(s.entries, oldest.Key)
	s.logger.Debug("Evicted oldest cache entry", zap.String("key", oldest.Key))
}

// Invalidate removes every key starting with "<prefix>_" for each prefix given.
// Without a prefix it clears the store.
func (s *Store) Invalidate(prefix ...string) (ok bool) {
	defer s.recoverInto("invalidate", strings.Join(prefix, ","), func() { ok = false })

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(prefix) == 0 || prefix[0] == "" {
		s.entries = make(map[string]*models.Entry, s.maxSize)
		s.filter.Rebuild(nil)
		return true
	}
	for _, p := range prefix {
		if p == "" {
			continue
		}
		match := p + "_"
		for key := range s.entries {
			if strings.HasPrefix(key, match) {
				delete(s.entries, key)
			}
		}
	}
	// The filter is rebuilt under mu so a concurrent Set cannot be dropped from it.
	s.filter.Rebuild(s.keysLocked())
	return true
}

// Stats returns the current counters and size.
func (s *Store) Stats() models.CacheStats {
	return s.metrics.Snapshot(s.Len())
}

// ResetStats zeroes the hit, miss and error counters.
func (s *Store) ResetStats() {
	s.metrics.Reset()
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked()
}

func (s *Store) keysLocked() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// recoverInto turns a panic inside an operation into a counted error.
func (s *Store) recoverInto(op, key string, fallback func()) {
	if r := recover(); r != nil {
		s.metrics.Errors.Inc()
		s.logger.Error("Cache operation failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(fmt.Errorf("%v", r)))
		fallback()
	}
}

// Lookup fetches key and asserts its type. A mismatch counts as an error.
func Lookup[T any](s *Store, key string) (T, bool) {
	var zero T
	data, found := s.Get(key)
	if !found {
		return zero, false
	}
	value, ok := data.(T)
	if !ok {
		s.metrics.Errors.Inc()
		s.logger.Error("Unexpected cached data type",
			zap.String("key", key),
			zap.String("type", fmt.Sprintf("%T", data)))
		return zero, false
	}
	return value, true
}
