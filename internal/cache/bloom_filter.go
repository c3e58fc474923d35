package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/config"
)

// KeyFilter remembers which keys were ever stored so lookups for unknown keys skip the map.
type KeyFilter struct {
	settings config.BloomFilterConfig
	filter   *bloom.BloomFilter
	logger   *zap.Logger
	mutex    sync.Mutex
}

// NewKeyFilter creates a new KeyFilter instance.
func NewKeyFilter(settings config.BloomFilterConfig, logger *zap.Logger) *KeyFilter {
	return &KeyFilter{
		settings: settings,
		filter:   bloom.NewWithEstimates(settings.ExpectedItems, settings.FalsePositiveRate),
		logger:   logger,
	}
}

// Add adds a key to the filter.
func (kf *KeyFilter) Add(key string) {
	kf.mutex.Lock()
	defer kf.mutex.Unlock()
	kf.filter.AddString(key)
}

// Test reports whether key might have been added.
func (kf *KeyFilter) Test(key string) bool {
	kf.mutex.Lock()
	defer kf.mutex.Unlock()
	return kf.filter.TestString(key)
}

// Rebuild replaces the filter with one holding only keys.
func (kf *KeyFilter) Rebuild(keys []string) {
	newFilter := bloom.NewWithEstimates(kf.settings.ExpectedItems, kf.settings.FalsePositiveRate)
	for _, key := range keys {
		newFilter.AddString(key)
	}

	kf.mutex.Lock()
	kf.filter = newFilter
	kf.mutex.Unlock()

	kf.logger.Debug("Rebuilt cache key filter", zap.Int("keys", len(keys)))
}
