package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goflare.io/changedesk/internal/models"
)

type staticStats models.CacheStats

func (s staticStats) Stats() models.CacheStats { return models.CacheStats(s) }

func TestCollectorExportsCacheStats(t *testing.T) {
	c := New(staticStats{Size: 4, Hits: 3, Misses: 1, Errors: 2, HitRate: 0.75})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, c.Register(reg))

	expected := `
# HELP changedesk_cache_entries Entries currently stored.
# TYPE changedesk_cache_entries gauge
changedesk_cache_entries 4
# HELP changedesk_cache_hit_ratio Hits divided by hits plus misses.
# TYPE changedesk_cache_hit_ratio gauge
changedesk_cache_hit_ratio 0.75
# HELP changedesk_cache_hits_total Cache lookups that found a live entry.
# TYPE changedesk_cache_hits_total counter
changedesk_cache_hits_total 3
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"changedesk_cache_entries", "changedesk_cache_hit_ratio", "changedesk_cache_hits_total")
	assert.NoError(t, err)
}

func TestObserveSubmissionAndRefresh(t *testing.T) {
	c := New(nil)

	c.ObserveSubmission("created")
	c.ObserveSubmission("created")
	c.ObserveSubmission("failed")
	c.ObserveRefresh(nil)
	c.ObserveRefresh(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissions.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshes.WithLabelValues("failure")))
	assert.Equal(t, 4, testutil.CollectAndCount(c))
}
