// Package metrics exports cache statistics and submission outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"goflare.io/changedesk/internal/models"
)

const namespace = "changedesk"

// StatsSource reports current cache statistics.
type StatsSource interface {
	Stats() models.CacheStats
}

// Collector reads cache statistics at scrape time and counts submission
// and refresh outcomes as they happen.
type Collector struct {
	source StatsSource

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	errors  *prometheus.Desc
	size    *prometheus.Desc
	hitRate *prometheus.Desc

	submissions *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
}

// New creates a new Collector instance.
func New(source StatsSource) *Collector {
	return &Collector{
		source:  source,
		hits:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "hits_total"), "Cache lookups that found a live entry.", nil, nil),
		misses:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "misses_total"), "Cache lookups that found nothing or an expired entry.", nil, nil),
		errors:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "errors_total"), "Cache operations that failed.", nil, nil),
		size:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "entries"), "Entries currently stored.", nil, nil),
		hitRate: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "hit_ratio"), "Hits divided by hits plus misses.", nil, nil),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "changes",
			Name:      "submissions_total",
			Help:      "Change request submissions by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "refreshes_total",
			Help:      "Bulk search data refreshes by result.",
		}, []string{"result"}),
	}
}

// Register adds the collector to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	return reg.Register(c)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.errors
	ch <- c.size
	ch <- c.hitRate
	c.submissions.Describe(ch)
	c.refreshes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source != nil {
		stats := c.source.Stats()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(stats.Errors))
		ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(stats.Size))
		ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, stats.HitRate)
	}
	c.submissions.Collect(ch)
	c.refreshes.Collect(ch)
}

// ObserveSubmission counts one submission outcome.
func (c *Collector) ObserveSubmission(outcome string) {
	c.submissions.WithLabelValues(outcome).Inc()
}

// ObserveRefresh counts one bulk refresh.
func (c *Collector) ObserveRefresh(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.refreshes.WithLabelValues(result).Inc()
}
