package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vladg14/libbitcoin-database/pkg/metrics"
	"github.com/vladg14/libbitcoin-database/pkg/outputcache"
)

func init() {
	metrics.RegisterOutputCacheMetricsConstructor(newOutputCacheMetrics)
}

type outputCacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

func newOutputCacheMetrics() outputcache.Metrics {
	reg := metrics.GetRegistry()
	return &outputCacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_outputcache_hits_total",
			Help: "Total number of output cache lookups that hit.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_outputcache_misses_total",
			Help: "Total number of output cache lookups that missed.",
		}),
	}
}

func (m *outputCacheMetrics) IsEnabled() bool { return true }

func (m *outputCacheMetrics) ObserveLookup(hit bool) {
	if hit {
		m.hits.Inc()
		return
	}
	m.misses.Inc()
}
