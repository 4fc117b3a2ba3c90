package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vladg14/libbitcoin-database/pkg/metrics"
	"github.com/vladg14/libbitcoin-database/pkg/recordindex"
)

func init() {
	metrics.RegisterRecordIndexMetricsConstructor(newRecordIndexMetrics)
}

// recordIndexMetrics instruments the embedded badger-backed hash directory,
// in the same style as the teacher's BadgerDB cache-hit/miss counters.
type recordIndexMetrics struct {
	links      prometheus.Counter
	findHits   prometheus.Counter
	findMisses prometheus.Counter
}

func newRecordIndexMetrics() recordindex.Metrics {
	reg := metrics.GetRegistry()
	return &recordIndexMetrics{
		links: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_recordindex_links_total",
			Help: "Total number of hash-to-link entries written to the directory.",
		}),
		findHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_recordindex_find_hits_total",
			Help: "Total number of Find lookups that resolved to a collision chain.",
		}),
		findMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_recordindex_find_misses_total",
			Help: "Total number of Find lookups for an unknown hash.",
		}),
	}
}

func (m *recordIndexMetrics) IsEnabled() bool { return true }

func (m *recordIndexMetrics) ObserveLink() { m.links.Inc() }

func (m *recordIndexMetrics) ObserveFind(hit bool) {
	if hit {
		m.findHits.Inc()
		return
	}
	m.findMisses.Inc()
}
