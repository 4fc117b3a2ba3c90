// Package prometheus implements the Metrics interfaces defined by each
// domain package (filemap, recordindex, outputcache, recordstore, txdb)
// against the Prometheus client library, and registers its constructors
// into pkg/metrics on init so the domain packages never have to import
// this package directly.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vladg14/libbitcoin-database/pkg/filemap"
	"github.com/vladg14/libbitcoin-database/pkg/metrics"
)

func init() {
	metrics.RegisterFileMapMetricsConstructor(newFileMapMetrics)
}

type fileMapMetrics struct {
	grows      prometheus.Counter
	mappedSize prometheus.Gauge
}

func newFileMapMetrics() filemap.Metrics {
	reg := metrics.GetRegistry()
	return &fileMapMetrics{
		grows: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_filemap_grows_total",
			Help: "Total number of mmap growth operations.",
		}),
		mappedSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "txdb_filemap_mapped_size_bytes",
			Help: "Current size of the memory-mapped region in bytes.",
		}),
	}
}

func (m *fileMapMetrics) IsEnabled() bool { return true }

func (m *fileMapMetrics) ObserveGrow(newMappedSize uint64) {
	m.grows.Inc()
	m.mappedSize.Set(float64(newMappedSize))
}
