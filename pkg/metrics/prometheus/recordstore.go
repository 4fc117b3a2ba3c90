package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vladg14/libbitcoin-database/pkg/metrics"
	"github.com/vladg14/libbitcoin-database/pkg/recordstore"
)

func init() {
	metrics.RegisterRecordStoreMetricsConstructor(newRecordStoreMetrics)
}

type recordStoreMetrics struct {
	allocateBytes prometheus.Histogram
	spends        prometheus.Counter
}

func newRecordStoreMetrics() recordstore.Metrics {
	reg := metrics.GetRegistry()
	return &recordStoreMetrics{
		allocateBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "txdb_recordstore_allocate_bytes",
			Help:    "Distribution of record sizes allocated in the heap.",
			Buckets: []float64{64, 128, 256, 512, 1024, 4096, 16384, 65536},
		}),
		spends: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_recordstore_spends_total",
			Help: "Total number of output spend/unspend header updates.",
		}),
	}
}

func (m *recordStoreMetrics) IsEnabled() bool { return true }

func (m *recordStoreMetrics) ObserveAllocate(size int) { m.allocateBytes.Observe(float64(size)) }

func (m *recordStoreMetrics) ObserveSpend() { m.spends.Inc() }
