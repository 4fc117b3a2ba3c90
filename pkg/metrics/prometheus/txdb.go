package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vladg14/libbitcoin-database/pkg/metrics"
	"github.com/vladg14/libbitcoin-database/pkg/txdb"
)

func init() {
	metrics.RegisterTxDBMetricsConstructor(newTxDBMetrics)
}

type txDBMetrics struct {
	stores      prometheus.Counter
	confirms    prometheus.Counter
	unconfirms  prometheus.Counter
	prevoutHits *prometheus.CounterVec
}

func newTxDBMetrics() txdb.Metrics {
	reg := metrics.GetRegistry()
	return &txDBMetrics{
		stores: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_stores_total",
			Help: "Total number of transactions stored.",
		}),
		confirms: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_confirms_total",
			Help: "Total number of transactions confirmed.",
		}),
		unconfirms: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "txdb_unconfirms_total",
			Help: "Total number of transactions unconfirmed.",
		}),
		prevoutHits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "txdb_prevout_lookups_total",
			Help: "Total number of prevout resolutions by outcome.",
		}, []string{"result"}), // "hit", "miss"
	}
}

func (m *txDBMetrics) IsEnabled() bool   { return true }
func (m *txDBMetrics) ObserveStore()     { m.stores.Inc() }
func (m *txDBMetrics) ObserveConfirm()   { m.confirms.Inc() }
func (m *txDBMetrics) ObserveUnconfirm() { m.unconfirms.Inc() }

func (m *txDBMetrics) ObservePrevout(hit bool) {
	if hit {
		m.prevoutHits.WithLabelValues("hit").Inc()
		return
	}
	m.prevoutHits.WithLabelValues("miss").Inc()
}
