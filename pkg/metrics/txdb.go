package metrics

import "github.com/vladg14/libbitcoin-database/pkg/txdb"

// NewTxDBMetrics returns a Prometheus-backed txdb.Metrics, or nil if
// metrics are disabled.
func NewTxDBMetrics() txdb.Metrics {
	if !IsEnabled() || newTxDBMetrics == nil {
		return nil
	}
	return newTxDBMetrics()
}

var newTxDBMetrics func() txdb.Metrics

// RegisterTxDBMetricsConstructor is called by pkg/metrics/prometheus's
// init to install the concrete constructor.
func RegisterTxDBMetricsConstructor(constructor func() txdb.Metrics) {
	newTxDBMetrics = constructor
}
