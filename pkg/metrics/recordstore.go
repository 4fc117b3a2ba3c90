package metrics

import "github.com/vladg14/libbitcoin-database/pkg/recordstore"

// NewRecordStoreMetrics returns a Prometheus-backed recordstore.Metrics, or
// nil if metrics are disabled.
func NewRecordStoreMetrics() recordstore.Metrics {
	if !IsEnabled() || newRecordStoreMetrics == nil {
		return nil
	}
	return newRecordStoreMetrics()
}

var newRecordStoreMetrics func() recordstore.Metrics

// RegisterRecordStoreMetricsConstructor is called by
// pkg/metrics/prometheus's init to install the concrete constructor.
func RegisterRecordStoreMetricsConstructor(constructor func() recordstore.Metrics) {
	newRecordStoreMetrics = constructor
}
