package metrics

import "github.com/vladg14/libbitcoin-database/pkg/recordindex"

// NewRecordIndexMetrics returns a Prometheus-backed recordindex.Metrics, or
// nil if metrics are disabled.
func NewRecordIndexMetrics() recordindex.Metrics {
	if !IsEnabled() || newRecordIndexMetrics == nil {
		return nil
	}
	return newRecordIndexMetrics()
}

var newRecordIndexMetrics func() recordindex.Metrics

// RegisterRecordIndexMetricsConstructor is called by
// pkg/metrics/prometheus's init to install the concrete constructor.
func RegisterRecordIndexMetricsConstructor(constructor func() recordindex.Metrics) {
	newRecordIndexMetrics = constructor
}
