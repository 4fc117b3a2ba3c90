package metrics

import "github.com/vladg14/libbitcoin-database/pkg/filemap"

// NewFileMapMetrics returns a Prometheus-backed filemap.Metrics, or nil if
// metrics are disabled. filemap.WithMetrics(nil) is safe: FileMap falls
// back to its own no-op implementation.
func NewFileMapMetrics() filemap.Metrics {
	if !IsEnabled() || newFileMapMetrics == nil {
		return nil
	}
	return newFileMapMetrics()
}

var newFileMapMetrics func() filemap.Metrics

// RegisterFileMapMetricsConstructor is called by
// pkg/metrics/prometheus's init to install the concrete constructor.
func RegisterFileMapMetricsConstructor(constructor func() filemap.Metrics) {
	newFileMapMetrics = constructor
}
