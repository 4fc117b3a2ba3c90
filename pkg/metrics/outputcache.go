package metrics

import "github.com/vladg14/libbitcoin-database/pkg/outputcache"

// NewOutputCacheMetrics returns a Prometheus-backed outputcache.Metrics, or
// nil if metrics are disabled.
func NewOutputCacheMetrics() outputcache.Metrics {
	if !IsEnabled() || newOutputCacheMetrics == nil {
		return nil
	}
	return newOutputCacheMetrics()
}

var newOutputCacheMetrics func() outputcache.Metrics

// RegisterOutputCacheMetricsConstructor is called by
// pkg/metrics/prometheus's init to install the concrete constructor.
func RegisterOutputCacheMetricsConstructor(constructor func() outputcache.Metrics) {
	newOutputCacheMetrics = constructor
}
