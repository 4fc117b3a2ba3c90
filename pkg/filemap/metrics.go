package filemap

// Metrics is the instrumentation hook a FileMap reports grow events to. The concrete Prometheus-backed implementation lives in
// pkg/metrics/prometheus, registered through pkg/metrics to avoid an import
// cycle between this package and the metrics packages that depend on it.
type Metrics interface {
	IsEnabled() bool
	ObserveGrow(newMappedSize uint64)
}

type noopMetrics struct{}

func (noopMetrics) IsEnabled() bool        { return false }
func (noopMetrics) ObserveGrow(uint64)     {}
