package recordindex

// Metrics is the instrumentation hook a Directory reports link and lookup
// events to. See pkg/metrics for the Prometheus-backed implementation.
type Metrics interface {
	IsEnabled() bool
	ObserveLink()
	ObserveFind(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) IsEnabled() bool    { return false }
func (noopMetrics) ObserveLink()       {}
func (noopMetrics) ObserveFind(bool)   {}
