package txdb

// Metrics is the instrumentation hook a Database reports high-level
// operation outcomes to. The concrete Prometheus-backed implementation
// lives in pkg/metrics/prometheus, registered through pkg/metrics.
type Metrics interface {
	IsEnabled() bool
	ObserveStore()
	ObserveConfirm()
	ObserveUnconfirm()
	ObservePrevout(hit bool)
}

type noopMetrics struct{}

func (noopMetrics) IsEnabled() bool       { return false }
func (noopMetrics) ObserveStore()         {}
func (noopMetrics) ObserveConfirm()       {}
func (noopMetrics) ObserveUnconfirm()     {}
func (noopMetrics) ObservePrevout(bool)   {}
