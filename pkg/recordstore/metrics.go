package recordstore

// Metrics is the instrumentation hook a Store reports allocation and spend
// events to.
type Metrics interface {
	IsEnabled() bool
	ObserveAllocate(size int)
	ObserveSpend()
}

type noopMetrics struct{}

func (noopMetrics) IsEnabled() bool      { return false }
func (noopMetrics) ObserveAllocate(int)  {}
func (noopMetrics) ObserveSpend()        {}
