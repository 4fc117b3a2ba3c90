// Package metrics is the indirection layer between the domain packages'
// local, nil-safe Metrics interfaces and the concrete Prometheus
// implementation in pkg/metrics/prometheus. Domain packages never import
// the prometheus client directly; pkg/metrics/prometheus registers
// constructors into this package on init, breaking what would otherwise
// be an import cycle (prometheus needs the domain's Metrics interface to
// implement it; the domain must not need to know Prometheus exists).
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates a fresh Prometheus registry and marks metrics as
// enabled. Must be called before any New*Metrics constructor in this
// package for them to return a live implementation instead of nil.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format, or nil if metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Reset tears down the registry. Intended for test teardown between cases
// that each call InitRegistry.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
