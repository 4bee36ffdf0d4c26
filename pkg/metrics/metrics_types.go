package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Layout Metrics
	FramesTotal        prometheus.Counter
	LayoutPassesTotal  prometheus.Counter
	FrameDuration      prometheus.Histogram
	FrameMaxDelta      prometheus.Gauge
	LayoutSettled      prometheus.Gauge
	LayoutRunning      prometheus.Gauge
	RenderErrorsTotal  prometheus.Counter
	GraphNodesTotal    prometheus.Gauge
	GraphEdgesTotal    prometheus.Gauge
	GraphMutationTotal *prometheus.CounterVec

	// View Metrics
	ViewScale        prometheus.Gauge
	GesturesTotal    *prometheus.CounterVec
	PrefsErrorsTotal prometheus.Counter

	// Stream Metrics
	StreamSubscribers     *prometheus.GaugeVec
	StreamFramesPublished *prometheus.CounterVec
	StreamFramesDropped   *prometheus.CounterVec
	StreamFrameBytes      prometheus.Histogram
	StreamPublishErrors   *prometheus.CounterVec

	// Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Host Metrics
	HostInfo        *prometheus.GaugeVec
	UptimeSeconds   prometheus.Gauge
	FrameLagSeconds prometheus.Gauge
	GoRoutines      prometheus.Gauge
	HeapBytes       *prometheus.GaugeVec

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initLayoutMetrics()
	r.initViewMetrics()
	r.initStreamMetrics()
	r.initRequestMetrics()
	r.initHostMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
