package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request surfaces of the headless host
const (
	SurfaceAPI     = "api"
	SurfaceGraphQL = "graphql"
	SurfaceStream  = "ws"
	SurfaceHealth  = "health"
	SurfaceMetrics = "metrics"
	SurfaceOther   = "other"
)

func (r *Registry) initRequestMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "forcegraph_requests_total",
		Help: "Requests by surface, route template, method and status code",
	}, []string{"surface", "route", "method", "code"})

	// 0.5ms to ~2s; control calls wait at most one frame
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forcegraph_request_duration_seconds",
		Help:    "Request latency by surface, excluding upgraded stream connections",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.5, 10),
	}, []string{"surface"})

	r.HTTPRequestsInFlight = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forcegraph_requests_in_flight",
		Help: "Open requests by surface; ws counts live scene subscribers",
	}, []string{"surface"})
}
