package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Heap gauge kinds
const (
	HeapAlloc = "alloc"
	HeapSys   = "sys"
	HeapIdle  = "idle"
)

func (r *Registry) initHostMetrics() {
	f := promauto.With(r.registry)

	r.HostInfo = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forcegraph_host_info",
		Help: "Always 1, labelled with the diagram instance served by this host",
	}, []string{"instance", "go_version"})

	r.UptimeSeconds = f.NewGauge(prometheus.GaugeOpts{
		Name: "forcegraph_host_uptime_seconds",
		Help: "Seconds since the host started",
	})

	r.FrameLagSeconds = f.NewGauge(prometheus.GaugeOpts{
		Name: "forcegraph_host_frame_lag_seconds",
		Help: "Seconds since the frame loop last rendered, or since start before the first frame",
	})

	r.GoRoutines = f.NewGauge(prometheus.GaugeOpts{
		Name: "forcegraph_host_goroutines",
		Help: "Goroutines, including one per stream subscriber",
	})

	r.HeapBytes = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forcegraph_host_heap_bytes",
		Help: "Heap memory in bytes by kind (alloc, sys, idle)",
	}, []string{"kind"})
}
