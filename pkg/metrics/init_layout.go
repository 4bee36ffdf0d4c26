package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.FramesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "forcegraph_frames_total",
			Help: "Total number of layout frames advanced",
		},
	)

	r.LayoutPassesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "forcegraph_layout_passes_total",
			Help: "Total number of force passes, including warm-start passes",
		},
	)

	// a 60Hz frame budget is ~16ms
	r.FrameDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forcegraph_frame_duration_seconds",
			Help:    "Time spent computing one frame in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1},
		},
	)

	r.FrameMaxDelta = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_frame_max_delta",
			Help: "Largest per-axis node displacement in the last frame",
		},
	)

	r.LayoutSettled = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_layout_settled",
			Help: "Whether the last frame moved no node (1=yes, 0=no)",
		},
	)

	r.LayoutRunning = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_layout_running",
			Help: "Whether the frame loop is running (1=yes, 0=stopped)",
		},
	)

	r.RenderErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "forcegraph_render_errors_total",
			Help: "Total number of frames the renderer failed to draw",
		},
	)

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_graph_nodes_total",
			Help: "Current number of nodes",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_graph_edges_total",
			Help: "Current number of edges",
		},
	)

	r.GraphMutationTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcegraph_graph_mutations_total",
			Help: "Total number of graph mutations",
		},
		[]string{"operation", "status"}, // create_node, remove_node, create_edge, remove_edge / success, error, noop
	)
}
