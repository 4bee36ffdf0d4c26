package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStreamMetrics() {
	r.StreamSubscribers = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forcegraph_stream_subscribers",
			Help: "Current number of scene subscribers",
		},
		[]string{"transport"}, // broker, websocket
	)

	r.StreamFramesPublished = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcegraph_stream_frames_published_total",
			Help: "Total number of scene frames handed to a transport",
		},
		[]string{"transport"}, // broker, nng, websocket
	)

	r.StreamFramesDropped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcegraph_stream_frames_dropped_total",
			Help: "Total number of scene frames dropped for slow subscribers",
		},
		[]string{"transport"},
	)

	r.StreamFrameBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forcegraph_stream_frame_bytes",
			Help:    "Encoded scene frame size in bytes",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144},
		},
	)

	r.StreamPublishErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcegraph_stream_publish_errors_total",
			Help: "Total number of failed frame publishes",
		},
		[]string{"transport"},
	)
}
