package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initViewMetrics() {
	r.ViewScale = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "forcegraph_view_scale",
			Help: "Current zoom level",
		},
	)

	r.GesturesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcegraph_gestures_total",
			Help: "Total number of pointer gestures started",
		},
		[]string{"kind"}, // hover, drag, pan, zoom
	)

	r.PrefsErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "forcegraph_prefs_errors_total",
			Help: "Total number of failed preference writes",
		},
	)
}
