package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// RecordFrame records one advanced layout frame
func (r *Registry) RecordFrame(passes int, maxDelta float64, duration time.Duration) {
	r.FramesTotal.Inc()
	r.LayoutPassesTotal.Add(float64(passes))
	r.FrameDuration.Observe(duration.Seconds())
	r.FrameMaxDelta.Set(maxDelta)
	if maxDelta == 0 {
		r.LayoutSettled.Set(1)
	} else {
		r.LayoutSettled.Set(0)
	}
}

// SetRunning records whether the frame loop is running
func (r *Registry) SetRunning(running bool) {
	if running {
		r.LayoutRunning.Set(1)
	} else {
		r.LayoutRunning.Set(0)
	}
}

// SetGraphSize updates the node and edge gauges
func (r *Registry) SetGraphSize(nodes, edges int) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
}

// RecordMutation records a graph mutation outcome
func (r *Registry) RecordMutation(operation, status string) {
	r.GraphMutationTotal.WithLabelValues(operation, status).Inc()
}

// RecordGesture records the start of a pointer gesture
func (r *Registry) RecordGesture(kind string) {
	r.GesturesTotal.WithLabelValues(kind).Inc()
}

// SetScale updates the zoom gauge
func (r *Registry) SetScale(scale float64) {
	r.ViewScale.Set(scale)
}

// RecordStreamPublish records one frame handed to a transport
func (r *Registry) RecordStreamPublish(transport string, bytes int, dropped int) {
	r.StreamFramesPublished.WithLabelValues(transport).Inc()
	if bytes > 0 {
		r.StreamFrameBytes.Observe(float64(bytes))
	}
	if dropped > 0 {
		r.StreamFramesDropped.WithLabelValues(transport).Add(float64(dropped))
	}
}

// SurfaceOf maps a route template to the surface it belongs to
func SurfaceOf(route string) string {
	first := strings.TrimPrefix(route, "/")
	if i := strings.IndexByte(first, '/'); i >= 0 {
		first = first[:i]
	}
	switch first {
	case SurfaceAPI, SurfaceGraphQL, SurfaceStream, SurfaceHealth, SurfaceMetrics:
		return first
	default:
		return SurfaceOther
	}
}

// RequestStarted marks a request as open and returns the func that closes it
func (r *Registry) RequestStarted(route string) (done func()) {
	g := r.HTTPRequestsInFlight.WithLabelValues(SurfaceOf(route))
	g.Inc()
	return g.Dec
}

// RecordHTTPRequest records a finished request. Upgraded stream connections
// are counted but kept out of the latency histogram since they last as long
// as the subscriber stays.
func (r *Registry) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	surface := SurfaceOf(route)
	r.HTTPRequestsTotal.WithLabelValues(surface, route, method, strconv.Itoa(code)).Inc()
	if code != http.StatusSwitchingProtocols {
		r.HTTPRequestDuration.WithLabelValues(surface).Observe(duration.Seconds())
	}
}

// SetHostInfo publishes the instance id of the diagram being served
func (r *Registry) SetHostInfo(instance string) {
	r.HostInfo.Reset()
	r.HostInfo.WithLabelValues(instance, runtime.Version()).Set(1)
}

// SampleHost records process state and the time since lastFrame. A zero
// lastFrame counts from started.
func (r *Registry) SampleHost(started, lastFrame time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := time.Now()
	if lastFrame.IsZero() {
		lastFrame = started
	}
	r.UptimeSeconds.Set(now.Sub(started).Seconds())
	r.FrameLagSeconds.Set(now.Sub(lastFrame).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.HeapBytes.WithLabelValues(HeapAlloc).Set(float64(mem.HeapAlloc))
	r.HeapBytes.WithLabelValues(HeapSys).Set(float64(mem.HeapSys))
	r.HeapBytes.WithLabelValues(HeapIdle).Set(float64(mem.HeapIdle))
}
