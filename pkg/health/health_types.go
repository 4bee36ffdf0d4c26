package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check for a specific component
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

// Scope selects which endpoints a check contributes to
type Scope uint8

const (
	ScopeOverview Scope = 1 << iota
	ScopeReadiness
	ScopeLiveness
)

// CheckOption adjusts how a registered check is aggregated
type CheckOption func(*entry)

// AlsoReady adds an overview check to the readiness endpoint too
func AlsoReady() CheckOption {
	return func(e *entry) { e.scope |= ScopeReadiness }
}

// Optional marks a component the host can run without. Its failures cap
// at degraded in the aggregate while the check itself keeps its status.
func Optional() CheckOption {
	return func(e *entry) { e.optional = true }
}

type entry struct {
	name     string
	fn       CheckFunc
	scope    Scope
	optional bool
}

// HealthChecker aggregates component checks for the headless host
type HealthChecker struct {
	mu      sync.RWMutex
	entries []entry // registration order
	frames  *Heartbeat
	started time.Time
}

// Response represents the overall health response
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
	Frames    uint64           `json:"frames"`
	LastFrame *time.Time       `json:"last_frame,omitempty"`
}

// Heartbeat records when the frame loop last advanced. It is written by the
// frame goroutine and read by HTTP handlers.
type Heartbeat struct {
	last   atomic.Int64
	frames atomic.Uint64
}

// Beat marks a frame as done now
func (h *Heartbeat) Beat() {
	h.last.Store(time.Now().UnixNano())
	h.frames.Add(1)
}

// Last returns the time of the last beat, zero if there was none
func (h *Heartbeat) Last() time.Time {
	ns := h.last.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Frames returns the number of beats
func (h *Heartbeat) Frames() uint64 {
	return h.frames.Load()
}
