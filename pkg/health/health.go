// Package health reports whether a host's frame loop is advancing and its
// preference store is reachable.
package health

import (
	"sync"
	"time"
)

// NewHealthChecker creates a checker with no components
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{started: time.Now()}
}

// WatchFrames attaches the frame loop heartbeat. Every response then carries
// the frame count and the time of the last frame.
func (hc *HealthChecker) WatchFrames(hb *Heartbeat) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.frames = hb
}

// RegisterCheck adds a check to the overview endpoint. Registering a name
// again replaces the earlier check.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc, opts ...CheckOption) {
	hc.register(name, check, ScopeOverview, opts)
}

// RegisterReadinessCheck adds a check to the readiness endpoint only
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc, opts ...CheckOption) {
	hc.register(name, check, ScopeReadiness, opts)
}

// RegisterLivenessCheck adds a check to the liveness endpoint only
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc, opts ...CheckOption) {
	hc.register(name, check, ScopeLiveness, opts)
}

func (hc *HealthChecker) register(name string, check CheckFunc, scope Scope, opts []CheckOption) {
	e := entry{name: name, fn: check, scope: scope}
	for _, opt := range opts {
		opt(&e)
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	for i := range hc.entries {
		if hc.entries[i].name == name && hc.entries[i].scope&scope != 0 {
			hc.entries[i] = e
			return
		}
	}
	hc.entries = append(hc.entries, e)
}

// Check runs the overview checks
func (hc *HealthChecker) Check() Response {
	return hc.run(ScopeOverview)
}

// CheckReadiness runs the readiness checks
func (hc *HealthChecker) CheckReadiness() Response {
	return hc.run(ScopeReadiness)
}

// CheckLiveness runs the liveness checks
func (hc *HealthChecker) CheckLiveness() Response {
	return hc.run(ScopeLiveness)
}

// run executes every check in scope concurrently, so a slow store ping does
// not delay the frame loop report.
func (hc *HealthChecker) run(scope Scope) Response {
	hc.mu.RLock()
	var selected []entry
	for _, e := range hc.entries {
		if e.scope&scope != 0 {
			selected = append(selected, e)
		}
	}
	frames := hc.frames
	hc.mu.RUnlock()

	results := make([]Check, len(selected))
	var wg sync.WaitGroup
	for i, e := range selected {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			results[i] = runOne(e)
		}(i, e)
	}
	wg.Wait()

	resp := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(selected)),
		Uptime:    time.Since(hc.started).Seconds(),
	}
	for i, e := range selected {
		c := results[i]
		resp.Checks[e.name] = c
		resp.Status = worse(resp.Status, contribution(c.Status, e.optional))
	}

	if frames != nil {
		resp.Frames = frames.Frames()
		if last := frames.Last(); !last.IsZero() {
			resp.LastFrame = &last
		}
	}
	return resp
}

func runOne(e entry) Check {
	start := time.Now()
	c := e.fn()
	c.Duration = time.Since(start)
	c.LastChecked = start
	if c.Name == "" {
		c.Name = e.name
	}
	if c.Status == "" {
		c.Status = StatusUnhealthy
		c.Message = "check reported no status"
	}
	return c
}

// contribution is what a component's status adds to the aggregate
func contribution(s Status, optional bool) Status {
	if optional && s == StatusUnhealthy {
		return StatusDegraded
	}
	return s
}

func worse(a, b Status) Status {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}
