package health

import (
	"context"
	"time"
)

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// FrameLoopCheck reports unhealthy when no frame has advanced within maxAge.
// A stopped layout is expected to be idle and only degrades the check.
func FrameLoopCheck(hb *Heartbeat, maxAge time.Duration, running func() bool) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "frame_loop",
			Details: make(map[string]any),
		}

		last := hb.Last()
		check.Details["frames"] = hb.Frames()

		switch {
		case last.IsZero():
			check.Status = StatusDegraded
			check.Message = "No frame yet"
		case running != nil && !running():
			check.Status = StatusDegraded
			check.Message = "Layout stopped"
			check.Details["last_frame_age_ms"] = time.Since(last).Milliseconds()
		case time.Since(last) > maxAge:
			check.Status = StatusUnhealthy
			check.Message = "Frame loop stalled"
			check.Details["last_frame_age_ms"] = time.Since(last).Milliseconds()
		default:
			check.Status = StatusHealthy
			check.Message = "Advancing"
			check.Details["last_frame_age_ms"] = time.Since(last).Milliseconds()
		}
		return check
	}
}

// PrefsCheck pings the preference store with a bounded timeout. A failing
// store only degrades health since the zoom level falls back to defaults.
func PrefsCheck(ping func(ctx context.Context) error, timeout time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name: "prefs",
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
