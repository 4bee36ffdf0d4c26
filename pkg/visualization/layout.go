package visualization

import (
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// Engine advances the force simulation one frame at a time.
//
// There is no velocity. Each pass averages the fresh force with the delta
// applied last pass, rounds to hundredths, and moves the node by that much.
// The rounding freezes a settled layout instead of letting it creep.
//
// The engine never schedules itself. Callers own the clock and must not call
// Advance concurrently with store mutations.
type Engine struct {
	store  *graph.Store
	config LayoutConfig
	center geometry.Point

	frame int
	stats FrameStats

	held    graph.NodeID
	holding bool
}

// NewEngine creates an engine over store
func NewEngine(store *graph.Store, config LayoutConfig) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("layout engine: store is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		store:  store,
		config: config,
		center: config.Center(),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() LayoutConfig {
	return e.config
}

// Frame returns the number of frames advanced since construction or Reheat
func (e *Engine) Frame() int {
	return e.frame
}

// Stats returns the statistics of the most recent frame
func (e *Engine) Stats() FrameStats {
	return e.stats
}

// Hold pins a node: passes skip it and keep its smoothing term at zero.
// Only one node is held at a time.
func (e *Engine) Hold(id graph.NodeID) {
	e.held = id
	e.holding = true
	if n, ok := e.store.Node(id); ok {
		n.ResetForces()
	}
}

// Release unpins the held node
func (e *Engine) Release() {
	e.holding = false
}

// Held returns the pinned node, if any
func (e *Engine) Held() (graph.NodeID, bool) {
	return e.held, e.holding
}

// Reheat restarts the warm-start schedule, e.g. after a bulk rearrangement
func (e *Engine) Reheat() {
	e.frame = 0
}

// PassesFor returns how many passes frame i runs
func (e *Engine) PassesFor(i int) int {
	return WarmStartPasses(i, e.config.WarmStartFrames, e.config.WarmStartPasses)
}

// WarmStartPasses evaluates the logistic warm-start schedule. Frames at or past
// frames run a single pass.
func WarmStartPasses(i, frames, maxPasses int) int {
	if i >= frames || maxPasses <= 1 {
		return 1
	}
	mid := float64(frames) / 2
	n := int(math.Round(1 + float64(maxPasses-1)/(1+math.Exp(0.6*(float64(i)-mid)))))
	if n < 1 {
		return 1
	}
	return n
}

// Advance runs one frame and returns its statistics
func (e *Engine) Advance() FrameStats {
	start := time.Now()
	passes := e.PassesFor(e.frame)

	var maxDelta float64
	for i := 0; i < passes; i++ {
		maxDelta = e.Step()
	}

	e.stats = FrameStats{
		Frame:    e.frame,
		Passes:   passes,
		MaxDelta: maxDelta,
		Duration: time.Since(start),
	}
	e.frame++
	return e.stats
}

// Step runs a single update pass and returns the largest per-axis delta applied
func (e *Engine) Step() float64 {
	e.config.Physics.accumulate(e.store, e.center)

	var maxDelta float64
	for _, n := range e.store.Nodes() {
		if e.holding && n.ID == e.held {
			n.LastX, n.LastY = 0, 0
		} else {
			dx := smooth(n.NextX, n.LastX)
			dy := smooth(n.NextY, n.LastY)
			n.X += dx
			n.Y += dy
			n.LastX, n.LastY = dx, dy
			maxDelta = math.Max(maxDelta, math.Max(math.Abs(dx), math.Abs(dy)))
		}
		n.NextX, n.NextY = 0, 0
	}
	return maxDelta
}

// Arrange moves every node to the position computed by l, clears all force
// state and restarts the warm start.
func (e *Engine) Arrange(l Layout) {
	positions := l.ComputeLayout(e.store)
	for _, n := range e.store.Nodes() {
		if p, ok := positions[n.ID]; ok {
			n.X, n.Y = p.X, p.Y
		}
		n.NextX, n.NextY = 0, 0
		n.LastX, n.LastY = 0, 0
	}
	e.Reheat()
}

func smooth(force, last float64) float64 {
	d := geometry.Round2((force + last) / 2)
	if !geometry.Finite(d) {
		return 0
	}
	return d
}
