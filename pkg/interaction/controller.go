// Package interaction turns pointer events into hover, drag, pan and zoom
// gestures over a graph store and a viewport.
package interaction

import (
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/viewport"
)

// State is the pointer state machine's current state
type State int

const (
	Idle State = iota
	HoveringNode
	DraggingNode
	Panning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HoveringNode:
		return "hoveringNode"
	case DraggingNode:
		return "draggingNode"
	case Panning:
		return "panning"
	default:
		return "unknown"
	}
}

// Cursor is the pointer affordance a host should display
type Cursor string

const (
	CursorDefault  Cursor = "default"
	CursorPointer  Cursor = "pointer"
	CursorGrabbing Cursor = "grabbing"
)

// Gesture names reported to the gesture hook
const (
	GestureHover = "hover"
	GestureDrag  = "drag"
	GesturePan   = "pan"
	GestureZoom  = "zoom"
)

// Pinner excludes a node from force application while it is dragged.
// *visualization.Engine satisfies it.
type Pinner interface {
	Hold(id graph.NodeID)
	Release()
}

// Controller owns hover and drag state. It is not safe for concurrent use and
// must be driven from the same goroutine that advances frames.
type Controller struct {
	store *graph.Store
	view  *viewport.Viewport
	pin   Pinner

	state   State
	hovered graph.NodeID
	dragged graph.NodeID
	lastX   float64
	lastY   float64

	logger    logging.Logger
	onGesture func(kind string)
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithGestureHook is called once per started gesture
func WithGestureHook(fn func(kind string)) Option {
	return func(c *Controller) { c.onGesture = fn }
}

// NewController creates an idle controller
func NewController(store *graph.Store, view *viewport.Viewport, pin Pinner, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		view:   view,
		pin:    pin,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Hovered returns the hovered node. A dragged node counts as hovered.
func (c *Controller) Hovered() (graph.NodeID, bool) {
	switch c.state {
	case HoveringNode:
		return c.hovered, true
	case DraggingNode:
		return c.dragged, true
	}
	return 0, false
}

// Dragged returns the node being dragged
func (c *Controller) Dragged() (graph.NodeID, bool) {
	return c.dragged, c.state == DraggingNode
}

// Cursor maps the state to a pointer affordance
func (c *Controller) Cursor() Cursor {
	switch c.state {
	case HoveringNode:
		return CursorPointer
	case DraggingNode, Panning:
		return CursorGrabbing
	default:
		return CursorDefault
	}
}

func (c *Controller) gesture(kind string) {
	if c.onGesture != nil {
		c.onGesture(kind)
	}
}

// hitTest updates hover from the node under the device point
func (c *Controller) hitTest(px, py float64) {
	id, ok := c.store.HitTest(c.view.ToSim(px, py))
	switch {
	case !ok:
		c.state = Idle
	case c.state != HoveringNode || c.hovered != id:
		c.state = HoveringNode
		c.hovered = id
		c.gesture(GestureHover)
	}
}

// PointerMove handles a pointer move in device pixels
func (c *Controller) PointerMove(px, py float64) {
	switch c.state {
	case DraggingNode:
		if err := c.store.MoveTo(c.dragged, c.view.ToSim(px, py)); err != nil {
			c.logger.Warn("dragged node vanished", logging.NodeID(uint64(c.dragged)), logging.Error(err))
			c.reset()
			return
		}
	case Panning:
		c.view.Pan(px-c.lastX, py-c.lastY)
	default:
		c.hitTest(px, py)
	}
	c.lastX, c.lastY = px, py
}

// PointerDown starts a drag on the node under the pointer, or a pan
func (c *Controller) PointerDown(px, py float64) {
	if c.state == DraggingNode || c.state == Panning {
		c.reset()
	}
	c.hitTest(px, py)
	c.lastX, c.lastY = px, py

	if c.state != HoveringNode {
		c.state = Panning
		c.gesture(GesturePan)
		return
	}

	c.state = DraggingNode
	c.dragged = c.hovered
	c.pin.Hold(c.dragged)
	// snap to the pointer so the first frame already honours the drag
	_ = c.store.MoveTo(c.dragged, c.view.ToSim(px, py))
	c.gesture(GestureDrag)
	c.logger.Debug("drag started", logging.NodeID(uint64(c.dragged)))
}

// PointerUp ends any gesture
func (c *Controller) PointerUp(float64, float64) {
	c.reset()
}

// PointerLeave ends any gesture and clears hover
func (c *Controller) PointerLeave() {
	c.reset()
}

// Wheel zooms about the pointer
func (c *Controller) Wheel(px, py, deltaY float64) bool {
	if !c.view.Wheel(px, py, deltaY) {
		return false
	}
	c.gesture(GestureZoom)
	return true
}

// ZoomTo sets an explicit scale about the pointer
func (c *Controller) ZoomTo(px, py, scale float64) bool {
	if !c.view.ZoomAt(px, py, scale) {
		return false
	}
	c.gesture(GestureZoom)
	return true
}

// NodeRemoved drops any reference to a removed node
func (c *Controller) NodeRemoved(id graph.NodeID) {
	switch {
	case c.state == DraggingNode && c.dragged == id:
		c.reset()
	case c.state == HoveringNode && c.hovered == id:
		c.state = Idle
	}
}

func (c *Controller) reset() {
	if c.state == DraggingNode {
		c.pin.Release()
		c.logger.Debug("drag ended", logging.NodeID(uint64(c.dragged)))
	}
	c.state = Idle
	c.hovered, c.dragged = 0, 0
}
