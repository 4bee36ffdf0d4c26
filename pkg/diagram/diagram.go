// Package diagram is the entry point for embedding a force-directed node-link
// diagram: it owns the graph, the layout engine, the view transform and the
// pointer state, and hands a Scene to a Renderer after every frame.
//
// A Diagram is not safe for concurrent use. Hosts drive Advance and the
// pointer methods from a single goroutine; other goroutines should consume
// the Scene values passed to the Renderer, which are never mutated.
package diagram

import (
	"context"

	"github.com/google/uuid"

	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/interaction"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/metrics"
	"github.com/dd0wney/forcegraph/pkg/prefs"
	"github.com/dd0wney/forcegraph/pkg/validation"
	"github.com/dd0wney/forcegraph/pkg/viewport"
	"github.com/dd0wney/forcegraph/pkg/visualization"
)

// Diagram is one interactive diagram
type Diagram struct {
	id     string
	config Config
	target Renderer

	store  *graph.Store
	engine *visualization.Engine
	view   *viewport.Viewport
	ctrl   *interaction.Controller
	seeder visualization.Seeder

	logger  logging.Logger
	metrics *metrics.Registry

	running bool
	frames  uint64
}

type options struct {
	ctx     context.Context
	logger  logging.Logger
	metrics *metrics.Registry
	prefs   prefs.Store
	seeder  visualization.Seeder
}

// Option configures New
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records into r instead of a private registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithPrefs sets the store for the persisted zoom level
func WithPrefs(store prefs.Store) Option {
	return func(o *options) { o.prefs = store }
}

// WithSeeder overrides the placement named in Config.Placement
func WithSeeder(s visualization.Seeder) Option {
	return func(o *options) { o.seeder = s }
}

// WithContext bounds the persisted-scale read during New
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// New creates a running diagram. A nil target is allowed; the scene is then
// only available through Scene.
func New(target Renderer, cfg Config, opts ...Option) (*Diagram, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		ctx:    context.Background(),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewRegistry()
	}

	d := &Diagram{
		id:      uuid.New().String(),
		config:  cfg,
		target:  target,
		metrics: o.metrics,
		running: true,
	}
	d.logger = o.logger.With(logging.Component("diagram"), logging.Instance(d.id))

	d.store = graph.NewStore(graph.StoreOptions{
		DefaultRadius: cfg.DefaultRadius,
		AutoSize:      cfg.autoSize(),
	})

	var err error
	if d.engine, err = visualization.NewEngine(d.store, cfg.Layout); err != nil {
		return nil, err
	}

	d.view, err = viewport.New(o.ctx, cfg.View,
		viewport.WithPrefs(o.prefs),
		viewport.WithLogger(d.logger),
		viewport.WithPersistErrorHandler(func(error) { d.metrics.PrefsErrorsTotal.Inc() }),
	)
	if err != nil {
		return nil, err
	}

	d.ctrl = interaction.NewController(d.store, d.view, d.engine,
		interaction.WithLogger(d.logger),
		interaction.WithGestureHook(d.metrics.RecordGesture),
	)

	d.seeder = o.seeder
	if d.seeder == nil {
		d.seeder = visualization.NewLayout(cfg.Placement, cfg.Layout, cfg.Seed)
	}

	d.metrics.SetRunning(true)
	d.metrics.SetScale(d.view.Scale())
	d.metrics.SetGraphSize(0, 0)
	d.logger.Info("diagram created",
		logging.Scale(d.view.Scale()),
		logging.String("placement", cfg.Placement))
	return d, nil
}

// ID returns the instance id used in logs, scenes and snapshots
func (d *Diagram) ID() string {
	return d.id
}

// Config returns the effective configuration
func (d *Diagram) Config() Config {
	return d.config
}

// Store exposes the graph for read access. Mutate through the Diagram so
// pointer state and metrics stay consistent.
func (d *Diagram) Store() *graph.Store {
	return d.store
}

// Engine exposes the layout engine
func (d *Diagram) Engine() *visualization.Engine {
	return d.engine
}

// CreateNode adds a node. Nodes without a position are placed by the seeder.
func (d *Diagram) CreateNode(spec graph.NodeSpec) (graph.NodeID, error) {
	if err := validation.ValidateLabel(spec.Label); err != nil {
		d.metrics.RecordMutation("create_node", "error")
		return 0, graph.NewError("CreateNode").Invalid(err).Err()
	}
	if err := validation.ValidateColor(spec.Color); err != nil {
		d.metrics.RecordMutation("create_node", "error")
		return 0, graph.NewError("CreateNode").Invalid(err).Err()
	}

	if spec.Position == nil {
		p := d.seeder.Seed(d.store, spec)
		spec.Position = &p
	}

	id, err := d.store.CreateNode(spec)
	if err != nil {
		d.metrics.RecordMutation("create_node", "error")
		return 0, err
	}
	d.metrics.RecordMutation("create_node", "success")
	d.metrics.SetGraphSize(d.store.NodeCount(), d.store.EdgeCount())
	d.logger.Debug("node created", logging.NodeID(uint64(id)), logging.Count(len(spec.Neighbors)))
	return id, nil
}

// UpdateNode changes a node's label, radius, color or auto-sizing. Nothing
// changes if any field is invalid.
func (d *Diagram) UpdateNode(id graph.NodeID, u graph.NodeUpdate) error {
	var err error
	if u.Label != nil {
		err = validation.ValidateLabel(*u.Label)
	}
	if err == nil && u.Color != nil {
		err = validation.ValidateColor(*u.Color)
	}
	if err != nil {
		d.metrics.RecordMutation("update_node", "error")
		return graph.NewError("UpdateNode").Node(id).Invalid(err).Err()
	}

	if err := d.store.UpdateNode(id, u); err != nil {
		d.metrics.RecordMutation("update_node", "error")
		return err
	}
	d.metrics.RecordMutation("update_node", "success")
	d.logger.Debug("node updated", logging.NodeID(uint64(id)))
	return nil
}

// RemoveNode deletes a node and every edge touching it
func (d *Diagram) RemoveNode(id graph.NodeID) error {
	if err := d.store.RemoveNode(id); err != nil {
		d.metrics.RecordMutation("remove_node", "error")
		return err
	}
	d.ctrl.NodeRemoved(id)
	d.metrics.RecordMutation("remove_node", "success")
	d.metrics.SetGraphSize(d.store.NodeCount(), d.store.EdgeCount())
	d.logger.Debug("node removed", logging.NodeID(uint64(id)))
	return nil
}

// CreateEdge connects two nodes. It reports false when the edge already existed.
func (d *Diagram) CreateEdge(a, b graph.NodeID) (bool, error) {
	created, err := d.store.CreateEdge(a, b)
	switch {
	case err != nil:
		d.metrics.RecordMutation("create_edge", "error")
		return false, err
	case !created:
		d.metrics.RecordMutation("create_edge", "noop")
	default:
		d.metrics.RecordMutation("create_edge", "success")
		d.metrics.SetGraphSize(d.store.NodeCount(), d.store.EdgeCount())
	}
	return created, nil
}

// RemoveEdge disconnects two nodes and reports whether an edge was removed
func (d *Diagram) RemoveEdge(a, b graph.NodeID) bool {
	removed := d.store.RemoveEdge(a, b)
	if removed {
		d.metrics.RecordMutation("remove_edge", "success")
		d.metrics.SetGraphSize(d.store.NodeCount(), d.store.EdgeCount())
	} else {
		d.metrics.RecordMutation("remove_edge", "noop")
	}
	return removed
}

// Advance runs one frame and renders it unless the diagram is stopped. It
// reports whether the scheduler should keep calling.
func (d *Diagram) Advance() bool {
	if !d.running {
		return false
	}

	stats := d.engine.Advance()
	d.frames++
	d.metrics.RecordFrame(stats.Passes, stats.MaxDelta, stats.Duration)

	if logging.Enabled(d.logger, logging.DebugLevel) {
		d.logger.Debug("frame",
			logging.Frame(stats.Frame),
			logging.Passes(stats.Passes),
			logging.Float64("max_delta", stats.MaxDelta),
			logging.Latency(stats.Duration))
	}

	if d.target != nil {
		if err := d.target.Render(d.buildScene()); err != nil {
			d.metrics.RenderErrorsTotal.Inc()
			d.logger.Warn("render failed", logging.Error(err), logging.Frame(stats.Frame))
		}
	}
	return d.running
}

// Stop tells the scheduler to stop calling Advance
func (d *Diagram) Stop() {
	if d.running {
		d.running = false
		d.metrics.SetRunning(false)
		d.logger.Info("layout stopped", logging.Frame(d.engine.Frame()))
	}
}

// Resume restarts a stopped diagram
func (d *Diagram) Resume() {
	if !d.running {
		d.running = true
		d.metrics.SetRunning(true)
		d.logger.Info("layout resumed")
	}
}

// Running reports whether Advance will compute frames
func (d *Diagram) Running() bool {
	return d.running
}

// Scene returns the current state as a renderer would receive it
func (d *Diagram) Scene() Scene {
	return d.buildScene()
}

// Stats returns the statistics of the last frame
func (d *Diagram) Stats() visualization.FrameStats {
	return d.engine.Stats()
}

// Transform returns the current view transform
func (d *Diagram) Transform() viewport.Transform {
	return d.view.Transform()
}

// PointerMove handles a pointer move in device pixels
func (d *Diagram) PointerMove(px, py float64) {
	d.ctrl.PointerMove(px, py)
}

// PointerDown starts a node drag or a pan
func (d *Diagram) PointerDown(px, py float64) {
	d.ctrl.PointerDown(px, py)
}

// PointerUp ends the current gesture
func (d *Diagram) PointerUp(px, py float64) {
	d.ctrl.PointerUp(px, py)
}

// PointerLeave ends the current gesture and clears hover
func (d *Diagram) PointerLeave() {
	d.ctrl.PointerLeave()
}

// Wheel zooms about a device point. Positive deltaY zooms out.
func (d *Diagram) Wheel(px, py, deltaY float64) bool {
	changed := d.ctrl.Wheel(px, py, deltaY)
	if changed {
		d.metrics.SetScale(d.view.Scale())
	}
	return changed
}

// ZoomTo sets the scale about a device point
func (d *Diagram) ZoomTo(px, py, scale float64) bool {
	changed := d.ctrl.ZoomTo(px, py, scale)
	if changed {
		d.metrics.SetScale(d.view.Scale())
	}
	return changed
}

// FitView zooms and centres so every node is visible within the padding
func (d *Diagram) FitView() bool {
	bounds, ok := visualization.Bounds(d.store)
	if !ok {
		return false
	}
	l := d.config.Layout
	ratio := d.config.View.PixelRatio
	changed := d.view.Fit(bounds, l.Width/ratio, l.Height/ratio, l.Padding/ratio)
	d.metrics.SetScale(d.view.Scale())
	return changed
}

// ResetView restores the initial scale and removes any pan
func (d *Diagram) ResetView() bool {
	changed := d.view.Reset()
	d.metrics.SetScale(d.view.Scale())
	return changed
}

// Cursor returns the pointer affordance for the current state
func (d *Diagram) Cursor() interaction.Cursor {
	return d.ctrl.Cursor()
}

// Arrange repositions every node with a named placement and restarts the
// warm start.
func (d *Diagram) Arrange(name string) {
	d.engine.Arrange(visualization.NewLayout(name, d.config.Layout, d.config.Seed))
	d.logger.Info("arranged", logging.String("placement", name), logging.Count(d.store.NodeCount()))
}
