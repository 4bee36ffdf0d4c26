package visualization

import (
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

func at(x, y float64) *geometry.Point {
	return &geometry.Point{X: x, Y: y}
}

func newTestEngine(t *testing.T, config LayoutConfig, positions ...*geometry.Point) (*Engine, *graph.Store, []graph.NodeID) {
	t.Helper()
	store := graph.NewStore(graph.StoreOptions{})
	ids := make([]graph.NodeID, 0, len(positions))
	for _, p := range positions {
		id, err := store.CreateNode(graph.NodeSpec{Position: p})
		if err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
		ids = append(ids, id)
	}
	engine, err := NewEngine(store, config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, store, ids
}

func dist(t *testing.T, s *graph.Store, a, b graph.NodeID) float64 {
	t.Helper()
	na, _ := s.Node(a)
	nb, _ := s.Node(b)
	return geometry.Distance(na.Position(), nb.Position())
}

// TestTwoNodesSettle covers two free nodes balancing repulsion against the
// center pull.
func TestTwoNodesSettle(t *testing.T) {
	engine, store, ids := newTestEngine(t, DefaultLayoutConfig(), at(350, 300), at(450, 300))

	var stats FrameStats
	for i := 0; i < 200; i++ {
		stats = engine.Advance()
	}

	if !stats.Settled(0.05) {
		t.Errorf("layout still moving after 200 frames: max delta %f", stats.MaxDelta)
	}

	d := dist(t, store, ids[0], ids[1])
	if d < 280 || d > 340 {
		t.Errorf("Expected settled distance near 309, got %f", d)
	}

	a, _ := store.Node(ids[0])
	b, _ := store.Node(ids[1])
	if mid := (a.X + b.X) / 2; math.Abs(mid-400) > 1 {
		t.Errorf("pair drifted off center: midpoint x=%f", mid)
	}
	if math.Abs(a.Y-300) > 0.01 || math.Abs(b.Y-300) > 0.01 {
		t.Errorf("horizontal pair gained vertical motion: %f, %f", a.Y, b.Y)
	}

	// settled layouts stay put
	before := a.Position()
	for i := 0; i < 20; i++ {
		engine.Advance()
	}
	if geometry.Distance(before, a.Position()) > 0.5 {
		t.Errorf("settled node crept from %v to %v", before, a.Position())
	}
}

// TestChainSettlesAtLinkDistance covers a three node chain with long links
func TestChainSettlesAtLinkDistance(t *testing.T) {
	config := DefaultLayoutConfig()
	config.Physics.LinkDistance = 150

	engine, store, ids := newTestEngine(t, config, at(300, 280), at(400, 310), at(500, 290))
	for _, e := range [][2]int{{0, 1}, {1, 2}} {
		if _, err := store.CreateEdge(ids[e[0]], ids[e[1]]); err != nil {
			t.Fatalf("CreateEdge failed: %v", err)
		}
	}

	var stats FrameStats
	for i := 0; i < 300; i++ {
		stats = engine.Advance()
	}

	if stats.MaxDelta > 0.05 {
		t.Errorf("chain still moving: max delta %f", stats.MaxDelta)
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}} {
		l := dist(t, store, ids[e[0]], ids[e[1]])
		if l < 150 || l > 165 {
			t.Errorf("edge %v length %f, want in [150, 165]", e, l)
		}
	}
	if l := dist(t, store, ids[0], ids[2]); l < 250 {
		t.Errorf("chain folded: ends only %f apart", l)
	}
}

func TestRepulsionPushesApart(t *testing.T) {
	config := DefaultLayoutConfig()
	config.Physics.CenterCoefficient = 0

	engine, store, ids := newTestEngine(t, config, at(390, 300), at(410, 320))
	engine.Step()

	a, _ := store.Node(ids[0])
	b, _ := store.Node(ids[1])
	if !(a.X < 390 && a.Y < 300 && b.X > 410 && b.Y > 320) {
		t.Errorf("nodes did not separate: a=%v b=%v", a.Position(), b.Position())
	}
	// overlapping discs get the capped, damped force, halved by smoothing
	want := geometry.Round2(geometry.Damp(config.Physics.RepulsionCap, config.Physics.Damping) / math.Sqrt2 / 2)
	if math.Abs(b.X-410-want) > 0.011 {
		t.Errorf("Expected first step %f, got %f", want, b.X-410)
	}
}

func TestSpringIsAttractionOnly(t *testing.T) {
	config := DefaultLayoutConfig()
	config.Physics.CenterCoefficient = 0
	config.Physics.RepulsionConstant = 0

	short, store, ids := newTestEngine(t, config, at(100, 100), at(150, 100))
	store.CreateEdge(ids[0], ids[1])
	short.Step()
	if d := dist(t, store, ids[0], ids[1]); d != 50 {
		t.Errorf("short edge should not push: distance %f", d)
	}

	long, store, ids := newTestEngine(t, config, at(100, 100), at(300, 100))
	store.CreateEdge(ids[0], ids[1])
	long.Step()
	if d := dist(t, store, ids[0], ids[1]); d >= 200 {
		t.Errorf("long edge should pull: distance %f", d)
	}
}

func TestCoincidentNodesStayFinite(t *testing.T) {
	engine, store, _ := newTestEngine(t, DefaultLayoutConfig(), at(400, 300), at(400, 300), at(400, 300))
	store.CreateEdge(0, 1)

	for i := 0; i < 30; i++ {
		engine.Advance()
	}
	for _, n := range store.Nodes() {
		if !geometry.Finite(n.X) || !geometry.Finite(n.Y) {
			t.Fatalf("node %d has non-finite position %v", n.ID, n.Position())
		}
		if n.X != 400 || n.Y != 300 {
			t.Errorf("node %d moved without a direction: %v", n.ID, n.Position())
		}
	}
}

func TestHeldNodeSkipsForces(t *testing.T) {
	engine, store, ids := newTestEngine(t, DefaultLayoutConfig(), at(380, 300), at(420, 300), at(100, 100))
	held, _ := store.Node(ids[0])
	held.LastX, held.LastY = 3, 3

	engine.Hold(ids[0])
	if id, ok := engine.Held(); !ok || id != ids[0] {
		t.Fatalf("Held() = %d, %v", id, ok)
	}

	for i := 0; i < 10; i++ {
		engine.Advance()
		if held.X != 380 || held.Y != 300 {
			t.Fatalf("held node moved to %v", held.Position())
		}
		if held.LastX != 0 || held.LastY != 0 || held.NextX != 0 || held.NextY != 0 {
			t.Fatalf("held node kept force state: %+v", held)
		}
	}

	other, _ := store.Node(ids[1])
	if other.X <= 420 {
		t.Errorf("free neighbor should still be pushed away, x=%f", other.X)
	}

	engine.Release()
	before := held.Position()
	engine.Step()
	if math.Abs(held.LastX-(held.X-before.X)) > 1e-9 || math.Abs(held.LastY-(held.Y-before.Y)) > 1e-9 {
		t.Errorf("released node did not record its applied delta: %+v", held)
	}
	if jump := geometry.Distance(before, held.Position()); jump > DefaultPhysics().RepulsionCap {
		t.Errorf("release jump %f exceeds one frame of force", jump)
	}
}

func TestRandomGraphStaysBounded(t *testing.T) {
	cfg := DefaultLayoutConfig()
	store := graph.NewStore(graph.StoreOptions{})
	seeder := NewRandomLayout(cfg, 1)
	for i := 0; i < 30; i++ {
		spec := graph.NodeSpec{AutoSize: i%3 == 0}
		if i > 0 {
			spec.Neighbors = []graph.NodeID{graph.NodeID((i*7 + 3) % i)}
		}
		p := seeder.Seed(store, spec)
		spec.Position = &p
		if _, err := store.CreateNode(spec); err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
	}

	engine, err := NewEngine(store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		engine.Advance()
	}

	for _, n := range store.Nodes() {
		if !geometry.Finite(n.X) || !geometry.Finite(n.Y) {
			t.Fatalf("node %d non-finite", n.ID)
		}
		if math.Abs(n.X-400) > 1500 || math.Abs(n.Y-300) > 1500 {
			t.Errorf("node %d escaped to %v", n.ID, n.Position())
		}
	}
	if engine.Stats().MaxDelta > 1 {
		t.Errorf("random graph did not calm down: %f", engine.Stats().MaxDelta)
	}
}

func TestWarmStartSchedule(t *testing.T) {
	tests := []struct {
		frame, want int
	}{
		{0, 30},
		{7, 18},
		{14, 2},
		{15, 1},
		{500, 1},
	}
	for _, tt := range tests {
		if got := WarmStartPasses(tt.frame, 15, 30); got != tt.want {
			t.Errorf("WarmStartPasses(%d) = %d, want %d", tt.frame, got, tt.want)
		}
	}

	prev := math.MaxInt
	for i := 0; i < 20; i++ {
		n := WarmStartPasses(i, 15, 30)
		if n < 1 || n > prev {
			t.Errorf("schedule not decaying at frame %d: %d after %d", i, n, prev)
		}
		prev = n
	}

	if got := WarmStartPasses(0, 0, 30); got != 1 {
		t.Errorf("disabled warm start should run 1 pass, got %d", got)
	}
}

func TestAdvanceStats(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultLayoutConfig(), at(300, 300))

	first := engine.Advance()
	if first.Frame != 0 || first.Passes != 30 {
		t.Errorf("unexpected first frame stats %+v", first)
	}
	engine.Advance()
	if engine.Frame() != 2 || engine.Stats().Frame != 1 {
		t.Errorf("frame counter %d, stats %+v", engine.Frame(), engine.Stats())
	}

	engine.Reheat()
	if engine.Frame() != 0 {
		t.Errorf("Reheat did not restart: %d", engine.Frame())
	}
}

func TestEmptyEngine(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultLayoutConfig())
	stats := engine.Advance()
	if stats.MaxDelta != 0 || stats.Settled(0) != true {
		t.Errorf("empty engine stats %+v", stats)
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(nil, DefaultLayoutConfig()); err == nil {
		t.Error("Expected error for nil store")
	}

	cfg := DefaultLayoutConfig()
	cfg.Physics.Damping = 1
	cfg.Width = 0
	_, err := NewEngine(graph.NewStore(graph.StoreOptions{}), cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, field := range []string{"Physics.Damping", "LayoutConfig.Width"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected %q in %q", field, err.Error())
		}
	}
}

func TestForceMagnitudes(t *testing.T) {
	p := DefaultPhysics()
	store := graph.NewStore(graph.StoreOptions{})
	a, _ := store.CreateNode(graph.NodeSpec{Position: at(0, 0)})
	b, _ := store.CreateNode(graph.NodeSpec{Position: at(120, 0)})
	na, _ := store.Node(a)
	nb, _ := store.Node(b)

	// rim distance 100
	if got := p.Repulsion(na, nb); math.Abs(got-6) > 1e-9 {
		t.Errorf("Repulsion = %f, want 6", got)
	}
	nb.X = 15
	if got := p.Repulsion(na, nb); got != p.RepulsionCap {
		t.Errorf("overlapping Repulsion = %f, want cap", got)
	}

	if got := p.CenterPull(na, geometry.Point{X: 300, Y: 400}); math.Abs(got-7.5) > 1e-9 {
		t.Errorf("CenterPull = %f, want 7.5", got)
	}

	nb.X = 250
	if got := p.Spring(na, nb); math.Abs(got+60) > 1e-9 {
		t.Errorf("Spring = %f, want -60", got)
	}
	nb.X = 40
	if got := p.Spring(na, nb); got != 0 {
		t.Errorf("short Spring = %f, want 0", got)
	}
}

func TestCircularLayout(t *testing.T) {
	cfg := DefaultLayoutConfig()
	cfg.Width, cfg.Height = 400, 400
	store := graph.NewStore(graph.StoreOptions{})
	for i := 0; i < 5; i++ {
		store.CreateNode(graph.NodeSpec{})
	}

	positions := NewCircularLayout(cfg).ComputeLayout(store)
	if len(positions) != 5 {
		t.Fatalf("Expected 5 positions, got %d", len(positions))
	}
	for id, pos := range positions {
		if d := geometry.Distance(pos, geometry.Point{X: 200, Y: 200}); math.Abs(d-150) > 1e-9 {
			t.Errorf("Node %d at distance %f from center, want 150", id, d)
		}
	}
}

func TestCircularSeedFillsSlots(t *testing.T) {
	cfg := DefaultLayoutConfig()
	layout := NewCircularLayout(cfg)
	store := graph.NewStore(graph.StoreOptions{})

	seen := make(map[geometry.Point]graph.NodeID)
	for i := 0; i < 4*layout.Slots+2; i++ {
		p := layout.Seed(store, graph.NodeSpec{})
		id, err := store.CreateNode(graph.NodeSpec{Position: &p})
		if err != nil {
			t.Fatalf("CreateNode failed: %v", err)
		}
		if prev, ok := seen[p]; ok {
			t.Fatalf("node %d seeded on node %d at %v", id, prev, p)
		}
		seen[p] = id
	}

	// the fifth ring sits inside the first
	center := cfg.Center()
	inner := geometry.Distance(store.Nodes()[4*layout.Slots].Position(), center)
	outer := geometry.Distance(store.Nodes()[0].Position(), center)
	if !(inner > 0 && inner < outer) {
		t.Errorf("ring radius %f should be in (0, %f)", inner, outer)
	}
}

func TestCircularSeedAfterRemoval(t *testing.T) {
	layout := NewCircularLayout(DefaultLayoutConfig())
	store := graph.NewStore(graph.StoreOptions{})

	var ids []graph.NodeID
	for i := 0; i < 3; i++ {
		p := layout.Seed(store, graph.NodeSpec{})
		id, _ := store.CreateNode(graph.NodeSpec{Position: &p})
		ids = append(ids, id)
	}
	if err := store.RemoveNode(ids[0]); err != nil {
		t.Fatalf("RemoveNode failed: %v", err)
	}

	p := layout.Seed(store, graph.NodeSpec{})
	for _, n := range store.Nodes() {
		if n.Position() == p {
			t.Errorf("seed %v lands on surviving node %d", p, n.ID)
		}
	}
}

func TestLayoutConfigRejectsOversizedPadding(t *testing.T) {
	tests := []struct {
		name    string
		padding float64
		wantErr bool
	}{
		{"default", 50, false},
		{"just fits", 299, false},
		{"half the height", 300, true},
		{"beyond the canvas", 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLayoutConfig()
			cfg.Padding = tt.padding
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "LayoutConfig.Padding") {
				t.Errorf("Expected LayoutConfig.Padding in %q", err.Error())
			}
		})
	}
}

func TestHierarchicalLayout(t *testing.T) {
	store := graph.NewStore(graph.StoreOptions{})
	root, _ := store.CreateNode(graph.NodeSpec{})
	child1, _ := store.CreateNode(graph.NodeSpec{Neighbors: []graph.NodeID{root}})
	child2, _ := store.CreateNode(graph.NodeSpec{Neighbors: []graph.NodeID{root}})
	gc1, _ := store.CreateNode(graph.NodeSpec{Neighbors: []graph.NodeID{child1}})
	gc2, _ := store.CreateNode(graph.NodeSpec{Neighbors: []graph.NodeID{child1}})

	cfg := DefaultLayoutConfig()
	cfg.Width, cfg.Height = 600, 400
	positions := NewHierarchicalLayout(cfg).ComputeLayout(store)

	rootY := positions[root].Y
	for id, pos := range positions {
		if id != root && pos.Y <= rootY {
			t.Errorf("Node %d has Y=%f, should be below root Y=%f", id, pos.Y, rootY)
		}
	}
	if positions[child1].Y != positions[child2].Y {
		t.Errorf("Children not at same level: %v %v", positions[child1], positions[child2])
	}
	if positions[gc1].Y != positions[gc2].Y || positions[gc1].Y <= positions[child1].Y {
		t.Errorf("Grandchildren misplaced: %v %v", positions[gc1], positions[gc2])
	}
}

func TestHierarchicalSeed(t *testing.T) {
	cfg := DefaultLayoutConfig()
	layout := NewHierarchicalLayout(cfg)
	store := graph.NewStore(graph.StoreOptions{})

	rootPos := layout.Seed(store, graph.NodeSpec{})
	root, _ := store.CreateNode(graph.NodeSpec{Position: &rootPos})

	childSpec := graph.NodeSpec{Neighbors: []graph.NodeID{99, root}}
	childPos := layout.Seed(store, childSpec)
	if childPos.Y-rootPos.Y != layout.LevelHeight {
		t.Errorf("child should sit one level below root: %v vs %v", childPos, rootPos)
	}

	second := layout.Seed(store, graph.NodeSpec{})
	if second.Y != rootPos.Y || second.X <= rootPos.X {
		t.Errorf("second root should follow the first on level 0: %v vs %v", second, rootPos)
	}
}

func TestRandomLayoutDeterministic(t *testing.T) {
	cfg := DefaultLayoutConfig()
	store := graph.NewStore(graph.StoreOptions{})
	for i := 0; i < 10; i++ {
		store.CreateNode(graph.NodeSpec{})
	}

	first := NewRandomLayout(cfg, 42).ComputeLayout(store)
	second := NewRandomLayout(cfg, 42).ComputeLayout(store)
	for id, p := range first {
		if second[id] != p {
			t.Errorf("Node %d differs between runs with the same seed", id)
		}
		if p.X < cfg.Padding || p.X > cfg.Width-cfg.Padding || p.Y < cfg.Padding || p.Y > cfg.Height-cfg.Padding {
			t.Errorf("Node %d at %v outside padded canvas", id, p)
		}
	}
}

func TestNewLayoutByName(t *testing.T) {
	cfg := DefaultLayoutConfig()
	if _, ok := NewLayout("circular", cfg, 0).(*CircularLayout); !ok {
		t.Error("Expected CircularLayout")
	}
	if _, ok := NewLayout("hierarchical", cfg, 0).(*HierarchicalLayout); !ok {
		t.Error("Expected HierarchicalLayout")
	}
	if _, ok := NewLayout("bogus", cfg, 0).(*RandomLayout); !ok {
		t.Error("Expected RandomLayout fallback")
	}
}

func TestArrangeResetsState(t *testing.T) {
	engine, store, _ := newTestEngine(t, DefaultLayoutConfig(), at(1, 1), at(2, 2))
	for i := 0; i < 5; i++ {
		engine.Advance()
	}

	engine.Arrange(NewCircularLayout(engine.Config()))
	if engine.Frame() != 0 {
		t.Errorf("Arrange should restart warm start, frame=%d", engine.Frame())
	}
	for _, n := range store.Nodes() {
		if n.LastX != 0 || n.LastY != 0 {
			t.Errorf("node %d kept smoothing state", n.ID)
		}
		if d := geometry.Distance(n.Position(), engine.Config().Center()); math.Abs(d-250) > 1e-9 {
			t.Errorf("node %d not on the circle: %f", n.ID, d)
		}
	}
}

func TestBounds(t *testing.T) {
	store := graph.NewStore(graph.StoreOptions{})
	if _, ok := Bounds(store); ok {
		t.Error("empty store should have no bounds")
	}

	store.CreateNode(graph.NodeSpec{Position: at(0, 0)})
	store.CreateNode(graph.NodeSpec{Position: at(100, 50), Radius: 5})

	r, ok := Bounds(store)
	if !ok {
		t.Fatal("Expected bounds")
	}
	want := geometry.Rect{MinX: -10, MinY: -10, MaxX: 105, MaxY: 55}
	if r != want {
		t.Errorf("Bounds() = %+v, want %+v", r, want)
	}
}
