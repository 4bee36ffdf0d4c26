package visualization

import (
	"math"
	"math/rand"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// RandomLayout scatters nodes uniformly over the padded canvas
type RandomLayout struct {
	config LayoutConfig
	rng    *rand.Rand
}

// NewRandomLayout creates a seeded random layout. The same seed always
// produces the same sequence of positions.
func NewRandomLayout(config LayoutConfig, seed int64) *RandomLayout {
	return &RandomLayout{config: config, rng: rand.New(rand.NewSource(seed))}
}

func (rl *RandomLayout) next() geometry.Point {
	pad := rl.config.Padding
	w := math.Max(rl.config.Width-2*pad, 0)
	h := math.Max(rl.config.Height-2*pad, 0)
	return geometry.Point{
		X: pad + rl.rng.Float64()*w,
		Y: pad + rl.rng.Float64()*h,
	}
}

// ComputeLayout scatters every node in creation order
func (rl *RandomLayout) ComputeLayout(s *graph.Store) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, s.NodeCount())
	for _, n := range s.Nodes() {
		positions[n.ID] = rl.next()
	}
	return positions
}

// Seed returns the next random position
func (rl *RandomLayout) Seed(_ *graph.Store, _ graph.NodeSpec) geometry.Point {
	return rl.next()
}

// Bounds returns the box enclosing every node disc. It reports false for an
// empty store.
func Bounds(s *graph.Store) (geometry.Rect, bool) {
	nodes := s.Nodes()
	if len(nodes) == 0 {
		return geometry.Rect{}, false
	}

	r := geometry.Rect{
		MinX: math.MaxFloat64, MinY: math.MaxFloat64,
		MaxX: -math.MaxFloat64, MaxY: -math.MaxFloat64,
	}
	for _, n := range nodes {
		r = r.Union(n.Position(), n.Radius)
	}
	return r, true
}

// NewLayout returns the named placement layout: "random", "circular" or
// "hierarchical". Unknown names fall back to random.
func NewLayout(name string, config LayoutConfig, seed int64) Placement {
	switch name {
	case "circular":
		return NewCircularLayout(config)
	case "hierarchical":
		return NewHierarchicalLayout(config)
	default:
		return NewRandomLayout(config, seed)
	}
}

// LayoutNames lists the names NewLayout understands
var LayoutNames = []string{"random", "circular", "hierarchical"}
