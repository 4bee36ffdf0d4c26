package visualization

import (
	"math"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// CircularLayout arranges nodes in a circle
type CircularLayout struct {
	config LayoutConfig

	// Slots is the number of positions per ring used when seeding one node at
	// a time. Each further ring is drawn at RingShrink times the previous
	// radius, so no two seeds share a position.
	Slots      int
	RingShrink float64
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config LayoutConfig) *CircularLayout {
	return &CircularLayout{config: config, Slots: 12, RingShrink: 0.8}
}

func (cl *CircularLayout) radius() float64 {
	c := cl.config.Center()
	return math.Max(math.Min(c.X, c.Y)-cl.config.Padding, 0)
}

// ComputeLayout spaces all nodes evenly on one circle in creation order
func (cl *CircularLayout) ComputeLayout(s *graph.Store) map[graph.NodeID]geometry.Point {
	nodes := s.Nodes()
	positions := make(map[graph.NodeID]geometry.Point, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	center := cl.config.Center()
	radius := cl.radius()
	angleStep := 2 * math.Pi / float64(len(nodes))

	for i, n := range nodes {
		angle := float64(i) * angleStep
		positions[n.ID] = geometry.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return positions
}

// Seed places the next node in the slot keyed by its id. Ids are never
// reused, so removals do not make a later node land on a survivor.
func (cl *CircularLayout) Seed(s *graph.Store, _ graph.NodeSpec) geometry.Point {
	slots := cl.Slots
	if slots <= 0 {
		slots = 12
	}
	shrink := cl.RingShrink
	if !(shrink > 0 && shrink < 1) {
		shrink = 0.8
	}
	i := int(s.NextID())
	ring := i / slots
	angle := float64(i%slots)*2*math.Pi/float64(slots) + float64(ring%2)*math.Pi/float64(slots)
	radius := cl.radius() * math.Pow(shrink, float64(ring))

	center := cl.config.Center()
	return geometry.Point{
		X: center.X + radius*math.Cos(angle),
		Y: center.Y + radius*math.Sin(angle),
	}
}
