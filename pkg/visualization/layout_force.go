package visualization

import (
	"math"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// Repulsion returns the push between two nodes. Distance is measured between
// the rims, and overlapping discs get the full cap.
func (p Physics) Repulsion(a, b *graph.Node) float64 {
	d := geometry.Distance(a.Position(), b.Position()) - a.Radius - b.Radius
	if d <= 0 {
		return p.RepulsionCap
	}
	return math.Min(p.RepelForce*p.RepulsionConstant/(d*d), p.RepulsionCap)
}

// CenterPull returns the attraction of a node toward c, quadratic in distance
func (p Physics) CenterPull(n *graph.Node, c geometry.Point) float64 {
	rho := geometry.Distance(n.Position(), c)
	return p.CenterCoefficient * rho * rho
}

// Spring returns the edge force between two nodes. It is never positive:
// edges shorter than LinkDistance exert nothing.
func (p Physics) Spring(a, b *graph.Node) float64 {
	length := geometry.Distance(a.Position(), b.Position())
	return p.SpringCoefficient * math.Min(p.LinkDistance-length, 0)
}

// applyPair damps f and adds it to b along a->b, subtracting it from a.
// Positive f pushes the pair apart.
func (p Physics) applyPair(f float64, a, b *graph.Node) {
	fx, fy := geometry.Decompose(geometry.Damp(f, p.Damping), a.Position(), b.Position())
	if !geometry.Finite(fx) || !geometry.Finite(fy) {
		return
	}
	a.NextX -= fx
	a.NextY -= fy
	b.NextX += fx
	b.NextY += fy
}

// applyToward damps f and adds it to n in the direction of target
func (p Physics) applyToward(f float64, n *graph.Node, target geometry.Point) {
	fx, fy := geometry.Decompose(geometry.Damp(f, p.Damping), n.Position(), target)
	if !geometry.Finite(fx) || !geometry.Finite(fy) {
		return
	}
	n.NextX += fx
	n.NextY += fy
}

// accumulate writes one pass worth of forces into the node accumulators
func (p Physics) accumulate(s *graph.Store, center geometry.Point) {
	nodes := s.Nodes()
	for i, a := range nodes {
		p.applyToward(p.CenterPull(a, center), a, center)
		for _, b := range nodes[i+1:] {
			p.applyPair(p.Repulsion(a, b), a, b)
		}
	}

	for _, e := range s.Edges() {
		a, okA := s.Node(e.A)
		b, okB := s.Node(e.B)
		if !okA || !okB {
			continue
		}
		p.applyPair(p.Spring(a, b), a, b)
	}
}
