package graph

import (
	"sort"

	"github.com/dd0wney/forcegraph/pkg/geometry"
)

// NodeID identifies a node. IDs are assigned in increasing order and never reused.
type NodeID uint64

// AutoSizeFunc derives a node radius from its neighbor count
type AutoSizeFunc func(neighbors int) float64

// Node is a positioned, sized, labeled entity in the layout.
//
// Position and the two accumulators are written by the layout engine and the
// drag handler. Everything else is owned by the Store.
type Node struct {
	ID       NodeID
	Label    string
	Radius   float64
	Color    string // empty means the graph default
	AutoSize bool

	X, Y float64

	// Pending force for the current pass
	NextX, NextY float64

	// Delta applied in the previous pass
	LastX, LastY float64

	baseRadius float64 // fixed radius restored when auto-sizing is turned off
	neighbors  map[NodeID]struct{}
}

// Position returns the node's current position
func (n *Node) Position() geometry.Point {
	return geometry.Point{X: n.X, Y: n.Y}
}

// BaseRadius returns the fixed radius, which differs from Radius while the
// node is auto-sized
func (n *Node) BaseRadius() float64 {
	return n.baseRadius
}

// Degree returns the number of neighbors
func (n *Node) Degree() int {
	return len(n.neighbors)
}

// HasNeighbor reports whether id is adjacent to n
func (n *Node) HasNeighbor(id NodeID) bool {
	_, ok := n.neighbors[id]
	return ok
}

// Neighbors returns the neighbor ids in ascending order
func (n *Node) Neighbors() []NodeID {
	ids := make([]NodeID, 0, len(n.neighbors))
	for id := range n.neighbors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResetForces zeroes both accumulators
func (n *Node) ResetForces() {
	n.NextX, n.NextY = 0, 0
	n.LastX, n.LastY = 0, 0
}

// Edge is an undirected connection stored canonically with A < B.
type Edge struct {
	A NodeID `json:"a" yaml:"a"`
	B NodeID `json:"b" yaml:"b"`
}

// NewEdge canonicalizes an unordered pair
func NewEdge(a, b NodeID) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Other returns the endpoint opposite id
func (e Edge) Other(id NodeID) NodeID {
	if e.A == id {
		return e.B
	}
	return e.A
}

// Touches reports whether id is an endpoint
func (e Edge) Touches(id NodeID) bool {
	return e.A == id || e.B == id
}

// NodeSpec describes a node to create
type NodeSpec struct {
	Label     string
	Radius    float64 // zero means the store default
	Color     string
	Neighbors []NodeID
	AutoSize  bool
	Position  *geometry.Point // nil places the node at the origin
}

// NodeUpdate changes attributes of an existing node. Nil fields are left alone.
type NodeUpdate struct {
	Label    *string
	Radius   *float64 // sets the fixed radius; auto-sizing is turned off unless AutoSize says otherwise
	Color    *string
	AutoSize *bool
}

// StoreOptions configures a Store
type StoreOptions struct {
	DefaultRadius float64
	AutoSize      AutoSizeFunc
}
