package graph

import (
	"fmt"

	"github.com/dd0wney/forcegraph/pkg/geometry"
)

const defaultRadius = 10

// Store holds the nodes and edges of one diagram.
//
// Nodes are kept in creation order, which is also hit-test and force
// accumulation order. Edges live in a set keyed by their canonical pair, with
// a parallel slice giving a deterministic iteration order.
//
// A Store is not safe for concurrent use.
type Store struct {
	nodes     []*Node
	index     map[NodeID]int
	edges     []Edge
	edgeIndex map[Edge]int
	nextID    NodeID

	defaultRadius float64
	autoSize      AutoSizeFunc
}

// NewStore creates an empty store
func NewStore(opts StoreOptions) *Store {
	if opts.DefaultRadius <= 0 || !geometry.Finite(opts.DefaultRadius) {
		opts.DefaultRadius = defaultRadius
	}
	if opts.AutoSize == nil {
		opts.AutoSize = DefaultAutoSize
	}
	return &Store{
		index:         make(map[NodeID]int),
		edgeIndex:     make(map[Edge]int),
		defaultRadius: opts.DefaultRadius,
		autoSize:      opts.AutoSize,
	}
}

// NodeCount returns the number of nodes
func (s *Store) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges
func (s *Store) EdgeCount() int {
	return len(s.edges)
}

// NextID returns the id the next created node will receive
func (s *Store) NextID() NodeID {
	return s.nextID
}

// Nodes returns the nodes in creation order. The slice must not be modified.
func (s *Store) Nodes() []*Node {
	return s.nodes
}

// Edges returns the edges in store order. The slice must not be modified.
func (s *Store) Edges() []Edge {
	return s.edges
}

// Node looks up a node by id
func (s *Store) Node(id NodeID) (*Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}

// HasEdge reports whether the unordered pair is stored
func (s *Store) HasEdge(a, b NodeID) bool {
	_, ok := s.edgeIndex[NewEdge(a, b)]
	return ok
}

// CreateNode adds a node and connects it to spec.Neighbors. If any neighbor
// is missing the store is left unchanged.
func (s *Store) CreateNode(spec NodeSpec) (NodeID, error) {
	if spec.Radius < 0 || !geometry.Finite(spec.Radius) {
		return 0, NewError("CreateNode").Context(fmt.Sprintf("radius %v", spec.Radius)).
			Invalid(fmt.Errorf("radius must be positive and finite")).Err()
	}
	for _, nb := range spec.Neighbors {
		if _, ok := s.index[nb]; !ok {
			return 0, NewError("CreateNode").Node(nb).Invalid(ErrNodeNotFound).Err()
		}
	}

	radius := spec.Radius
	if radius == 0 {
		radius = s.defaultRadius
	}

	n := &Node{
		ID:         s.nextID,
		Label:      spec.Label,
		Radius:     radius,
		Color:      spec.Color,
		AutoSize:   spec.AutoSize,
		baseRadius: radius,
		neighbors:  make(map[NodeID]struct{}),
	}
	if spec.Position != nil {
		n.X, n.Y = spec.Position.X, spec.Position.Y
	}
	s.nextID++

	s.index[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)

	for _, nb := range spec.Neighbors {
		if !s.HasEdge(n.ID, nb) {
			s.link(n.ID, nb)
		}
	}
	s.resize(n)
	return n.ID, nil
}

// RemoveNode deletes a node together with every edge incident to it
func (s *Store) RemoveNode(id NodeID) error {
	i, ok := s.index[id]
	if !ok {
		return NodeNotFoundError("RemoveNode", id)
	}
	n := s.nodes[i]

	for _, nb := range n.Neighbors() {
		s.unlink(id, nb)
	}

	copy(s.nodes[i:], s.nodes[i+1:])
	s.nodes[len(s.nodes)-1] = nil
	s.nodes = s.nodes[:len(s.nodes)-1]
	delete(s.index, id)
	for j := i; j < len(s.nodes); j++ {
		s.index[s.nodes[j].ID] = j
	}
	return nil
}

// CreateEdge connects two existing nodes. It reports false when the pair was
// already present.
func (s *Store) CreateEdge(a, b NodeID) (bool, error) {
	if a == b {
		return false, NewError("CreateEdge").Edge(a, b).Invalid(ErrSelfLoop).Err()
	}
	for _, id := range []NodeID{a, b} {
		if _, ok := s.index[id]; !ok {
			return false, NewError("CreateEdge").Node(id).Invalid(ErrNodeNotFound).Err()
		}
	}
	if s.HasEdge(a, b) {
		return false, nil
	}
	s.link(a, b)
	return true, nil
}

// RemoveEdge disconnects two nodes. It reports false when no such edge exists.
func (s *Store) RemoveEdge(a, b NodeID) bool {
	if !s.HasEdge(a, b) {
		return false
	}
	s.unlink(a, b)
	return true
}

// SetAutoSize toggles auto-sizing. Turning it off restores the node's fixed
// radius.
func (s *Store) SetAutoSize(id NodeID, enabled bool) error {
	n, ok := s.Node(id)
	if !ok {
		return NodeNotFoundError("SetAutoSize", id)
	}
	n.AutoSize = enabled
	if !enabled {
		n.Radius = n.baseRadius
	}
	s.resize(n)
	return nil
}

// SetRadius sets a fixed radius and disables auto-sizing
func (s *Store) SetRadius(id NodeID, radius float64) error {
	n, ok := s.Node(id)
	if !ok {
		return NodeNotFoundError("SetRadius", id)
	}
	if err := checkRadius("SetRadius", id, radius); err != nil {
		return err
	}
	n.AutoSize = false
	n.Radius = radius
	n.baseRadius = radius
	return nil
}

// SetLabel replaces a node's label
func (s *Store) SetLabel(id NodeID, label string) error {
	n, ok := s.Node(id)
	if !ok {
		return NodeNotFoundError("SetLabel", id)
	}
	n.Label = label
	return nil
}

// SetColor replaces a node's fill override. Empty means the graph default.
func (s *Store) SetColor(id NodeID, color string) error {
	n, ok := s.Node(id)
	if !ok {
		return NodeNotFoundError("SetColor", id)
	}
	n.Color = color
	return nil
}

// UpdateNode applies every set field of u, or none of them if the node is
// missing or the radius is invalid
func (s *Store) UpdateNode(id NodeID, u NodeUpdate) error {
	if _, ok := s.Node(id); !ok {
		return NodeNotFoundError("UpdateNode", id)
	}
	if u.Radius != nil {
		if err := checkRadius("UpdateNode", id, *u.Radius); err != nil {
			return err
		}
		_ = s.SetRadius(id, *u.Radius)
	}
	if u.AutoSize != nil {
		_ = s.SetAutoSize(id, *u.AutoSize)
	}
	if u.Label != nil {
		_ = s.SetLabel(id, *u.Label)
	}
	if u.Color != nil {
		_ = s.SetColor(id, *u.Color)
	}
	return nil
}

func checkRadius(op string, id NodeID, radius float64) error {
	if radius <= 0 || !geometry.Finite(radius) {
		return NewError(op).Node(id).Invalid(fmt.Errorf("radius %v must be positive and finite", radius)).Err()
	}
	return nil
}

// MoveTo places a node directly and clears its force state
func (s *Store) MoveTo(id NodeID, p geometry.Point) error {
	n, ok := s.Node(id)
	if !ok {
		return NodeNotFoundError("MoveTo", id)
	}
	n.X, n.Y = p.X, p.Y
	n.ResetForces()
	return nil
}

// HitTest returns the first node, in creation order, whose disc contains p
func (s *Store) HitTest(p geometry.Point) (NodeID, bool) {
	for _, n := range s.nodes {
		if geometry.Distance(n.Position(), p) <= n.Radius {
			return n.ID, true
		}
	}
	return 0, false
}

// Verify checks that neighbor sets and the edge set agree exactly
func (s *Store) Verify() error {
	pairs := 0
	for _, n := range s.nodes {
		for nb := range n.neighbors {
			other, ok := s.Node(nb)
			if !ok {
				return fmt.Errorf("node %d: dangling neighbor %d", n.ID, nb)
			}
			if !other.HasNeighbor(n.ID) {
				return fmt.Errorf("node %d: neighbor %d is not symmetric", n.ID, nb)
			}
			if !s.HasEdge(n.ID, nb) {
				return fmt.Errorf("node %d: neighbor %d has no edge", n.ID, nb)
			}
			pairs++
		}
	}
	if pairs != 2*len(s.edges) {
		return fmt.Errorf("neighbor pairs %d do not match %d edges", pairs, len(s.edges))
	}
	for i, e := range s.edges {
		if s.edgeIndex[e] != i {
			return fmt.Errorf("edge %d-%d: index out of sync", e.A, e.B)
		}
		if _, ok := s.index[e.A]; !ok {
			return fmt.Errorf("edge %d-%d: orphan endpoint %d", e.A, e.B, e.A)
		}
		if _, ok := s.index[e.B]; !ok {
			return fmt.Errorf("edge %d-%d: orphan endpoint %d", e.A, e.B, e.B)
		}
	}
	return nil
}

func (s *Store) link(a, b NodeID) {
	e := NewEdge(a, b)
	s.edgeIndex[e] = len(s.edges)
	s.edges = append(s.edges, e)

	na := s.nodes[s.index[a]]
	nb := s.nodes[s.index[b]]
	na.neighbors[b] = struct{}{}
	nb.neighbors[a] = struct{}{}
	s.resize(na)
	s.resize(nb)
}

func (s *Store) unlink(a, b NodeID) {
	e := NewEdge(a, b)
	i := s.edgeIndex[e]
	last := len(s.edges) - 1
	if i != last {
		moved := s.edges[last]
		s.edges[i] = moved
		s.edgeIndex[moved] = i
	}
	s.edges = s.edges[:last]
	delete(s.edgeIndex, e)

	if na, ok := s.Node(a); ok {
		delete(na.neighbors, b)
		s.resize(na)
	}
	if nb, ok := s.Node(b); ok {
		delete(nb.neighbors, a)
		s.resize(nb)
	}
}

// resize recomputes an auto-sized node's radius from its degree.
// Results that are not positive and finite fall back to the default radius.
func (s *Store) resize(n *Node) {
	if !n.AutoSize {
		return
	}
	r := s.autoSize(len(n.neighbors))
	if r <= 0 || !geometry.Finite(r) {
		r = s.defaultRadius
	}
	n.Radius = r
}

// DefaultAutoSize maps neighbor count onto a 6..24 pixel radius with a
// logistic curve centred at four neighbors.
func DefaultAutoSize(neighbors int) float64 {
	return geometry.Logistic(float64(neighbors), 4, 0.5, 6, 24)
}

// LogisticAutoSize builds an AutoSizeFunc with custom bounds
func LogisticAutoSize(minRadius, maxRadius, midpoint, steepness float64) AutoSizeFunc {
	return func(neighbors int) float64 {
		return geometry.Logistic(float64(neighbors), midpoint, steepness, minRadius, maxRadius)
	}
}
