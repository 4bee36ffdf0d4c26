// Package snapshot saves and restores a graph together with node positions and
// the view transform, so a layout survives restarts.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/viewport"
)

// Version is the document version written by this package
const Version = 1

// ErrInvalidDocument is wrapped by every document consistency failure
var ErrInvalidDocument = errors.New("invalid snapshot document")

// Node is one saved node. A nil Position asks the loader to seed one, which
// lets hand-written graph files omit coordinates.
type Node struct {
	ID       graph.NodeID    `yaml:"id" json:"id"`
	Label    string          `yaml:"label,omitempty" json:"label,omitempty"`
	Radius   float64         `yaml:"radius,omitempty" json:"radius,omitempty"`
	Color    string          `yaml:"color,omitempty" json:"color,omitempty"`
	AutoSize bool            `yaml:"auto_size,omitempty" json:"autoSize,omitempty"`
	Position *geometry.Point `yaml:"position,omitempty" json:"position,omitempty"`
}

// Document is a complete saved diagram
type Document struct {
	Version  int                 `yaml:"version" json:"version"`
	Instance string              `yaml:"instance,omitempty" json:"instance,omitempty"`
	SavedAt  time.Time           `yaml:"saved_at,omitempty" json:"savedAt,omitempty"`
	Nodes    []Node              `yaml:"nodes" json:"nodes"`
	Edges    []graph.Edge        `yaml:"edges" json:"edges"`
	View     *viewport.Transform `yaml:"view,omitempty" json:"view,omitempty"`
}

// Capture copies the store and transform into a document
func Capture(store *graph.Store, view viewport.Transform, instance string) Document {
	nodes := store.Nodes()
	doc := Document{
		Version:  Version,
		Instance: instance,
		SavedAt:  time.Now().UTC(),
		Nodes:    make([]Node, 0, len(nodes)),
		Edges:    append([]graph.Edge(nil), store.Edges()...),
		View:     &view,
	}
	for _, n := range nodes {
		p := n.Position()
		doc.Nodes = append(doc.Nodes, Node{
			ID:       n.ID,
			Label:    n.Label,
			Radius:   n.BaseRadius(),
			Color:    n.Color,
			AutoSize: n.AutoSize,
			Position: &p,
		})
	}
	return doc
}

// Validate checks ids are unique and every edge joins two listed nodes
func (d Document) Validate() error {
	if d.Version > Version {
		return fmt.Errorf("%w: version %d is newer than %d", ErrInvalidDocument, d.Version, Version)
	}

	seen := make(map[graph.NodeID]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidDocument, n.ID)
		}
		seen[n.ID] = struct{}{}
		if n.Position != nil && (!geometry.Finite(n.Position.X) || !geometry.Finite(n.Position.Y)) {
			return fmt.Errorf("%w: node %d has a non-finite position", ErrInvalidDocument, n.ID)
		}
	}
	for _, e := range d.Edges {
		if e.A == e.B {
			return fmt.Errorf("%w: self-loop on node %d", ErrInvalidDocument, e.A)
		}
		for _, id := range []graph.NodeID{e.A, e.B} {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("%w: edge %d-%d references unknown node %d", ErrInvalidDocument, e.A, e.B, id)
			}
		}
	}
	return nil
}

// SeedFunc picks a position for a node saved without one
type SeedFunc func(spec graph.NodeSpec) geometry.Point

// Apply creates the document's nodes and edges in store, in document order.
// Stores assign their own ids, so the returned map translates document ids
// to store ids. Nothing is created if the document is inconsistent.
func (d Document) Apply(store *graph.Store, seed SeedFunc) (map[graph.NodeID]graph.NodeID, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	ids := make(map[graph.NodeID]graph.NodeID, len(d.Nodes))
	for _, n := range d.Nodes {
		spec := graph.NodeSpec{
			Label:    n.Label,
			Radius:   n.Radius,
			Color:    n.Color,
			AutoSize: n.AutoSize,
			Position: n.Position,
		}
		if spec.Position == nil && seed != nil {
			p := seed(spec)
			spec.Position = &p
		}
		id, err := store.CreateNode(spec)
		if err != nil {
			return ids, fmt.Errorf("restore node %d: %w", n.ID, err)
		}
		ids[n.ID] = id
	}

	for _, e := range d.Edges {
		if _, err := store.CreateEdge(ids[e.A], ids[e.B]); err != nil {
			return ids, fmt.Errorf("restore edge %d-%d: %w", e.A, e.B, err)
		}
	}
	return ids, nil
}
