package diagram

import (
	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/snapshot"
)

// Snapshot captures the graph, positions and view
func (d *Diagram) Snapshot() snapshot.Document {
	return snapshot.Capture(d.store, d.view.Transform(), d.id)
}

// Load replaces the current graph with doc. Nodes saved without a position
// are seeded and the warm start restarts; a saved view is restored. The
// document is validated before anything is removed.
func (d *Diagram) Load(doc snapshot.Document) (map[graph.NodeID]graph.NodeID, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	d.ctrl.PointerLeave()
	existing := make([]graph.NodeID, 0, d.store.NodeCount())
	for _, n := range d.store.Nodes() {
		existing = append(existing, n.ID)
	}
	for _, id := range existing {
		if err := d.store.RemoveNode(id); err != nil {
			return nil, err
		}
	}

	seeded := 0
	ids, err := doc.Apply(d.store, func(spec graph.NodeSpec) geometry.Point {
		seeded++
		return d.seeder.Seed(d.store, spec)
	})
	d.metrics.SetGraphSize(d.store.NodeCount(), d.store.EdgeCount())
	if err != nil {
		return ids, err
	}

	if seeded > 0 {
		d.engine.Reheat()
	}
	if doc.View != nil && doc.View.Scale > 0 {
		d.view.Set(*doc.View)
		d.metrics.SetScale(d.view.Scale())
	}

	d.logger.Info("snapshot loaded",
		logging.Count(len(ids)),
		logging.Int("seeded", seeded),
		logging.String("source_instance", doc.Instance))
	return ids, nil
}
