package visualization

import (
	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// HierarchicalLayout arranges nodes in BFS levels, one row per level
type HierarchicalLayout struct {
	config LayoutConfig

	// LevelHeight and Spacing are used when seeding single nodes
	LevelHeight float64
	Spacing     float64
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config LayoutConfig) *HierarchicalLayout {
	return &HierarchicalLayout{config: config, LevelHeight: 80, Spacing: 60}
}

// levels groups nodes by BFS depth. Every connected component is rooted at
// its earliest-created node, so the result is deterministic.
func levels(s *graph.Store) ([][]graph.NodeID, map[graph.NodeID]int) {
	depth := make(map[graph.NodeID]int, s.NodeCount())
	var rows [][]graph.NodeID

	for _, root := range s.Nodes() {
		if _, seen := depth[root.ID]; seen {
			continue
		}
		depth[root.ID] = 0
		current := []graph.NodeID{root.ID}

		for level := 0; len(current) > 0; level++ {
			if level == len(rows) {
				rows = append(rows, nil)
			}
			rows[level] = append(rows[level], current...)

			var next []graph.NodeID
			for _, id := range current {
				n, _ := s.Node(id)
				for _, nb := range n.Neighbors() {
					if _, seen := depth[nb]; !seen {
						depth[nb] = level + 1
						next = append(next, nb)
					}
				}
			}
			current = next
		}
	}
	return rows, depth
}

// ComputeLayout fits all levels into the padded canvas
func (hl *HierarchicalLayout) ComputeLayout(s *graph.Store) map[graph.NodeID]geometry.Point {
	positions := make(map[graph.NodeID]geometry.Point, s.NodeCount())
	if s.NodeCount() == 0 {
		return positions
	}

	rows, _ := levels(s)
	pad := hl.config.Padding
	levelHeight := (hl.config.Height - 2*pad) / float64(len(rows))
	levelWidth := hl.config.Width - 2*pad

	for levelIdx, row := range rows {
		y := pad + float64(levelIdx)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(row)+1)
		for nodeIdx, id := range row {
			positions[id] = geometry.Point{X: pad + spacing*float64(nodeIdx+1), Y: y}
		}
	}
	return positions
}

// Seed puts a node one level below its shallowest neighbor, after the nodes
// already on that level. Nodes without neighbors start a new tree at the top.
func (hl *HierarchicalLayout) Seed(s *graph.Store, spec graph.NodeSpec) geometry.Point {
	rows, depth := levels(s)

	level := -1
	for _, nb := range spec.Neighbors {
		d, ok := depth[nb]
		if !ok {
			continue
		}
		if level < 0 || d+1 < level {
			level = d + 1
		}
	}
	if level < 0 {
		level = 0
	}

	occupied := 0
	if level < len(rows) {
		occupied = len(rows[level])
	}

	pad := hl.config.Padding
	usable := hl.config.Width - 2*pad
	perRow := 1
	if hl.Spacing > 0 && usable > hl.Spacing {
		perRow = int(usable / hl.Spacing)
	}
	col := occupied % perRow
	wrap := occupied / perRow

	return geometry.Point{
		X: pad + hl.Spacing*(float64(col)+0.5),
		Y: pad + hl.LevelHeight*float64(level) + hl.LevelHeight/4*float64(wrap),
	}
}
