package snapshot

import "github.com/dd0wney/forcegraph/pkg/graph"

// Demo returns a small social network with no saved positions. Hosts load it
// when started without a graph file.
func Demo() Document {
	people := []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	connections := [][2]graph.NodeID{
		{0, 1}, {0, 2}, {0, 6},
		{1, 3}, {1, 5},
		{2, 4}, {2, 7},
		{3, 6}, {3, 7},
		{4, 5}, {4, 0},
		{5, 6},
		{6, 7},
		// cycles
		{7, 0}, {6, 1},
	}

	doc := Document{Version: Version, Instance: "demo"}
	for i, name := range people {
		doc.Nodes = append(doc.Nodes, Node{ID: graph.NodeID(i), Label: name, AutoSize: true})
	}
	for _, c := range connections {
		doc.Edges = append(doc.Edges, graph.NewEdge(c[0], c[1]))
	}
	return doc
}
