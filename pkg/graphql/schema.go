// Package graphql serves a read-only GraphQL view of the most recently
// published diagram scene.
package graphql

import (
	"fmt"
	"strconv"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/graph"
)

// SceneSource provides the latest scene. stream.Broker implements it.
type SceneSource interface {
	LatestScene() (diagram.Scene, bool)
}

// sceneNode carries the owning scene so neighbor and edge fields can resolve
type sceneNode struct {
	node  diagram.SceneNode
	scene *sceneIndex
}

type sceneEdge struct {
	edge  diagram.SceneEdge
	scene *sceneIndex
}

// sceneIndex is built once per request
type sceneIndex struct {
	scene diagram.Scene
	byID  map[graph.NodeID]int
}

func newSceneIndex(s diagram.Scene) *sceneIndex {
	idx := &sceneIndex{scene: s, byID: make(map[graph.NodeID]int, len(s.Nodes))}
	for i, n := range s.Nodes {
		idx.byID[n.ID] = i
	}
	return idx
}

func (x *sceneIndex) node(id graph.NodeID) (sceneNode, bool) {
	i, ok := x.byID[id]
	if !ok {
		return sceneNode{}, false
	}
	return sceneNode{node: x.scene.Nodes[i], scene: x}, true
}

func (x *sceneIndex) neighbors(id graph.NodeID) []sceneNode {
	var out []sceneNode
	for _, e := range x.scene.Edges {
		var other graph.NodeID
		switch id {
		case e.A:
			other = e.B
		case e.B:
			other = e.A
		default:
			continue
		}
		if n, ok := x.node(other); ok {
			out = append(out, n)
		}
	}
	return out
}

func (x *sceneIndex) edges(filter func(diagram.SceneEdge) bool) []sceneEdge {
	out := make([]sceneEdge, 0, len(x.scene.Edges))
	for _, e := range x.scene.Edges {
		if filter == nil || filter(e) {
			out = append(out, sceneEdge{edge: e, scene: x})
		}
	}
	return out
}

func parseID(v any) (graph.NodeID, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("id must be a string")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return graph.NodeID(id), nil
}

func nodeField(typ graphql.Output, get func(diagram.SceneNode) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if n, ok := p.Source.(sceneNode); ok {
				return get(n.node), nil
			}
			return nil, nil
		},
	}
}

func edgeField(typ graphql.Output, get func(diagram.SceneEdge) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if e, ok := p.Source.(sceneEdge); ok {
				return get(e.edge), nil
			}
			return nil, nil
		},
	}
}

func sceneField(typ graphql.Output, get func(diagram.Scene) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if x, ok := p.Source.(*sceneIndex); ok {
				return get(x.scene), nil
			}
			return nil, nil
		},
	}
}

func idString(id graph.NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// NewSchema builds the scene schema over src
func NewSchema(src SceneSource, limits LimitConfig) (graphql.Schema, error) {
	if err := ValidateLimitConfig(&limits); err != nil {
		return graphql.Schema{}, err
	}

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":           nodeField(graphql.NewNonNull(graphql.ID), func(n diagram.SceneNode) any { return idString(n.ID) }),
			"label":        nodeField(graphql.String, func(n diagram.SceneNode) any { return n.Label }),
			"x":            nodeField(graphql.Float, func(n diagram.SceneNode) any { return n.X }),
			"y":            nodeField(graphql.Float, func(n diagram.SceneNode) any { return n.Y }),
			"radius":       nodeField(graphql.Float, func(n diagram.SceneNode) any { return n.Radius }),
			"fill":         nodeField(graphql.String, func(n diagram.SceneNode) any { return n.Fill }),
			"hovered":      nodeField(graphql.Boolean, func(n diagram.SceneNode) any { return n.Hovered }),
			"dragged":      nodeField(graphql.Boolean, func(n diagram.SceneNode) any { return n.Dragged }),
			"dimmed":       nodeField(graphql.Boolean, func(n diagram.SceneNode) any { return n.Dimmed }),
			"labelVisible": nodeField(graphql.Boolean, func(n diagram.SceneNode) any { return n.LabelVisible }),
		},
	})
	nodeType.AddFieldConfig("degree", &graphql.Field{
		Type: graphql.Int,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if n, ok := p.Source.(sceneNode); ok {
				return len(n.scene.neighbors(n.node.ID)), nil
			}
			return nil, nil
		},
	})
	nodeType.AddFieldConfig("neighbors", &graphql.Field{
		Type: graphql.NewList(nodeType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if n, ok := p.Source.(sceneNode); ok {
				return n.scene.neighbors(n.node.ID), nil
			}
			return nil, nil
		},
	})

	endpoint := func(pick func(diagram.SceneEdge) graph.NodeID) *graphql.Field {
		return &graphql.Field{
			Type: nodeType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if e, ok := p.Source.(sceneEdge); ok {
					if n, found := e.scene.node(pick(e.edge)); found {
						return n, nil
					}
				}
				return nil, nil
			},
		}
	}

	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"a":      edgeField(graphql.NewNonNull(graphql.ID), func(e diagram.SceneEdge) any { return idString(e.A) }),
			"b":      edgeField(graphql.NewNonNull(graphql.ID), func(e diagram.SceneEdge) any { return idString(e.B) }),
			"color":  edgeField(graphql.String, func(e diagram.SceneEdge) any { return e.Color }),
			"dimmed": edgeField(graphql.Boolean, func(e diagram.SceneEdge) any { return e.Dimmed }),
			"source": endpoint(func(e diagram.SceneEdge) graph.NodeID { return e.A }),
			"target": endpoint(func(e diagram.SceneEdge) graph.NodeID { return e.B }),
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"instance":   sceneField(graphql.String, func(s diagram.Scene) any { return s.Instance }),
			"frame":      sceneField(graphql.Float, func(s diagram.Scene) any { return float64(s.Frame) }),
			"running":    sceneField(graphql.Boolean, func(s diagram.Scene) any { return s.Running }),
			"scale":      sceneField(graphql.Float, func(s diagram.Scene) any { return s.Transform.Scale }),
			"translateX": sceneField(graphql.Float, func(s diagram.Scene) any { return s.Transform.TranslateX }),
			"translateY": sceneField(graphql.Float, func(s diagram.Scene) any { return s.Transform.TranslateY }),
			"passes":     sceneField(graphql.Int, func(s diagram.Scene) any { return s.Stats.Passes }),
			"maxDelta":   sceneField(graphql.Float, func(s diagram.Scene) any { return s.Stats.MaxDelta }),
			"cursor":     sceneField(graphql.String, func(s diagram.Scene) any { return s.Cursor }),
			"nodeCount":  sceneField(graphql.Int, func(s diagram.Scene) any { return len(s.Nodes) }),
			"edgeCount":  sceneField(graphql.Int, func(s diagram.Scene) any { return len(s.Edges) }),
		},
	})

	latest := func() (*sceneIndex, bool) {
		s, ok := src.LatestScene()
		if !ok {
			return nil, false
		}
		return newSceneIndex(s), true
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"scene": &graphql.Field{
				Type: sceneType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if x, ok := latest(); ok {
						return x, nil
					}
					return nil, nil
				},
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := parseID(p.Args["id"])
					if err != nil {
						return nil, err
					}
					x, ok := latest()
					if !ok {
						return nil, nil
					}
					if n, found := x.node(id); found {
						return n, nil
					}
					return nil, nil
				},
			},
			"nodes": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: -1},
					"label":   &graphql.ArgumentConfig{Type: graphql.String},
					"dimmed":  &graphql.ArgumentConfig{Type: graphql.Boolean},
					"hovered": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					x, ok := latest()
					if !ok {
						return []sceneNode{}, nil
					}
					limit, _ := p.Args["limit"].(int)
					limit = applyLimit(limit, &limits)

					out := make([]sceneNode, 0, min(limit, len(x.scene.Nodes)))
					for _, n := range x.scene.Nodes {
						if len(out) >= limit {
							break
						}
						if !matchNode(n, p.Args) {
							continue
						}
						out = append(out, sceneNode{node: n, scene: x})
					}
					return out, nil
				},
			},
			"edges": &graphql.Field{
				Type: graphql.NewList(edgeType),
				Args: graphql.FieldConfigArgument{
					"node": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					x, ok := latest()
					if !ok {
						return []sceneEdge{}, nil
					}
					raw, has := p.Args["node"]
					if !has {
						return x.edges(nil), nil
					}
					id, err := parseID(raw)
					if err != nil {
						return nil, err
					}
					return x.edges(func(e diagram.SceneEdge) bool { return e.A == id || e.B == id }), nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func matchNode(n diagram.SceneNode, args map[string]any) bool {
	if label, ok := args["label"].(string); ok && n.Label != label {
		return false
	}
	if dimmed, ok := args["dimmed"].(bool); ok && n.Dimmed != dimmed {
		return false
	}
	if hovered, ok := args["hovered"].(bool); ok && n.Hovered != hovered {
		return false
	}
	return true
}
