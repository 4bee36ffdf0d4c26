package diagram

import (
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/viewport"
	"github.com/dd0wney/forcegraph/pkg/visualization"
)

// Renderer draws a scene. Render is called on the frame goroutine once per
// advanced frame; the scene is never mutated afterwards and may be retained.
type Renderer interface {
	Render(scene Scene) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(scene Scene) error

// Render calls f(scene)
func (f RendererFunc) Render(scene Scene) error {
	return f(scene)
}

// Scene is everything a renderer needs to draw one frame. Positions are in
// simulation space; apply Transform to reach device pixels.
type Scene struct {
	Instance  string                   `json:"instance" yaml:"instance"`
	Frame     uint64                   `json:"frame" yaml:"frame"`
	Running   bool                     `json:"running" yaml:"running"`
	Transform viewport.Transform       `json:"transform" yaml:"transform"`
	Stats     visualization.FrameStats `json:"stats" yaml:"stats"`

	Background string `json:"background" yaml:"background"`
	Font       string `json:"font" yaml:"font"`
	TextColor  string `json:"textColor" yaml:"text_color"`
	Cursor     string `json:"cursor" yaml:"cursor"`

	Nodes []SceneNode `json:"nodes" yaml:"nodes"`
	Edges []SceneEdge `json:"edges" yaml:"edges"`
}

// SceneNode is one node as drawn
type SceneNode struct {
	ID           graph.NodeID `json:"id" yaml:"id"`
	Label        string       `json:"label" yaml:"label"`
	X            float64      `json:"x" yaml:"x"`
	Y            float64      `json:"y" yaml:"y"`
	Radius       float64      `json:"radius" yaml:"radius"`
	Fill         string       `json:"fill" yaml:"fill"`
	Hovered      bool         `json:"hovered" yaml:"hovered"`
	Dragged      bool         `json:"dragged" yaml:"dragged"`
	Dimmed       bool         `json:"dimmed" yaml:"dimmed"`
	LabelVisible bool         `json:"labelVisible" yaml:"label_visible"`
}

// SceneEdge is one edge as drawn, with its endpoint positions resolved
type SceneEdge struct {
	A      graph.NodeID `json:"a" yaml:"a"`
	B      graph.NodeID `json:"b" yaml:"b"`
	AX     float64      `json:"ax" yaml:"ax"`
	AY     float64      `json:"ay" yaml:"ay"`
	BX     float64      `json:"bx" yaml:"bx"`
	BY     float64      `json:"by" yaml:"by"`
	Color  string       `json:"color" yaml:"color"`
	Dimmed bool         `json:"dimmed" yaml:"dimmed"`
}

// Node looks up a scene node by id
func (s Scene) Node(id graph.NodeID) (SceneNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return SceneNode{}, false
}

// buildScene copies the current state into a fresh Scene
func (d *Diagram) buildScene() Scene {
	t := d.view.Transform()
	hovered, hovering := d.ctrl.Hovered()
	dragged, dragging := d.ctrl.Dragged()
	labels := t.Scale >= d.config.MinLabelScale

	var focus *graph.Node
	if hovering && d.config.DimNonNeighbors {
		focus, _ = d.store.Node(hovered)
	}

	nodes := d.store.Nodes()
	scene := Scene{
		Instance:   d.id,
		Frame:      d.frames,
		Running:    d.running,
		Transform:  t,
		Stats:      d.engine.Stats(),
		Background: d.config.Background,
		Font:       d.config.Font,
		TextColor:  d.config.TextColor,
		Cursor:     string(d.ctrl.Cursor()),
		Nodes:      make([]SceneNode, 0, len(nodes)),
		Edges:      make([]SceneEdge, 0, d.store.EdgeCount()),
	}

	for _, n := range nodes {
		fill := n.Color
		if fill == "" {
			fill = d.config.NodeColor
		}
		isHovered := hovering && n.ID == hovered
		if isHovered {
			fill = d.config.HoverColor
		}
		scene.Nodes = append(scene.Nodes, SceneNode{
			ID:           n.ID,
			Label:        n.Label,
			X:            n.X,
			Y:            n.Y,
			Radius:       n.Radius,
			Fill:         fill,
			Hovered:      isHovered,
			Dragged:      dragging && n.ID == dragged,
			Dimmed:       focus != nil && n.ID != focus.ID && !focus.HasNeighbor(n.ID),
			LabelVisible: labels && n.Label != "",
		})
	}

	for _, e := range d.store.Edges() {
		a, okA := d.store.Node(e.A)
		b, okB := d.store.Node(e.B)
		if !okA || !okB {
			continue
		}
		scene.Edges = append(scene.Edges, SceneEdge{
			A:      e.A,
			B:      e.B,
			AX:     a.X,
			AY:     a.Y,
			BX:     b.X,
			BY:     b.Y,
			Color:  d.config.EdgeColor,
			Dimmed: focus != nil && !e.Touches(focus.ID),
		})
	}
	return scene
}
