package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/viewport"
)

func glyphAt(t *testing.T, c *Canvas, col, row int) rune {
	t.Helper()
	lines := c.Lines()
	require.Less(t, row, len(lines))
	runes := []rune(lines[row])
	require.Less(t, col, len(runes))
	return runes[col]
}

func TestCanvasGeometry(t *testing.T) {
	c := NewCanvas(800, 600, 80, 24)
	cols, rows := c.Size()
	assert.Equal(t, 80, cols)
	assert.Equal(t, 24, rows)

	px, py, ok := c.ToDevice(40, 12)
	require.True(t, ok)
	assert.Equal(t, 405.0, px)
	assert.Equal(t, 312.5, py)

	for _, cell := range [][2]int{{-1, 0}, {0, -1}, {80, 0}, {0, 24}} {
		_, _, ok := c.ToDevice(cell[0], cell[1])
		assert.False(t, ok, "cell %v is outside the grid", cell)
	}

	c.Resize(40, 12)
	px, py, ok = c.ToDevice(0, 0)
	require.True(t, ok)
	assert.Equal(t, 10.0, px)
	assert.Equal(t, 25.0, py)

	c.Resize(0, -3)
	cols, rows = c.Size()
	assert.Equal(t, 1, cols)
	assert.Equal(t, 1, rows)
}

func TestCanvasRender(t *testing.T) {
	c := NewCanvas(800, 600, 80, 24)
	scene := diagram.Scene{
		Transform: viewport.Transform{Scale: 1},
		TextColor: "#222222",
		Nodes: []diagram.SceneNode{
			{ID: 0, Label: "hub", X: 400, Y: 300, Radius: 10, Fill: "#4e79a7", LabelVisible: true},
			{ID: 1, Label: "far", X: 700, Y: 500, Radius: 10, Dimmed: true},
			{ID: 2, X: 100, Y: 100, Radius: 10, Dragged: true},
		},
		Edges: []diagram.SceneEdge{
			{A: 0, B: 2, AX: 400, AY: 300, BX: 100, BY: 100, Color: "#9c9c9c"},
		},
	}
	require.NoError(t, c.Render(scene))

	assert.Equal(t, glyphNode, glyphAt(t, c, 40, 12))
	assert.Equal(t, glyphDimmed, glyphAt(t, c, 70, 20))
	assert.Equal(t, glyphDragged, glyphAt(t, c, 10, 4))
	assert.Equal(t, glyphEdge, glyphAt(t, c, 25, 8), "edge passes between its endpoints")
	assert.Equal(t, "hub", string([]rune(c.Lines()[12])[42:45]))
	assert.NotContains(t, c.Lines()[20], "far", "label hidden when not visible")
	assert.Contains(t, c.View(), "hub")

	// a second render starts from a clean grid
	require.NoError(t, c.Render(diagram.Scene{Transform: viewport.Transform{Scale: 1}}))
	assert.Equal(t, ' ', glyphAt(t, c, 40, 12))
}

func TestCanvasFollowsTransform(t *testing.T) {
	c := NewCanvas(800, 600, 80, 24)
	scene := diagram.Scene{
		Transform: viewport.Transform{Scale: 2, TranslateX: -200, TranslateY: -150},
		Nodes:     []diagram.SceneNode{{X: 400, Y: 300, Radius: 10}},
	}
	require.NoError(t, c.Render(scene))
	// (400-200)*2 = 400, (300-150)*2 = 300; radius 20 device pixels
	assert.Equal(t, glyphNode, glyphAt(t, c, 40, 12))
	assert.Equal(t, glyphNode, glyphAt(t, c, 39, 12))
	assert.Equal(t, glyphNode, glyphAt(t, c, 41, 12))
}

func TestCanvasClipsAndSkipsNonFinite(t *testing.T) {
	c := NewCanvas(800, 600, 80, 24)
	scene := diagram.Scene{
		Transform: viewport.Transform{Scale: 1},
		Nodes: []diagram.SceneNode{
			{X: -5000, Y: 9000, Radius: 50, Label: "gone", LabelVisible: true},
			{X: math.NaN(), Y: 0, Radius: 10},
		},
		Edges: []diagram.SceneEdge{
			{AX: -5000, AY: -5000, BX: 5000, BY: 5000},
			{AX: math.Inf(1), AY: 0, BX: 0, BY: 0},
		},
	}
	require.NoError(t, c.Render(scene))
	for _, line := range c.Lines() {
		assert.Len(t, []rune(line), 80)
	}
}
