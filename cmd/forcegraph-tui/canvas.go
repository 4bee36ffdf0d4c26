package main

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/forcegraph/pkg/diagram"
	"github.com/dd0wney/forcegraph/pkg/geometry"
)

const (
	glyphNode    = '●'
	glyphDimmed  = '○'
	glyphDragged = '◆'
	glyphEdge    = '·'
)

type cell struct {
	r     rune
	color string
	bold  bool
	faint bool
}

var blank = cell{r: ' '}

// Canvas rasterises scenes onto a grid of terminal cells. The diagram's
// device space is stretched over the grid, so one cell covers cellW x cellH
// device pixels.
type Canvas struct {
	mu            sync.Mutex
	width, height float64
	cols, rows    int
	cellW, cellH  float64
	cells         []cell
	styles        map[cell]lipgloss.Style
}

// NewCanvas creates a canvas for a width x height device surface
func NewCanvas(width, height float64, cols, rows int) *Canvas {
	c := &Canvas{width: width, height: height, styles: make(map[cell]lipgloss.Style)}
	c.Resize(cols, rows)
	return c
}

// Resize changes the grid size. The device surface is unchanged.
func (c *Canvas) Resize(cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cols, c.rows = max(cols, 1), max(rows, 1)
	c.cellW = c.width / float64(c.cols)
	c.cellH = c.height / float64(c.rows)
	c.cells = make([]cell, c.cols*c.rows)
	c.clear()
}

// Size returns the grid size in cells
func (c *Canvas) Size() (cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cols, c.rows
}

// ToDevice maps a cell to the device pixel at its centre. ok is false for
// cells outside the grid.
func (c *Canvas) ToDevice(col, row int) (px, py float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return 0, 0, false
	}
	return (float64(col) + 0.5) * c.cellW, (float64(row) + 0.5) * c.cellH, true
}

func (c *Canvas) cellOf(px, py float64) (int, int) {
	return int(math.Floor(px / c.cellW)), int(math.Floor(py / c.cellH))
}

func (c *Canvas) clear() {
	for i := range c.cells {
		c.cells[i] = blank
	}
}

func (c *Canvas) set(col, row int, v cell) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col] = v
}

// line draws with Bresenham between two cells
func (c *Canvas) line(x0, y0, x1, y1 int, v cell) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, v)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// disc fills every cell whose centre lies within r device pixels of (px, py).
// The centre cell is always filled so small nodes stay visible.
func (c *Canvas) disc(px, py, r float64, v cell) {
	col0, row0 := c.cellOf(px-r, py-r)
	col1, row1 := c.cellOf(px+r, py+r)
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			cx := (float64(col) + 0.5) * c.cellW
			cy := (float64(row) + 0.5) * c.cellH
			if geometry.Distance(geometry.Point{X: cx, Y: cy}, geometry.Point{X: px, Y: py}) <= r {
				c.set(col, row, v)
			}
		}
	}
	col, row := c.cellOf(px, py)
	c.set(col, row, v)
}

func (c *Canvas) text(col, row int, s, color string) {
	for _, r := range s {
		c.set(col, row, cell{r: r, color: color})
		col++
	}
}

// Render rasterises scene. It implements diagram.Renderer.
func (c *Canvas) Render(scene diagram.Scene) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
	t := scene.Transform

	for _, e := range scene.Edges {
		ax, ay := t.ToDevice(geometry.Point{X: e.AX, Y: e.AY})
		bx, by := t.ToDevice(geometry.Point{X: e.BX, Y: e.BY})
		if !finite(ax, ay, bx, by) {
			continue
		}
		x0, y0 := c.cellOf(ax, ay)
		x1, y1 := c.cellOf(bx, by)
		c.line(x0, y0, x1, y1, cell{r: glyphEdge, color: e.Color, faint: e.Dimmed})
	}

	for _, n := range scene.Nodes {
		px, py := t.ToDevice(geometry.Point{X: n.X, Y: n.Y})
		rx, _ := t.ToDevice(geometry.Point{X: n.X + n.Radius, Y: n.Y})
		if !finite(px, py, rx) {
			continue
		}
		v := cell{r: glyphNode, color: n.Fill, bold: n.Hovered}
		switch {
		case n.Dragged:
			v.r = glyphDragged
		case n.Dimmed:
			v.r, v.faint = glyphDimmed, true
		}
		r := math.Abs(rx - px)
		c.disc(px, py, r, v)

		if n.LabelVisible && n.Label != "" {
			col, row := c.cellOf(px+r, py)
			c.text(col+1, row, n.Label, scene.TextColor)
		}
	}
	return nil
}

// Lines returns the grid as plain text, one string per row
func (c *Canvas) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]string, c.rows)
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		b.Reset()
		for _, v := range c.cells[row*c.cols : (row+1)*c.cols] {
			b.WriteRune(v.r)
		}
		lines[row] = b.String()
	}
	return lines
}

// View returns the grid styled with lipgloss. Runs of identically styled
// cells are rendered together.
func (c *Canvas) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out strings.Builder
	var run strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		cells := c.cells[row*c.cols : (row+1)*c.cols]
		start := 0
		for i := 1; i <= len(cells); i++ {
			if i < len(cells) && sameStyle(cells[i], cells[start]) {
				continue
			}
			run.Reset()
			for _, v := range cells[start:i] {
				run.WriteRune(v.r)
			}
			out.WriteString(c.style(cells[start]).Render(run.String()))
			start = i
		}
	}
	return out.String()
}

func (c *Canvas) style(v cell) lipgloss.Style {
	key := cell{color: v.color, bold: v.bold, faint: v.faint}
	if s, ok := c.styles[key]; ok {
		return s
	}
	s := lipgloss.NewStyle().Bold(v.bold).Faint(v.faint)
	if v.color != "" {
		s = s.Foreground(lipgloss.Color(v.color))
	}
	c.styles[key] = s
	return s
}

func sameStyle(a, b cell) bool {
	return a.color == b.color && a.bold == b.bold && a.faint == b.faint
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
