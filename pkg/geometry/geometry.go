package geometry

import "math"

// Point represents a 2D coordinate in simulation space
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Decompose resolves a signed force magnitude into x/y components along the
// line from a to b. A positive magnitude points from a toward b.
//
// The components are derived from the run/rise triangle rather than from an
// angle, so axis-aligned pairs produce exact zeros instead of cos/sin residue.
// Coincident points have no direction and yield (0, 0).
func Decompose(magnitude float64, a, b Point) (fx, fy float64) {
	run := b.X - a.X
	rise := b.Y - a.Y
	if run == 0 && rise == 0 {
		return 0, 0
	}
	if magnitude == 0 {
		return 0, 0
	}

	abs := math.Abs(magnitude)
	sign := 1.0
	if magnitude < 0 {
		sign = -1
	}

	if run != 0 {
		ratio := rise / run
		fx = math.Copysign(abs/math.Sqrt(1+ratio*ratio), run) * sign
	}
	if rise != 0 {
		ratio := run / rise
		fy = math.Copysign(abs/math.Sqrt(1+ratio*ratio), rise) * sign
	}
	return fx, fy
}

// Damp shrinks a force toward zero by a fixed fraction of its magnitude.
// The result never changes sign.
func Damp(force, damping float64) float64 {
	abs := math.Abs(force)
	damped := math.Max(abs-damping*abs, 0)
	if force < 0 {
		return -damped
	}
	return damped
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Logistic evaluates lo + (hi-lo) / (1 + e^(-k(x-x0)))
func Logistic(x, x0, k, lo, hi float64) float64 {
	return lo + (hi-lo)/(1+math.Exp(-k*(x-x0)))
}

// Finite reports whether v is neither NaN nor infinite
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Rect is an axis-aligned bounding box
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the midpoint of the box
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Union grows r to include the disc at c with radius rad
func (r Rect) Union(c Point, rad float64) Rect {
	return Rect{
		MinX: math.Min(r.MinX, c.X-rad),
		MinY: math.Min(r.MinY, c.Y-rad),
		MaxX: math.Max(r.MaxX, c.X+rad),
		MaxY: math.Max(r.MaxY, c.Y+rad),
	}
}
