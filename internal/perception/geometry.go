// File: internal/perception/geometry.go
package perception

import (
	"fmt"
	"image"
	"math"
)

// Point is a screen coordinate in device pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rounded returns the nearest integer pixel coordinates.
func (p Point) Rounded() (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

func (p Point) String() string { return fmt.Sprintf("(%.0f,%.0f)", p.X, p.Y) }

// Rect is an axis-aligned rectangle. Both corners are inclusive.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// RectFromImage converts an image.Rectangle (half-open) into a Rect.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X1: float64(r.Min.X), Y1: float64(r.Min.Y), X2: float64(r.Max.X), Y2: float64(r.Max.Y)}
}

// boundingBox returns the min/max box of pts and the mean of pts.
func boundingBox(pts []Point) (Rect, Point) {
	box := Rect{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	var sum Point
	for _, p := range pts {
		box.X1 = math.Min(box.X1, p.X)
		box.Y1 = math.Min(box.Y1, p.Y)
		box.X2 = math.Max(box.X2, p.X)
		box.Y2 = math.Max(box.Y2, p.Y)
		sum.X += p.X
		sum.Y += p.Y
	}
	n := float64(len(pts))
	return box, Point{X: sum.X / n, Y: sum.Y / n}
}
