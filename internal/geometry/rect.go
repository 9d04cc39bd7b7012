// Package geometry provides the axis-aligned rectangle type shared by the
// detection, cropping and selection stages.
//
// All coordinates are full-image pixel coordinates with the origin at the
// top-left corner, X increasing rightward and Y increasing downward.
package geometry

import (
	"fmt"
	"image"
)

// Point represents a 2D position in pixel space. Fractional values are
// allowed because click positions are mapped back from a scaled display.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. A valid Rect has Width > 0 and Height > 0.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromImageRect converts an image.Rectangle to a Rect.
func FromImageRect(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ImageRect converts the rectangle to the standard library representation,
// with an exclusive maximum corner.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Area returns Width × Height.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Aspect returns Width / Height, or 0 for a degenerate rectangle.
func (r Rect) Aspect() float64 {
	if r.Height <= 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Translate returns the rectangle shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies inside the closed interval
// [X, X+Width] × [Y, Y+Height]. Edges count as hits.
func (r Rect) Contains(p Point) bool {
	return p.X >= float64(r.X) && p.X <= float64(r.X+r.Width) &&
		p.Y >= float64(r.Y) && p.Y <= float64(r.Y+r.Height)
}

// Within reports whether r lies entirely inside a width × height image.
func (r Rect) Within(width, height int) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= width && r.Y+r.Height <= height
}

// Clip intersects the rectangle with a width × height image. The result may
// be invalid if the two do not overlap.
func (r Rect) Clip(width, height int) Rect {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.X+r.Width, width)
	y1 := min(r.Y+r.Height, height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
