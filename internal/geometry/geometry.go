// Package geometry converts the rectangles and points reported by the
// vision backends into the transport-neutral BoundingBox and Corner shapes.
package geometry

import "math"

// Point represents a 2D coordinate reported by a backend.
type Point struct {
	X float64
	Y float64
}

// Rect is an edge-defined rectangle in image coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// NewRect constructs a Rect from two opposite corners ensuring ordering.
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{Left: x1, Top: y1, Right: x2, Bottom: y2}
}

// Width returns the rect width.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the rect height.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// BoundingBox is the serialized rectangle shape. X and Y mirror the center.
type BoundingBox struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Top     float64 `json:"top"`
	Left    float64 `json:"left"`
	Bottom  float64 `json:"bottom"`
	Right   float64 `json:"right"`
}

// Corner is a single corner point in SDK order.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromRect converts a Rect into a BoundingBox. Centers are float midpoints.
func FromRect(r Rect) BoundingBox {
	cx := (r.Left + r.Right) / 2
	cy := (r.Top + r.Bottom) / 2
	return BoundingBox{
		X:       cx,
		Y:       cy,
		CenterX: cx,
		CenterY: cy,
		Width:   r.Right - r.Left,
		Height:  r.Bottom - r.Top,
		Top:     r.Top,
		Left:    r.Left,
		Bottom:  r.Bottom,
		Right:   r.Right,
	}
}

// FromRectPtr converts an optional Rect. A nil rect yields a nil box.
func FromRectPtr(r *Rect) *BoundingBox {
	if r == nil {
		return nil
	}
	b := FromRect(*r)
	return &b
}

// ToCorner converts a single point.
func ToCorner(p Point) Corner {
	return Corner(p)
}

// ToCorners converts points preserving order. Empty input yields nil so the
// corners key can be omitted downstream.
func ToCorners(pts []Point) []Corner {
	if len(pts) == 0 {
		return nil
	}
	out := make([]Corner, len(pts))
	for i, p := range pts {
		out[i] = ToCorner(p)
	}
	return out
}

// RectFromPoints returns the axis-aligned rect enclosing pts, or nil when
// pts is empty.
func RectFromPoints(pts []Point) *Rect {
	if len(pts) == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	r := Rect{Left: minX, Top: minY, Right: maxX, Bottom: maxY}
	return &r
}

// RectCorners returns the four corners of r clockwise from top-left.
func RectCorners(r Rect) []Point {
	return []Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right, Y: r.Top},
		{X: r.Right, Y: r.Bottom},
		{X: r.Left, Y: r.Bottom},
	}
}
