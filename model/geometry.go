package model

import "math"

// Point represents a 2D point in page coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance calculates the Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// BBox represents an axis-aligned rectangle in absolute page points.
// The coordinate system is the PDF default: origin bottom-left, y-up,
// 72 points per inch. Invariant: X1 >= X0 and Y1 >= Y0.
type BBox struct {
	X0 float64 `json:"x0"` // Left
	Y0 float64 `json:"y0"` // Bottom
	X1 float64 `json:"x1"` // Right
	Y1 float64 `json:"y1"` // Top
}

// NewBBox creates a bounding box from edge coordinates, swapping
// edges if necessary so the invariant holds.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Area returns the area of the bounding box
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the center point
func (b BBox) Center() Point {
	return Point{
		X: (b.X0 + b.X1) / 2,
		Y: (b.Y0 + b.Y1) / 2,
	}
}

// Contains checks if a point is inside the bounding box
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X0 && p.X <= b.X1 &&
		p.Y >= b.Y0 && p.Y <= b.Y1
}

// Intersects checks if two bounding boxes intersect
func (b BBox) Intersects(other BBox) bool {
	return !(b.X1 < other.X0 ||
		b.X0 > other.X1 ||
		b.Y1 < other.Y0 ||
		b.Y0 > other.Y1)
}

// Intersection returns the intersection of two bounding boxes,
// or a zero box if they do not intersect.
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}
	return BBox{
		X0: math.Max(b.X0, other.X0),
		Y0: math.Max(b.Y0, other.Y0),
		X1: math.Min(b.X1, other.X1),
		Y1: math.Min(b.Y1, other.Y1),
	}
}

// Union returns the smallest box containing both boxes
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, other.X0),
		Y0: math.Min(b.Y0, other.Y0),
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
	}
}

// Expand expands the bounding box by a margin on all sides
func (b BBox) Expand(margin float64) BBox {
	return BBox{
		X0: b.X0 - margin,
		Y0: b.Y0 - margin,
		X1: b.X1 + margin,
		Y1: b.Y1 + margin,
	}
}

// VerticalOverlap returns the length of the overlap between the two
// boxes' y-extents, or 0 if they are vertically disjoint.
func (b BBox) VerticalOverlap(other BBox) float64 {
	overlap := math.Min(b.Y1, other.Y1) - math.Max(b.Y0, other.Y0)
	if overlap < 0 {
		return 0
	}
	return overlap
}

// HorizontalGap returns the horizontal whitespace between the two
// boxes' x-extents, or 0 if they overlap horizontally.
func (b BBox) HorizontalGap(other BBox) float64 {
	gap := math.Max(b.X0, other.X0) - math.Min(b.X1, other.X1)
	if gap < 0 {
		return 0
	}
	return gap
}

// IsEmpty returns true if the bounding box has zero area
func (b BBox) IsEmpty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// IsValid returns true if the invariant X1 >= X0, Y1 >= Y0 holds
func (b BBox) IsValid() bool {
	return b.X1 >= b.X0 && b.Y1 >= b.Y0
}

// NormalizedBBox represents a rectangle in [0,1] coordinates relative to
// an enclosing column's bounds. It is produced only by [Column.Normalize];
// it is never constructed directly from page coordinates.
type NormalizedBBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Matrix represents a 2D affine transformation in PDF order (a,b,c,d,e,f).
// It is the CTM associated with an asset's placement in the source content
// stream. The pipeline carries it opaquely for the downstream renderer and
// only decomposes scale for geometry checks.
type Matrix [6]float64

// Identity returns an identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply multiplies two matrices
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// ScaleX returns the horizontal scale factor encoded in the matrix
func (m Matrix) ScaleX() float64 {
	return math.Sqrt(m[0]*m[0] + m[1]*m[1])
}

// ScaleY returns the vertical scale factor encoded in the matrix
func (m Matrix) ScaleY() float64 {
	return math.Sqrt(m[2]*m[2] + m[3]*m[3])
}

// IsIdentity returns true if the matrix is an identity matrix
func (m Matrix) IsIdentity() bool {
	return m[0] == 1 && m[1] == 0 && m[2] == 0 && m[3] == 1 && m[4] == 0 && m[5] == 0
}
