package model

import "fmt"

// Column is a detected vertical region of a single page. Columns on one
// page never overlap in x beyond a small epsilon, and together they cover
// every content block on the page: each block belongs to exactly one
// column.
type Column struct {
	// ColumnID identifies the column within the document, e.g. "p3-col1".
	ColumnID string `json:"column_id"`

	PageNumber int `json:"page_number"`

	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`

	// BlockIDs lists the member blocks in reading order.
	BlockIDs []string `json:"block_ids"`
}

// FormatColumnID derives the canonical id for the idx-th column
// (0-based, left to right) of a page.
func FormatColumnID(page, idx int) string {
	return fmt.Sprintf("p%d-col%d", page, idx+1)
}

// BBox returns the column bounds as a bounding box
func (c Column) BBox() BBox {
	return BBox{X0: c.XMin, Y0: c.YMin, X1: c.XMax, Y1: c.YMax}
}

// Width returns the horizontal extent of the column
func (c Column) Width() float64 {
	return c.XMax - c.XMin
}

// Height returns the vertical extent of the column
func (c Column) Height() float64 {
	return c.YMax - c.YMin
}

// Normalize converts a page-coordinate box into the column's [0,1] space.
// It is the only way a NormalizedBBox is produced. Returns an error if
// the column has degenerate (zero) extent.
func (c Column) Normalize(b BBox) (NormalizedBBox, error) {
	w := c.Width()
	h := c.Height()
	if w <= 0 || h <= 0 {
		return NormalizedBBox{}, fmt.Errorf("column %s has degenerate bounds %gx%g", c.ColumnID, w, h)
	}
	return NormalizedBBox{
		X: (b.X0 - c.XMin) / w,
		Y: (b.Y0 - c.YMin) / h,
		W: b.Width() / w,
		H: b.Height() / h,
	}, nil
}

// Denormalize converts a column-relative box back into page coordinates.
// Denormalize(Normalize(b)) reproduces b within 1e-6 points.
func (c Column) Denormalize(n NormalizedBBox) BBox {
	w := c.Width()
	h := c.Height()
	return BBox{
		X0: c.XMin + n.X*w,
		Y0: c.YMin + n.Y*h,
		X1: c.XMin + (n.X+n.W)*w,
		Y1: c.YMin + (n.Y+n.H)*h,
	}
}

// ContainsBlock reports whether the block id is a member of this column
func (c Column) ContainsBlock(id string) bool {
	for _, b := range c.BlockIDs {
		if b == id {
			return true
		}
	}
	return false
}
