// Package model provides the value types shared by every stage of the
// anchoring pipeline.
//
// This package defines the data structures that represent page geometry and
// extracted content: bounding boxes, affine transforms, text blocks, visual
// assets, and detected columns. All types are plain values with stable JSON
// field names so that serialized artifacts (asset ledgers, audit records,
// validation reports) can be consumed by independent tooling.
//
// # Geometry
//
// Geometric primitives support position and layout calculations:
//
//   - [BBox] - axis-aligned rectangle in absolute page points (y-up)
//   - [NormalizedBBox] - rectangle relative to an enclosing [Column]
//   - [Point] - 2D point with distance calculation
//   - [Matrix] - 2D affine transformation (the CTM of an asset placement)
//
// # Content types
//
// [ContentBlock] is the unit of text produced by upstream structure
// extraction. [Asset] is one extracted visual object (image, vector
// fragment, or table snapshot). [Column] is a detected vertical region of a
// page grouping co-located blocks.
//
// Coordinates follow the PDF convention: origin at the bottom-left of the
// page, y increasing upward, 72 units per inch.
package model
