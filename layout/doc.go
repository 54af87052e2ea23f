// Package layout provides page layout analysis for the anchoring
// pipeline: column detection and asset anchoring.
//
// ColumnDetector partitions a page's content blocks into vertical column
// regions by clustering blocks on horizontal proximity. AnchoringEngine
// then assigns every extracted asset to exactly one content block,
// never crossing a column boundary, so that downstream marker injection
// and placement validation have a stable block reference per asset.
//
// Both components are deterministic: the same blocks and assets always
// produce the same columns and the same anchor assignments. Neither
// performs any I/O; both operate on one page's data at a time, so pages
// can be processed as independent parallel tasks.
package layout
