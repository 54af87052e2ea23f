// Package validate implements the fail-closed checks that run after the
// external renderer has repositioned content: geometric placement
// validation and visual diffing of asset regions.
//
// GeometryValidator compares each asset's source position against its
// placed position in column-normalized coordinates, so legitimate
// margin and column differences between source and target layouts do
// not register as placement error. VisualDiffer rasterizes nothing
// itself; it consumes page images rendered at a known DPI and compares
// pixels only inside asset regions, because translated text reflows and
// must not trigger false positives.
//
// Both validators aggregate into a [Report] with stable JSON field
// names for independent tooling. Any failure is terminal for the run:
// the report's Err method returns non-nil so the calling pipeline halts
// instead of publishing partial output.
package validate
