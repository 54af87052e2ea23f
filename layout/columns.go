package layout

import (
	"sort"

	"github.com/anchorage-dev/anchorage/model"
)

// ColumnConfig holds configuration for column detection
type ColumnConfig struct {
	// GapThreshold is the maximum horizontal whitespace between two
	// blocks for them to belong to the same column candidate.
	// Default: 30 points
	GapThreshold float64

	// MinClusterSize is the minimum number of blocks a cluster needs to
	// qualify as a column, so one-off elements (a single wide caption)
	// do not produce spurious columns.
	// Default: 3 blocks
	MinClusterSize int

	// BoundsMargin expands each column's bounds so blocks precisely on
	// cluster boundaries are unambiguously contained.
	// Default: 2 points
	BoundsMargin float64

	// WideBlockRatio is the fraction of the page content width at which
	// a block is set aside during clustering. A full-width caption would
	// otherwise bridge two columns and fuse them into one cluster; such
	// blocks are assigned afterward by the area-majority rule instead.
	// Default: 0.6
	WideBlockRatio float64
}

// DefaultColumnConfig returns sensible default configuration
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		GapThreshold:   30.0,
		MinClusterSize: 3,
		BoundsMargin:   2.0,
		WideBlockRatio: 0.6,
	}
}

// ColumnDetector partitions a page's content blocks into 1..N vertical
// column regions
type ColumnDetector struct {
	config ColumnConfig
}

// NewColumnDetector creates a column detector with default configuration
func NewColumnDetector() *ColumnDetector {
	return &ColumnDetector{config: DefaultColumnConfig()}
}

// NewColumnDetectorWithConfig creates a column detector with custom configuration
func NewColumnDetectorWithConfig(config ColumnConfig) *ColumnDetector {
	if config.GapThreshold <= 0 {
		config.GapThreshold = DefaultColumnConfig().GapThreshold
	}
	if config.MinClusterSize <= 0 {
		config.MinClusterSize = DefaultColumnConfig().MinClusterSize
	}
	if config.BoundsMargin < 0 {
		config.BoundsMargin = DefaultColumnConfig().BoundsMargin
	}
	if config.WideBlockRatio <= 0 || config.WideBlockRatio > 1 {
		config.WideBlockRatio = DefaultColumnConfig().WideBlockRatio
	}
	return &ColumnDetector{config: config}
}

// Detect analyzes every page of the document and returns the detected
// columns keyed by page number. Every block ends up in exactly one
// column; a violation of that coverage is returned as a StructuralError.
func (d *ColumnDetector) Detect(doc *model.Document) (map[int][]model.Column, error) {
	columns := make(map[int][]model.Column)
	for _, page := range doc.Pages() {
		cols, err := d.DetectPage(doc.BlocksOnPage(page))
		if err != nil {
			return nil, err
		}
		columns[page] = cols
	}
	return columns, nil
}

// DetectPage partitions the blocks of a single page into columns. All
// blocks must share one page number. A page with no detectable
// multi-column structure collapses to one column spanning the full
// content width.
func (d *ColumnDetector) DetectPage(blocks []*model.ContentBlock) ([]model.Column, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	page := blocks[0].PageNumber

	// Full-width blocks would bridge otherwise-separate clusters; keep
	// them out of cluster formation and assign them by area majority
	// along with every other block below.
	contentWidth := blocksBBox(blocks).Width()
	var narrow []*model.ContentBlock
	for _, b := range blocks {
		if contentWidth <= 0 || b.BBox.Width() < d.config.WideBlockRatio*contentWidth {
			narrow = append(narrow, b)
		}
	}
	if len(narrow) == 0 {
		narrow = blocks
	}

	clusters := d.clusterByGap(narrow)
	clusters = d.enforceMinClusterSize(clusters)

	if len(clusters) <= 1 {
		return []model.Column{d.makeColumn(page, 0, blocks)}, nil
	}

	// Resolve straddling blocks against the candidate regions: a block
	// spanning two regions goes to the one containing the majority of
	// its bbox area, ties toward the left region.
	regions := make([]model.BBox, len(clusters))
	for i, c := range clusters {
		regions[i] = blocksBBox(c).Expand(d.config.BoundsMargin)
	}

	members := make([][]*model.ContentBlock, len(clusters))
	for _, b := range blocks {
		idx := regionForBBox(b.BBox, regions)
		members[idx] = append(members[idx], b)
	}

	// Column bounds come from the cluster regions, not from the final
	// member set: a straddling block may overhang its column, and its
	// overhang must not bleed one column's bounds into the next.
	var columns []model.Column
	idx := 0
	assigned := 0
	for i, m := range members {
		if len(m) == 0 {
			continue
		}
		columns = append(columns, newColumn(page, idx, regions[i], m))
		idx++
		assigned += len(m)
	}

	// Coverage is guaranteed by construction; anything else means the
	// assignment above is broken, which is fatal, not recoverable.
	if assigned != len(blocks) {
		return nil, &StructuralError{Op: "column detection", IDs: uncovered(blocks, columns)}
	}

	return columns, nil
}

// clusterByGap groups blocks whose horizontal gap is below the
// configured threshold. Clusters come out ordered left to right.
func (d *ColumnDetector) clusterByGap(blocks []*model.ContentBlock) [][]*model.ContentBlock {
	sorted := make([]*model.ContentBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BBox.X0 != sorted[j].BBox.X0 {
			return sorted[i].BBox.X0 < sorted[j].BBox.X0
		}
		return sorted[i].ReadingOrder < sorted[j].ReadingOrder
	})

	var clusters [][]*model.ContentBlock
	var current []*model.ContentBlock
	rightEdge := 0.0

	for _, b := range sorted {
		if len(current) == 0 {
			current = []*model.ContentBlock{b}
			rightEdge = b.BBox.X1
			continue
		}
		if b.BBox.X0-rightEdge < d.config.GapThreshold {
			current = append(current, b)
			if b.BBox.X1 > rightEdge {
				rightEdge = b.BBox.X1
			}
		} else {
			clusters = append(clusters, current)
			current = []*model.ContentBlock{b}
			rightEdge = b.BBox.X1
		}
	}
	clusters = append(clusters, current)

	return clusters
}

// enforceMinClusterSize merges clusters below the minimum size into
// their horizontally nearest qualifying neighbor. If no cluster
// qualifies the page is treated as single-column.
func (d *ColumnDetector) enforceMinClusterSize(clusters [][]*model.ContentBlock) [][]*model.ContentBlock {
	var qualifying, small [][]*model.ContentBlock
	for _, c := range clusters {
		if len(c) >= d.config.MinClusterSize {
			qualifying = append(qualifying, c)
		} else {
			small = append(small, c)
		}
	}

	if len(qualifying) == 0 {
		// No real columns on this page: collapse everything.
		var all []*model.ContentBlock
		for _, c := range clusters {
			all = append(all, c...)
		}
		if len(all) == 0 {
			return nil
		}
		return [][]*model.ContentBlock{all}
	}

	for _, c := range small {
		bbox := blocksBBox(c)
		best := 0
		bestGap := bbox.HorizontalGap(blocksBBox(qualifying[0]))
		for i := 1; i < len(qualifying); i++ {
			gap := bbox.HorizontalGap(blocksBBox(qualifying[i]))
			if gap < bestGap {
				best = i
				bestGap = gap
			}
		}
		qualifying[best] = append(qualifying[best], c...)
	}

	return qualifying
}

// makeColumn builds a column whose bounds are the min/max extents of
// its member blocks expanded by the configured margin.
func (d *ColumnDetector) makeColumn(page, idx int, blocks []*model.ContentBlock) model.Column {
	return newColumn(page, idx, blocksBBox(blocks).Expand(d.config.BoundsMargin), blocks)
}

// newColumn builds a column with explicit bounds, listing members in
// reading order.
func newColumn(page, idx int, bbox model.BBox, blocks []*model.ContentBlock) model.Column {
	sorted := make([]*model.ContentBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReadingOrder < sorted[j].ReadingOrder
	})

	ids := make([]string, len(sorted))
	for i, b := range sorted {
		ids[i] = b.BlockID
	}

	return model.Column{
		ColumnID:   model.FormatColumnID(page, idx),
		PageNumber: page,
		XMin:       bbox.X0,
		XMax:       bbox.X1,
		YMin:       bbox.Y0,
		YMax:       bbox.Y1,
		BlockIDs:   ids,
	}
}

// blocksBBox returns the union of the blocks' bounding boxes
func blocksBBox(blocks []*model.ContentBlock) model.BBox {
	bbox := blocks[0].BBox
	for _, b := range blocks[1:] {
		bbox = bbox.Union(b.BBox)
	}
	return bbox
}

// regionForBBox picks the region containing the majority of the box's
// area. For axis-aligned regions spanning the box's full y-extent the
// area majority reduces to the horizontal overlap. Ties break toward
// the left (lower x) region; a box overlapping no region goes to the
// one with the nearest horizontal center.
func regionForBBox(b model.BBox, regions []model.BBox) int {
	best := -1
	bestOverlap := 0.0
	for i, r := range regions {
		overlap := b.Intersection(model.BBox{X0: r.X0, Y0: b.Y0, X1: r.X1, Y1: b.Y1}).Width()
		if overlap > bestOverlap {
			best = i
			bestOverlap = overlap
		}
	}
	if best >= 0 {
		return best
	}

	center := b.Center().X
	best = 0
	bestDist := distance1D(center, regions[0])
	for i := 1; i < len(regions); i++ {
		if d := distance1D(center, regions[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func distance1D(x float64, r model.BBox) float64 {
	c := (r.X0 + r.X1) / 2
	if x > c {
		return x - c
	}
	return c - x
}

// uncovered lists blocks missing from (or duplicated across) the
// detected columns.
func uncovered(blocks []*model.ContentBlock, columns []model.Column) []string {
	counts := make(map[string]int)
	for _, col := range columns {
		for _, id := range col.BlockIDs {
			counts[id]++
		}
	}
	var ids []string
	for _, b := range blocks {
		if counts[b.BlockID] != 1 {
			ids = append(ids, b.BlockID)
		}
	}
	sort.Strings(ids)
	return ids
}
