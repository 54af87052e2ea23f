package layout

import (
	"runtime"
	"sort"
	"sync"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// AnchorDecision names the rule that selected an asset's anchor block
type AnchorDecision string

const (
	// DecisionOverlap means a block's y-extent overlapped the asset's.
	DecisionOverlap AnchorDecision = "overlap"

	// DecisionBelow means no block overlapped and the nearest block
	// below the asset (within its column) was chosen.
	DecisionBelow AnchorDecision = "below"

	// DecisionAbove means no block overlapped or sat below; the nearest
	// block above was chosen.
	DecisionAbove AnchorDecision = "above"

	// DecisionDegraded means the asset's column contained no blocks and
	// the nearest block on the page was chosen regardless of column.
	// Degraded anchors are flagged for downstream auditing; they are
	// not normal anchors.
	DecisionDegraded AnchorDecision = "degraded_nearest"
)

// AnchorAudit records one anchoring decision for downstream auditing
type AnchorAudit struct {
	AssetID  string         `json:"asset_id"`
	BlockID  string         `json:"block_id"`
	ColumnID string         `json:"column_id,omitempty"`
	Decision AnchorDecision `json:"decision"`
}

// Degraded reports whether the decision used the cross-column fallback
func (a AnchorAudit) Degraded() bool {
	return a.Decision == DecisionDegraded
}

// AnchorConfig holds configuration for the anchoring engine
type AnchorConfig struct {
	// Workers caps the number of pages anchored concurrently.
	// Default: runtime.NumCPU()
	Workers int
}

// DefaultAnchorConfig returns sensible default configuration
func DefaultAnchorConfig() AnchorConfig {
	return AnchorConfig{Workers: runtime.NumCPU()}
}

// AnchoringEngine assigns every asset to exactly one content block.
// AttachAnchors is a pure function over its inputs: it returns a new
// ledger and never mutates the one passed in, and two runs over the
// same inputs produce identical assignments.
type AnchoringEngine struct {
	config AnchorConfig
}

// NewAnchoringEngine creates an anchoring engine with default configuration
func NewAnchoringEngine() *AnchoringEngine {
	return &AnchoringEngine{config: DefaultAnchorConfig()}
}

// NewAnchoringEngineWithConfig creates an anchoring engine with custom configuration
func NewAnchoringEngineWithConfig(config AnchorConfig) *AnchoringEngine {
	if config.Workers <= 0 {
		config.Workers = DefaultAnchorConfig().Workers
	}
	return &AnchoringEngine{config: config}
}

// pageResult is the private buffer one page task writes its
// assignments into; buffers are merged after all tasks complete.
type pageResult struct {
	anchors map[string]string // asset id -> block id
	audits  []AnchorAudit
}

// AttachAnchors assigns an anchor block to every asset in the ledger
// and returns a new ledger, identical except for the anchor_to fields,
// together with the per-asset audit trail. Pages are anchored as
// independent parallel tasks and merged page by page, so the output
// order is deterministic.
//
// An asset on a page with no blocks at all cannot be anchored; that is
// a structural violation reported with every offending asset id.
func (e *AnchoringEngine) AttachAnchors(doc *model.Document, columns map[int][]model.Column, led *ledger.AssetLedger) (*ledger.AssetLedger, []AnchorAudit, error) {
	out := led.Clone()

	assetsByPage := make(map[int][]*model.Asset)
	var pages []int
	for _, a := range out.Assets {
		if _, seen := assetsByPage[a.PageNumber]; !seen {
			pages = append(pages, a.PageNumber)
		}
		assetsByPage[a.PageNumber] = append(assetsByPage[a.PageNumber], a)
	}
	sort.Ints(pages)

	results := make([]pageResult, len(pages))
	sem := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup

	for i, page := range pages {
		wg.Add(1)
		sem <- struct{}{}
		go func(i, page int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = anchorPage(doc.BlocksOnPage(page), columns[page], assetsByPage[page])
		}(i, page)
	}
	wg.Wait()

	// Disjoint-union merge: each page task touched only its own assets.
	var audits []AnchorAudit
	for _, r := range results {
		for _, a := range out.Assets {
			if blockID, ok := r.anchors[a.AssetID]; ok {
				a.AnchorTo = blockID
			}
		}
		audits = append(audits, r.audits...)
	}

	var unanchored []string
	for _, a := range out.Assets {
		if a.AnchorTo == "" {
			unanchored = append(unanchored, a.AssetID)
		}
	}
	if len(unanchored) > 0 {
		return nil, nil, &StructuralError{Op: "anchoring", IDs: unanchored}
	}

	return out, audits, nil
}

// anchorPage computes anchor assignments for one page into a private
// buffer. Assets that cannot be anchored are simply absent from the
// buffer; the caller turns them into a structural error.
func anchorPage(blocks []*model.ContentBlock, columns []model.Column, assets []*model.Asset) pageResult {
	r := pageResult{anchors: make(map[string]string)}

	blockByID := make(map[string]*model.ContentBlock, len(blocks))
	for _, b := range blocks {
		blockByID[b.BlockID] = b
	}

	for _, asset := range assets {
		col, members := columnFor(asset.BBox, columns, blockByID)

		if len(members) == 0 {
			// Degraded mode: the asset's column has no blocks, anchor
			// to the nearest block on the page regardless of column.
			block := nearestBlock(asset.BBox, blocks)
			if block == nil {
				continue
			}
			r.anchors[asset.AssetID] = block.BlockID
			r.audits = append(r.audits, AnchorAudit{
				AssetID:  asset.AssetID,
				BlockID:  block.BlockID,
				Decision: DecisionDegraded,
			})
			continue
		}

		block, decision := selectAnchor(asset.BBox, members)
		r.anchors[asset.AssetID] = block.BlockID
		r.audits = append(r.audits, AnchorAudit{
			AssetID:  asset.AssetID,
			BlockID:  block.BlockID,
			ColumnID: col.ColumnID,
			Decision: decision,
		})
	}

	return r
}

// columnFor resolves the column containing the asset's bbox using the
// same area-majority rule as column detection, and returns the column's
// member blocks in reading order.
func columnFor(b model.BBox, columns []model.Column, blockByID map[string]*model.ContentBlock) (model.Column, []*model.ContentBlock) {
	if len(columns) == 0 {
		return model.Column{}, nil
	}

	regions := make([]model.BBox, len(columns))
	for i, c := range columns {
		regions[i] = c.BBox()
	}
	col := columns[regionForBBox(b, regions)]

	var members []*model.ContentBlock
	for _, id := range col.BlockIDs {
		if blk, ok := blockByID[id]; ok {
			members = append(members, blk)
		}
	}
	return col, members
}

// selectAnchor scores the column's blocks against the asset position.
// A block whose y-extent overlaps the asset's wins, with the largest
// overlap first and reading order breaking ties. With no overlap the
// nearest block below the asset wins, and a block above only if the
// column has nothing below.
func selectAnchor(asset model.BBox, blocks []*model.ContentBlock) (*model.ContentBlock, AnchorDecision) {
	var best *model.ContentBlock
	bestOverlap := 0.0
	for _, b := range blocks {
		if overlap := asset.VerticalOverlap(b.BBox); overlap > bestOverlap {
			best = b
			bestOverlap = overlap
		}
	}
	if best != nil {
		return best, DecisionOverlap
	}

	// No overlap: y-extents are disjoint, so every block is strictly
	// below or strictly above the asset.
	var below, above *model.ContentBlock
	belowDist, aboveDist := 0.0, 0.0
	for _, b := range blocks {
		if b.BBox.Y1 <= asset.Y0 {
			if d := asset.Y0 - b.BBox.Y1; below == nil || d < belowDist {
				below = b
				belowDist = d
			}
		} else {
			if d := b.BBox.Y0 - asset.Y1; above == nil || d < aboveDist {
				above = b
				aboveDist = d
			}
		}
	}
	if below != nil {
		return below, DecisionBelow
	}
	return above, DecisionAbove
}

// nearestBlock picks the page block with the smallest center distance
// to the asset, breaking ties toward the lower block id so the choice
// is deterministic.
func nearestBlock(asset model.BBox, blocks []*model.ContentBlock) *model.ContentBlock {
	var best *model.ContentBlock
	bestDist := 0.0
	center := asset.Center()
	for _, b := range blocks {
		d := center.Distance(b.BBox.Center())
		if best == nil || d < bestDist || (d == bestDist && b.BlockID < best.BlockID) {
			best = b
			bestDist = d
		}
	}
	return best
}
