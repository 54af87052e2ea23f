package marker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// Injector embeds asset markers into block content and verifies the
// completeness contract over whole documents.
type Injector struct{}

// NewInjector creates a marker injector
func NewInjector() *Injector {
	return &Injector{}
}

// Inject returns a new document whose blocks carry one marker per
// anchored asset. The input document is not mutated. Injection is
// idempotent: an asset whose marker already exists verbatim in its
// block is skipped, so injecting an already-injected document is a
// no-op.
//
// After all blocks are processed the whole document is verified; any
// violation aborts with a *ValidationError carrying every offending id.
func (in *Injector) Inject(doc *model.Document, led *ledger.AssetLedger) (*model.Document, error) {
	byBlock := make(map[string][]*model.Asset)
	for _, a := range led.Assets {
		if a.AnchorTo == "" {
			return nil, fmt.Errorf("marker: asset %s has no anchor; run anchoring before injection", a.AssetID)
		}
		byBlock[a.AnchorTo] = append(byBlock[a.AnchorTo], a)
	}

	out := doc.Clone()
	for _, block := range out.Blocks {
		assets := byBlock[block.BlockID]
		if len(assets) == 0 {
			continue
		}
		injectBlock(block, assets)
	}

	if verr := in.Verify(out, led); verr != nil {
		return nil, verr
	}
	return out, nil
}

// Verify runs the four document-global marker validations: every
// anchored asset has its marker (missing), no marker appears more than
// once (duplicate), every bracketed token is well formed (invalid
// format), and every marker names a ledger asset (orphan). It returns
// nil when the document is clean.
func (in *Injector) Verify(doc *model.Document, led *ledger.AssetLedger) *ValidationError {
	counts := make(map[string]int)
	var invalid []string
	for _, block := range doc.Blocks {
		for _, id := range FindIDs(block.Content) {
			counts[id]++
		}
		invalid = append(invalid, FindMalformed(block.Content)...)
	}

	var missing, duplicates, orphans []string
	for _, a := range led.Assets {
		if a.AnchorTo == "" {
			continue
		}
		if counts[a.AssetID] == 0 {
			missing = append(missing, a.AssetID)
		}
	}
	for id, n := range counts {
		if n >= 2 {
			duplicates = append(duplicates, id)
		}
		if _, ok := led.FindByID(id); !ok {
			orphans = append(orphans, id)
		}
	}

	return newValidationError(missing, duplicates, invalid, orphans)
}

// injectBlock writes the markers for one block's assets into its
// content. Markers go top-of-page first; each is followed by a line
// break. The insertion point depends on the block type: paragraphs,
// tables and lists get markers before their text, headings keep their
// own text first, and figure blocks carry nothing but their markers.
func injectBlock(block *model.ContentBlock, assets []*model.Asset) {
	pending := make([]*model.Asset, 0, len(assets))
	for _, a := range assets {
		if !Contains(block.Content, a.AssetID) {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return
	}

	switch block.BlockType {
	case model.BlockFigure:
		// A figure block's content is the marker set, nothing else, so
		// rebuild it from every anchored asset.
		block.Content = markerLines(assets)
	case model.BlockHeading:
		text := strings.TrimRight(block.Content, "\n")
		if text == "" {
			block.Content = markerLines(pending)
		} else {
			block.Content = text + "\n" + markerLines(pending)
		}
	case model.BlockParagraph, model.BlockTable, model.BlockList:
		block.Content = markerLines(pending) + block.Content
	default:
		block.Content = markerLines(pending) + block.Content
	}
}

// markerLines renders one marker per line, ordered top of page first
func markerLines(assets []*model.Asset) string {
	sorted := make([]*model.Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BBox.Y0 != sorted[j].BBox.Y0 {
			return sorted[i].BBox.Y0 > sorted[j].BBox.Y0
		}
		return sorted[i].AssetID < sorted[j].AssetID
	})

	var b strings.Builder
	for _, a := range sorted {
		b.WriteString(Format(a.AssetID))
		b.WriteByte('\n')
	}
	return b.String()
}
