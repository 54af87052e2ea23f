// Package ledger implements the asset ledger: the authoritative registry
// of every visual asset extracted from one source document.
//
// The ledger owns content-hash deduplication and occurrence numbering.
// Extraction hands over raw placements; [Build] orders them in
// page-then-reading-order, numbers occurrences per content hash, derives
// stable asset ids, and returns a queryable, serializable registry. Every
// downstream stage (column detection, anchoring, marker injection, the
// validators) reads the same ledger; only the anchoring engine writes to
// it, and only the anchor_to field.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/anchorage-dev/anchorage/model"
)

var (
	// ErrInvalidAsset indicates an extracted placement that cannot be
	// admitted to the ledger (bad type, hash, page, or geometry).
	ErrInvalidAsset = errors.New("ledger: invalid extracted asset")

	// ErrInvariantViolation indicates a ledger whose internal invariants
	// (occurrence numbering, id uniqueness, page bounds) do not hold.
	ErrInvariantViolation = errors.New("ledger: invariant violation")
)

// ExtractedAsset describes one raw asset placement handed over by the
// extraction stage, before deduplication and occurrence numbering.
type ExtractedAsset struct {
	AssetType   model.AssetType
	SHA256      string
	PageNumber  int
	BBox        model.BBox
	CTM         model.Matrix
	CaptionText string
	FontAudit   []model.FontUsage
	PixelWidth  int
	PixelHeight int
}

// AssetLedger is the registry of all extracted visual assets for one
// source document. It is created once by [Build], read by every
// downstream component, and never partially mutated: the anchoring
// engine sets anchor_to on a clone, nothing removes or adds assets.
type AssetLedger struct {
	SourceDocument string         `json:"source_document"`
	TotalPages     int            `json:"total_pages"`
	Assets         []*model.Asset `json:"assets"`
}

// Summary reports asset counts by page and by type
type Summary struct {
	ByPage map[int]int             `json:"by_page"`
	ByType map[model.AssetType]int `json:"by_type"`
	Total  int                     `json:"total"`
}

// Build constructs the ledger for one document from raw extracted
// placements. Placements are ordered page-first, then top-to-bottom and
// left-to-right within a page, and occurrence numbers are assigned per
// content hash in that order: the first appearance of a hash anywhere in
// the document is occurrence 1. Caption text is normalized to NFC so
// later byte comparisons are stable.
func Build(source string, totalPages int, extracted []ExtractedAsset) (*AssetLedger, error) {
	for i, e := range extracted {
		if err := checkExtracted(e); err != nil {
			return nil, fmt.Errorf("placement %d: %w", i, err)
		}
		if e.PageNumber >= totalPages {
			return nil, fmt.Errorf("placement %d: page %d out of range (document has %d pages): %w",
				i, e.PageNumber, totalPages, ErrInvalidAsset)
		}
	}

	ordered := make([]ExtractedAsset, len(extracted))
	copy(ordered, extracted)

	// Page-then-reading-order: top of page first (y-up, so larger Y1 is
	// higher on the page), then left to right.
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		if a.BBox.Y1 != b.BBox.Y1 {
			return a.BBox.Y1 > b.BBox.Y1
		}
		return a.BBox.X0 < b.BBox.X0
	})

	occurrences := make(map[string]int)
	assets := make([]*model.Asset, 0, len(ordered))
	for _, e := range ordered {
		occurrences[e.SHA256]++
		occ := occurrences[e.SHA256]

		assets = append(assets, &model.Asset{
			AssetID:     model.FormatAssetID(e.AssetType, e.SHA256, e.PageNumber, occ),
			AssetType:   e.AssetType,
			SHA256:      e.SHA256,
			PageNumber:  e.PageNumber,
			BBox:        e.BBox,
			CTM:         e.CTM,
			Occurrence:  occ,
			CaptionText: norm.NFC.String(e.CaptionText),
			FontAudit:   e.FontAudit,
			PixelWidth:  e.PixelWidth,
			PixelHeight: e.PixelHeight,
		})
	}

	led := &AssetLedger{
		SourceDocument: source,
		TotalPages:     totalPages,
		Assets:         assets,
	}
	if err := led.Validate(); err != nil {
		return nil, err
	}
	return led, nil
}

func checkExtracted(e ExtractedAsset) error {
	if !e.AssetType.Valid() {
		return fmt.Errorf("unknown asset type %q: %w", e.AssetType, ErrInvalidAsset)
	}
	if len(e.SHA256) != 64 || strings.Trim(e.SHA256, "0123456789abcdef") != "" {
		return fmt.Errorf("malformed sha256 %q: %w", e.SHA256, ErrInvalidAsset)
	}
	if e.PageNumber < 0 {
		return fmt.Errorf("negative page number %d: %w", e.PageNumber, ErrInvalidAsset)
	}
	if !e.BBox.IsValid() {
		return fmt.Errorf("invalid bbox %+v: %w", e.BBox, ErrInvalidAsset)
	}
	return nil
}

// ByPage returns all assets on the given page, in ledger order
func (l *AssetLedger) ByPage(page int) []*model.Asset {
	var out []*model.Asset
	for _, a := range l.Assets {
		if a.PageNumber == page {
			out = append(out, a)
		}
	}
	return out
}

// ByType returns all assets of the given type, in ledger order
func (l *AssetLedger) ByType(t model.AssetType) []*model.Asset {
	var out []*model.Asset
	for _, a := range l.Assets {
		if a.AssetType == t {
			out = append(out, a)
		}
	}
	return out
}

// FindByID returns the asset with the given id, if present
func (l *AssetLedger) FindByID(id string) (*model.Asset, bool) {
	for _, a := range l.Assets {
		if a.AssetID == id {
			return a, true
		}
	}
	return nil, false
}

// FindBySHA256 returns all occurrences of identical content, in
// occurrence order.
func (l *AssetLedger) FindBySHA256(hash string) []*model.Asset {
	var out []*model.Asset
	for _, a := range l.Assets {
		if a.SHA256 == hash {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Occurrence < out[j].Occurrence
	})
	return out
}

// CompletenessSummary returns asset counts by page, by type, and in total
func (l *AssetLedger) CompletenessSummary() Summary {
	s := Summary{
		ByPage: make(map[int]int),
		ByType: make(map[model.AssetType]int),
		Total:  len(l.Assets),
	}
	for _, a := range l.Assets {
		s.ByPage[a.PageNumber]++
		s.ByType[a.AssetType]++
	}
	return s
}

// Clone returns a deep copy of the ledger. The anchoring engine writes
// anchor assignments to a clone so the input ledger is never mutated.
func (l *AssetLedger) Clone() *AssetLedger {
	c := &AssetLedger{
		SourceDocument: l.SourceDocument,
		TotalPages:     l.TotalPages,
		Assets:         make([]*model.Asset, len(l.Assets)),
	}
	for i, a := range l.Assets {
		c.Assets[i] = a.Clone()
	}
	return c
}

// Validate checks the ledger's internal invariants: every page number in
// range, every id unique, and per-hash occurrence numbers forming a
// contiguous 1..N sequence. It returns ErrInvariantViolation describing
// every violation found, not just the first.
func (l *AssetLedger) Validate() error {
	var problems []string

	ids := make(map[string]bool)
	byHash := make(map[string][]int)
	for _, a := range l.Assets {
		if a.PageNumber < 0 || a.PageNumber >= l.TotalPages {
			problems = append(problems, fmt.Sprintf("asset %s: page %d out of range [0,%d)",
				a.AssetID, a.PageNumber, l.TotalPages))
		}
		if !a.AssetType.Valid() {
			problems = append(problems, fmt.Sprintf("asset %s: unknown type %q", a.AssetID, a.AssetType))
		}
		if ids[a.AssetID] {
			problems = append(problems, fmt.Sprintf("duplicate asset id %s", a.AssetID))
		}
		ids[a.AssetID] = true
		byHash[a.SHA256] = append(byHash[a.SHA256], a.Occurrence)
	}

	for hash, occs := range byHash {
		sort.Ints(occs)
		for i, occ := range occs {
			if occ != i+1 {
				problems = append(problems, fmt.Sprintf("hash %.12s: occurrences %v are not contiguous 1..%d",
					hash, occs, len(occs)))
				break
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvariantViolation, strings.Join(problems, "; "))
	}
	return nil
}

// Anchored reports whether every asset has a non-empty anchor_to. The
// empty ledger counts as anchored.
func (l *AssetLedger) Anchored() bool {
	for _, a := range l.Assets {
		if a.AnchorTo == "" {
			return false
		}
	}
	return true
}
