package model

import "fmt"

// AssetType classifies an extracted visual object. The set is closed.
type AssetType string

const (
	AssetImage         AssetType = "image"
	AssetVectorPDF     AssetType = "vector_pdf"
	AssetVectorPNG     AssetType = "vector_png"
	AssetTableSnapshot AssetType = "table_snapshot"
	AssetTableLive     AssetType = "table_live"
)

// Valid reports whether at is one of the five known asset types
func (at AssetType) Valid() bool {
	switch at {
	case AssetImage, AssetVectorPDF, AssetVectorPNG, AssetTableSnapshot, AssetTableLive:
		return true
	default:
		return false
	}
}

// Prefix returns the short id prefix used when deriving asset ids
func (at AssetType) Prefix() string {
	switch at {
	case AssetImage:
		return "img"
	case AssetVectorPDF:
		return "vpdf"
	case AssetVectorPNG:
		return "vpng"
	case AssetTableSnapshot:
		return "tsnap"
	case AssetTableLive:
		return "tlive"
	default:
		return "unknown"
	}
}

// shaIDLen is the number of leading hex digits of the content hash that
// participate in a derived asset id.
const shaIDLen = 12

// FormatAssetID derives the canonical asset id for one placement:
//
//	{prefix}-{sha256[:12]}-p{page}-occ{occurrence}
//
// Two placements of content-identical bytes share the hash portion but
// differ in page/occurrence, so ids are unique across the document.
func FormatAssetID(at AssetType, sha256 string, page, occurrence int) string {
	hash := sha256
	if len(hash) > shaIDLen {
		hash = hash[:shaIDLen]
	}
	return fmt.Sprintf("%s-%s-p%d-occ%d", at.Prefix(), hash, page, occurrence)
}

// FontUsage records one font referenced by a vector asset, for auditing
// whether the downstream renderer can reproduce it.
type FontUsage struct {
	Name     string `json:"name"`
	Embedded bool   `json:"embedded"`
}

// Asset is one visual object extracted from a source page: an image, a
// vector fragment, or a table snapshot. An asset is created once per
// physical occurrence by extraction; AnchorTo is the only field this
// module mutates (set exactly once by the anchoring engine).
type Asset struct {
	// AssetID is derived via [FormatAssetID] and unique per placement.
	AssetID string `json:"asset_id"`

	AssetType AssetType `json:"asset_type"`

	// SHA256 is the hex content hash of the raw exported bytes. Assets
	// sharing a hash reference one physical file plus per-placement
	// metadata; the bytes are not re-exported.
	SHA256 string `json:"sha256"`

	PageNumber int    `json:"page_number"`
	BBox       BBox   `json:"bbox"`
	CTM        Matrix `json:"ctm"`

	// Occurrence is the 1-indexed count of this content hash's
	// appearances, assigned in page-then-reading-order.
	Occurrence int `json:"occurrence"`

	// AnchorTo is the block id this asset is bound to for placement.
	// Empty until anchoring runs, required non-empty afterward.
	AnchorTo string `json:"anchor_to"`

	CaptionText string      `json:"caption_text,omitempty"`
	FontAudit   []FontUsage `json:"font_audit,omitempty"`

	// Pixel dimensions, set for raster assets only.
	PixelWidth  int `json:"pixel_width,omitempty"`
	PixelHeight int `json:"pixel_height,omitempty"`
}

// Clone returns a copy of the asset with its own font audit slice
func (a *Asset) Clone() *Asset {
	c := *a
	if a.FontAudit != nil {
		c.FontAudit = make([]FontUsage, len(a.FontAudit))
		copy(c.FontAudit, a.FontAudit)
	}
	return &c
}
