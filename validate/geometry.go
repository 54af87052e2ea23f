package validate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// ErrGeometryGate indicates the document-level geometry pass rate fell
// below the configured threshold. Individual near-misses are reported
// in the GeometryReport but are not independently fatal.
var ErrGeometryGate = errors.New("validate: geometry pass rate below threshold")

// GeometryConfig holds tolerances for placement validation
type GeometryConfig struct {
	// BaseTolerance is the absolute deviation floor in points.
	// Default: 2.0
	BaseTolerance float64

	// WidthFraction scales the tolerance with the asset width: the
	// effective tolerance is max(BaseTolerance, WidthFraction * width).
	// Default: 0.01
	WidthFraction float64

	// PassRate is the fraction of assets that must pass for the
	// document to pass. Default: 0.98
	PassRate float64
}

// DefaultGeometryConfig returns sensible default configuration
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		BaseTolerance: 2.0,
		WidthFraction: 0.01,
		PassRate:      0.98,
	}
}

// Placement is one asset's post-placement bounding box as reported by
// the external renderer, in the same page coordinate space as the
// source bbox.
type Placement struct {
	AssetID string     `json:"asset_id"`
	BBox    model.BBox `json:"bbox"`
}

// AssetCheck is the per-asset outcome of geometry validation
type AssetCheck struct {
	AssetID   string  `json:"asset_id"`
	Deviation float64 `json:"deviation"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
}

// GeometryReport aggregates the per-asset checks into the
// document-level gate.
type GeometryReport struct {
	Passed          bool         `json:"passed"`
	FailingAssetIDs []string     `json:"failing_asset_ids"`
	PassRate        float64      `json:"pass_rate"`
	Checks          []AssetCheck `json:"checks,omitempty"`
}

// GeometryValidator re-checks each asset's placement against its source
// position within the column it was anchored in.
type GeometryValidator struct {
	config GeometryConfig
}

// NewGeometryValidator creates a validator with default configuration
func NewGeometryValidator() *GeometryValidator {
	return &GeometryValidator{config: DefaultGeometryConfig()}
}

// NewGeometryValidatorWithConfig creates a validator with custom configuration
func NewGeometryValidatorWithConfig(config GeometryConfig) *GeometryValidator {
	def := DefaultGeometryConfig()
	if config.BaseTolerance <= 0 {
		config.BaseTolerance = def.BaseTolerance
	}
	if config.WidthFraction <= 0 {
		config.WidthFraction = def.WidthFraction
	}
	if config.PassRate <= 0 || config.PassRate > 1 {
		config.PassRate = def.PassRate
	}
	return &GeometryValidator{config: config}
}

// CheckAsset decides pass/fail for one asset. Source and target bbox
// are both normalized into the same column's [0,1] space and the
// positional deviation is converted back to absolute points using the
// column dimensions, so column-level layout shifts cancel out.
func (v *GeometryValidator) CheckAsset(asset *model.Asset, col model.Column, target model.BBox) (AssetCheck, error) {
	src, err := col.Normalize(asset.BBox)
	if err != nil {
		return AssetCheck{}, fmt.Errorf("asset %s: %w", asset.AssetID, err)
	}
	tgt, err := col.Normalize(target)
	if err != nil {
		return AssetCheck{}, fmt.Errorf("asset %s: %w", asset.AssetID, err)
	}

	dx := (src.X - tgt.X) * col.Width()
	dy := (src.Y - tgt.Y) * col.Height()
	deviation := math.Hypot(dx, dy)
	tolerance := math.Max(v.config.BaseTolerance, v.config.WidthFraction*asset.BBox.Width())

	return AssetCheck{
		AssetID:   asset.AssetID,
		Deviation: deviation,
		Tolerance: tolerance,
		Passed:    deviation <= tolerance,
	}, nil
}

// Validate runs the per-asset check for every asset in the ledger and
// gates the document on the aggregate pass rate. An asset with no
// reported placement fails its check. Falling below the pass rate
// returns the report together with ErrGeometryGate.
func (v *GeometryValidator) Validate(led *ledger.AssetLedger, columns map[int][]model.Column, placements []Placement) (GeometryReport, error) {
	placed := make(map[string]model.BBox, len(placements))
	for _, p := range placements {
		placed[p.AssetID] = p.BBox
	}

	report := GeometryReport{PassRate: 1.0, Passed: true}
	if len(led.Assets) == 0 {
		return report, nil
	}

	passed := 0
	for _, asset := range led.Assets {
		col, ok := columnForAsset(asset, columns[asset.PageNumber])
		if !ok {
			return GeometryReport{}, fmt.Errorf("validate: no column covers asset %s on page %d",
				asset.AssetID, asset.PageNumber)
		}

		target, ok := placed[asset.AssetID]
		if !ok {
			report.Checks = append(report.Checks, AssetCheck{AssetID: asset.AssetID})
			report.FailingAssetIDs = append(report.FailingAssetIDs, asset.AssetID)
			continue
		}

		check, err := v.CheckAsset(asset, col, target)
		if err != nil {
			return GeometryReport{}, err
		}
		report.Checks = append(report.Checks, check)
		if check.Passed {
			passed++
		} else {
			report.FailingAssetIDs = append(report.FailingAssetIDs, asset.AssetID)
		}
	}

	sort.Strings(report.FailingAssetIDs)
	report.PassRate = float64(passed) / float64(len(led.Assets))
	report.Passed = report.PassRate >= v.config.PassRate

	if !report.Passed {
		return report, fmt.Errorf("%w: %.4f < %.4f, failing assets: %v",
			ErrGeometryGate, report.PassRate, v.config.PassRate, report.FailingAssetIDs)
	}
	return report, nil
}

// columnForAsset resolves the column an asset was anchored within:
// the column listing its anchor block, or failing that the column
// covering the majority of its bbox.
func columnForAsset(asset *model.Asset, columns []model.Column) (model.Column, bool) {
	if len(columns) == 0 {
		return model.Column{}, false
	}
	if asset.AnchorTo != "" {
		for _, col := range columns {
			if col.ContainsBlock(asset.AnchorTo) {
				return col, true
			}
		}
	}

	best := 0
	bestOverlap := -1.0
	for i, col := range columns {
		overlap := asset.BBox.Intersection(model.BBox{
			X0: col.XMin, Y0: asset.BBox.Y0, X1: col.XMax, Y1: asset.BBox.Y1,
		}).Width()
		if overlap > bestOverlap {
			best = i
			bestOverlap = overlap
		}
	}
	return columns[best], true
}
