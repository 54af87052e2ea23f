package validate

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// ErrVisualRegression indicates at least one page's masked diff ratio
// exceeded the budget.
var ErrVisualRegression = errors.New("validate: visual regression over budget")

// VisualConfig holds configuration for visual diffing
type VisualConfig struct {
	// DPI is the rasterization resolution of the supplied page images.
	// Default: 200
	DPI float64

	// PixelThreshold is the absolute intensity difference (0-255) above
	// which a pixel counts as changed. Default: 10
	PixelThreshold uint8

	// PageBudget is the maximum fraction of masked pixels allowed to
	// differ on one page. Default: 0.02
	PageBudget float64
}

// DefaultVisualConfig returns sensible default configuration
func DefaultVisualConfig() VisualConfig {
	return VisualConfig{
		DPI:            200,
		PixelThreshold: 10,
		PageBudget:     0.02,
	}
}

// PageRaster pairs the rasterized source and target images of one page.
// PageWidth and PageHeight are the page dimensions in points; they fix
// the mapping from bbox coordinates to pixels at the configured DPI.
type PageRaster struct {
	Page       int
	Source     image.Image
	Target     image.Image
	PageWidth  float64
	PageHeight float64
}

// PageDiff is the outcome of diffing one page's asset regions
type PageDiff struct {
	Page      int     `json:"page"`
	DiffRatio float64 `json:"diff_ratio"`

	Passed     bool `json:"-"`
	maskPixels int
}

// VisualReport aggregates per-page diffs. Only failing pages are
// listed, matching the report contract.
type VisualReport struct {
	Passed       bool       `json:"passed"`
	FailingPages []PageDiff `json:"failing_pages"`
}

// VisualDiffer compares rasterized pages pixel by pixel, restricted to
// the regions of anchored assets. Text regions are excluded by
// construction: translated text reflows, and only graphical content is
// held to pixel fidelity.
type VisualDiffer struct {
	config VisualConfig
}

// NewVisualDiffer creates a differ with default configuration
func NewVisualDiffer() *VisualDiffer {
	return &VisualDiffer{config: DefaultVisualConfig()}
}

// NewVisualDifferWithConfig creates a differ with custom configuration
func NewVisualDifferWithConfig(config VisualConfig) *VisualDiffer {
	def := DefaultVisualConfig()
	if config.DPI <= 0 {
		config.DPI = def.DPI
	}
	if config.PixelThreshold == 0 {
		config.PixelThreshold = def.PixelThreshold
	}
	if config.PageBudget <= 0 {
		config.PageBudget = def.PageBudget
	}
	return &VisualDiffer{config: config}
}

// Compare diffs every supplied page against the ledger's assets for
// that page. Pages with no assets trivially pass. A page over budget
// makes the report fail; the returned error wraps ErrVisualRegression
// and the report lists every failing page.
func (d *VisualDiffer) Compare(rasters []PageRaster, led *ledger.AssetLedger) (VisualReport, error) {
	report := VisualReport{Passed: true}

	sorted := make([]PageRaster, len(rasters))
	copy(sorted, rasters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	for _, raster := range sorted {
		diff, err := d.ComparePage(raster, led.ByPage(raster.Page))
		if err != nil {
			return VisualReport{}, err
		}
		if !diff.Passed {
			report.Passed = false
			report.FailingPages = append(report.FailingPages, diff)
		}
	}

	if !report.Passed {
		return report, fmt.Errorf("%w: %d page(s) over budget", ErrVisualRegression, len(report.FailingPages))
	}
	return report, nil
}

// ComparePage builds the binary mask of asset regions on one page and
// measures the fraction of masked pixels whose intensity difference
// exceeds the per-pixel threshold. The target image is rescaled to the
// source's pixel grid if the renderer produced different dimensions.
func (d *VisualDiffer) ComparePage(raster PageRaster, assets []*model.Asset) (PageDiff, error) {
	if raster.Source == nil || raster.Target == nil {
		return PageDiff{}, fmt.Errorf("validate: page %d raster missing source or target image", raster.Page)
	}
	if raster.PageWidth <= 0 || raster.PageHeight <= 0 {
		return PageDiff{}, fmt.Errorf("validate: page %d has invalid dimensions %gx%g pt",
			raster.Page, raster.PageWidth, raster.PageHeight)
	}

	src := raster.Source
	tgt := raster.Target
	if !tgt.Bounds().Eq(src.Bounds()) {
		scaled := image.NewRGBA(src.Bounds())
		draw.BiLinear.Scale(scaled, src.Bounds(), tgt, tgt.Bounds(), draw.Src, nil)
		tgt = scaled
	}

	bounds := src.Bounds()
	threshold := int(d.config.PixelThreshold)

	// Binary mask over the page: overlapping asset regions count once.
	w := bounds.Dx()
	mask := make([]bool, w*bounds.Dy())
	for _, asset := range assets {
		rect := d.pixelRect(asset.BBox, raster.PageHeight).Intersect(bounds)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			row := (y - bounds.Min.Y) * w
			for x := rect.Min.X; x < rect.Max.X; x++ {
				mask[row+x-bounds.Min.X] = true
			}
		}
	}

	maskPixels := 0
	diffPixels := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := (y - bounds.Min.Y) * w
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !mask[row+x-bounds.Min.X] {
				continue
			}
			maskPixels++
			if absDiff(luma(src, x, y), luma(tgt, x, y)) > threshold {
				diffPixels++
			}
		}
	}

	diff := PageDiff{Page: raster.Page, maskPixels: maskPixels}
	if maskPixels > 0 {
		diff.DiffRatio = float64(diffPixels) / float64(maskPixels)
	}
	diff.Passed = diff.DiffRatio <= d.config.PageBudget
	return diff, nil
}

// pixelRect converts a page-point bbox to pixel coordinates at the
// configured DPI. Raster images have their origin at the top-left, so
// the y axis flips.
func (d *VisualDiffer) pixelRect(b model.BBox, pageHeight float64) image.Rectangle {
	scale := d.config.DPI / 72.0
	return image.Rect(
		int(math.Floor(b.X0*scale)),
		int(math.Floor((pageHeight-b.Y1)*scale)),
		int(math.Ceil(b.X1*scale)),
		int(math.Ceil((pageHeight-b.Y0)*scale)),
	)
}

// luma returns the 0-255 intensity of one pixel
func luma(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	return int((299*r + 587*g + 114*b) / 1000 >> 8)
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
