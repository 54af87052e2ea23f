// Package overlay renders a debug PDF visualizing the pipeline's layout
// decisions: detected columns, content blocks, asset frames, and the
// anchor link from each asset to its block. The overlay is a diagnostic
// artifact for tuning thresholds; it plays no role in validation.
package overlay

import (
	"fmt"
	"io"
	"sort"

	"codeberg.org/go-pdf/fpdf"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

// Config holds configuration for overlay rendering
type Config struct {
	// PageWidth and PageHeight are the page dimensions in points.
	// Defaults: 612 x 792 (US Letter)
	PageWidth  float64
	PageHeight float64

	// ShowLabels draws block and asset ids next to their frames.
	// Default: true
	ShowLabels bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PageWidth:  612,
		PageHeight: 792,
		ShowLabels: true,
	}
}

// Renderer draws the layout overlay for a document
type Renderer struct {
	config Config
}

// NewRenderer creates a renderer with default configuration
func NewRenderer() *Renderer {
	return &Renderer{config: DefaultConfig()}
}

// NewRendererWithConfig creates a renderer with custom configuration
func NewRendererWithConfig(config Config) *Renderer {
	def := DefaultConfig()
	if config.PageWidth <= 0 {
		config.PageWidth = def.PageWidth
	}
	if config.PageHeight <= 0 {
		config.PageHeight = def.PageHeight
	}
	return &Renderer{config: config}
}

// Render writes the overlay PDF. Columns come out in blue, blocks in
// gray, assets in red, and a red line connects every anchored asset to
// its block. Each category lives on its own PDF layer so a viewer can
// toggle them independently.
func (r *Renderer) Render(doc *model.Document, led *ledger.AssetLedger, columns map[int][]model.Column, w io.Writer) error {
	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetFont("Helvetica", "", 6)

	pages := r.pages(doc, led)
	if len(pages) == 0 {
		// fpdf cannot emit a zero-page document
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: r.config.PageWidth, Ht: r.config.PageHeight})
	}
	for _, page := range pages {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: r.config.PageWidth, Ht: r.config.PageHeight})

		r.drawColumns(pdf, page, columns[page])
		r.drawBlocks(pdf, page, doc.BlocksOnPage(page))
		r.drawAssets(pdf, page, doc, led.ByPage(page))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("overlay: writing pdf: %w", err)
	}
	return nil
}

// pages returns every page number carrying a block or an asset, sorted
func (r *Renderer) pages(doc *model.Document, led *ledger.AssetLedger) []int {
	seen := make(map[int]bool)
	for _, b := range doc.Blocks {
		seen[b.PageNumber] = true
	}
	for _, a := range led.Assets {
		seen[a.PageNumber] = true
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func (r *Renderer) drawColumns(pdf *fpdf.Fpdf, page int, cols []model.Column) {
	layer := pdf.AddLayer(fmt.Sprintf("Columns (Page %d)", page+1), true)
	pdf.BeginLayer(layer)
	pdf.SetDrawColor(0, 0, 255)
	pdf.SetLineWidth(1.0)
	for _, c := range cols {
		r.frame(pdf, c.BBox())
		if r.config.ShowLabels {
			pdf.SetTextColor(0, 0, 255)
			x, y := r.flip(c.XMin, c.YMax)
			pdf.Text(x, y-2, c.ColumnID)
		}
	}
	pdf.EndLayer()
}

func (r *Renderer) drawBlocks(pdf *fpdf.Fpdf, page int, blocks []*model.ContentBlock) {
	layer := pdf.AddLayer(fmt.Sprintf("Blocks (Page %d)", page+1), true)
	pdf.BeginLayer(layer)
	pdf.SetDrawColor(128, 128, 128)
	pdf.SetLineWidth(0.5)
	for _, b := range blocks {
		r.frame(pdf, b.BBox)
		if r.config.ShowLabels {
			pdf.SetTextColor(128, 128, 128)
			x, y := r.flip(b.BBox.X0, b.BBox.Y1)
			pdf.Text(x+2, y+8, b.BlockID)
		}
	}
	pdf.EndLayer()
}

func (r *Renderer) drawAssets(pdf *fpdf.Fpdf, page int, doc *model.Document, assets []*model.Asset) {
	layer := pdf.AddLayer(fmt.Sprintf("Assets (Page %d)", page+1), true)
	pdf.BeginLayer(layer)
	pdf.SetDrawColor(255, 0, 0)
	pdf.SetLineWidth(0.75)
	for _, a := range assets {
		r.frame(pdf, a.BBox)
		if r.config.ShowLabels {
			pdf.SetTextColor(255, 0, 0)
			x, y := r.flip(a.BBox.X0, a.BBox.Y0)
			pdf.Text(x+2, y-2, a.AssetID)
		}
		if a.AnchorTo == "" {
			continue
		}
		if block := doc.FindBlock(a.AnchorTo); block != nil && block.PageNumber == page {
			from := a.BBox.Center()
			to := block.BBox.Center()
			x1, y1 := r.flip(from.X, from.Y)
			x2, y2 := r.flip(to.X, to.Y)
			pdf.Line(x1, y1, x2, y2)
		}
	}
	pdf.EndLayer()
}

// frame draws one bbox outline, flipping into fpdf's top-left origin
func (r *Renderer) frame(pdf *fpdf.Fpdf, b model.BBox) {
	x, y := r.flip(b.X0, b.Y1)
	pdf.Rect(x, y, b.Width(), b.Height(), "D")
}

// flip converts a y-up page coordinate to fpdf's y-down system
func (r *Renderer) flip(x, y float64) (float64, float64) {
	return x, r.config.PageHeight - y
}
