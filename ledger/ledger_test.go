package ledger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anchorage-dev/anchorage/model"
)

// Helper to build a hex sha256 from a short tag
func sha(tag string) string {
	return tag + strings.Repeat("0", 64-len(tag))
}

func makeExtracted(t model.AssetType, hash string, page int, bbox model.BBox) ExtractedAsset {
	return ExtractedAsset{
		AssetType: t,
		SHA256:    hash,
		PageNumber: page,
		BBox:      bbox,
		CTM:       model.Identity(),
	}
}

func TestBuild_OccurrenceNumbering(t *testing.T) {
	// The same content hash appears on pages 2, 0 and 1; occurrence
	// numbers must follow page order, not input order.
	extracted := []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("aa"), 2, model.NewBBox(100, 500, 200, 600)),
		makeExtracted(model.AssetImage, sha("aa"), 0, model.NewBBox(100, 500, 200, 600)),
		makeExtracted(model.AssetImage, sha("aa"), 1, model.NewBBox(100, 500, 200, 600)),
	}

	led, err := Build("doc.pdf", 3, extracted)
	if err != nil {
		t.Fatal(err)
	}

	occs := led.FindBySHA256(sha("aa"))
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	for i, a := range occs {
		if a.Occurrence != i+1 {
			t.Errorf("occurrence %d numbered %d", i+1, a.Occurrence)
		}
		if a.PageNumber != i {
			t.Errorf("occurrence %d on page %d, want %d", i+1, a.PageNumber, i)
		}
	}
}

func TestBuild_ReadingOrderWithinPage(t *testing.T) {
	// Two copies of one hash on the same page: the higher placement
	// (larger Y) must be occurrence 1.
	extracted := []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("bb"), 0, model.NewBBox(100, 100, 200, 200)),
		makeExtracted(model.AssetImage, sha("bb"), 0, model.NewBBox(100, 600, 200, 700)),
	}

	led, err := Build("doc.pdf", 1, extracted)
	if err != nil {
		t.Fatal(err)
	}

	first, ok := led.FindByID(model.FormatAssetID(model.AssetImage, sha("bb"), 0, 1))
	if !ok {
		t.Fatal("occurrence 1 not found")
	}
	if first.BBox.Y0 != 600 {
		t.Errorf("occurrence 1 should be the top placement, got y0=%g", first.BBox.Y0)
	}
}

func TestBuild_DistinctIDs(t *testing.T) {
	extracted := []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("cc"), 0, model.NewBBox(0, 0, 10, 10)),
		makeExtracted(model.AssetImage, sha("cc"), 0, model.NewBBox(20, 0, 30, 10)),
		makeExtracted(model.AssetVectorPDF, sha("dd"), 0, model.NewBBox(40, 0, 50, 10)),
	}

	led, err := Build("doc.pdf", 1, extracted)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, a := range led.Assets {
		if seen[a.AssetID] {
			t.Errorf("duplicate id %s", a.AssetID)
		}
		seen[a.AssetID] = true
	}
}

func TestBuild_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		asset ExtractedAsset
		pages int
	}{
		{"bad type", makeExtracted("gif", sha("ee"), 0, model.NewBBox(0, 0, 1, 1)), 1},
		{"short hash", makeExtracted(model.AssetImage, "abc123", 0, model.NewBBox(0, 0, 1, 1)), 1},
		{"uppercase hash", makeExtracted(model.AssetImage, strings.ToUpper(sha("ff")), 0, model.NewBBox(0, 0, 1, 1)), 1},
		{"page out of range", makeExtracted(model.AssetImage, sha("ab"), 5, model.NewBBox(0, 0, 1, 1)), 3},
		{"negative page", makeExtracted(model.AssetImage, sha("ab"), -1, model.NewBBox(0, 0, 1, 1)), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("doc.pdf", tt.pages, []ExtractedAsset{tt.asset})
			if !errors.Is(err, ErrInvalidAsset) {
				t.Errorf("expected ErrInvalidAsset, got %v", err)
			}
		})
	}
}

func TestValidate_OccurrenceGap(t *testing.T) {
	led, err := Build("doc.pdf", 1, []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("11"), 0, model.NewBBox(0, 0, 10, 10)),
		makeExtracted(model.AssetImage, sha("11"), 0, model.NewBBox(0, 20, 10, 30)),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the numbering to simulate an inconsistent artifact.
	led.Assets[0].Occurrence = 3

	if err := led.Validate(); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	led, err := Build("doc.pdf", 2, []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("21"), 0, model.NewBBox(0, 500, 10, 510)),
		makeExtracted(model.AssetVectorPNG, sha("22"), 0, model.NewBBox(0, 300, 10, 310)),
		makeExtracted(model.AssetImage, sha("23"), 1, model.NewBBox(0, 500, 10, 510)),
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := len(led.ByPage(0)); got != 2 {
		t.Errorf("ByPage(0) = %d assets, want 2", got)
	}
	if got := len(led.ByType(model.AssetImage)); got != 2 {
		t.Errorf("ByType(image) = %d assets, want 2", got)
	}
	if _, ok := led.FindByID("img-nope-p0-occ1"); ok {
		t.Error("FindByID should miss for unknown id")
	}

	sum := led.CompletenessSummary()
	if sum.Total != 3 {
		t.Errorf("summary total = %d, want 3", sum.Total)
	}
	if sum.ByPage[0] != 2 || sum.ByPage[1] != 1 {
		t.Errorf("unexpected by-page counts %v", sum.ByPage)
	}
	if sum.ByType[model.AssetVectorPNG] != 1 {
		t.Errorf("unexpected by-type counts %v", sum.ByType)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	led, err := Build("doc.pdf", 2, []ExtractedAsset{
		{
			AssetType:   model.AssetVectorPDF,
			SHA256:      sha("31"),
			PageNumber:  1,
			BBox:        model.NewBBox(100.000001, 200.125, 300.625, 400.5),
			CTM:         model.Matrix{0.7071067811865476, 0.7071067811865475, -0.7071067811865475, 0.7071067811865476, 12.000001, -3.5},
			CaptionText: "Figure 3: flow diagram",
			FontAudit:   []model.FontUsage{{Name: "Helvetica", Embedded: false}},
		},
		{
			AssetType:   model.AssetImage,
			SHA256:      sha("32"),
			PageNumber:  0,
			BBox:        model.NewBBox(50, 60, 70, 80),
			CTM:         model.Identity(),
			PixelWidth:  640,
			PixelHeight: 480,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := led.Write(&buf); err != nil {
		t.Fatal(err)
	}

	back, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(led, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestClone_DoesNotAliasAssets(t *testing.T) {
	led, err := Build("doc.pdf", 1, []ExtractedAsset{
		makeExtracted(model.AssetImage, sha("41"), 0, model.NewBBox(0, 0, 10, 10)),
	})
	if err != nil {
		t.Fatal(err)
	}

	c := led.Clone()
	c.Assets[0].AnchorTo = "p.intro.001"

	if led.Assets[0].AnchorTo != "" {
		t.Error("mutating the clone leaked into the original ledger")
	}
	if led.Anchored() {
		t.Error("original ledger should not report anchored")
	}
	if !c.Anchored() {
		t.Error("clone should report anchored")
	}
}
