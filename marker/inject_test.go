package marker

import (
	"errors"
	"strings"
	"testing"

	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/model"
)

func sha(tag string) string {
	return tag + strings.Repeat("0", 64-len(tag))
}

func makeBlock(id string, bt model.BlockType, order int, content string, y0, y1 float64) *model.ContentBlock {
	return &model.ContentBlock{
		BlockID:      id,
		BlockType:    bt,
		Content:      content,
		PageNumber:   0,
		ReadingOrder: order,
		BBox:         model.NewBBox(72, y0, 540, y1),
	}
}

// anchoredLedger builds a ledger and sets anchor assignments in one step
func anchoredLedger(t *testing.T, anchors map[string]string, extracted ...ledger.ExtractedAsset) *ledger.AssetLedger {
	t.Helper()
	led, err := ledger.Build("doc.pdf", 1, extracted)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range led.Assets {
		if to, ok := anchors[a.AssetID]; ok {
			a.AnchorTo = to
		}
	}
	return led
}

func imageAt(hash string, y0, y1 float64) ledger.ExtractedAsset {
	return ledger.ExtractedAsset{
		AssetType:  model.AssetImage,
		SHA256:     hash,
		PageNumber: 0,
		BBox:       model.NewBBox(100, y0, 300, y1),
		CTM:        model.Identity(),
	}
}

func TestInject_ParagraphGetsMarkerFirst(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "First paragraph.", 600, 700),
		makeBlock("p.body.002", model.BlockParagraph, 1, "Second paragraph.", 450, 590),
		makeBlock("p.body.003", model.BlockParagraph, 2, "Third paragraph.", 300, 440),
	}}
	id := model.FormatAssetID(model.AssetImage, sha("a1"), 0, 1)
	led := anchoredLedger(t, map[string]string{id: "p.body.002"}, imageAt(sha("a1"), 470, 560))

	out, err := NewInjector().Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	block := out.FindBlock("p.body.002")
	want := Format(id) + "\nSecond paragraph."
	if block.Content != want {
		t.Errorf("content = %q, want %q", block.Content, want)
	}

	// The input document is untouched.
	if doc.FindBlock("p.body.002").Content != "Second paragraph." {
		t.Error("Inject mutated its input document")
	}
}

func TestInject_HeadingKeepsOwnTextFirst(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.h.001", model.BlockHeading, 0, "Materials and Methods", 650, 700),
	}}
	id := model.FormatAssetID(model.AssetVectorPDF, sha("b2"), 0, 1)
	led := anchoredLedger(t, map[string]string{id: "p.h.001"},
		ledger.ExtractedAsset{
			AssetType: model.AssetVectorPDF, SHA256: sha("b2"), PageNumber: 0,
			BBox: model.NewBBox(100, 500, 300, 600), CTM: model.Identity(),
		})

	out, err := NewInjector().Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	want := "Materials and Methods\n" + Format(id) + "\n"
	if got := out.FindBlock("p.h.001").Content; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestInject_FigureContentReplaced(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.fig.001", model.BlockFigure, 0, "placeholder caption", 400, 600),
		makeBlock("p.body.001", model.BlockParagraph, 1, "Body.", 100, 390),
	}}
	id := model.FormatAssetID(model.AssetImage, sha("c3"), 0, 1)
	led := anchoredLedger(t, map[string]string{id: "p.fig.001"}, imageAt(sha("c3"), 420, 580))

	out, err := NewInjector().Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	if got := out.FindBlock("p.fig.001").Content; got != Format(id)+"\n" {
		t.Errorf("figure content = %q, want only the marker", got)
	}
}

func TestInject_MultipleAssetsTopFirst(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "Text.", 100, 700),
	}}
	top := model.FormatAssetID(model.AssetImage, sha("d1"), 0, 1)
	bottom := model.FormatAssetID(model.AssetImage, sha("d2"), 0, 1)
	led := anchoredLedger(t,
		map[string]string{top: "p.body.001", bottom: "p.body.001"},
		imageAt(sha("d1"), 600, 680),
		imageAt(sha("d2"), 150, 230),
	)

	out, err := NewInjector().Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	want := Format(top) + "\n" + Format(bottom) + "\nText."
	if got := out.FindBlock("p.body.001").Content; got != want {
		t.Errorf("content = %q, want top-of-page marker first", got)
	}
}

func TestInject_Idempotent(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "Text.", 300, 440),
		makeBlock("p.h.001", model.BlockHeading, 1, "Title", 650, 700),
		makeBlock("p.fig.001", model.BlockFigure, 2, "", 500, 640),
	}}
	a := model.FormatAssetID(model.AssetImage, sha("e1"), 0, 1)
	b := model.FormatAssetID(model.AssetImage, sha("e2"), 0, 1)
	c := model.FormatAssetID(model.AssetTableSnapshot, sha("e3"), 0, 1)
	led := anchoredLedger(t,
		map[string]string{a: "p.body.001", b: "p.h.001", c: "p.fig.001"},
		imageAt(sha("e1"), 320, 400),
		imageAt(sha("e2"), 550, 630),
		ledger.ExtractedAsset{
			AssetType: model.AssetTableSnapshot, SHA256: sha("e3"), PageNumber: 0,
			BBox: model.NewBBox(100, 500, 300, 640), CTM: model.Identity(),
		})

	injector := NewInjector()
	once, err := injector.Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := injector.Inject(once, led)
	if err != nil {
		t.Fatal(err)
	}

	for i, block := range once.Blocks {
		if twice.Blocks[i].Content != block.Content {
			t.Errorf("block %s changed on second injection:\nfirst:  %q\nsecond: %q",
				block.BlockID, block.Content, twice.Blocks[i].Content)
		}
	}
}

func TestInject_RefusesUnanchoredLedger(t *testing.T) {
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "Text.", 300, 440),
	}}
	led := anchoredLedger(t, nil, imageAt(sha("f1"), 320, 400))

	if _, err := NewInjector().Inject(doc, led); err == nil {
		t.Fatal("expected error for ledger with empty anchor_to")
	}
}

func TestVerify_MissingMarker(t *testing.T) {
	// A marker is manually deleted after injection; verification must
	// raise MissingMarker naming exactly that asset id.
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "One.", 600, 700),
		makeBlock("p.body.002", model.BlockParagraph, 1, "Two.", 450, 590),
	}}
	kept := model.FormatAssetID(model.AssetImage, sha("a7"), 0, 1)
	deleted := model.FormatAssetID(model.AssetImage, sha("b8"), 0, 1)
	led := anchoredLedger(t,
		map[string]string{kept: "p.body.001", deleted: "p.body.002"},
		imageAt(sha("a7"), 620, 680),
		imageAt(sha("b8"), 470, 560),
	)

	injector := NewInjector()
	out, err := injector.Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	out.FindBlock("p.body.002").Content = "Two."

	verr := injector.Verify(out, led)
	if verr == nil {
		t.Fatal("expected MissingMarker")
	}
	if !errors.Is(verr, ErrMissingMarker) {
		t.Errorf("expected ErrMissingMarker, got %v", verr)
	}
	if ids := verr.ByKind(KindMissing); len(ids) != 1 || ids[0] != deleted {
		t.Errorf("missing ids = %v, want exactly [%s]", ids, deleted)
	}
	if verr.ByKind(KindDuplicate) != nil || verr.ByKind(KindOrphan) != nil {
		t.Errorf("unexpected extra violations: %v", verr)
	}
}

func TestVerify_DuplicateMarker(t *testing.T) {
	id := model.FormatAssetID(model.AssetImage, sha("c9"), 0, 1)
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, Format(id)+"\nOne.", 600, 700),
		makeBlock("p.body.002", model.BlockParagraph, 1, Format(id)+"\nTwo.", 450, 590),
	}}
	led := anchoredLedger(t, map[string]string{id: "p.body.001"}, imageAt(sha("c9"), 620, 680))

	verr := NewInjector().Verify(doc, led)
	if !errors.Is(verr, ErrDuplicateMarker) {
		t.Fatalf("expected ErrDuplicateMarker, got %v", verr)
	}
	if ids := verr.ByKind(KindDuplicate); len(ids) != 1 || ids[0] != id {
		t.Errorf("duplicate ids = %v", ids)
	}
}

func TestVerify_InvalidFormat(t *testing.T) {
	id := model.FormatAssetID(model.AssetImage, sha("d0"), 0, 1)
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, Format(id)+"\n[[BAD Marker]]\nOne.", 600, 700),
	}}
	led := anchoredLedger(t, map[string]string{id: "p.body.001"}, imageAt(sha("d0"), 620, 680))

	verr := NewInjector().Verify(doc, led)
	if !errors.Is(verr, ErrInvalidMarkerFormat) {
		t.Fatalf("expected ErrInvalidMarkerFormat, got %v", verr)
	}
	if ids := verr.ByKind(KindInvalid); len(ids) != 1 || ids[0] != "BAD Marker" {
		t.Errorf("invalid tokens = %v", ids)
	}
}

func TestVerify_OrphanMarker(t *testing.T) {
	id := model.FormatAssetID(model.AssetImage, sha("e5"), 0, 1)
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0,
			Format(id)+"\n[[img-feedfeedfeed-p0-occ9]]\nOne.", 600, 700),
	}}
	led := anchoredLedger(t, map[string]string{id: "p.body.001"}, imageAt(sha("e5"), 620, 680))

	verr := NewInjector().Verify(doc, led)
	if !errors.Is(verr, ErrOrphanMarker) {
		t.Fatalf("expected ErrOrphanMarker, got %v", verr)
	}
	if ids := verr.ByKind(KindOrphan); len(ids) != 1 || ids[0] != "img-feedfeedfeed-p0-occ9" {
		t.Errorf("orphan ids = %v", ids)
	}
}

func TestVerify_CompletenessProperty(t *testing.T) {
	// After a successful Inject, the marker set equals exactly the set
	// of anchored assets.
	doc := &model.Document{Blocks: []*model.ContentBlock{
		makeBlock("p.body.001", model.BlockParagraph, 0, "One.", 600, 700),
		makeBlock("p.body.002", model.BlockParagraph, 1, "Two.", 450, 590),
	}}
	a := model.FormatAssetID(model.AssetImage, sha("f6"), 0, 1)
	b := model.FormatAssetID(model.AssetVectorPNG, sha("a8"), 0, 1)
	led := anchoredLedger(t,
		map[string]string{a: "p.body.001", b: "p.body.002"},
		imageAt(sha("f6"), 620, 680),
		ledger.ExtractedAsset{
			AssetType: model.AssetVectorPNG, SHA256: sha("a8"), PageNumber: 0,
			BBox: model.NewBBox(100, 470, 300, 560), CTM: model.Identity(),
		})

	out, err := NewInjector().Inject(doc, led)
	if err != nil {
		t.Fatal(err)
	}

	found := make(map[string]int)
	for _, block := range out.Blocks {
		for _, id := range FindIDs(block.Content) {
			found[id]++
		}
	}
	if len(found) != 2 || found[a] != 1 || found[b] != 1 {
		t.Errorf("marker set %v does not equal the anchored asset set", found)
	}
}
