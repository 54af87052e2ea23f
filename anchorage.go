// Package anchorage binds independently-extracted text blocks and
// visual assets of a PDF document back together: it detects the column
// structure of each page, anchors every asset to exactly one content
// block, injects stable [[asset_id]] markers into block text, and
// validates — after external translation and re-layout — that every
// asset is still accounted for within strict positional and visual
// tolerance.
//
// Basic usage:
//
//	p := anchorage.NewPipeline(doc, led)
//	if err := p.Anchor(); err != nil {
//	    // handle error
//	}
//	if err := p.InjectMarkers(); err != nil {
//	    // handle error
//	}
//	// ... external translation and placement ...
//	report, err := p.Validate(placements, rasters)
//	if err != nil {
//	    // fail closed: do not publish
//	}
//
// The pipeline is a one-way state machine: Extracted -> Anchored ->
// Markered -> Validated. A validation failure is terminal for the run;
// there is no partial or resumable state.
package anchorage

import (
	"errors"
	"fmt"
	"io"

	"github.com/anchorage-dev/anchorage/config"
	"github.com/anchorage-dev/anchorage/layout"
	"github.com/anchorage-dev/anchorage/ledger"
	"github.com/anchorage-dev/anchorage/marker"
	"github.com/anchorage-dev/anchorage/model"
	"github.com/anchorage-dev/anchorage/validate"
)

// State names a pipeline stage
type State string

const (
	StateExtracted State = "extracted"
	StateAnchored  State = "anchored"
	StateMarkered  State = "markered"
	StateValidated State = "validated"
)

// ErrInvalidTransition is returned when a stage is invoked out of order
var ErrInvalidTransition = errors.New("anchorage: invalid pipeline state transition")

// Pipeline drives one document through anchoring, marker injection and
// validation. It is not safe for concurrent use; page-level parallelism
// happens inside the anchoring engine.
type Pipeline struct {
	doc      *model.Document
	led      *ledger.AssetLedger
	cfg      config.Config
	warnings io.Writer

	state   State
	columns map[int][]model.Column
	audits  []layout.AnchorAudit
}

// NewPipeline creates a pipeline over an extracted document and its
// asset ledger, with default configuration.
func NewPipeline(doc *model.Document, led *ledger.AssetLedger) *Pipeline {
	return &Pipeline{
		doc:   doc,
		led:   led,
		cfg:   config.Default(),
		state: StateExtracted,
	}
}

// WithConfig replaces the pipeline configuration. Must be called before
// Anchor.
func (p *Pipeline) WithConfig(cfg config.Config) *Pipeline {
	p.cfg = cfg
	return p
}

// WithWarningWriter sets a sink for non-fatal warnings, such as
// degraded anchoring decisions. Warnings are suppressed by default.
func (p *Pipeline) WithWarningWriter(w io.Writer) *Pipeline {
	p.warnings = w
	return p
}

// State returns the current pipeline stage
func (p *Pipeline) State() State { return p.state }

// Document returns the pipeline's current document. After InjectMarkers
// the blocks carry markers.
func (p *Pipeline) Document() *model.Document { return p.doc }

// Ledger returns the pipeline's current ledger. After Anchor every
// asset has anchor_to set.
func (p *Pipeline) Ledger() *ledger.AssetLedger { return p.led }

// Columns returns the detected columns per page, available after Anchor
func (p *Pipeline) Columns() map[int][]model.Column { return p.columns }

// Audits returns the anchoring audit trail, available after Anchor
func (p *Pipeline) Audits() []layout.AnchorAudit { return p.audits }

// Anchor detects every page's columns and anchors every asset. It
// transitions Extracted -> Anchored; degraded anchoring decisions are
// flagged in the audit trail and written to the warning sink.
func (p *Pipeline) Anchor() error {
	if p.state != StateExtracted {
		return fmt.Errorf("%w: Anchor in state %s", ErrInvalidTransition, p.state)
	}

	detector := layout.NewColumnDetectorWithConfig(p.cfg.ColumnConfig())
	columns, err := detector.Detect(p.doc)
	if err != nil {
		return err
	}

	engine := layout.NewAnchoringEngineWithConfig(p.cfg.AnchorConfig())
	anchored, audits, err := engine.AttachAnchors(p.doc, columns, p.led)
	if err != nil {
		return err
	}

	if p.warnings != nil {
		for _, a := range audits {
			if a.Degraded() {
				fmt.Fprintf(p.warnings, "warning: asset %s anchored to %s across columns (degraded)\n",
					a.AssetID, a.BlockID)
			}
		}
	}

	p.columns = columns
	p.audits = audits
	p.led = anchored
	p.state = StateAnchored
	return nil
}

// InjectMarkers writes one marker per anchored asset into the document
// and verifies the completeness contract. It transitions Anchored ->
// Markered. Invoked again on a Markered pipeline it does not re-inject
// (the transition is one-way); it re-runs the verification only, so a
// marker deleted since injection surfaces as a MissingMarker error.
func (p *Pipeline) InjectMarkers() error {
	injector := marker.NewInjector()

	switch p.state {
	case StateAnchored:
		injected, err := injector.Inject(p.doc, p.led)
		if err != nil {
			return err
		}
		p.doc = injected
		p.state = StateMarkered
		return nil
	case StateMarkered:
		if verr := injector.Verify(p.doc, p.led); verr != nil {
			return verr
		}
		return nil
	default:
		return fmt.Errorf("%w: InjectMarkers in state %s", ErrInvalidTransition, p.state)
	}
}

// Validate consumes the external renderer's output - placed bounding
// boxes and rasterized page images - and produces the final validation
// report. It transitions Markered -> Validated on success. On any
// failure the report is returned together with a non-nil error and the
// run is over: validation is fail-closed, nothing is retried.
func (p *Pipeline) Validate(placements []validate.Placement, rasters []validate.PageRaster) (*validate.Report, error) {
	if p.state != StateMarkered {
		return nil, fmt.Errorf("%w: Validate in state %s", ErrInvalidTransition, p.state)
	}

	report := &validate.Report{}

	report.Markers = validate.NewMarkerReport(marker.NewInjector().Verify(p.doc, p.led))

	geometry, gerr := validate.NewGeometryValidatorWithConfig(p.cfg.GeometryConfig()).
		Validate(p.led, p.columns, placements)
	if gerr != nil && !errors.Is(gerr, validate.ErrGeometryGate) {
		return nil, gerr
	}
	report.Geometry = geometry

	visual, verr := validate.NewVisualDifferWithConfig(p.cfg.VisualConfig()).
		Compare(rasters, p.led)
	if verr != nil && !errors.Is(verr, validate.ErrVisualRegression) {
		return nil, verr
	}
	report.Visual = visual

	if err := report.Err(); err != nil {
		return report, err
	}
	p.state = StateValidated
	return report, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
