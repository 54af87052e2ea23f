package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anchorage-dev/anchorage/marker"
)

// ErrValidationFailed is returned by Report.Err when any section of the
// validation report failed. The calling pipeline must halt on it rather
// than proceed to publish.
var ErrValidationFailed = errors.New("validate: document failed validation")

// MarkerReport is the marker section of the validation report
type MarkerReport struct {
	Passed bool               `json:"passed"`
	Errors []marker.Violation `json:"errors"`
}

// NewMarkerReport converts a marker verification result into its
// report section. A nil verr means the document's markers are clean.
func NewMarkerReport(verr *marker.ValidationError) MarkerReport {
	if verr == nil {
		return MarkerReport{Passed: true}
	}
	return MarkerReport{Passed: false, Errors: verr.Violations}
}

// Report is the structured validation result produced for the caller.
// Field names are stable so audit and diff tooling can consume the
// serialized form without depending on this package.
type Report struct {
	Geometry GeometryReport `json:"geometry"`
	Visual   VisualReport   `json:"visual"`
	Markers  MarkerReport   `json:"markers"`
}

// Passed reports whether every section passed
func (r *Report) Passed() bool {
	return r.Geometry.Passed && r.Visual.Passed && r.Markers.Passed
}

// Err returns nil for a passing report, or ErrValidationFailed wrapped
// with every failing section. Callers treat a non-nil value as a
// non-zero exit: the localization run for this document is over.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	var sections []string
	if !r.Geometry.Passed {
		sections = append(sections, fmt.Sprintf("geometry (pass rate %.4f, failing: %v)",
			r.Geometry.PassRate, r.Geometry.FailingAssetIDs))
	}
	if !r.Visual.Passed {
		pages := make([]int, len(r.Visual.FailingPages))
		for i, p := range r.Visual.FailingPages {
			pages[i] = p.Page
		}
		sections = append(sections, fmt.Sprintf("visual (failing pages: %v)", pages))
	}
	if !r.Markers.Passed {
		sections = append(sections, fmt.Sprintf("markers (%d violation kinds)", len(r.Markers.Errors)))
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(sections, "; "))
}

// Write serializes the report as indented JSON
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// Save writes the report to a file
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := r.Write(f); err != nil {
		return err
	}
	return f.Close()
}
