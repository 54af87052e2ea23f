package marker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the four marker validation failure kinds. A
// returned *ValidationError matches, via errors.Is, every sentinel whose
// kind it carries at least one violation for.
var (
	ErrMissingMarker       = errors.New("marker: missing marker")
	ErrDuplicateMarker     = errors.New("marker: duplicate marker")
	ErrInvalidMarkerFormat = errors.New("marker: invalid marker format")
	ErrOrphanMarker        = errors.New("marker: orphan marker")
)

// Kind names one marker validation failure category
type Kind string

const (
	KindMissing   Kind = "missing_marker"
	KindDuplicate Kind = "duplicate_marker"
	KindInvalid   Kind = "invalid_marker_format"
	KindOrphan    Kind = "orphan_marker"
)

func (k Kind) sentinel() error {
	switch k {
	case KindMissing:
		return ErrMissingMarker
	case KindDuplicate:
		return ErrDuplicateMarker
	case KindInvalid:
		return ErrInvalidMarkerFormat
	case KindOrphan:
		return ErrOrphanMarker
	default:
		return nil
	}
}

// Violation is one failure category with the full list of offending
// ids, not just the first.
type Violation struct {
	Kind Kind     `json:"kind"`
	IDs  []string `json:"ids"`
}

// ValidationError aggregates every marker violation found in one
// document pass. Marker validation is fail-closed: the presence of any
// violation aborts the run.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Kind, strings.Join(v.IDs, ", "))
	}
	return "marker: validation failed: " + strings.Join(parts, "; ")
}

// Is reports whether the error carries a violation matching the
// sentinel target.
func (e *ValidationError) Is(target error) bool {
	for _, v := range e.Violations {
		if v.Kind.sentinel() == target {
			return true
		}
	}
	return false
}

// ByKind returns the offending ids for one failure kind, or nil
func (e *ValidationError) ByKind(k Kind) []string {
	for _, v := range e.Violations {
		if v.Kind == k {
			return v.IDs
		}
	}
	return nil
}

// newValidationError assembles a ValidationError with deterministic
// ordering, or nil if every category is empty.
func newValidationError(missing, duplicates, invalid, orphans []string) *ValidationError {
	var violations []Violation
	add := func(k Kind, ids []string) {
		if len(ids) == 0 {
			return
		}
		ids = dedupeSorted(ids)
		violations = append(violations, Violation{Kind: k, IDs: ids})
	}
	add(KindMissing, missing)
	add(KindDuplicate, duplicates)
	add(KindInvalid, invalid)
	add(KindOrphan, orphans)

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func dedupeSorted(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
