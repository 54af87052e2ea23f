package layout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructuralViolation indicates a broken internal invariant: a block
// left uncovered by column detection, or an asset left unanchored after
// the anchoring engine completed. Both mean a prior guarantee failed
// upstream; neither is recoverable.
var ErrStructuralViolation = errors.New("layout: structural invariant violated")

// StructuralError carries the full list of offending block or asset ids
// for a structural violation, not just the first.
type StructuralError struct {
	Op  string   // operation that detected the violation
	IDs []string // every offending block/asset id
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("layout: structural invariant violated in %s: %s",
		e.Op, strings.Join(e.IDs, ", "))
}

func (e *StructuralError) Unwrap() error {
	return ErrStructuralViolation
}
