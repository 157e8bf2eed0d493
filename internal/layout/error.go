package layout

import (
	"fmt"
	"strings"

	"wirec/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a by-value cycle.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	LayoutErrArrayElementNotRegular
	LayoutErrDuplicateMember
	LayoutErrUnresolvedForwardDecl
	LayoutErrReferencePassPending
	LayoutErrTooLarge
)

// LayoutError represents an error during layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Type   types.TypeID
	Label  string
	Member string
	Cycle  []string // for LayoutErrRecursiveUnsized
	Err    error    // for LayoutErrTooLarge
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := e.Label
	if subject == "" {
		subject = fmt.Sprintf("type#%d", e.Type)
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (%s)", subject)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrArrayElementNotRegular:
		return fmt.Sprintf("array element type must be regular: %s", subject)
	case LayoutErrDuplicateMember:
		if subject == "type#0" {
			return fmt.Sprintf("duplicate member %q", e.Member)
		}
		return fmt.Sprintf("duplicate member %q in %s", e.Member, subject)
	case LayoutErrUnresolvedForwardDecl:
		return fmt.Sprintf("unresolved forward declaration in %s member %q", subject, e.Member)
	case LayoutErrReferencePassPending:
		return fmt.Sprintf("layout of %s requested before the reference pass reached its fixed point", subject)
	case LayoutErrTooLarge:
		return fmt.Sprintf("layout of %s exceeds the addressable range: %v", subject, e.Err)
	default:
		return fmt.Sprintf("layout error kind=%d %s", e.Kind, subject)
	}
}
