package sema

import (
	"errors"
	"fmt"

	"wirec/internal/diag"
	"wirec/internal/source"
)

// ErrCannotName is wrapped by NameOf failures.
var ErrCannotName = errors.New("cannot name this type")

// ErrModuleFailed is returned by passes that refuse to run after an earlier
// pass reported errors.
var ErrModuleFailed = errors.New("module has errors")

// ResolveErrorKind classifies name and generic resolution failures.
type ResolveErrorKind uint8

const (
	ResolveUnknownName ResolveErrorKind = iota + 1
	ResolveArityMismatch
	ResolveUnknownParamKind
	ResolveArgKindMismatch
	ResolveBadArrayLength
	ResolveNotAType
	ResolveForwardDecl
	ResolveCannotName
	ResolveTooDeep
)

// ResolveError carries the failing name and where it was written.
type ResolveError struct {
	Kind     ResolveErrorKind
	Name     string
	Param    string
	Span     source.Span
	Expected int
	Actual   int
	Err      error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ResolveUnknownName:
		return fmt.Sprintf("unknown type %q", e.Name)
	case ResolveArityMismatch:
		return fmt.Sprintf("%s expects %d generic argument(s), got %d", e.Name, e.Expected, e.Actual)
	case ResolveUnknownParamKind:
		return fmt.Sprintf("unknown kind for generic parameter %s of %s", e.Param, e.Name)
	case ResolveArgKindMismatch:
		return fmt.Sprintf("argument for %s of %s has the wrong kind: %v", e.Param, e.Name, e.Err)
	case ResolveBadArrayLength:
		return fmt.Sprintf("%s length must be a positive integer: %v", e.Name, e.Err)
	case ResolveNotAType:
		return fmt.Sprintf("%q does not name a type", e.Name)
	case ResolveForwardDecl:
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	case ResolveCannotName:
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	case ResolveTooDeep:
		return fmt.Sprintf("instantiating %s exceeds %d nested instantiations", e.Name, e.Expected)
	default:
		return fmt.Sprintf("cannot resolve %s", e.Name)
	}
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Code maps the failure to its diagnostic code.
func (e *ResolveError) Code() diag.Code {
	switch e.Kind {
	case ResolveUnknownName:
		return diag.SemUnresolvedSymbol
	case ResolveArityMismatch:
		if e.Actual == 0 {
			return diag.SemGenericNeedsArgs
		}
		return diag.SemArityMismatch
	case ResolveUnknownParamKind:
		return diag.SemUnknownParamKind
	case ResolveArgKindMismatch:
		return diag.SemArgKindMismatch
	case ResolveBadArrayLength:
		return diag.SemBadArrayLength
	case ResolveNotAType:
		return diag.SemNotAType
	case ResolveForwardDecl:
		return diag.SemUnresolvedForwardDecl
	case ResolveTooDeep:
		return diag.SemInstantiationDepth
	default:
		return diag.SemInfo
	}
}
