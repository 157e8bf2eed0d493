package codec

import (
	"fmt"

	"wirec/internal/diag"
)

// ErrorKind classifies per-value codec failures.
type ErrorKind uint8

const (
	// ErrUnknownEnum: an enum value or name matches no enumerator.
	ErrUnknownEnum ErrorKind = iota + 1
	// ErrUnionActive: a union value does not name exactly one member.
	ErrUnionActive
	// ErrOutOfBounds: a read would leave the buffer or its valid prefix.
	ErrOutOfBounds
	// ErrValueMismatch: the structured value does not fit the type.
	ErrValueMismatch
	// ErrPointerOverflow: a pointee lies beyond the 16-bit pointer range.
	ErrPointerOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownEnum:
		return "unknown enum value"
	case ErrUnionActive:
		return "union must have exactly one active member"
	case ErrOutOfBounds:
		return "out of bounds"
	case ErrValueMismatch:
		return "value does not match type"
	case ErrPointerOverflow:
		return "pointer offset out of range"
	default:
		return "codec error"
	}
}

// Error is returned for a value that cannot be encoded or decoded. It never
// leaves the codec in a bad state.
type Error struct {
	Kind ErrorKind
	Type string // label of the type being processed
	Path string // position inside the value, e.g. "names[1]"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	where := e.Type
	if e.Path != "" {
		where = e.Path + " (" + e.Type + ")"
	}
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if where == "" {
		return msg
	}
	return where + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code maps the failure to its diagnostic code.
func (e *Error) Code() diag.Code {
	switch e.Kind {
	case ErrUnknownEnum:
		return diag.CodUnknownEnum
	case ErrUnionActive:
		return diag.CodUnionActive
	case ErrOutOfBounds:
		return diag.CodOutOfBounds
	case ErrValueMismatch:
		return diag.CodValueMismatch
	case ErrPointerOverflow:
		return diag.CodPointerOverflow
	default:
		return diag.CodInfo
	}
}

// InvariantError is the panic value raised when the encoder's running
// position disagrees with the computed layout. It indicates a layout bug,
// never bad input.
type InvariantError struct {
	Type   string
	Member string
	Want   int
	Got    int
}

// An empty Member means the value as a whole overran its size.
func (e *InvariantError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("encoder invariant: %s is %d bytes, writer wrote %d", e.Type, e.Want, e.Got)
	}
	return fmt.Sprintf("encoder invariant: %s.%s expected at offset %d, writer is at %d", e.Type, e.Member, e.Want, e.Got)
}
