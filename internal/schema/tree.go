// Package schema holds the declaration tree consumed by the compiler core
// and the YAML schema document loader that produces it.
package schema

import (
	"strconv"
	"strings"

	"wirec/internal/source"
)

// File is one loaded schema document.
type File struct {
	ID       source.FileID
	Module   string
	Span     source.Span
	Decls    []*Decl
	Services []*Service
}

// DeclKind classifies a type declaration.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota + 1
	DeclUnion
	DeclEnum
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclUnion:
		return "union"
	case DeclEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// Decl is a struct, union or enum declaration. Params makes a struct or
// union a generic template.
type Decl struct {
	Kind    DeclKind
	Name    string
	Span    source.Span
	Params  []Param
	Members []Member

	// unions only
	Extends *TypeRef
	Raw     bool

	// enums only
	Underlying *TypeRef
	Values     []EnumValue
}

// Param is a generic parameter. Kind is kept verbatim ("type", "i32", ...)
// and validated during resolution.
type Param struct {
	Name string
	Kind string
	Span source.Span
}

// Member is a named slot of a struct, union or procedure signature.
type Member struct {
	Name     string
	Type     *TypeRef
	Nullable bool
	Span     source.Span
}

// EnumValue is one enumerator. Explicit is false for sequence-style enums
// where the value is the position.
type EnumValue struct {
	Name     string
	Value    int64
	Explicit bool
	Span     source.Span
}

// Service groups remote procedures. A service that extends another one
// serves the base procedures first.
type Service struct {
	Name       string
	Span       source.Span
	Extends    *TypeRef
	Procedures []Procedure
}

// Procedure is one service call with its parameters and results.
type Procedure struct {
	Name    string
	Span    source.Span
	Params  []Member
	Returns []*TypeRef
}

// TypeRef is an unresolved textual type reference such as
// vector<ptr<Point>> or array<u8, 16>.
type TypeRef struct {
	Name string
	Args []TypeArg
	Span source.Span
}

// TypeArg is either a nested type reference or an integer literal.
type TypeArg struct {
	Type  *TypeRef
	Int   int64
	IsInt bool
	Span  source.Span
}

func (r *TypeRef) String() string {
	if r == nil {
		return "<nil>"
	}
	if len(r.Args) == 0 {
		return r.Name
	}
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteByte('<')
	for i, a := range r.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.IsInt {
			sb.WriteString(strconv.FormatInt(a.Int, 10))
		} else {
			sb.WriteString(a.Type.String())
		}
	}
	sb.WriteByte('>')
	return sb.String()
}
