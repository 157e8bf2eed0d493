package symbols

import (
	"wirec/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeBuiltin            // primitive types and built-in generics
	ScopeModule             // top-level declarations of one schema
	ScopeInstance           // parameters of one generic instantiation
	ScopeService            // procedures of a service
	ScopeUnion              // generated discriminant of a union
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeBuiltin:
		return "builtin"
	case ScopeModule:
		return "module"
	case ScopeInstance:
		return "instance"
	case ScopeService:
		return "service"
	case ScopeUnion:
		return "union"
	default:
		return "invalid"
	}
}

// Scope owns an ordered symbol list and a name index. Parent is a
// non-owning link; Owner is the symbol whose namespace this scope is.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Owner     SymbolID
	Span      source.Span
	NameIndex map[source.StringID]SymbolID
	Symbols   []SymbolID
	Children  []ScopeID
}
