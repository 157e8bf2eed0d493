package symbols

import (
	"wirec/internal/source"
	"wirec/internal/types"
)

// SymbolKind tags what a handle is currently bound to.
type SymbolKind uint8

const (
	// SymbolForwardDecl is the placeholder installed by Declare.
	SymbolForwardDecl SymbolKind = iota
	SymbolType
	SymbolGeneric
	SymbolModule
	SymbolService
	// SymbolConst binds an integer generic argument inside an instance scope.
	SymbolConst
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolForwardDecl:
		return "forward-decl"
	case SymbolType:
		return "type"
	case SymbolGeneric:
		return "generic"
	case SymbolModule:
		return "module"
	case SymbolService:
		return "service"
	case SymbolConst:
		return "const"
	default:
		return "invalid"
	}
}

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint8

const (
	SymbolFlagBuiltin SymbolFlags = 1 << iota
	// SymbolFlagGenerated marks declarations synthesized by compiler passes
	// (union discriminants, service messages, generic parameters).
	SymbolFlagGenerated
)

// Strings returns a slice of textual flag labels.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 2)
	if f&SymbolFlagBuiltin != 0 {
		labels = append(labels, "builtin")
	}
	if f&SymbolFlagGenerated != 0 {
		labels = append(labels, "generated")
	}
	return labels
}

// Definition is what Define binds to a declared handle.
type Definition struct {
	Kind    SymbolKind
	Type    types.TypeID
	Generic GenericID
	// Inner is the namespace opened by modules, services and unions.
	Inner   ScopeID
	Value   int64
}

// Symbol describes a named entity available in a scope.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Scope ScopeID
	Span  source.Span
	Flags SymbolFlags

	Type    types.TypeID
	Generic GenericID
	Inner   ScopeID
	Value   int64
}

// Definition returns the current binding of the symbol.
func (s *Symbol) Definition() Definition {
	return Definition{Kind: s.Kind, Type: s.Type, Generic: s.Generic, Inner: s.Inner, Value: s.Value}
}
