package symbols

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"

	"wirec/internal/source"
)

var (
	// ErrAlreadyDeclared is returned when a scope already binds the name.
	ErrAlreadyDeclared = errors.New("name already declared in this scope")
	// ErrAlreadyDefined is returned when Define targets a bound handle.
	ErrAlreadyDefined = errors.New("symbol already defined")
	// ErrUnresolvedForwardDecl is returned when a handle is still a
	// placeholder at the time its definition is needed.
	ErrUnresolvedForwardDecl = errors.New("unresolved forward declaration")
	// ErrInvalidSymbol is returned for handles that were never allocated.
	ErrInvalidSymbol = errors.New("invalid symbol handle")
	// ErrInvalidScope is returned for scopes that were never allocated.
	ErrInvalidScope = errors.New("invalid scope")
)

// Hints provide optional capacity suggestions for the symbol table arenas.
type Hints struct{ Scopes, Symbols uint }

// Table aggregates symbol-related arenas and shared resources.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	Strings *source.Interner
}

// NewTable builds a fresh table with optional capacity hints.
// If strings is nil, a fresh interner is allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	symCap, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Scopes:  NewScopes(scopeCap),
		Symbols: NewSymbols(symCap),
		Strings: strings,
	}
}

// NewScope allocates a scope nested in parent. owner may be NoSymbolID for
// root scopes.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, owner SymbolID, span source.Span) ScopeID {
	return t.Scopes.New(kind, parent, owner, span)
}

// Declare allocates a ForwardDecl handle for name in scope.
func (t *Table) Declare(scope ScopeID, name source.StringID, span source.Span) (SymbolID, error) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, fmt.Errorf("%w: %d", ErrInvalidScope, scope)
	}
	if _, ok := sc.NameIndex[name]; ok {
		return NoSymbolID, fmt.Errorf("%w: %q", ErrAlreadyDeclared, t.Strings.MustLookup(name))
	}
	id := t.Symbols.New(&Symbol{
		Name:  name,
		Kind:  SymbolForwardDecl,
		Scope: scope,
		Span:  span,
	})
	sc = t.Scopes.Get(scope)
	sc.Symbols = append(sc.Symbols, id)
	sc.NameIndex[name] = id
	return id, nil
}

// Define binds a declared handle. It fails if the handle is already bound.
func (t *Table) Define(id SymbolID, def Definition) error {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return fmt.Errorf("%w: %d", ErrInvalidSymbol, id)
	}
	if sym.Kind != SymbolForwardDecl {
		return fmt.Errorf("%w: %q", ErrAlreadyDefined, t.Strings.MustLookup(sym.Name))
	}
	t.bind(sym, def)
	return nil
}

// Redefine replaces the binding of a declared handle.
func (t *Table) Redefine(id SymbolID, def Definition) error {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return fmt.Errorf("%w: %d", ErrInvalidSymbol, id)
	}
	t.bind(sym, def)
	return nil
}

func (t *Table) bind(sym *Symbol, def Definition) {
	sym.Kind = def.Kind
	sym.Type = def.Type
	sym.Generic = def.Generic
	sym.Inner = def.Inner
	sym.Value = def.Value
}

// Lookup returns the symbol behind a handle, whatever it is bound to.
func (t *Table) Lookup(id SymbolID) (*Symbol, error) {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSymbol, id)
	}
	return sym, nil
}

// Resolved is Lookup for callers that need a bound definition.
func (t *Table) Resolved(id SymbolID) (*Symbol, error) {
	sym, err := t.Lookup(id)
	if err != nil {
		return nil, err
	}
	if sym.Kind == SymbolForwardDecl {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedForwardDecl, t.Strings.MustLookup(sym.Name))
	}
	return sym, nil
}

// NameLookup searches the given scope only.
func (t *Table) NameLookup(scope ScopeID, name source.StringID) (SymbolID, bool) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, false
	}
	id, ok := sc.NameIndex[name]
	return id, ok
}

// RecursiveNameLookup searches scope and then its ancestors.
func (t *Table) RecursiveNameLookup(scope ScopeID, name source.StringID) (SymbolID, bool) {
	for scope.IsValid() {
		sc := t.Scopes.Get(scope)
		if sc == nil {
			break
		}
		if id, ok := sc.NameIndex[name]; ok {
			return id, true
		}
		scope = sc.Parent
	}
	return NoSymbolID, false
}

// LookupString is NameLookup for callers holding a plain string. Unknown
// strings are never interned.
func (t *Table) LookupString(scope ScopeID, name string) (SymbolID, bool) {
	sid, ok := t.Strings.Find(name)
	if !ok {
		return NoSymbolID, false
	}
	return t.NameLookup(scope, sid)
}

// Name returns the plain name of a symbol.
func (t *Table) Name(id SymbolID) string {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return ""
	}
	return t.Strings.MustLookup(sym.Name)
}

// QualifiedName renders the owner chain of a symbol as a::b::c. Builtin
// scopes have no owner, so builtins render bare.
func (t *Table) QualifiedName(id SymbolID) string {
	var parts []string
	seen := make(map[SymbolID]struct{})
	for id.IsValid() {
		if _, dup := seen[id]; dup {
			break
		}
		seen[id] = struct{}{}
		sym := t.Symbols.Get(id)
		if sym == nil {
			break
		}
		parts = append(parts, t.Strings.MustLookup(sym.Name))
		sc := t.Scopes.Get(sym.Scope)
		if sc == nil {
			break
		}
		id = sc.Owner
	}
	slices.Reverse(parts)
	return strings.Join(parts, "::")
}
