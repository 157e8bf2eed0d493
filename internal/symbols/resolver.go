package symbols

import (
	"errors"
	"fmt"

	"wirec/internal/diag"
	"wirec/internal/source"
)

// ResolverOptions configures resolver construction.
type ResolverOptions struct {
	Reporter diag.Reporter
}

// Resolver drives scope management for declaration passes and turns table
// errors into diagnostics.
type Resolver struct {
	table                 *Table
	reporter              diag.Reporter
	stack                 []ScopeID
	scopeMismatchReported map[ScopeID]bool
}

// NewResolver wires a resolver to an existing scope stack. If root is valid it
// becomes the current scope; otherwise scope-sensitive operations are no-ops.
func NewResolver(table *Table, root ScopeID, opts ResolverOptions) *Resolver {
	r := &Resolver{
		table:                 table,
		reporter:              opts.Reporter,
		stack:                 make([]ScopeID, 0, 4),
		scopeMismatchReported: make(map[ScopeID]bool),
	}
	if root.IsValid() {
		r.stack = append(r.stack, root)
	}
	return r
}

// CurrentScope returns the scope at the top of the stack.
func (r *Resolver) CurrentScope() ScopeID {
	if len(r.stack) == 0 {
		return NoScopeID
	}
	return r.stack[len(r.stack)-1]
}

// Enter creates a child scope owned by owner, pushes it and returns its ID.
func (r *Resolver) Enter(kind ScopeKind, owner SymbolID, span source.Span) ScopeID {
	scope := r.table.NewScope(kind, r.CurrentScope(), owner, span)
	r.stack = append(r.stack, scope)
	return scope
}

// Push makes an existing scope current.
func (r *Resolver) Push(scope ScopeID) {
	r.stack = append(r.stack, scope)
}

// Leave pops the current scope, warning when it is not the expected one.
func (r *Resolver) Leave(expected ScopeID) {
	if len(r.stack) == 0 {
		return
	}
	top := r.stack[len(r.stack)-1]
	if expected.IsValid() && top != expected {
		r.reportScopeMismatch(expected, top)
	}
	r.stack = r.stack[:len(r.stack)-1]
}

// Declare installs a forward declaration into the current scope. Conflicts
// are reported and yield false.
func (r *Resolver) Declare(name source.StringID, span source.Span, flags SymbolFlags) (SymbolID, bool) {
	scopeID := r.CurrentScope()
	if !scopeID.IsValid() {
		return NoSymbolID, false
	}
	id, err := r.table.Declare(scopeID, name, span)
	if errors.Is(err, ErrAlreadyDeclared) {
		prev, _ := r.table.NameLookup(scopeID, name)
		r.reportDuplicateSymbol(name, span, prev)
		return NoSymbolID, false
	}
	if err != nil {
		return NoSymbolID, false
	}
	r.table.Symbols.Get(id).Flags = flags
	if shadow := r.findShadowedBuiltin(scopeID, name); shadow.IsValid() {
		r.reportShadowing(name, span, shadow)
	}
	return id, true
}

// Lookup walks the scope chain from the current scope.
func (r *Resolver) Lookup(name source.StringID) (SymbolID, bool) {
	return r.table.RecursiveNameLookup(r.CurrentScope(), name)
}

func (r *Resolver) reportDuplicateSymbol(name source.StringID, span source.Span, prev SymbolID) {
	if r.reporter == nil {
		return
	}
	msg := fmt.Sprintf("duplicate declaration of '%s'", r.table.Strings.MustLookup(name))
	builder := diag.ReportError(r.reporter, diag.SemDuplicateSymbol, span, msg)
	if sym := r.table.Symbols.Get(prev); sym != nil && sym.Span != (source.Span{}) {
		builder.WithNote(sym.Span, "previous declaration here")
	}
	builder.Emit()
}

func (r *Resolver) reportScopeMismatch(expected, actual ScopeID) {
	if r.reporter == nil || r.scopeMismatchReported[actual] {
		return
	}
	r.scopeMismatchReported[actual] = true

	var primary source.Span
	actualLabel := fmt.Sprintf("scope #%d", actual)
	if scope := r.table.Scopes.Get(actual); scope != nil {
		primary = scope.Span
		actualLabel = fmt.Sprintf("%s scope #%d", scope.Kind, actual)
	}
	expectedLabel := "unknown scope"
	if scope := r.table.Scopes.Get(expected); scope != nil {
		expectedLabel = fmt.Sprintf("%s scope #%d", scope.Kind, expected)
	}
	msg := fmt.Sprintf("scope stack mismatch: closing %s while expecting %s", actualLabel, expectedLabel)
	diag.ReportWarning(r.reporter, diag.SemScopeMismatch, primary, msg).Emit()
}

func (r *Resolver) findShadowedBuiltin(scopeID ScopeID, name source.StringID) SymbolID {
	scope := r.table.Scopes.Get(scopeID)
	if scope == nil {
		return NoSymbolID
	}
	id, ok := r.table.RecursiveNameLookup(scope.Parent, name)
	if !ok {
		return NoSymbolID
	}
	if sym := r.table.Symbols.Get(id); sym == nil || sym.Flags&SymbolFlagBuiltin == 0 {
		return NoSymbolID
	}
	return id
}

func (r *Resolver) reportShadowing(name source.StringID, span source.Span, shadow SymbolID) {
	if r.reporter == nil {
		return
	}
	msg := fmt.Sprintf("declaration of '%s' shadows the built-in type", r.table.Strings.MustLookup(name))
	diag.ReportWarning(r.reporter, diag.SemShadowBuiltin, span, msg).Emit()
}
