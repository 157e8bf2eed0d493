package sema

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"wirec/internal/diag"
	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// maxInstDepth bounds nested instantiation, which otherwise diverges for
// templates such as Node<T> { next: ptr<Node<vector<T>>> }.
const maxInstDepth = 64

// Resolve turns a Name into a type, materializing generic instantiations on
// first use. Equal names always resolve to the same TypeID.
func (m *Module) Resolve(name Name) (types.TypeID, error) {
	before := len(m.instances)
	id, err := m.resolve(name, 0)
	if m.refPassDone && len(m.instances) > before {
		// Instances created after the reference pass get the same storage
		// rewrite as everything else, and any cached layout is stale.
		m.rewriteMembers(m.instances[before:])
		m.Layouts.Invalidate()
	}
	return id, err
}

func (m *Module) resolve(name Name, depth int) (types.TypeID, error) {
	sym, err := m.Table.Lookup(name.Base)
	if err != nil {
		return types.NoTypeID, err
	}
	label := m.Table.Name(name.Base)
	switch sym.Kind {
	case symbols.SymbolForwardDecl:
		_, err := m.Table.Resolved(name.Base)
		return types.NoTypeID, &ResolveError{Kind: ResolveForwardDecl, Name: label, Span: name.Span, Err: err}
	case symbols.SymbolType:
		if len(name.Args) != 0 {
			return types.NoTypeID, &ResolveError{Kind: ResolveArityMismatch, Name: label, Span: name.Span, Expected: 0, Actual: len(name.Args)}
		}
		return sym.Type, nil
	case symbols.SymbolGeneric:
		return m.resolveGeneric(sym.Generic, name, depth)
	default:
		return types.NoTypeID, &ResolveError{Kind: ResolveNotAType, Name: label, Span: name.Span}
	}
}

func (m *Module) resolveGeneric(gid symbols.GenericID, name Name, depth int) (types.TypeID, error) {
	g, ok := m.Generic(gid)
	if !ok {
		return types.NoTypeID, &ResolveError{Kind: ResolveNotAType, Name: m.Table.Name(name.Base), Span: name.Span}
	}
	if len(name.Args) != len(g.Params) {
		return types.NoTypeID, &ResolveError{Kind: ResolveArityMismatch, Name: g.Name, Span: name.Span, Expected: len(g.Params), Actual: len(name.Args)}
	}
	if depth >= maxInstDepth {
		return types.NoTypeID, &ResolveError{Kind: ResolveTooDeep, Name: g.Name, Span: name.Span, Expected: maxInstDepth}
	}

	args := make([]resolvedArg, len(name.Args))
	for i, p := range g.Params {
		a := name.Args[i]
		span := a.Span
		if span == (source.Span{}) {
			span = name.Span
		}
		switch p.Kind {
		case ParamType:
			if a.IsInt || a.Name == nil {
				return types.NoTypeID, &ResolveError{Kind: ResolveArgKindMismatch, Name: g.Name, Param: p.Name, Span: span, Err: fmt.Errorf("expected a type, got %d", a.Int)}
			}
			t, err := m.resolve(*a.Name, depth+1)
			if err != nil {
				return types.NoTypeID, err
			}
			args[i] = resolvedArg{typ: t}
		case ParamInt:
			if !a.IsInt {
				return types.NoTypeID, &ResolveError{Kind: ResolveArgKindMismatch, Name: g.Name, Param: p.Name, Span: span, Err: fmt.Errorf("expected an i32 literal, got a type")}
			}
			if _, err := safecast.Conv[int32](a.Int); err != nil {
				return types.NoTypeID, &ResolveError{Kind: ResolveArgKindMismatch, Name: g.Name, Param: p.Name, Span: span, Err: err}
			}
			args[i] = resolvedArg{value: a.Int, isInt: true}
		default:
			return types.NoTypeID, &ResolveError{Kind: ResolveUnknownParamKind, Name: g.Name, Param: p.Name, Span: name.Span}
		}
	}

	key := makeInstKey(gid, args)
	if id, ok := m.insts[key]; ok {
		return id, nil
	}
	return m.instantiate(gid, key, args, name.Span, depth)
}

func (m *Module) instantiate(gid symbols.GenericID, key instKey, args []resolvedArg, span source.Span, depth int) (types.TypeID, error) {
	g := m.generics[gid]
	label := m.instanceLabel(&g, args)
	var id types.TypeID
	switch g.Kind {
	case GenericPointer:
		id = m.Types.Intern(types.MakePointer(args[0].typ))
	case GenericVector:
		id = m.Types.Intern(types.MakeVector(args[0].typ))
	case GenericArray:
		n := args[1].value
		if n < 1 {
			return types.NoTypeID, &ResolveError{Kind: ResolveBadArrayLength, Name: label, Span: span, Err: fmt.Errorf("got %d", n)}
		}
		count, err := safecast.Conv[uint32](n)
		if err != nil {
			return types.NoTypeID, &ResolveError{Kind: ResolveBadArrayLength, Name: label, Span: span, Err: err}
		}
		id = m.Types.Intern(types.MakeArray(args[0].typ, count))
	case GenericStruct, GenericUnion:
		return m.instantiateTemplate(&g, key, args, label, depth)
	default:
		return types.NoTypeID, &ResolveError{Kind: ResolveNotAType, Name: g.Name, Span: span}
	}
	m.insts[key] = id
	if _, named := m.typeSyms[id]; !named {
		if _, seen := m.instNames[id]; !seen {
			m.instNames[id] = label
		}
	}
	return id, nil
}

// instantiateTemplate materializes a user struct or union template. The
// instance is cached before its members resolve so that self references
// through ptr<> find it.
func (m *Module) instantiateTemplate(g *Generic, key instKey, args []resolvedArg, label string, depth int) (types.TypeID, error) {
	var id types.TypeID
	if g.Kind == GenericStruct {
		id = m.Types.RegisterStruct(label, g.Span)
	} else {
		id = m.Types.RegisterUnion(label, g.Span)
	}
	m.insts[key] = id
	m.instNames[id] = label
	m.instances = append(m.instances, id)

	scope := m.Table.NewScope(symbols.ScopeInstance, g.Scope, g.Symbol, g.Span)
	for i, p := range g.Params {
		sid, err := m.Table.Declare(scope, m.Table.Strings.Intern(p.Name), p.Span)
		if err != nil {
			// duplicate parameter names were reported on the template
			continue
		}
		m.Table.Symbols.Get(sid).Flags = symbols.SymbolFlagGenerated
		def := symbols.Definition{Kind: symbols.SymbolType, Type: args[i].typ}
		if args[i].isInt {
			def = symbols.Definition{Kind: symbols.SymbolConst, Value: args[i].value}
		}
		if err := m.Table.Define(sid, def); err != nil {
			return types.NoTypeID, err
		}
	}

	members := m.resolveMembers(g.Decl.Members, scope, depth+1)
	if g.Kind == GenericStruct {
		m.Types.SetStructMembers(id, members)
		return id, nil
	}
	m.Types.SetUnionMembers(id, members)
	m.Types.SetUnionRaw(id, g.Decl.Raw)
	if len(members) == 0 {
		diag.ReportError(m, diag.SemEmptyUnion, g.Span, fmt.Sprintf("union %s has no members", label)).Emit()
		return id, nil
	}
	if !g.Decl.Raw {
		m.attachDiscriminant(id, label, members, symbols.NoSymbolID, g.Span, types.NoTypeID)
	}
	return id, nil
}

func (m *Module) instanceLabel(g *Generic, args []resolvedArg) string {
	var sb strings.Builder
	sb.WriteString(m.Table.QualifiedName(g.Symbol))
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.isInt {
			fmt.Fprintf(&sb, "%d", a.value)
			continue
		}
		sb.WriteString(m.typeLabel(a.typ))
	}
	sb.WriteByte('>')
	return sb.String()
}

// typeLabel prefers the qualified name and falls back to the structural
// label for types that were never named.
func (m *Module) typeLabel(id types.TypeID) string {
	if name, err := m.NameOf(id); err == nil {
		return name
	}
	return m.Types.Label(id)
}

// resolveMembers resolves member references in scope. Members that fail
// are reported and left out.
func (m *Module) resolveMembers(decls []schema.Member, scope symbols.ScopeID, depth int) []types.Member {
	out := make([]types.Member, 0, len(decls))
	seen := make(map[string]source.Span, len(decls))
	for _, d := range decls {
		if prev, dup := seen[d.Name]; dup {
			diag.ReportError(m, diag.SemDuplicateMember, d.Span, fmt.Sprintf("duplicate member %q", d.Name)).
				WithNote(prev, "previous member here").
				Emit()
			continue
		}
		seen[d.Name] = d.Span
		t, err := m.resolveRef(d.Type, scope, depth)
		if err != nil {
			m.reportResolve(err, d.Span)
			continue
		}
		out = append(out, types.Member{Name: d.Name, Type: t, Nullable: d.Nullable, Span: d.Span})
	}
	return out
}

func (m *Module) resolveRef(ref *schema.TypeRef, scope symbols.ScopeID, depth int) (types.TypeID, error) {
	name, err := m.nameFromRef(ref, scope)
	if err != nil {
		return types.NoTypeID, err
	}
	return m.resolve(name, depth)
}

func (m *Module) reportResolve(err error, fallback source.Span) {
	var re *ResolveError
	if errors.As(err, &re) {
		span := re.Span
		if span == (source.Span{}) {
			span = fallback
		}
		diag.ReportError(m, re.Code(), span, re.Error()).Emit()
		return
	}
	diag.ReportError(m, diag.SemInfo, fallback, err.Error()).Emit()
}
