package sema

import (
	"fmt"

	"fortio.org/safecast"

	"wirec/internal/diag"
	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// DiscriminantName is the member name of the generated tag enum inside a
// union's namespace.
const DiscriminantName = "alternatives"

// maxUnionMembers is the number of alternatives a u8 discriminant can tell
// apart.
const maxUnionMembers = 256

// DeclarePass installs forward declarations for every type and service of
// file, so that definitions may refer to each other in any order.
func (m *Module) DeclarePass(file *schema.File) {
	name := file.Module
	if name == "" {
		name = m.defaultName
	}
	m.Name = name

	r := symbols.NewResolver(m.Table, m.Builtin, symbols.ResolverOptions{Reporter: m})
	sym, ok := r.Declare(m.Table.Strings.Intern(name), file.Span, 0)
	if !ok {
		// collides with a builtin name; keep going under a detached symbol
		sym = m.Table.Symbols.New(&symbols.Symbol{Name: m.Table.Strings.Intern(name), Scope: m.Builtin, Span: file.Span})
	}
	m.Symbol = sym
	m.Scope = m.Table.NewScope(symbols.ScopeModule, m.Builtin, sym, file.Span)
	if err := m.Table.Redefine(sym, symbols.Definition{Kind: symbols.SymbolModule, Inner: m.Scope}); err != nil {
		panic(err)
	}

	r.Push(m.Scope)
	for _, d := range file.Decls {
		if d == nil {
			continue
		}
		if id, ok := r.Declare(m.Table.Strings.Intern(d.Name), d.Span, 0); ok {
			m.pendingDecls = append(m.pendingDecls, pendingDecl{decl: d, sym: id})
		}
	}
	for _, s := range file.Services {
		if s == nil {
			continue
		}
		if id, ok := r.Declare(m.Table.Strings.Intern(s.Name), s.Span, 0); ok {
			m.pendingServices = append(m.pendingServices, pendingService{svc: s, sym: id})
		}
	}
	r.Leave(m.Scope)
}

// DefinePass binds every declaration in two steps: headers first, so that
// each name is a type or generic, then member lists.
func (m *Module) DefinePass() {
	pending := m.pendingDecls
	m.pendingDecls = nil
	m.bodies = make(map[symbols.SymbolID]*pendingDecl, len(pending))
	defined := make([]*pendingDecl, 0, len(pending))
	for i := range pending {
		p := &pending[i]
		if m.defineHeader(*p) {
			defined = append(defined, p)
			m.bodies[p.sym] = p
		}
	}
	for _, p := range defined {
		m.defineBody(p)
	}
	m.bodies = nil
	m.checkNullable()
}

func (m *Module) defineHeader(p pendingDecl) bool {
	d := p.decl
	qualified := m.Table.QualifiedName(p.sym)
	if len(d.Params) > 0 && d.Kind != schema.DeclEnum {
		if d.Extends != nil {
			msg := fmt.Sprintf("generic union %s cannot extend another union", d.Name)
			diag.ReportError(m, diag.SemBadBase, d.Extends.Span, msg).Emit()
		}
		kind := GenericStruct
		if d.Kind == schema.DeclUnion {
			kind = GenericUnion
		}
		gid := m.addGeneric(Generic{
			Name:   qualified,
			Kind:   kind,
			Symbol: p.sym,
			Params: m.genericParams(d),
			Decl:   d,
			Scope:  m.Scope,
			Span:   d.Span,
		})
		m.bind(p.sym, symbols.Definition{Kind: symbols.SymbolGeneric, Generic: gid})
		m.decls = append(m.decls, Decl{Name: qualified, Kind: d.Kind, Symbol: p.sym, Span: d.Span, Generic: true})
		return false
	}

	var id types.TypeID
	switch d.Kind {
	case schema.DeclStruct:
		id = m.Types.RegisterStruct(qualified, d.Span)
	case schema.DeclUnion:
		id = m.Types.RegisterUnion(qualified, d.Span)
	case schema.DeclEnum:
		id = m.defineEnum(d, qualified)
	default:
		return false
	}
	m.bind(p.sym, symbols.Definition{Kind: symbols.SymbolType, Type: id})
	m.typeSyms[id] = p.sym
	m.decls = append(m.decls, Decl{Name: qualified, Kind: d.Kind, Symbol: p.sym, Type: id, Span: d.Span})
	return d.Kind != schema.DeclEnum
}

func (m *Module) bind(sym symbols.SymbolID, def symbols.Definition) {
	if err := m.Table.Define(sym, def); err != nil {
		diag.ReportError(m, diag.SemDuplicateSymbol, m.Table.Symbols.Get(sym).Span, err.Error()).Emit()
	}
}

func (m *Module) genericParams(d *schema.Decl) []GenericParam {
	params := make([]GenericParam, 0, len(d.Params))
	seen := make(map[string]source.Span, len(d.Params))
	for _, p := range d.Params {
		if prev, dup := seen[p.Name]; dup {
			diag.ReportError(m, diag.SemDuplicateSymbol, p.Span, fmt.Sprintf("duplicate generic parameter %q", p.Name)).
				WithNote(prev, "previous parameter here").
				Emit()
		}
		seen[p.Name] = p.Span
		kind := paramKindOf(p.Kind)
		if kind == ParamUnknown {
			msg := fmt.Sprintf("unknown kind %q for generic parameter %s of %s (want type or i32)", p.Kind, p.Name, d.Name)
			diag.ReportError(m, diag.SemUnknownParamKind, p.Span, msg).Emit()
		}
		params = append(params, GenericParam{Name: p.Name, Kind: kind, Span: p.Span})
	}
	return params
}

// defineBody resolves the members of a declaration. A union that extends
// another one defines its base first.
func (m *Module) defineBody(p *pendingDecl) {
	if p.state != bodyPending {
		return
	}
	p.state = bodyActive
	defer func() { p.state = bodyDone }()

	d := p.decl
	sym := m.Table.Symbols.Get(p.sym)
	if sym == nil || sym.Kind != symbols.SymbolType {
		return
	}
	id := sym.Type
	members := m.resolveMembers(d.Members, m.Scope, 0)
	switch d.Kind {
	case schema.DeclStruct:
		m.Types.SetStructMembers(id, members)
	case schema.DeclUnion:
		m.Types.SetUnionRaw(id, d.Raw)
		inherited, baseTag := m.unionBase(id, d)
		members = m.mergeInherited(d.Name, inherited, members)
		m.Types.SetUnionMembers(id, members)
		if len(members) == 0 {
			if len(d.Members) == 0 {
				diag.ReportError(m, diag.SemEmptyUnion, d.Span, fmt.Sprintf("union %s has no members", d.Name)).Emit()
			}
			return
		}
		if !d.Raw {
			m.attachDiscriminant(id, m.Table.QualifiedName(p.sym), members, p.sym, d.Span, baseTag)
		}
	case schema.DeclEnum:
	}
}

// unionBase resolves the union d extends and returns its members and tag
// enum.
func (m *Module) unionBase(id types.TypeID, d *schema.Decl) ([]types.Member, types.TypeID) {
	if d.Extends == nil {
		return nil, types.NoTypeID
	}
	base, err := m.resolveRef(d.Extends, m.Scope, 0)
	if err != nil {
		m.reportResolve(err, d.Extends.Span)
		return nil, types.NoTypeID
	}
	_, instance := m.instNames[base]
	if _, ok := m.Types.UnionInfo(base); !ok || instance {
		msg := fmt.Sprintf("union %s can only extend a declared union, %s is not one", d.Name, m.typeLabel(base))
		diag.ReportError(m, diag.SemBadBase, d.Extends.Span, msg).Emit()
		return nil, types.NoTypeID
	}
	if bp := m.bodies[m.typeSyms[base]]; bp != nil {
		if bp.state == bodyActive {
			msg := fmt.Sprintf("union %s extends itself through %s", d.Name, m.typeLabel(base))
			diag.ReportError(m, diag.SemBadBase, d.Extends.Span, msg).Emit()
			return nil, types.NoTypeID
		}
		m.defineBody(bp)
	}
	m.Types.SetUnionBase(id, base)
	// the base body may have grown the union arena; look it up again
	info, _ := m.Types.UnionInfo(base)
	return append([]types.Member(nil), info.Members...), info.Discriminant
}

// mergeInherited puts the inherited members first so that every base
// alternative keeps its discriminant value.
func (m *Module) mergeInherited(name string, inherited, own []types.Member) []types.Member {
	if len(inherited) == 0 {
		return own
	}
	seen := make(map[string]source.Span, len(inherited))
	for _, mem := range inherited {
		seen[mem.Name] = mem.Span
	}
	out := inherited
	for _, mem := range own {
		if prev, dup := seen[mem.Name]; dup {
			diag.ReportError(m, diag.SemDuplicateMember, mem.Span, fmt.Sprintf("union %s redeclares inherited member %s", name, mem.Name)).
				WithNote(prev, "inherited member declared here").
				Emit()
			continue
		}
		out = append(out, mem)
	}
	return out
}

// attachDiscriminant generates the tag enum of a union: one enumerator per
// member, valued 0..N-1 over u8. Declared unions get it as the
// "alternatives" symbol of their own namespace. base is the tag enum of the
// union being extended, if any.
func (m *Module) attachDiscriminant(union types.TypeID, label string, members []types.Member, unionSym symbols.SymbolID, span source.Span, base types.TypeID) {
	if len(members) > maxUnionMembers {
		msg := fmt.Sprintf("union %s has %d members, a u8 discriminant holds %d", label, len(members), maxUnionMembers)
		diag.ReportError(m, diag.SemEnumValueOverflow, span, msg).Emit()
		return
	}
	enumName := label + "::" + DiscriminantName
	enum := m.Types.RegisterEnum(enumName, span, m.Types.Builtins().U8)
	values := make([]types.EnumMember, len(members))
	for i, mem := range members {
		values[i] = types.EnumMember{Name: mem.Name, Value: int64(i), Span: mem.Span}
	}
	m.Types.SetEnumMembers(enum, values)
	m.Types.SetUnionDiscriminant(union, enum)
	if base != types.NoTypeID {
		m.Types.SetEnumExtends(enum, base)
	}

	if !unionSym.IsValid() {
		m.instNames[enum] = enumName
		return
	}
	owner := m.Table.Symbols.Get(unionSym)
	inner := m.Table.NewScope(symbols.ScopeUnion, owner.Scope, unionSym, span)
	alt, err := m.Table.Declare(inner, m.Table.Strings.Intern(DiscriminantName), span)
	if err != nil {
		panic(err)
	}
	m.Table.Symbols.Get(alt).Flags = symbols.SymbolFlagGenerated
	m.mustDefine(alt, symbols.Definition{Kind: symbols.SymbolType, Type: enum})
	m.typeSyms[enum] = alt
	if err := m.Table.Redefine(unionSym, symbols.Definition{Kind: symbols.SymbolType, Type: union, Inner: inner}); err != nil {
		panic(err)
	}
}

func (m *Module) defineEnum(d *schema.Decl, qualified string) types.TypeID {
	b := m.Types.Builtins()
	base := b.U8
	if d.Underlying != nil {
		t, err := m.resolveRef(d.Underlying, m.Scope, 0)
		switch {
		case err != nil:
			m.reportResolve(err, d.Underlying.Span)
		case !m.Types.MustLookup(t).IsIntegral():
			msg := fmt.Sprintf("enum %s: underlying type %s is not integral", d.Name, m.Types.Label(t))
			diag.ReportError(m, diag.SemBadEnumBase, d.Underlying.Span, msg).Emit()
		default:
			base = t
		}
	}
	id := m.Types.RegisterEnum(qualified, d.Span, base)

	baseType := m.Types.MustLookup(base)
	values := make([]types.EnumMember, 0, len(d.Values))
	names := make(map[string]source.Span, len(d.Values))
	byValue := make(map[int64]types.EnumMember, len(d.Values))
	for _, v := range d.Values {
		if prev, dup := names[v.Name]; dup {
			diag.ReportError(m, diag.SemDuplicateMember, v.Span, fmt.Sprintf("duplicate enumerator %q in %s", v.Name, d.Name)).
				WithNote(prev, "previous enumerator here").
				Emit()
			continue
		}
		names[v.Name] = v.Span
		if err := fitsInteger(baseType, v.Value); err != nil {
			msg := fmt.Sprintf("enumerator %s = %d does not fit %s: %v", v.Name, v.Value, m.Types.Label(base), err)
			diag.ReportError(m, diag.SemEnumValueOverflow, v.Span, msg).Emit()
			continue
		}
		if prev, dup := byValue[v.Value]; dup {
			msg := fmt.Sprintf("enumerators %s and %s of %s share the value %d", prev.Name, v.Name, d.Name, v.Value)
			diag.ReportError(m, diag.SemDuplicateEnumValue, v.Span, msg).
				WithNote(prev.Span, "first use of the value").
				Emit()
			continue
		}
		member := types.EnumMember{Name: v.Name, Value: v.Value, Span: v.Span}
		byValue[v.Value] = member
		values = append(values, member)
	}
	m.Types.SetEnumMembers(id, values)
	return id
}

// fitsInteger checks that v is representable by the integral type t.
func fitsInteger(t types.Type, v int64) error {
	var err error
	switch {
	case t.Kind == types.KindInt && t.Width == types.Width8:
		_, err = safecast.Conv[int8](v)
	case t.Kind == types.KindInt && t.Width == types.Width16:
		_, err = safecast.Conv[int16](v)
	case t.Kind == types.KindInt && t.Width == types.Width32:
		_, err = safecast.Conv[int32](v)
	case t.Kind == types.KindInt:
	case t.Width == types.Width8:
		_, err = safecast.Conv[uint8](v)
	case t.Width == types.Width16:
		_, err = safecast.Conv[uint16](v)
	case t.Width == types.Width32:
		_, err = safecast.Conv[uint32](v)
	default:
		_, err = safecast.Conv[uint64](v)
	}
	return err
}

// checkNullable warns about nullable members whose type is stored inline;
// nullability only applies to pointers.
func (m *Module) checkNullable() {
	for _, id := range m.compounds() {
		for _, mem := range m.Types.Members(id) {
			if mem.Nullable && !m.Types.IsReference(mem.Type) {
				msg := fmt.Sprintf("member %s of %s is nullable but %s is a value type", mem.Name, m.typeLabel(id), m.Types.Label(mem.Type))
				diag.ReportWarning(m, diag.SemNullableValueMember, mem.Span, msg).Emit()
			}
		}
	}
}
