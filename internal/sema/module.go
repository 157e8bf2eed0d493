// Package sema turns a schema tree into resolved types: it binds names,
// materializes generic instantiations, synthesizes service messages,
// normalizes reference members to pointers and computes layouts.
package sema

import (
	"wirec/internal/diag"
	"wirec/internal/layout"
	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// Options configure a compilation module.
type Options struct {
	Reporter diag.Reporter
	Strings  *source.Interner
	// DefaultName is used when the schema does not name its module.
	DefaultName string
}

// Decl is one named type of the module as exposed to code generators.
type Decl struct {
	Name   string
	Kind   schema.DeclKind
	Symbol symbols.SymbolID
	Type   types.TypeID // NoTypeID for generic templates
	Span   source.Span
	// Generated marks service messages synthesized by the service pass.
	Generated bool
	Generic   bool
}

// Service is a resolved service with its generated message types.
// Procedures starts with the procedures inherited from Extends.
type Service struct {
	Name       string
	Symbol     symbols.SymbolID
	Scope      symbols.ScopeID
	Span       source.Span
	Extends    string
	Procedures []Procedure
	Call       types.TypeID
	Return     types.TypeID
}

// Procedure pairs the generated parameter and result structs of one call.
type Procedure struct {
	Name    string
	Span    source.Span
	Params  types.TypeID
	Results types.TypeID
}

// Module is the compilation unit of one schema file. It is not safe for
// concurrent use.
type Module struct {
	Name    string
	Table   *symbols.Table
	Types   *types.Interner
	Layouts *layout.Engine

	Builtin symbols.ScopeID
	Scope   symbols.ScopeID
	Symbol  symbols.SymbolID

	reporter    diag.Reporter
	errs        int
	defaultName string

	generics   []Generic
	ptrGeneric symbols.GenericID
	vecGeneric symbols.GenericID
	arrGeneric symbols.GenericID

	insts     map[instKey]types.TypeID
	instNames map[types.TypeID]string
	instances []types.TypeID
	typeSyms  map[types.TypeID]symbols.SymbolID

	pendingDecls    []pendingDecl
	pendingServices []pendingService
	bodies          map[symbols.SymbolID]*pendingDecl
	serviceBodies   map[symbols.SymbolID]*pendingService

	decls       []Decl
	services    []Service
	refPassDone bool
}

// bodyState orders definitions that depend on another declaration's body.
type bodyState uint8

const (
	bodyPending bodyState = iota
	bodyActive
	bodyDone
)

type pendingDecl struct {
	decl  *schema.Decl
	sym   symbols.SymbolID
	state bodyState
}

type pendingService struct {
	svc    *schema.Service
	sym    symbols.SymbolID
	state  bodyState
	result *Service
}

// NewModule creates a module whose builtin scope holds the primitive types
// and the ptr, vector and array generics.
func NewModule(opts Options) *Module {
	in := types.NewInterner()
	m := &Module{
		Table:       symbols.NewTable(symbols.Hints{}, opts.Strings),
		Types:       in,
		Layouts:     layout.New(in),
		reporter:    opts.Reporter,
		defaultName: opts.DefaultName,
		generics:    make([]Generic, 1), // 0 is NoGenericID
		insts:       make(map[instKey]types.TypeID),
		instNames:   make(map[types.TypeID]string),
		typeSyms:    make(map[types.TypeID]symbols.SymbolID),
	}
	if m.defaultName == "" {
		m.defaultName = "main"
	}
	m.Builtin = m.Table.NewScope(symbols.ScopeBuiltin, symbols.NoScopeID, symbols.NoSymbolID, source.Span{})
	m.installBuiltins()
	return m
}

func (m *Module) installBuiltins() {
	b := m.Types.Builtins()
	prims := []struct {
		name string
		id   types.TypeID
	}{
		{"bool", b.Bool},
		{"i8", b.I8}, {"i16", b.I16}, {"i32", b.I32}, {"i64", b.I64},
		{"u8", b.U8}, {"u16", b.U16}, {"u32", b.U32}, {"u64", b.U64},
		{"f32", b.F32}, {"f64", b.F64},
		{"string", b.String},
	}
	for _, p := range prims {
		sym := m.declareBuiltin(p.name)
		m.mustDefine(sym, symbols.Definition{Kind: symbols.SymbolType, Type: p.id})
		m.typeSyms[p.id] = sym
	}

	typeParam := func(name string) GenericParam { return GenericParam{Name: name, Kind: ParamType} }
	m.ptrGeneric = m.defineBuiltinGeneric("ptr", GenericPointer, typeParam("T"))
	m.vecGeneric = m.defineBuiltinGeneric("vector", GenericVector, typeParam("T"))
	m.arrGeneric = m.defineBuiltinGeneric("array", GenericArray, typeParam("T"), GenericParam{Name: "N", Kind: ParamInt})
}

func (m *Module) declareBuiltin(name string) symbols.SymbolID {
	sym, err := m.Table.Declare(m.Builtin, m.Table.Strings.Intern(name), source.Span{})
	if err != nil {
		panic(err)
	}
	m.Table.Symbols.Get(sym).Flags = symbols.SymbolFlagBuiltin
	return sym
}

func (m *Module) defineBuiltinGeneric(name string, kind GenericKind, params ...GenericParam) symbols.GenericID {
	sym := m.declareBuiltin(name)
	gid := m.addGeneric(Generic{Name: name, Kind: kind, Symbol: sym, Params: params})
	m.mustDefine(sym, symbols.Definition{Kind: symbols.SymbolGeneric, Generic: gid})
	return gid
}

func (m *Module) mustDefine(sym symbols.SymbolID, def symbols.Definition) {
	if err := m.Table.Define(sym, def); err != nil {
		panic(err)
	}
}

// Report implements diag.Reporter, counting errors before forwarding.
func (m *Module) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if sev >= diag.SevError {
		m.errs++
	}
	if m.reporter != nil {
		m.reporter.Report(code, sev, primary, msg, notes)
	}
}

// Failed reports whether any pass has reported an error.
func (m *Module) Failed() bool { return m.errs > 0 }

// Decls lists the module's named types in declaration order, service
// messages last.
func (m *Module) Decls() []Decl { return m.decls }

// Services lists resolved services in declaration order.
func (m *Module) Services() []Service { return m.services }

// Instances lists user generic instantiations in creation order.
func (m *Module) Instances() []types.TypeID { return m.instances }

// ReferencePassDone reports whether ReferenceTypePass has completed.
func (m *Module) ReferencePassDone() bool { return m.refPassDone }

// NameOf renders the qualified name of a type: declared types through the
// symbol table, instantiations through the instantiation cache.
func (m *Module) NameOf(id types.TypeID) (string, error) {
	if sym, ok := m.typeSyms[id]; ok {
		return m.Table.QualifiedName(sym), nil
	}
	if name, ok := m.instNames[id]; ok {
		return name, nil
	}
	return "", &ResolveError{Kind: ResolveCannotName, Name: m.Types.Label(id), Err: ErrCannotName}
}

// compounds lists every struct and union whose members the reference pass
// and layout pass must visit.
func (m *Module) compounds() []types.TypeID {
	out := make([]types.TypeID, 0, len(m.decls)+len(m.instances))
	for _, d := range m.decls {
		if d.Type == types.NoTypeID {
			continue
		}
		if tt, ok := m.Types.Lookup(d.Type); ok && (tt.Kind == types.KindStruct || tt.Kind == types.KindUnion) {
			out = append(out, d.Type)
		}
	}
	return append(out, m.instances...)
}

// TypeName renders id for output: the qualified name where one exists, the
// structural label otherwise.
func (m *Module) TypeName(id types.TypeID) string { return m.typeLabel(id) }
