package sema

import (
	"fmt"

	"wirec/internal/diag"
	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// ServicePass generates the message types of every service: a <proc>_params
// and a <proc>_results struct per procedure, then <service>_call and
// <service>_return unions with one alternative per procedure. All of them
// live in the service namespace. A service that extends another one reuses
// the base messages and lists the base procedures first.
func (m *Module) ServicePass() {
	pending := m.pendingServices
	m.pendingServices = nil
	m.serviceBodies = make(map[symbols.SymbolID]*pendingService, len(pending))
	for i := range pending {
		m.serviceBodies[pending[i].sym] = &pending[i]
	}
	for i := range pending {
		m.defineService(&pending[i])
	}
	for i := range pending {
		if svc := pending[i].result; svc != nil {
			m.services = append(m.services, *svc)
		}
	}
	m.serviceBodies = nil
	m.checkSymbols()
}

// checkSymbols runs once every declaration has been bound. Any symbol still
// a forward declaration was never defined. The table is only validated for
// a clean module: error recovery may leave detached symbols behind.
func (m *Module) checkSymbols() {
	for _, sym := range m.Table.Unresolved() {
		msg := fmt.Sprintf("%s is declared but never defined", m.Table.QualifiedName(sym))
		diag.ReportError(m, diag.SemUnresolvedForwardDecl, m.Table.Symbols.Get(sym).Span, msg).Emit()
	}
	if m.Failed() {
		return
	}
	if err := m.Table.Validate(); err != nil {
		span := m.Table.Scopes.Get(m.Scope).Span
		diag.ReportError(m, diag.SemInfo, span, "symbol table is inconsistent").
			WithNote(span, err.Error()).
			Emit()
	}
}

func (m *Module) defineService(p *pendingService) *Service {
	if p.state != bodyPending {
		return p.result
	}
	p.state = bodyActive
	defer func() { p.state = bodyDone }()

	s := p.svc
	scope := m.Table.NewScope(symbols.ScopeService, m.Scope, p.sym, s.Span)
	m.bind(p.sym, symbols.Definition{Kind: symbols.SymbolService, Inner: scope})
	svc := Service{Name: m.Table.QualifiedName(p.sym), Symbol: p.sym, Scope: scope, Span: s.Span}

	r := symbols.NewResolver(m.Table, scope, symbols.ResolverOptions{Reporter: m})
	seen := make(map[string]source.Span, len(s.Procedures))
	var calls, returns []types.Member
	if base := m.serviceBase(p); base != nil {
		svc.Extends = base.Name
		for _, proc := range base.Procedures {
			seen[proc.Name] = proc.Span
			svc.Procedures = append(svc.Procedures, proc)
			calls = append(calls, types.Member{Name: proc.Name, Type: proc.Params, Span: proc.Span})
			returns = append(returns, types.Member{Name: proc.Name, Type: proc.Results, Span: proc.Span})
		}
	}
	for _, proc := range s.Procedures {
		if prev, dup := seen[proc.Name]; dup {
			diag.ReportError(m, diag.SemDuplicateSymbol, proc.Span, fmt.Sprintf("duplicate procedure %q in service %s", proc.Name, s.Name)).
				WithNote(prev, "previous procedure here").
				Emit()
			continue
		}
		seen[proc.Name] = proc.Span

		params := m.generatedStruct(r, proc.Name+"_params", proc.Span, proc.Params)
		results := m.generatedStruct(r, proc.Name+"_results", proc.Span, resultMembers(proc))
		if params == types.NoTypeID || results == types.NoTypeID {
			continue
		}
		svc.Procedures = append(svc.Procedures, Procedure{Name: proc.Name, Span: proc.Span, Params: params, Results: results})
		calls = append(calls, types.Member{Name: proc.Name, Type: params, Span: proc.Span})
		returns = append(returns, types.Member{Name: proc.Name, Type: results, Span: proc.Span})
	}
	if len(calls) > 0 {
		svc.Call = m.generatedUnion(r, s.Name+"_call", s.Span, calls)
		svc.Return = m.generatedUnion(r, s.Name+"_return", s.Span, returns)
	}
	p.result = &svc
	return p.result
}

// serviceBase defines and returns the service p extends.
func (m *Module) serviceBase(p *pendingService) *Service {
	ref := p.svc.Extends
	if ref == nil {
		return nil
	}
	if len(ref.Args) > 0 {
		msg := fmt.Sprintf("service %s: base %s cannot take arguments", p.svc.Name, ref)
		diag.ReportError(m, diag.SemBadBase, ref.Span, msg).Emit()
		return nil
	}
	sym, ok := m.Table.RecursiveNameLookup(m.Scope, m.Table.Strings.Intern(ref.Name))
	if !ok {
		diag.ReportError(m, diag.SemUnresolvedSymbol, ref.Span, fmt.Sprintf("unknown service %q", ref.Name)).Emit()
		return nil
	}
	base := m.serviceBodies[sym]
	switch {
	case base == nil:
		msg := fmt.Sprintf("service %s can only extend a service, %s is not one", p.svc.Name, ref.Name)
		diag.ReportError(m, diag.SemBadBase, ref.Span, msg).Emit()
		return nil
	case base.state == bodyActive:
		msg := fmt.Sprintf("service %s extends itself through %s", p.svc.Name, ref.Name)
		diag.ReportError(m, diag.SemBadBase, ref.Span, msg).Emit()
		return nil
	}
	return m.defineService(base)
}

// resultMembers names the results of a procedure ret0, ret1, ...
func resultMembers(proc schema.Procedure) []schema.Member {
	out := make([]schema.Member, 0, len(proc.Returns))
	for i, ref := range proc.Returns {
		if ref == nil {
			continue
		}
		out = append(out, schema.Member{Name: fmt.Sprintf("ret%d", i), Type: ref, Span: ref.Span})
	}
	return out
}

func (m *Module) generatedStruct(r *symbols.Resolver, name string, span source.Span, members []schema.Member) types.TypeID {
	sym, ok := r.Declare(m.Table.Strings.Intern(name), span, symbols.SymbolFlagGenerated)
	if !ok {
		return types.NoTypeID
	}
	qualified := m.Table.QualifiedName(sym)
	id := m.Types.RegisterStruct(qualified, span)
	m.bind(sym, symbols.Definition{Kind: symbols.SymbolType, Type: id})
	m.typeSyms[id] = sym
	m.Types.SetStructMembers(id, m.resolveMembers(members, m.Scope, 0))
	m.decls = append(m.decls, Decl{Name: qualified, Kind: schema.DeclStruct, Symbol: sym, Type: id, Span: span, Generated: true})
	return id
}

func (m *Module) generatedUnion(r *symbols.Resolver, name string, span source.Span, members []types.Member) types.TypeID {
	sym, ok := r.Declare(m.Table.Strings.Intern(name), span, symbols.SymbolFlagGenerated)
	if !ok {
		return types.NoTypeID
	}
	qualified := m.Table.QualifiedName(sym)
	id := m.Types.RegisterUnion(qualified, span)
	m.bind(sym, symbols.Definition{Kind: symbols.SymbolType, Type: id})
	m.typeSyms[id] = sym
	m.Types.SetUnionMembers(id, members)
	m.attachDiscriminant(id, qualified, members, sym, span, types.NoTypeID)
	m.decls = append(m.decls, Decl{Name: qualified, Kind: schema.DeclUnion, Symbol: sym, Type: id, Span: span, Generated: true})
	return id
}
