package sema

import (
	"errors"
	"fmt"

	"wirec/internal/diag"
	"wirec/internal/layout"
	"wirec/internal/schema"
	"wirec/internal/source"
	"wirec/internal/types"
)

// LayoutPass computes the layout of every declared type and instantiation,
// reporting failures at the declaration.
func (m *Module) LayoutPass() {
	for _, id := range m.layoutRoots() {
		if _, err := m.Layouts.LayoutOf(id); err != nil {
			m.reportLayout(id, err)
		}
	}
}

func (m *Module) layoutRoots() []types.TypeID {
	out := make([]types.TypeID, 0, len(m.decls)+len(m.instances))
	for _, d := range m.decls {
		if d.Type != types.NoTypeID {
			out = append(out, d.Type)
		}
	}
	return append(out, m.instances...)
}

func (m *Module) reportLayout(id types.TypeID, err error) {
	span := m.declSpan(id)
	var le *layout.LayoutError
	if !errors.As(err, &le) {
		diag.ReportError(m, diag.LayInfo, span, err.Error()).Emit()
		return
	}
	code := diag.LayInfo
	switch le.Kind {
	case layout.LayoutErrRecursiveUnsized:
		code = diag.LayRecursiveUnsized
	case layout.LayoutErrArrayElementNotRegular:
		code = diag.LayArrayElementNotReg
	case layout.LayoutErrDuplicateMember:
		code = diag.LayDuplicateMember
	case layout.LayoutErrUnresolvedForwardDecl:
		code = diag.SemUnresolvedForwardDecl
	case layout.LayoutErrReferencePassPending:
		code = diag.LayReferencePassNotRun
	case layout.LayoutErrTooLarge:
		code = diag.LayTooLarge
	}
	diag.ReportError(m, code, span, fmt.Sprintf("%s: %v", m.typeLabel(id), le)).Emit()
}

func (m *Module) declSpan(id types.TypeID) source.Span {
	if info, ok := m.Types.StructInfo(id); ok {
		return info.Decl
	}
	if info, ok := m.Types.UnionInfo(id); ok {
		return info.Decl
	}
	if info, ok := m.Types.EnumInfo(id); ok {
		return info.Decl
	}
	return m.Table.Scopes.Get(m.Scope).Span
}

// LookupType resolves a textual type reference against the module scope,
// for callers such as the CLI that name a root type. Once the reference pass
// has run the result is in storage form, and instantiations created by the
// lookup are normalized too.
func (m *Module) LookupType(expr string) (types.TypeID, error) {
	ref, err := schema.ParseTypeRef(expr, source.Span{})
	if err != nil {
		return types.NoTypeID, err
	}
	errsBefore := m.errs
	name, err := m.nameFromRef(ref, m.Scope)
	if err != nil {
		return types.NoTypeID, err
	}
	id, err := m.Resolve(name)
	if err != nil {
		return types.NoTypeID, err
	}
	if m.errs > errsBefore {
		return types.NoTypeID, fmt.Errorf("%s: %w", expr, ErrModuleFailed)
	}
	if !m.refPassDone {
		return id, nil
	}
	return m.WireType(id), nil
}

// Check runs every pass over file in order and stops after the first pass
// that reports errors.
func Check(file *schema.File, opts Options) *Module {
	m := NewModule(opts)
	m.DeclarePass(file)
	m.DefinePass()
	m.ServicePass()
	if m.Failed() {
		return m
	}
	if _, err := m.ReferenceTypePass(); err != nil {
		return m
	}
	m.LayoutPass()
	return m
}
