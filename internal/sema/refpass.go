package sema

import (
	"wirec/internal/symbols"
	"wirec/internal/types"
)

// ReferenceTypePass rewrites every struct and union member whose type is a
// reference type into ptr<T>, normalizing generic arguments on the way:
// vector<string> becomes ptr<vector<ptr<string>>>. It repeats until nothing
// changes, then unlocks the layout engine. A second run reports false.
func (m *Module) ReferenceTypePass() (bool, error) {
	if m.Failed() {
		return false, ErrModuleFailed
	}
	changed := m.rewriteMembers(m.compounds())
	m.refPassDone = true
	m.Layouts.ReferencePassDone()
	return changed, nil
}

func (m *Module) rewriteMembers(ids []types.TypeID) bool {
	changed := false
	for {
		round := false
		for _, id := range ids {
			for i, mem := range m.Types.Members(id) {
				if nt := m.pointerify(mem.Type); nt != mem.Type {
					m.Types.SetMemberType(id, i, nt)
					round = true
				}
			}
		}
		if !round {
			return changed
		}
		changed = true
	}
}

// pointerify is the storage form of a member of type t.
func (m *Module) pointerify(t types.TypeID) types.TypeID {
	tt, ok := m.Types.Lookup(t)
	if !ok {
		return t
	}
	if tt.Kind == types.KindPointer {
		return m.pointerTo(m.normalizeArgs(tt.Elem))
	}
	if m.Types.IsReference(t) {
		return m.pointerTo(m.normalizeArgs(t))
	}
	return t
}

// normalizeArgs rewrites the element types of vectors and pointers to their
// storage form. Nominal types keep their identity; their members are
// rewritten in place.
func (m *Module) normalizeArgs(t types.TypeID) types.TypeID {
	tt, ok := m.Types.Lookup(t)
	if !ok {
		return t
	}
	switch tt.Kind {
	case types.KindVector:
		return m.vectorOf(m.pointerify(tt.Elem))
	case types.KindPointer:
		return m.pointerTo(m.normalizeArgs(tt.Elem))
	default:
		return t
	}
}

// WireType is the storage form of a value of type t at the root of a
// message: vector<string> becomes vector<ptr<string>>.
func (m *Module) WireType(t types.TypeID) types.TypeID {
	return m.normalizeArgs(t)
}

func (m *Module) pointerTo(elem types.TypeID) types.TypeID {
	return m.builtinInstance(m.ptrGeneric, types.MakePointer(elem), elem)
}

func (m *Module) vectorOf(elem types.TypeID) types.TypeID {
	return m.builtinInstance(m.vecGeneric, types.MakeVector(elem), elem)
}

// builtinInstance interns a ptr<> or vector<> and records it in the
// instantiation cache like Resolve would.
func (m *Module) builtinInstance(gid symbols.GenericID, t types.Type, elem types.TypeID) types.TypeID {
	key := makeInstKey(gid, []resolvedArg{{typ: elem}})
	if id, ok := m.insts[key]; ok {
		return id
	}
	id := m.Types.Intern(t)
	m.insts[key] = id
	if _, seen := m.instNames[id]; !seen {
		m.instNames[id] = m.instanceLabel(&m.generics[gid], []resolvedArg{{typ: elem}})
	}
	return id
}
