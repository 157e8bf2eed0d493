package layout

import (
	"fortio.org/safecast"

	"wirec/internal/types"
)

// Names of the two slots of a union layout.
const (
	UnionTagMember     = "discriminator"
	UnionPayloadMember = "val"
)

// TypeLayout is the computed layout of one type.
type TypeLayout struct {
	RawLayout

	// Struct: one entry per member in declaration order.
	// Union: the tag and payload slots.
	Members []MemberLayout

	// Union only.
	Tag           RawLayout
	Payload       RawLayout
	PayloadOffset uint32
}

// Engine computes and caches layouts for an interner. Layouts are only
// meaningful once every reference member has been rewritten to a pointer, so
// the engine refuses to work until ReferencePassDone is called.
type Engine struct {
	Types *types.Interner

	cache *cache
	ready bool
}

// New creates a layout engine over typesIn.
func New(typesIn *types.Interner) *Engine {
	return &Engine{
		Types: typesIn,
		cache: newCache(),
	}
}

// ReferencePassDone unlocks layout computation and drops anything cached.
func (e *Engine) ReferencePassDone() {
	e.ready = true
	e.cache.reset()
}

// Invalidate drops cached layouts, e.g. after a definition was replaced.
func (e *Engine) Invalidate() {
	e.cache.reset()
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[types.TypeID]int, 16)}
}

// LayoutOf computes the type's own layout: for a struct its packed members,
// for a string its inline form. Use WireLayout for the footprint at a
// referencing site.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

// WireLayout returns {2,2} for reference types and LayoutOf otherwise.
func (e *Engine) WireLayout(t types.TypeID) (RawLayout, error) {
	if !e.ready {
		return RawLayout{}, e.pending(t)
	}
	if e.Types.IsReference(t) {
		return PointerLayout, nil
	}
	l, err := e.LayoutOf(t)
	if err != nil {
		return RawLayout{}, err
	}
	return l.RawLayout, nil
}

func (e *Engine) pending(t types.TypeID) *LayoutError {
	return &LayoutError{Kind: LayoutErrReferencePassPending, Type: t, Label: e.Types.Label(t)}
}

func (e *Engine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if !e.ready {
		return TypeLayout{}, e.pending(t)
	}
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, id := range state.stack[idx:] {
			cycle = append(cycle, e.Types.Label(id))
		}
		cycle = append(cycle, e.Types.Label(t))
		err := &LayoutError{Kind: LayoutErrRecursiveUnsized, Type: t, Label: e.Types.Label(t), Cycle: cycle}
		e.cache.put(t, &cacheEntry{Layout: TypeLayout{RawLayout: RawLayout{Align: 1}}, Err: err})
		return TypeLayout{RawLayout: RawLayout{Align: 1}}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	l, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: l, Err: err})
	return l, err
}

// wireLayout is WireLayout inside an ongoing computation.
func (e *Engine) wireLayout(t types.TypeID, state *layoutState) (RawLayout, *LayoutError) {
	if e.Types.IsReference(t) {
		return PointerLayout, nil
	}
	l, err := e.layoutOf(t, state)
	return l.RawLayout, err
}

func (e *Engine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id}
	}

	switch tt.Kind {
	case types.KindBool:
		return scalar(1), nil

	case types.KindInt, types.KindUint, types.KindFloat:
		return scalar(tt.Width.Bytes()), nil

	case types.KindString, types.KindVector, types.KindPointer:
		return TypeLayout{RawLayout: PointerLayout}, nil

	case types.KindArray:
		return e.arrayLayout(id, tt, state)

	case types.KindStruct:
		return e.structLayout(id, state)

	case types.KindUnion:
		return e.unionLayout(id, state)

	case types.KindEnum:
		info, ok := e.Types.EnumInfo(id)
		if !ok || info.Base == types.NoTypeID {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id, Label: e.Types.Label(id)}
		}
		return e.layoutOf(info.Base, state)

	case types.KindInvalid:
	}
	return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id}
}

func scalar(size uint32) TypeLayout {
	return TypeLayout{RawLayout: RawLayout{Size: size, Align: size}}
}

func (e *Engine) arrayLayout(id types.TypeID, tt types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	if e.Types.IsReference(tt.Elem) {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrArrayElementNotRegular, Type: id, Label: e.Types.Label(id)}
	}
	elem, err := e.layoutOf(tt.Elem, state)
	if err != nil {
		return TypeLayout{}, err
	}
	size, convErr := safecast.Conv[uint32](uint64(elem.Size) * uint64(tt.Count))
	if convErr != nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrTooLarge, Type: id, Label: e.Types.Label(id), Err: convErr}
	}
	return TypeLayout{RawLayout: RawLayout{Size: size, Align: elem.Align}}, nil
}

func (e *Engine) structLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, _ := e.Types.StructInfo(id)
	compound := NewCompoundLayout()
	for _, m := range info.Members {
		if m.Type == types.NoTypeID {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id, Label: info.Name, Member: m.Name}
		}
		ml, err := e.wireLayout(m.Type, state)
		if err != nil {
			return TypeLayout{}, err
		}
		if _, addErr := compound.AddMember(m.Name, ml); addErr != nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrDuplicateMember, Type: id, Label: info.Name, Member: m.Name}
		}
	}
	return TypeLayout{RawLayout: compound.Layout(), Members: compound.Members()}, nil
}

func (e *Engine) unionLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, _ := e.Types.UnionInfo(id)
	seen := make(map[string]struct{}, len(info.Members))
	alternatives := make([]RawLayout, 0, len(info.Members))
	for _, m := range info.Members {
		if _, dup := seen[m.Name]; dup {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrDuplicateMember, Type: id, Label: info.Name, Member: m.Name}
		}
		seen[m.Name] = struct{}{}
		if m.Type == types.NoTypeID {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id, Label: info.Name, Member: m.Name}
		}
		ml, err := e.wireLayout(m.Type, state)
		if err != nil {
			return TypeLayout{}, err
		}
		alternatives = append(alternatives, ml)
	}
	payload := Overlay(alternatives...)
	compound := NewCompoundLayout()
	var tag TypeLayout
	if !info.Raw {
		if info.Discriminant == types.NoTypeID {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnresolvedForwardDecl, Type: id, Label: info.Name, Member: UnionTagMember}
		}
		var err *LayoutError
		if tag, err = e.layoutOf(info.Discriminant, state); err != nil {
			return TypeLayout{}, err
		}
		if _, addErr := compound.AddMember(UnionTagMember, tag.RawLayout); addErr != nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrDuplicateMember, Type: id, Label: info.Name, Member: UnionTagMember}
		}
	}
	payloadOffset, addErr := compound.AddMember(UnionPayloadMember, payload)
	if addErr != nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrDuplicateMember, Type: id, Label: info.Name, Member: UnionPayloadMember}
	}
	return TypeLayout{
		RawLayout:     compound.Layout(),
		Members:       compound.Members(),
		Tag:           tag.RawLayout,
		Payload:       payload,
		PayloadOffset: payloadOffset,
	}, nil
}
