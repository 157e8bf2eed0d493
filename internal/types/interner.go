package types

import (
	"fmt"

	"fortio.org/safecast"

	"wirec/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Bool   TypeID
	I8     TypeID
	I16    TypeID
	I32    TypeID
	I64    TypeID
	U8     TypeID
	U16    TypeID
	U32    TypeID
	U64    TypeID
	F32    TypeID
	F64    TypeID
	String TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Two requests for vector<i32> therefore yield the same TypeID.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	unions   []UnionInfo
	enums    []EnumInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	// slot 0 of every table is the invalid sentinel
	in.structs = append(in.structs, StructInfo{})
	in.unions = append(in.unions, UnionInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.internRaw(Type{Kind: KindInvalid})

	in.builtins = Builtins{
		Bool:   in.Intern(Type{Kind: KindBool}),
		I8:     in.Intern(MakeInt(Width8)),
		I16:    in.Intern(MakeInt(Width16)),
		I32:    in.Intern(MakeInt(Width32)),
		I64:    in.Intern(MakeInt(Width64)),
		U8:     in.Intern(MakeUint(Width8)),
		U16:    in.Intern(MakeUint(Width16)),
		U32:    in.Intern(MakeUint(Width32)),
		U64:    in.Intern(MakeUint(Width64)),
		F32:    in.Intern(MakeFloat(Width32)),
		F64:    in.Intern(MakeFloat(Width64)),
		String: in.Intern(Type{Kind: KindString}),
	}
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[typeKey(t)]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Len reports the number of interned types including the sentinel.
func (in *Interner) Len() int { return len(in.types) }

type typeKey Type

func nextSlot(n int) uint32 {
	slot, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("nominal table overflow: %w", err))
	}
	return slot
}

// Member is one named slot of a struct or union.
type Member struct {
	Name     string
	Type     TypeID
	Nullable bool
	Span     source.Span
}

func cloneMembers(members []Member) []Member {
	if len(members) == 0 {
		return nil
	}
	out := make([]Member, len(members))
	copy(out, members)
	return out
}
