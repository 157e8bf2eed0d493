package types

import (
	"wirec/internal/source"
)

// StructInfo stores metadata for a struct type.
type StructInfo struct {
	Name    string
	Decl    source.Span
	Members []Member
}

// RegisterStruct allocates a nominal struct type slot and returns its TypeID.
// Members are attached later so that mutually recursive declarations can
// refer to each other's TypeID.
func (in *Interner) RegisterStruct(name string, decl source.Span) TypeID {
	slot := nextSlot(len(in.structs))
	in.structs = append(in.structs, StructInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// SetStructMembers stores the resolved members for the struct type.
func (in *Interner) SetStructMembers(typeID TypeID, members []Member) {
	if info := in.structInfo(typeID); info != nil {
		info.Members = cloneMembers(members)
	}
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(typeID TypeID) (*StructInfo, bool) {
	info := in.structInfo(typeID)
	return info, info != nil
}

func (in *Interner) structInfo(typeID TypeID) *StructInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindStruct || tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

// UnionInfo stores metadata for a union type. Discriminant is the generated
// enum whose value i selects Members[i]. A raw union has no discriminant and
// stores the payload alone. Base is the union it extends; its members come
// first in Members.
type UnionInfo struct {
	Name         string
	Decl         source.Span
	Members      []Member
	Discriminant TypeID
	Raw          bool
	Base         TypeID
}

// RegisterUnion allocates a nominal union type slot and returns its TypeID.
func (in *Interner) RegisterUnion(name string, decl source.Span) TypeID {
	slot := nextSlot(len(in.unions))
	in.unions = append(in.unions, UnionInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindUnion, Payload: slot})
}

// SetUnionMembers stores the resolved members for the union type.
func (in *Interner) SetUnionMembers(typeID TypeID, members []Member) {
	if info := in.unionInfo(typeID); info != nil {
		info.Members = cloneMembers(members)
	}
}

// SetUnionDiscriminant links the generated tag enum.
func (in *Interner) SetUnionDiscriminant(typeID, enum TypeID) {
	if info := in.unionInfo(typeID); info != nil {
		info.Discriminant = enum
	}
}

// SetUnionRaw marks a union as raw.
func (in *Interner) SetUnionRaw(typeID TypeID, raw bool) {
	if info := in.unionInfo(typeID); info != nil {
		info.Raw = raw
	}
}

// SetUnionBase records the union that typeID extends.
func (in *Interner) SetUnionBase(typeID, base TypeID) {
	if info := in.unionInfo(typeID); info != nil {
		info.Base = base
	}
}

// UnionInfo returns metadata for the provided union TypeID.
func (in *Interner) UnionInfo(typeID TypeID) (*UnionInfo, bool) {
	info := in.unionInfo(typeID)
	return info, info != nil
}

func (in *Interner) unionInfo(typeID TypeID) *UnionInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindUnion || tt.Payload == 0 || int(tt.Payload) >= len(in.unions) {
		return nil
	}
	return &in.unions[tt.Payload]
}

// Members returns the member list of a struct or union, or nil.
func (in *Interner) Members(typeID TypeID) []Member {
	if info := in.structInfo(typeID); info != nil {
		return info.Members
	}
	if info := in.unionInfo(typeID); info != nil {
		return info.Members
	}
	return nil
}

// SetMemberType rewrites the type of the i-th member of a struct or union.
func (in *Interner) SetMemberType(typeID TypeID, i int, member TypeID) bool {
	members := in.Members(typeID)
	if i < 0 || i >= len(members) {
		return false
	}
	members[i].Type = member
	return true
}
