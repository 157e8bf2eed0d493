package types

import (
	"wirec/internal/source"
)

// EnumMember binds a name to an integral value.
type EnumMember struct {
	Name  string
	Value int64
	Span  source.Span
}

// EnumInfo stores metadata for an enum type. Extends is set on the tag
// enum of a derived union and names the tag enum of its base; the base
// enumerators keep their values.
type EnumInfo struct {
	Name    string
	Decl    source.Span
	Base    TypeID
	Extends TypeID
	Members []EnumMember
}

// RegisterEnum allocates a nominal enum type slot and returns its TypeID.
func (in *Interner) RegisterEnum(name string, decl source.Span, base TypeID) TypeID {
	slot := nextSlot(len(in.enums))
	in.enums = append(in.enums, EnumInfo{Name: name, Decl: decl, Base: base})
	return in.internRaw(Type{Kind: KindEnum, Payload: slot})
}

// SetEnumMembers stores the members for the enum type.
func (in *Interner) SetEnumMembers(typeID TypeID, members []EnumMember) {
	info := in.enumInfo(typeID)
	if info == nil {
		return
	}
	info.Members = append([]EnumMember(nil), members...)
}

// SetEnumExtends links an enum to the enum it extends.
func (in *Interner) SetEnumExtends(typeID, base TypeID) {
	if info := in.enumInfo(typeID); info != nil {
		info.Extends = base
	}
}

// EnumInfo returns metadata for the provided enum TypeID.
func (in *Interner) EnumInfo(typeID TypeID) (*EnumInfo, bool) {
	info := in.enumInfo(typeID)
	return info, info != nil
}

// ByValue returns the member with exactly this value.
func (e *EnumInfo) ByValue(v int64) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Value == v {
			return m, true
		}
	}
	return EnumMember{}, false
}

// ByName returns the member with this name.
func (e *EnumInfo) ByName(name string) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

func (in *Interner) enumInfo(typeID TypeID) *EnumInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindEnum || tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return nil
	}
	return &in.enums[tt.Payload]
}
