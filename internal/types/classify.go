package types

import (
	"fmt"
)

// IsReference reports whether values of id are stored out of line behind a
// 16-bit pointer. Strings, vectors and pointers always are; a struct or union
// is one iff any member is. Arrays, enums and scalars are value types.
func (in *Interner) IsReference(id TypeID) bool {
	return in.isReference(id, make(map[TypeID]bool))
}

func (in *Interner) isReference(id TypeID, visiting map[TypeID]bool) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindString, KindVector, KindPointer:
		return true
	case KindStruct, KindUnion:
		if visiting[id] {
			// a by-value cycle has no finite layout; layout reports it
			return false
		}
		visiting[id] = true
		defer delete(visiting, id)
		for _, m := range in.Members(id) {
			if in.isReference(m.Type, visiting) {
				return true
			}
		}
		return false
	case KindInvalid, KindBool, KindInt, KindUint, KindFloat, KindArray, KindEnum:
		return false
	default:
		return false
	}
}

// IsPointer reports whether id is a pointer<T> instantiation.
func (in *Interner) IsPointer(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindPointer
}

// Label renders a human readable name for diagnostics.
func (in *Interner) Label(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return fmt.Sprintf("i%d", tt.Width)
	case KindUint:
		return fmt.Sprintf("u%d", tt.Width)
	case KindFloat:
		return fmt.Sprintf("f%d", tt.Width)
	case KindString:
		return "string"
	case KindArray:
		return fmt.Sprintf("array<%s, %d>", in.Label(tt.Elem), tt.Count)
	case KindVector:
		return "vector<" + in.Label(tt.Elem) + ">"
	case KindPointer:
		return "ptr<" + in.Label(tt.Elem) + ">"
	case KindStruct:
		if info, ok := in.StructInfo(id); ok {
			return info.Name
		}
	case KindUnion:
		if info, ok := in.UnionInfo(id); ok {
			return info.Name
		}
	case KindEnum:
		if info, ok := in.EnumInfo(id); ok {
			return info.Name
		}
	case KindInvalid:
	}
	return tt.Kind.String()
}
