package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the closed set of wire type kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindVector
	KindPointer
	KindStruct
	KindUnion
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats in bits.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Bytes returns ceil(width/8).
func (w Width) Bytes() uint32 {
	return (uint32(w) + 7) / 8
}

// Type is a compact descriptor for any supported type. Structural kinds
// (array, vector, pointer) are identified by their fields; nominal kinds
// (struct, union, enum) carry a Payload slot into the matching info table.
type Type struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32 // for arrays
	Width   Width  // for numeric primitives
	Payload uint32 // for nominal types
}

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakeArray describes a fixed-length inline array.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeVector describes a variable-length sequence stored out of line.
func MakeVector(elem TypeID) Type {
	return Type{Kind: KindVector, Elem: elem}
}

// MakePointer describes a 16-bit backward pointer to elem.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// IsIntegral reports whether the descriptor is a signed or unsigned integer.
func (t Type) IsIntegral() bool {
	return t.Kind == KindInt || t.Kind == KindUint
}

// IsNominal reports whether the descriptor is a declared struct, union or enum.
func (t Type) IsNominal() bool {
	return t.Kind == KindStruct || t.Kind == KindUnion || t.Kind == KindEnum
}
