package types

import (
	"testing"

	"wirec/internal/source"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Bool == NoTypeID || b.String == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	i32, _ := in.Lookup(b.I32)
	if i32.Kind != KindInt || i32.Width != Width32 {
		t.Fatalf("unexpected i32 descriptor %+v", i32)
	}
	if in.Intern(MakeUint(Width8)) != b.U8 {
		t.Fatal("u8 must be deduplicated against the builtin")
	}
}

func TestStructuralIdentity(t *testing.T) {
	in := NewInterner()
	i32 := in.Builtins().I32
	if in.Intern(MakeVector(i32)) != in.Intern(MakeVector(i32)) {
		t.Fatal("vector<i32> must be interned once")
	}
	if in.Intern(MakeArray(i32, 4)) == in.Intern(MakeArray(i32, 5)) {
		t.Fatal("array length is part of identity")
	}
	if in.Intern(MakePointer(i32)) == in.Intern(MakeVector(i32)) {
		t.Fatal("kind is part of identity")
	}
}

func TestNominalTypesAreDistinct(t *testing.T) {
	in := NewInterner()
	a := in.RegisterStruct("A", source.Span{})
	b := in.RegisterStruct("A", source.Span{})
	if a == b {
		t.Fatal("two registrations must yield distinct nominal types")
	}
}

func TestIsReference(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	plain := in.RegisterStruct("Plain", source.Span{})
	in.SetStructMembers(plain, []Member{{Name: "x", Type: b.I32}, {Name: "y", Type: in.Intern(MakeArray(b.U8, 3))}})

	withString := in.RegisterStruct("Named", source.Span{})
	in.SetStructMembers(withString, []Member{{Name: "id", Type: b.U16}, {Name: "name", Type: b.String}})

	outer := in.RegisterUnion("Outer", source.Span{})
	in.SetUnionMembers(outer, []Member{{Name: "a", Type: plain}, {Name: "b", Type: withString}})

	self := in.RegisterStruct("Self", source.Span{})
	in.SetStructMembers(self, []Member{{Name: "me", Type: self}})

	tests := []struct {
		name string
		id   TypeID
		want bool
	}{
		{"bool", b.Bool, false},
		{"f64", b.F64, false},
		{"string", b.String, true},
		{"vector", in.Intern(MakeVector(b.I32)), true},
		{"pointer", in.Intern(MakePointer(b.I32)), true},
		{"array", in.Intern(MakeArray(b.I32, 2)), false},
		{"plain struct", plain, false},
		{"struct with string", withString, true},
		{"union with reference member", outer, true},
		{"by-value cycle", self, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := in.IsReference(tt.id); got != tt.want {
				t.Fatalf("IsReference(%s) = %v, want %v", in.Label(tt.id), got, tt.want)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	vec := in.Intern(MakeVector(in.Intern(MakePointer(b.String))))
	if got := in.Label(vec); got != "vector<ptr<string>>" {
		t.Fatalf("Label = %q", got)
	}
	if got := in.Label(in.Intern(MakeArray(b.I16, 4))); got != "array<i16, 4>" {
		t.Fatalf("Label = %q", got)
	}
}

func TestEnumLookup(t *testing.T) {
	in := NewInterner()
	e := in.RegisterEnum("Color", source.Span{}, in.Builtins().U8)
	in.SetEnumMembers(e, []EnumMember{{Name: "red", Value: 0}, {Name: "blue", Value: 7}})
	info, ok := in.EnumInfo(e)
	if !ok {
		t.Fatal("enum info missing")
	}
	if m, ok := info.ByValue(7); !ok || m.Name != "blue" {
		t.Fatalf("ByValue(7) = %+v, %v", m, ok)
	}
	if _, ok := info.ByValue(3); ok {
		t.Fatal("ByValue(3) must fail")
	}
	if m, ok := info.ByName("red"); !ok || m.Value != 0 {
		t.Fatalf("ByName(red) = %+v, %v", m, ok)
	}
}
