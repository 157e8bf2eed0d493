package layout

import (
	"errors"
	"testing"

	"wirec/internal/source"
	"wirec/internal/types"
)

func TestNewRawLayoutRoundsUp(t *testing.T) {
	for align := uint32(1); align <= 16; align++ {
		for size := uint32(0); size <= 40; size++ {
			l := NewRawLayout(size, align)
			if l.Size%align != 0 {
				t.Fatalf("NewRawLayout(%d,%d) = %v: size not a multiple of align", size, align, l)
			}
			if l.Size < size || l.Size-size >= align {
				t.Fatalf("NewRawLayout(%d,%d) = %v: not the next multiple", size, align, l)
			}
			if l.Padding != l.Size-size {
				t.Fatalf("NewRawLayout(%d,%d) = %v: padding mismatch", size, align, l)
			}
		}
	}
	if got := NewRawLayout(3, 0); got.Align != 1 || got.Size != 3 {
		t.Fatalf("zero alignment: %v", got)
	}
}

func TestCompoundLayoutOffsets(t *testing.T) {
	tests := []struct {
		name    string
		members []RawLayout
		offsets []uint32
		total   RawLayout
	}{
		{"bytes", []RawLayout{{Size: 1, Align: 1}, {Size: 1, Align: 1}}, []uint32{0, 1}, RawLayout{Size: 2, Align: 1}},
		{"word then byte", []RawLayout{{Size: 4, Align: 4}, {Size: 1, Align: 1}}, []uint32{0, 4}, RawLayout{Size: 8, Align: 4}},
		{"byte then word", []RawLayout{{Size: 1, Align: 1}, {Size: 4, Align: 4}}, []uint32{0, 4}, RawLayout{Size: 8, Align: 4}},
		{"odd then wide", []RawLayout{{Size: 9, Align: 1}, {Size: 8, Align: 8}}, []uint32{0, 16}, RawLayout{Size: 24, Align: 8}},
		{"repad", []RawLayout{{Size: 12, Align: 4}, {Size: 2, Align: 2}, {Size: 2, Align: 2}}, []uint32{0, 12, 14}, RawLayout{Size: 16, Align: 4}},
	}
	names := []string{"a", "b", "c"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompoundLayout()
			for i, m := range tt.members {
				off, err := c.AddMember(names[i], m)
				if err != nil {
					t.Fatalf("AddMember: %v", err)
				}
				if off != tt.offsets[i] {
					t.Fatalf("member %d: offset %d, want %d", i, off, tt.offsets[i])
				}
			}
			got := c.Layout()
			if got.Size != tt.total.Size || got.Align != tt.total.Align {
				t.Fatalf("total %v, want %v", got, tt.total)
			}
			for i, name := range names[:len(tt.members)] {
				if off, _ := c.Offset(name); off != tt.offsets[i] {
					t.Fatalf("offset of %s moved to %d", name, off)
				}
			}
		})
	}
}

func TestCompoundLayoutEmptyAndDuplicate(t *testing.T) {
	c := NewCompoundLayout()
	if l := c.Layout(); l.Size != 0 || l.Align != 1 {
		t.Fatalf("empty compound = %v", l)
	}
	if _, err := c.AddMember("x", RawLayout{Size: 4, Align: 4}); err != nil {
		t.Fatal(err)
	}
	_, err := c.AddMember("x", RawLayout{Size: 1, Align: 1})
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrDuplicateMember {
		t.Fatalf("expected duplicate member error, got %v", err)
	}
	if l := c.Layout(); l.Size != 4 {
		t.Fatalf("failed AddMember changed the layout: %v", l)
	}
}

func TestOverlay(t *testing.T) {
	got := Overlay(RawLayout{Size: 3, Align: 1}, RawLayout{Size: 2, Align: 2})
	if got.Size != 4 || got.Align != 2 || got.Padding != 1 {
		t.Fatalf("Overlay = %v", got)
	}
}

type fixture struct {
	in *types.Interner
	b  types.Builtins
}

func newFixture() fixture {
	in := types.NewInterner()
	return fixture{in: in, b: in.Builtins()}
}

func (f fixture) ptr(t types.TypeID) types.TypeID {
	return f.in.Intern(types.MakePointer(t))
}

func (f fixture) strct(name string, members ...types.Member) types.TypeID {
	id := f.in.RegisterStruct(name, source.Span{})
	f.in.SetStructMembers(id, members)
	return id
}

func (f fixture) union(name string, members ...types.Member) types.TypeID {
	id := f.in.RegisterUnion(name, source.Span{})
	f.in.SetUnionMembers(id, members)
	tag := f.in.RegisterEnum(name+"_alternatives", source.Span{}, f.b.U8)
	enumMembers := make([]types.EnumMember, len(members))
	for i, m := range members {
		enumMembers[i] = types.EnumMember{Name: m.Name, Value: int64(i)}
	}
	f.in.SetEnumMembers(tag, enumMembers)
	f.in.SetUnionDiscriminant(id, tag)
	return id
}

func TestEngineRefusesBeforeReferencePass(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	_, err := e.LayoutOf(f.b.I32)
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrReferencePassPending {
		t.Fatalf("expected pending error, got %v", err)
	}
	e.ReferencePassDone()
	if _, err := e.LayoutOf(f.b.I32); err != nil {
		t.Fatalf("after pass: %v", err)
	}
}

func TestEngineScalarsAndReferences(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	tests := []struct {
		name string
		id   types.TypeID
		want RawLayout
	}{
		{"bool", f.b.Bool, RawLayout{Size: 1, Align: 1}},
		{"i8", f.b.I8, RawLayout{Size: 1, Align: 1}},
		{"u16", f.b.U16, RawLayout{Size: 2, Align: 2}},
		{"i64", f.b.I64, RawLayout{Size: 8, Align: 8}},
		{"f32", f.b.F32, RawLayout{Size: 4, Align: 4}},
		{"f64", f.b.F64, RawLayout{Size: 8, Align: 8}},
		{"string", f.b.String, PointerLayout},
		{"vector", f.in.Intern(types.MakeVector(f.b.F64)), PointerLayout},
		{"pointer", f.ptr(f.b.I64), PointerLayout},
		{"array", f.in.Intern(types.MakeArray(f.b.U32, 3)), RawLayout{Size: 12, Align: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.WireLayout(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("WireLayout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineStructWithString(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	s := f.strct("S",
		types.Member{Name: "foo", Type: f.b.I32},
		types.Member{Name: "bar", Type: f.ptr(f.b.String)},
	)
	l, err := e.LayoutOf(s)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 8 || l.Align != 4 {
		t.Fatalf("layout %v, want {8,4}", l.RawLayout)
	}
	if l.Members[0].Offset != 0 || l.Members[1].Offset != 4 {
		t.Fatalf("offsets %+v", l.Members)
	}
	wire, err := e.WireLayout(s)
	if err != nil {
		t.Fatal(err)
	}
	if wire != PointerLayout {
		t.Fatalf("struct holding a string must be referenced through a pointer, got %v", wire)
	}
}

func TestEngineUnion(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	u := f.union("U",
		types.Member{Name: "small", Type: f.b.U8},
		types.Member{Name: "wide", Type: f.b.U64},
		types.Member{Name: "text", Type: f.ptr(f.b.String)},
	)
	l, err := e.LayoutOf(u)
	if err != nil {
		t.Fatal(err)
	}
	if l.Tag.Size != 1 || l.Payload.Size != 8 || l.Payload.Align != 8 {
		t.Fatalf("tag %v payload %v", l.Tag, l.Payload)
	}
	if l.PayloadOffset != 8 || l.Size != 16 || l.Align != 8 {
		t.Fatalf("union layout %v payload at %d", l.RawLayout, l.PayloadOffset)
	}
}

func TestEngineRawUnion(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	u := f.union("R",
		types.Member{Name: "small", Type: f.b.U8},
		types.Member{Name: "wide", Type: f.b.U64},
	)
	f.in.SetUnionRaw(u, true)
	l, err := e.LayoutOf(u)
	if err != nil {
		t.Fatal(err)
	}
	if l.Tag.Size != 0 || l.PayloadOffset != 0 || l.Size != 8 || l.Align != 8 {
		t.Fatalf("raw union layout %v tag %v payload at %d", l.RawLayout, l.Tag, l.PayloadOffset)
	}
	if len(l.Members) != 1 || l.Members[0].Name != UnionPayloadMember {
		t.Fatalf("raw union slots %+v", l.Members)
	}
}

func TestEngineEnumUsesBase(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()
	en := f.in.RegisterEnum("E", source.Span{}, f.b.U16)
	got, err := e.WireLayout(en)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size != 2 || got.Align != 2 {
		t.Fatalf("enum layout %v", got)
	}
}

func TestEngineErrors(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	self := f.strct("Loop")
	f.in.SetStructMembers(self, []types.Member{{Name: "x", Type: f.b.I8}, {Name: "again", Type: self}})

	dup := f.strct("Dup", types.Member{Name: "a", Type: f.b.I8}, types.Member{Name: "a", Type: f.b.I8})
	fwd := f.strct("Fwd", types.Member{Name: "later", Type: types.NoTypeID})

	tests := []struct {
		name string
		id   types.TypeID
		kind LayoutErrorKind
	}{
		{"array of strings", f.in.Intern(types.MakeArray(f.b.String, 2)), LayoutErrArrayElementNotRegular},
		{"array of pointers", f.in.Intern(types.MakeArray(f.ptr(f.b.I8), 2)), LayoutErrArrayElementNotRegular},
		{"by-value recursion", self, LayoutErrRecursiveUnsized},
		{"duplicate member", dup, LayoutErrDuplicateMember},
		{"forward declaration", fwd, LayoutErrUnresolvedForwardDecl},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.LayoutOf(tt.id)
			var le *LayoutError
			if !errors.As(err, &le) {
				t.Fatalf("expected LayoutError, got %v", err)
			}
			if le.Kind != tt.kind {
				t.Fatalf("kind %d, want %d (%v)", le.Kind, tt.kind, le)
			}
		})
	}
}

func TestEnginePointerBreaksRecursion(t *testing.T) {
	f := newFixture()
	e := New(f.in)
	e.ReferencePassDone()

	node := f.in.RegisterStruct("Node", source.Span{})
	f.in.SetStructMembers(node, []types.Member{
		{Name: "value", Type: f.b.I32},
		{Name: "next", Type: f.ptr(node), Nullable: true},
	})
	l, err := e.LayoutOf(node)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 8 || l.Members[1].Offset != 4 {
		t.Fatalf("layout %v members %+v", l.RawLayout, l.Members)
	}
}
