package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"wirec/internal/diag"
	"wirec/internal/schema"
	"wirec/internal/sema"
	"wirec/internal/source"
	"wirec/internal/types"
)

const testSchema = `module: test
types:
  Reading: {kind: struct, members: {foo: i32, bar: string}}
  Point: {kind: struct, members: {x: f32, y: f32}}
  Color: {kind: enum, underlying: u8, values: [red, green, blue]}
  Level: {kind: enum, underlying: i16, values: {low: -1, high: 300}}
  Shape: {kind: union, members: {radius: f32, label: string, corner: Point}}
  Batch:
    kind: struct
    members:
      names: vector<string>
      samples: vector<i32>
      first: ptr<Point>
      note: {type: string, nullable: true}
      color: Color
      raw: array<u8, 3>
      points: vector<Point>
      flag: bool
  Wide: {kind: struct, members: {a: i64, b: u64, c: i8, d: f64, e: Level}}
  Wrapper: {kind: struct, members: {shape: Shape, tail: u8}}
  Maybe: {kind: union, members: {text: {type: string, nullable: true}, count: u16}}
  Event: {kind: union, members: {start: u8, stop: u16}}
  Extended: {kind: union, extends: Event, members: {note: string}}
  Overlay: {kind: union, attributes: {raw: true}, members: {word: u32, half: u16}}
  Framed: {kind: struct, members: {body: Overlay, seq: u8}}
  Tagged:
    kind: struct
    params: {T: type, N: i32}
    members:
      xs: array<T, N>
      name: string
`

func compile(t *testing.T) *sema.Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.yaml", []byte(testSchema))
	bag := diag.NewBag(50)
	file := schema.LoadYAML(fs, id, diag.BagReporter{Bag: bag})
	m := sema.Check(file, sema.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), bag.FormatShort(fs))
	return m
}

func lookup(t *testing.T, m *sema.Module, expr string) types.TypeID {
	t.Helper()
	id, err := m.LookupType(expr)
	require.NoError(t, err)
	return id
}

func node(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(text), &n))
	return &n
}

func plain(t *testing.T, n *yaml.Node) any {
	t.Helper()
	var v any
	require.NoError(t, n.Decode(&v))
	return v
}

func TestWriter(t *testing.T) {
	w := NewWriter(0)
	w.WriteRaw([]byte{7})
	w.Align(4)
	require.Equal(t, 4, w.Tell())
	w.Align(1)
	w.writeUint(0x0102, 2)
	w.PadTo(8)
	require.Equal(t, []byte{7, 0, 0, 0, 2, 1, 0, 0}, w.Bytes())
}

func TestEncodeExactBytes(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	tests := []struct {
		name   string
		typ    string
		value  string
		prefix []byte
		want   []byte
		pos    int
	}{
		{"i32", "i32", "42", nil, []byte{42, 0, 0, 0}, 0},
		{"i32 aligned", "i32", "42", []byte{0}, []byte{0, 0, 0, 0, 42, 0, 0, 0}, 4},
		{"string", "string", "hello world", nil, []byte{11, 0, 'h', 'e', 'l', 'l', 'o', ' ', 'w', 'o', 'r', 'l', 'd'}, 0},
		{"vector of ints", "vector<i32>", "[1, 2, 3]", nil, []byte{3, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}, 0},
		{
			"vector of strings", "vector<string>", "[hello, world]", nil,
			[]byte{5, 0, 'h', 'e', 'l', 'l', 'o', 0, 5, 0, 'w', 'o', 'r', 'l', 'd', 0, 2, 0, 18, 0, 12, 0},
			16,
		},
		{"negative i16", "i16", "-2", nil, []byte{0xfe, 0xff}, 0},
		{"enum by name", "Color", "blue", nil, []byte{2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(32)
			w.WriteRaw(tt.prefix)
			pos, err := enc.Encode(lookup(t, m, tt.typ), node(t, tt.value), w)
			require.NoError(t, err)
			require.Equal(t, tt.pos, pos)
			require.Equal(t, tt.want, w.Bytes())
		})
	}
}

func TestStructEndToEnd(t *testing.T) {
	m := compile(t)
	reading := lookup(t, m, "Reading")
	data, err := NewEncoder(m.Layouts).Marshal(reading, node(t, "{foo: 42, bar: hi}"))
	require.NoError(t, err)
	require.Equal(t, []byte{2, 0, 'h', 'i', 42, 0, 0, 0, 8, 0, 0, 0}, data)

	back, err := NewDecoder(m.Layouts).Decode(reading, data)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"foo": 42, "bar": "hi"}, plain(t, back))
}

func TestRootReferenceGetsTrailingPointer(t *testing.T) {
	m := compile(t)
	vec := lookup(t, m, "vector<string>")
	data, err := NewEncoder(m.Layouts).Marshal(vec, node(t, "[hello, world]"))
	require.NoError(t, err)
	require.Len(t, data, 24)
	require.Equal(t, []byte{6, 0}, data[22:])
}

func TestRoundTrip(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	dec := NewDecoder(m.Layouts)
	tests := []struct {
		typ   string
		value string
	}{
		{"Point", "{x: 1.5, y: -2.25}"},
		{"Reading", "{foo: -7, bar: ''}"},
		{"Color", "green"},
		{"Shape", "{radius: 0.5}"},
		{"Shape", "{label: circle}"},
		{"Shape", "{corner: {x: 1.0, y: 2.0}}"},
		{"Wrapper", "{shape: {label: inner}, tail: 9}"},
		{"Wide", "{a: -9223372036854775808, b: 18446744073709551615, c: -128, d: 0.1, e: low}"},
		{"string", "just a string"},
		{"vector<string>", "[a, bb, ccc]"},
		{"vector<i32>", "[]"},
		{"vector<vector<u16>>", "[[1], [], [2, 3]]"},
		{"array<i16, 2>", "[-1, 1]"},
		{"ptr<Point>", "{x: 3.0, y: 4.0}"},
		{"Batch", `
names: [alpha, beta]
samples: [1, -2, 3]
first: {x: 0.25, y: 8.0}
note: remember
color: red
raw: [1, 2, 255]
points: [{x: 1.0, y: 1.5}, {x: 2.5, y: 2.0}]
flag: true
`},
		{"Batch", `
names: []
samples: []
first: {x: 0.0, y: 0.0}
color: blue
raw: [0, 0, 0]
points: []
flag: false
`},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ := lookup(t, m, tt.typ)
			in := node(t, tt.value)
			data, err := enc.Marshal(typ, in)
			require.NoError(t, err)
			out, err := dec.Decode(typ, data)
			require.NoError(t, err)
			require.Equal(t, plain(t, in), plain(t, out))
		})
	}
}

func TestUnionActiveMember(t *testing.T) {
	m := compile(t)
	shape := lookup(t, m, "Shape")
	enc := NewEncoder(m.Layouts)
	for _, value := range []string{"{}", "{radius: 1, label: two}", "{radius: null}"} {
		_, err := enc.Marshal(shape, node(t, value))
		require.Error(t, err, value)
		require.True(t, IsCodecError(err, ErrUnionActive), "%s: %v", value, err)
		var ce *Error
		require.ErrorAs(t, err, &ce)
		require.Equal(t, diag.CodUnionActive, ce.Code())
	}
}

func TestUnknownEnumValue(t *testing.T) {
	m := compile(t)
	color := lookup(t, m, "Color")

	_, err := NewEncoder(m.Layouts).Marshal(color, node(t, "purple"))
	require.True(t, IsCodecError(err, ErrUnknownEnum), "%v", err)

	_, err = NewDecoder(m.Layouts).Decode(color, []byte{7})
	require.True(t, IsCodecError(err, ErrUnknownEnum), "%v", err)

	byValue, err := NewEncoder(m.Layouts).Marshal(color, node(t, "1"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, byValue)
}

func TestEncodeValueMismatch(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	tests := []struct {
		typ   string
		value string
		path  string
	}{
		{"Reading", "{foo: 1, bar: x, extra: 2}", "extra"},
		{"Reading", "{foo: 1}", "bar"},
		{"Reading", "{foo: abc, bar: x}", "foo"},
		{"i8", "300", ""},
		{"array<u8, 3>", "[1, 2]", ""},
		{"Batch", "[1]", ""},
		{"vector<string>", "[ok, [nested]]", "[1]"},
	}
	for _, tt := range tests {
		_, err := enc.Marshal(lookup(t, m, tt.typ), node(t, tt.value))
		var ce *Error
		require.ErrorAs(t, err, &ce, "%s %s", tt.typ, tt.value)
		require.Equal(t, ErrValueMismatch, ce.Kind, ce.Error())
		require.Equal(t, tt.path, ce.Path)
	}
}

func TestDecodeOutOfBounds(t *testing.T) {
	m := compile(t)
	dec := NewDecoder(m.Layouts)
	reading := lookup(t, m, "Reading")

	_, err := dec.Decode(reading, []byte{1, 2, 3})
	require.True(t, IsCodecError(err, ErrOutOfBounds), "%v", err)

	// bar points 9 bytes back from offset 8 of a 12 byte buffer
	_, err = dec.Decode(reading, []byte{2, 0, 'h', 'i', 42, 0, 0, 0, 9, 0, 0, 0})
	require.True(t, IsCodecError(err, ErrOutOfBounds), "%v", err)

	// string length runs into the struct
	_, err = dec.Decode(reading, []byte{9, 0, 'h', 'i', 42, 0, 0, 0, 8, 0, 0, 0})
	require.True(t, IsCodecError(err, ErrOutOfBounds), "%v", err)

	_, err = dec.Decode(lookup(t, m, "string"), []byte{1})
	require.True(t, IsCodecError(err, ErrOutOfBounds), "%v", err)
}

func TestDecodeNullNonNullable(t *testing.T) {
	m := compile(t)
	reading := lookup(t, m, "Reading")
	_, err := NewDecoder(m.Layouts).Decode(reading, []byte{42, 0, 0, 0, 0, 0, 0, 0})
	require.True(t, IsCodecError(err, ErrValueMismatch), "%v", err)
}

func TestEncodeRequiresReferencePass(t *testing.T) {
	m := sema.NewModule(sema.Options{})
	vec := m.Types.Intern(types.MakeVector(m.Types.Builtins().I32))
	_, err := NewEncoder(m.Layouts).Marshal(vec, node(t, "[1]"))
	require.Error(t, err)
}

func TestTemplateResolvedAfterCheck(t *testing.T) {
	m := compile(t)
	sym, ok := m.Table.LookupString(m.Scope, "Tagged")
	require.True(t, ok)
	u8, ok := m.Table.LookupString(m.Builtin, "u8")
	require.True(t, ok)
	tagged, err := m.Resolve(sema.Name{Base: sym, Args: []sema.GenericArg{
		{Name: &sema.Name{Base: u8}},
		{Int: 2, IsInt: true},
	}})
	require.NoError(t, err)
	require.Equal(t, "ptr<string>", m.Types.Label(m.Types.Members(tagged)[1].Type))

	in := node(t, "{xs: [1, 2], name: qqqqq}")
	data, err := NewEncoder(m.Layouts).Marshal(tagged, in)
	require.NoError(t, err)
	// string at 0, struct at 8 with name pointing 10 bytes back
	require.Equal(t, []byte{5, 0, 'q', 'q', 'q', 'q', 'q', 0, 1, 2, 10, 0}, data)

	out, err := NewDecoder(m.Layouts).Decode(tagged, data)
	require.NoError(t, err)
	require.Equal(t, plain(t, in), plain(t, out))
}

func TestCheckOffsetPanics(t *testing.T) {
	m := compile(t)
	reading := lookup(t, m, "Reading")
	enc := NewEncoder(m.Layouts)

	defer func() {
		r := recover()
		ie, ok := r.(*InvariantError)
		require.True(t, ok, "recovered %v", r)
		require.Equal(t, "bar", ie.Member)
		require.Equal(t, 4, ie.Want)
		require.Equal(t, 6, ie.Got)
		require.Contains(t, ie.Error(), "Reading.bar expected at offset 4, writer is at 6")
	}()
	enc.checkOffset(reading, "bar", 4, 6)
}

func TestEncodeOverrunPanics(t *testing.T) {
	m := sema.NewModule(sema.Options{})
	b := m.Types.Builtins()
	raw := m.Types.RegisterStruct("Raw", source.Span{})
	m.Types.SetStructMembers(raw, []types.Member{
		{Name: "xs", Type: m.Types.Intern(types.MakeArray(b.U8, 2))},
		{Name: "name", Type: b.String},
	})
	// unlock layouts without rewriting name into a pointer
	m.Layouts.ReferencePassDone()
	l, err := m.Layouts.LayoutOf(raw)
	require.NoError(t, err)
	require.Equal(t, uint32(4), l.Size)
	require.Equal(t, uint32(2), l.Align)

	defer func() {
		r := recover()
		ie, ok := r.(*InvariantError)
		require.True(t, ok, "recovered %v", r)
		require.Equal(t, 4, ie.Want)
		require.Equal(t, 9, ie.Got)
		require.Contains(t, ie.Error(), "Raw is 4 bytes, writer wrote 9")
	}()
	_, _ = NewEncoder(m.Layouts).Marshal(raw, node(t, "{xs: [1, 2], name: qqqqq}"))
	t.Fatal("overrun was not detected")
}

func TestExplicitNull(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	dec := NewDecoder(m.Layouts)

	tests := []struct {
		typ   string
		value string
		kind  ErrorKind
		msg   string
	}{
		{"Shape", "{label: null}", ErrUnionActive, "member label is null"},
		{"Shape", "{radius: ~, label: x}", ErrUnionActive, "member radius is null"},
		{"Reading", "{foo: 1, bar: null}", ErrValueMismatch, "member is null"},
		{"Reading", "{foo: null, bar: x}", ErrValueMismatch, "member is null"},
	}
	for _, tt := range tests {
		_, err := enc.Marshal(lookup(t, m, tt.typ), node(t, tt.value))
		var ce *Error
		require.ErrorAs(t, err, &ce, tt.value)
		require.Equal(t, tt.kind, ce.Kind, ce.Error())
		require.Contains(t, ce.Msg, tt.msg)
	}

	// a nullable member may be selected with a null value
	maybe := lookup(t, m, "Maybe")
	data, err := enc.Marshal(maybe, node(t, "{text: null}"))
	require.NoError(t, err)
	out, err := dec.Decode(maybe, data)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"text": nil}, plain(t, out))

	_, err = enc.Marshal(maybe, node(t, "{}"))
	require.True(t, IsCodecError(err, ErrUnionActive), "%v", err)

	batch := lookup(t, m, "Batch")
	_, err = enc.Marshal(batch, node(t, "{names: [], samples: [], first: {x: 0.0, y: 0.0}, note: null, color: red, raw: [0, 0, 0], points: [], flag: true}"))
	require.NoError(t, err)
}

func TestNonFiniteFloats(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	dec := NewDecoder(m.Layouts)
	tests := []struct {
		typ  string
		in   string
		want string
	}{
		{"f64", ".inf", ".inf"},
		{"f64", "-.Inf", "-.inf"},
		{"f64", "+.INF", ".inf"},
		{"f64", ".nan", ".nan"},
		{"f32", ".NaN", ".nan"},
		{"f32", "-.inf", "-.inf"},
		{"f32", "1.5", "1.5"},
	}
	for _, tt := range tests {
		typ := lookup(t, m, tt.typ)
		data, err := enc.Marshal(typ, node(t, tt.in))
		require.NoError(t, err, tt.in)
		out, err := dec.Decode(typ, data)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, out.Value, tt.in)

		again, err := enc.Marshal(typ, out)
		require.NoError(t, err, tt.in)
		require.Equal(t, data, again, tt.in)
	}
}

func TestExtendedUnionKeepsBaseTags(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	dec := NewDecoder(m.Layouts)
	event := lookup(t, m, "Event")
	extended := lookup(t, m, "Extended")

	base, err := enc.Marshal(event, node(t, "{stop: 7}"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 7, 0}, base)
	derived, err := enc.Marshal(extended, node(t, "{stop: 7}"))
	require.NoError(t, err)
	require.Equal(t, base, derived)

	// a base message reads back as the derived union
	out, err := dec.Decode(extended, base)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"stop": 7}, plain(t, out))

	data, err := enc.Marshal(extended, node(t, "{note: hi}"))
	require.NoError(t, err)
	require.Equal(t, []byte{2, 0, 'h', 'i', 2, 0, 6, 0}, data)
	out, err = dec.Decode(extended, data)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"note": "hi"}, plain(t, out))
}

func TestRawUnion(t *testing.T) {
	m := compile(t)
	enc := NewEncoder(m.Layouts)
	dec := NewDecoder(m.Layouts)
	overlay := lookup(t, m, "Overlay")

	data, err := enc.Marshal(overlay, node(t, "{half: 0x0102}"))
	require.NoError(t, err)
	require.Equal(t, []byte{2, 1, 0, 0}, data)

	out, err := dec.Decode(overlay, data)
	require.NoError(t, err)
	require.Nil(t, plain(t, out))

	_, err = enc.Marshal(overlay, node(t, "{half: 1, word: 2}"))
	require.True(t, IsCodecError(err, ErrUnionActive), "%v", err)

	framed := lookup(t, m, "Framed")
	data, err = enc.Marshal(framed, node(t, "{body: {word: 5}, seq: 9}"))
	require.NoError(t, err)
	require.Equal(t, []byte{5, 0, 0, 0, 9, 0, 0, 0}, data)
	out, err = dec.Decode(framed, data)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"seq": 9}, plain(t, out))
}
