package schema

import (
	"testing"

	"wirec/internal/diag"
	"wirec/internal/source"
)

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"i32", "i32"},
		{"vector<ptr<string>>", "vector<ptr<string>>"},
		{"array< u8 ,16 >", "array<u8, 16>"},
		{"Pair<i32, vector<Point>>", "Pair<i32, vector<Point>>"},
	}
	for _, tt := range tests {
		ref, err := ParseTypeRef(tt.in, source.Span{Start: 0, End: uint32(len(tt.in))})
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got := ref.String(); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTypeRefSpans(t *testing.T) {
	text := "array<Point, 4>"
	ref, err := ParseTypeRef(text, source.Span{File: 3, Start: 10, End: 10 + uint32(len(text))})
	if err != nil {
		t.Fatal(err)
	}
	arg := ref.Args[0]
	if arg.Span.File != 3 || arg.Span.Start != 16 || arg.Span.End != 21 {
		t.Fatalf("arg span %+v", arg.Span)
	}
	if !ref.Args[1].IsInt || ref.Args[1].Int != 4 {
		t.Fatalf("int arg %+v", ref.Args[1])
	}
}

func TestParseTypeRefErrors(t *testing.T) {
	for _, in := range []string{"", "vector<", "vector<i32", "a b", "<i32>", "array<i32,>", "vector<i32>>"} {
		if _, err := ParseTypeRef(in, source.Span{}); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}

const sample = `module: telemetry
types:
  Point:
    kind: struct
    members:
      x: f32
      y: f32
  Pair:
    kind: struct
    params: {A: type, N: i32}
    members:
      items: array<A, N>
  Reading:
    kind: union
    members:
      raw: u16
      label: {type: string, nullable: false}
  Color:
    kind: enum
    underlying: u8
    values: [red, green, blue]
  Level:
    kind: enum
    values: {low: 1, high: 0x10}
services:
  Sensors:
    procedures:
      read:
        params: {id: u32}
        returns: [Point, bool]
      ping:
`

func load(t *testing.T, text string) (*File, *diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("sample.yaml", []byte(text))
	bag := diag.NewBag(50)
	return LoadYAML(fs, id, diag.BagReporter{Bag: bag}), bag, fs
}

func TestLoadYAML(t *testing.T) {
	f, bag, fs := load(t, sample)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", bag.FormatShort(fs))
	}
	if f.Module != "telemetry" {
		t.Fatalf("module %q", f.Module)
	}
	if len(f.Decls) != 5 {
		t.Fatalf("expected 5 declarations, got %d", len(f.Decls))
	}

	point := f.Decls[0]
	if point.Kind != DeclStruct || point.Name != "Point" || len(point.Members) != 2 || point.Members[1].Name != "y" {
		t.Fatalf("Point = %+v", point)
	}
	if got := string(fs.Get(f.ID).Content[point.Span.Start:point.Span.End]); got != "Point" {
		t.Fatalf("Point span covers %q", got)
	}

	pair := f.Decls[1]
	if len(pair.Params) != 2 || pair.Params[1].Name != "N" || pair.Params[1].Kind != "i32" {
		t.Fatalf("Pair params %+v", pair.Params)
	}
	if pair.Members[0].Type.String() != "array<A, N>" {
		t.Fatalf("Pair member %s", pair.Members[0].Type)
	}

	level := f.Decls[4]
	if level.Values[1].Value != 16 || !level.Values[1].Explicit {
		t.Fatalf("Level values %+v", level.Values)
	}
	color := f.Decls[3]
	if color.Values[2].Value != 2 || color.Underlying.Name != "u8" {
		t.Fatalf("Color %+v", color)
	}

	if len(f.Services) != 1 || len(f.Services[0].Procedures) != 2 {
		t.Fatalf("services %+v", f.Services)
	}
	read := f.Services[0].Procedures[0]
	if len(read.Params) != 1 || len(read.Returns) != 2 || read.Returns[1].Name != "bool" {
		t.Fatalf("read %+v", read)
	}
}

func TestLoadYAMLReportsProblems(t *testing.T) {
	tests := []struct {
		name string
		text string
		code diag.Code
	}{
		{"unknown kind", "types:\n  A: {kind: table}\n", diag.SchUnknownKind},
		{"missing kind", "types:\n  A: {members: {}}\n", diag.SchMissingField},
		{"duplicate member", "types:\n  A:\n    kind: struct\n    members:\n      x: i8\n      x: i16\n", diag.SchDuplicateKey},
		{"bad type ref", "types:\n  A:\n    kind: struct\n    members:\n      x: vector<i8\n", diag.SchBadTypeRef},
		{"bad enum value", "types:\n  E:\n    kind: enum\n    values: {a: one}\n", diag.SchBadEnumValue},
		{"bad member shape", "types:\n  A:\n    kind: struct\n    members:\n      x: [i8]\n", diag.SchBadMemberShape},
		{"not yaml", "types: [\n", diag.SchSyntax},
		{"struct extends", "types:\n  A: {kind: struct, extends: B, members: {x: i8}}\n", diag.SchSyntax},
		{"unknown attribute", "types:\n  U: {kind: union, attributes: {packed: true}, members: {x: i8}}\n", diag.SchSyntax},
		{"raw not bool", "types:\n  U: {kind: union, attributes: {raw: maybe}, members: {x: i8}}\n", diag.SchSyntax},
		{"enum attributes", "types:\n  E: {kind: enum, attributes: {raw: true}, values: [a]}\n", diag.SchSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag, _ := load(t, tt.text)
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s, got %+v", tt.code.ID(), bag.Items())
			}
		})
	}
}

func TestLoadYAMLNormalizesIdentifiers(t *testing.T) {
	// "é" written as e + combining acute accent
	f, bag, fs := load(t, "types:\n  Cafe\u0301:\n    kind: struct\n    members: {x: i8}\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", bag.FormatShort(fs))
	}
	if f.Decls[0].Name != "Caf\u00e9" {
		t.Fatalf("name not NFC: %q", f.Decls[0].Name)
	}
}

func TestLoadYAMLExtendsAndAttributes(t *testing.T) {
	text := `types:
  Base: {kind: union, members: {a: i8}}
  Derived:
    kind: union
    extends: Base
    attributes: {raw: true}
    members: {b: u16}
services:
  Basic:
    procedures: {ping: }
  Extended:
    extends: Basic
    procedures: {pong: }
`
	f, bag, fs := load(t, text)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics:\n%s", bag.FormatShort(fs))
	}
	if base := f.Decls[0]; base.Extends != nil || base.Raw {
		t.Fatalf("Base = %+v", base)
	}
	derived := f.Decls[1]
	if derived.Extends == nil || derived.Extends.Name != "Base" || !derived.Raw {
		t.Fatalf("Derived = %+v", derived)
	}
	if f.Services[0].Extends != nil {
		t.Fatalf("Basic extends %s", f.Services[0].Extends)
	}
	if ext := f.Services[1]; ext.Extends == nil || ext.Extends.Name != "Basic" || len(ext.Procedures) != 1 {
		t.Fatalf("Extended = %+v", ext)
	}
}
