package manifest

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"wirec/internal/diag"
	"wirec/internal/project"
	"wirec/internal/schema"
	"wirec/internal/sema"
	"wirec/internal/source"
)

const telemetry = `module: telemetry
types:
  Reading:
    kind: struct
    members:
      foo: i32
      bar: string
  Color:
    kind: enum
    underlying: u8
    values: [red, green, blue]
  Shape:
    kind: union
    members:
      radius: f32
      label: string
  Pair:
    kind: struct
    params: {A: type, N: i32}
    members:
      items: array<A, N>
  Holder:
    kind: struct
    members:
      pair: Pair<u8, 3>
services:
  Sensors:
    procedures:
      read:
        params: {id: u32}
        returns: [Reading]
`

func check(t *testing.T, text string) *sema.Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("telemetry.yaml", []byte(text))
	bag := diag.NewBag(100)
	file := schema.LoadYAML(fs, id, diag.BagReporter{Bag: bag})
	require.NotNil(t, file)
	m := sema.Check(file, sema.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), bag.FormatShort(fs))
	return m
}

func typeByName(t *testing.T, man *Manifest, name string) Type {
	t.Helper()
	for _, ty := range man.Types {
		if ty.Name == name {
			return ty
		}
	}
	t.Fatalf("manifest has no type %s", name)
	return Type{}
}

func TestBuild(t *testing.T) {
	man, err := Build(check(t, telemetry), "telemetry.yaml")
	require.NoError(t, err)
	require.Equal(t, Version, man.Version)
	require.Equal(t, "telemetry", man.Module)

	reading := typeByName(t, man, "telemetry::Reading")
	require.Equal(t, "struct", reading.Kind)
	require.Equal(t, Layout{Size: 8, Align: 4, Padding: 2}, reading.Layout)
	require.Equal(t, Layout{Size: 2, Align: 2}, reading.Wire)
	require.True(t, reading.IsReference)
	require.Equal(t, []Member{
		{Name: "foo", Type: "i32", Offset: 0, Wire: Layout{Size: 4, Align: 4}},
		{Name: "bar", Type: "ptr<string>", Offset: 4, Wire: Layout{Size: 2, Align: 2}, IsReference: true},
	}, reading.Members)

	color := typeByName(t, man, "telemetry::Color")
	require.Equal(t, "u8", color.Underlying)
	require.Equal(t, []EnumValue{{"red", 0}, {"green", 1}, {"blue", 2}}, color.Values)
	require.False(t, color.IsReference)

	shape := typeByName(t, man, "telemetry::Shape")
	require.Equal(t, "telemetry::Shape::alternatives", shape.Discriminant)
	require.Equal(t, uint32(4), shape.PayloadOffset)
	require.Len(t, shape.Members, 2)
	require.Equal(t, "ptr<string>", shape.Members[1].Type)

	pair := typeByName(t, man, "telemetry::Pair")
	require.True(t, pair.Generic)
	require.Equal(t, []Param{{"A", "type"}, {"N", "i32"}}, pair.Params)

	inst := typeByName(t, man, "telemetry::Pair<u8, 3>")
	require.True(t, inst.Instance)
	require.Equal(t, Layout{Size: 3, Align: 1}, inst.Layout)

	params := typeByName(t, man, "telemetry::Sensors::read_params")
	require.True(t, params.Generated)

	require.Len(t, man.Services, 1)
	svc := man.Services[0]
	require.Equal(t, "telemetry::Sensors::Sensors_call", svc.Call)
	require.Equal(t, []Procedure{{
		Name:    "read",
		Params:  "telemetry::Sensors::read_params",
		Results: "telemetry::Sensors::read_results",
	}}, svc.Procedures)
}

func TestBuildExtendsAndRaw(t *testing.T) {
	m := check(t, `module: telemetry
types:
  Event: {kind: union, members: {start: u8, stop: u8}}
  Extended: {kind: union, extends: Event, members: {pause: u16}}
  Overlay: {kind: union, attributes: {raw: true}, members: {word: u32, half: u16}}
services:
  Basic:
    procedures: {ping: }
  Admin:
    extends: Basic
    procedures: {reset: }
`)
	man, err := Build(m, "telemetry.yaml")
	require.NoError(t, err)

	ext := typeByName(t, man, "telemetry::Extended")
	require.Equal(t, "telemetry::Event", ext.Extends)
	require.Len(t, ext.Members, 3)
	require.Equal(t, "start", ext.Members[0].Name)

	raw := typeByName(t, man, "telemetry::Overlay")
	require.True(t, raw.Raw)
	require.Empty(t, raw.Discriminant)
	require.Equal(t, Layout{Size: 4, Align: 4}, raw.Layout)

	require.Len(t, man.Services, 2)
	admin := man.Services[1]
	require.Equal(t, "telemetry::Basic", admin.Extends)
	require.Len(t, admin.Procedures, 2)
	require.Equal(t, "telemetry::Basic::ping_params", admin.Procedures[0].Params)
	require.Equal(t, "telemetry::Admin::reset_params", admin.Procedures[1].Params)
}

func TestBuildRejectsFailedModule(t *testing.T) {
	m := sema.NewModule(sema.Options{})
	_, err := Build(m, "")
	require.ErrorIs(t, err, ErrNotChecked)
}

func TestEncodeDecode(t *testing.T) {
	man, err := Build(check(t, telemetry), "telemetry.yaml")
	require.NoError(t, err)

	for _, format := range []Format{FormatMsgpack, FormatJSON} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, man, format))
		got, err := Decode(&buf, format)
		require.NoError(t, err)
		require.Equal(t, man, got)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, man, FormatJSON))
	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Equal(t, "telemetry", raw["module"])
}

func TestDecodeRejectsOtherVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Manifest{Version: Version + 1, Module: "x"}, FormatJSON))
	_, err := Decode(&buf, FormatJSON)
	require.Error(t, err)
}

func TestDiskCache(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)

	key := Key([]byte(telemetry), "v1")
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)

	man, err := Build(check(t, telemetry), "telemetry.yaml")
	require.NoError(t, err)
	require.NoError(t, c.Put(key, man))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, man, got)

	require.NotEqual(t, key, Key([]byte(telemetry), "v2"))
	require.Equal(t, key, project.Combine(project.HashContent([]byte(telemetry)), project.HashContent([]byte("v1"))))

	require.NoError(t, c.DropAll())
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	require.Error(t, err)
}
