package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wirec/internal/diag"
	"wirec/internal/manifest"
	"wirec/internal/project"
	"wirec/internal/trace"
)

const goodSchema = `module: telemetry
types:
  Reading:
    kind: struct
    members:
      foo: i32
      bar: string
`

const badSchema = `types:
  A: {kind: struct, members: {x: Missing}}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCompileClean(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "telemetry.yaml", goodSchema)

	res, err := Compile(context.Background(), []string{path}, Options{MaxDiagnostics: 10, BuildManifests: true})
	require.NoError(t, err)
	require.False(t, res.HasErrors())
	require.Len(t, res.Files, 1)

	fr := res.Files[0]
	require.NotNil(t, fr.Module)
	require.True(t, fr.Module.ReferencePassDone())
	require.NotNil(t, fr.Manifest)
	require.Equal(t, "telemetry", fr.Manifest.Module)
	require.False(t, fr.Cached)
}

func TestCompileStopsAfterFailingPass(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", badSchema)

	res, err := Compile(context.Background(), []string{path}, Options{MaxDiagnostics: 10, BuildManifests: true})
	require.NoError(t, err)
	require.True(t, res.HasErrors())

	fr := res.Files[0]
	require.NotNil(t, fr.Module)
	require.False(t, fr.Module.ReferencePassDone())
	require.Nil(t, fr.Manifest)

	var codes []diag.Code
	for _, d := range res.Diagnostics().Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, diag.SemUnresolvedSymbol)
}

func TestCompileMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	res, err := Compile(context.Background(), []string{missing}, Options{MaxDiagnostics: 10})
	require.NoError(t, err)
	require.True(t, res.HasErrors())
	items := res.Diagnostics().Items()
	require.Len(t, items, 1)
	require.Equal(t, diag.IOLoadFileError, items[0].Code)
	require.Nil(t, res.Files[0].Module)
}

func TestCompileManyFilesKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml"} {
		paths = append(paths, writeFile(t, dir, name, goodSchema))
	}
	paths = append(paths, writeFile(t, dir, "e.yaml", badSchema))

	res, err := Compile(context.Background(), paths, Options{MaxDiagnostics: 10, Jobs: 2})
	require.NoError(t, err)
	require.Len(t, res.Files, len(paths))
	for i, fr := range res.Files {
		require.Equal(t, paths[i], fr.Path)
		require.Equal(t, i == len(paths)-1, fr.Failed(), fr.Path)
	}
}

func TestCompileCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "telemetry.yaml", goodSchema)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, []string{path}, Options{MaxDiagnostics: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileUsesManifestCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "telemetry.yaml", goodSchema)
	cache, err := manifest.OpenDiskCacheAt(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	opts := Options{MaxDiagnostics: 10, Cache: cache, ManifestOnly: true}
	first, err := Compile(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	require.False(t, first.Files[0].Cached)
	require.NotNil(t, first.Files[0].Manifest)

	second, err := Compile(context.Background(), []string{path}, opts)
	require.NoError(t, err)
	require.True(t, second.Files[0].Cached)
	require.Nil(t, second.Files[0].Module)
	cached := second.Files[0].Manifest
	require.Equal(t, "telemetry", cached.Module)
	require.Len(t, cached.Types, len(first.Files[0].Manifest.Types))
	for i, ty := range cached.Types {
		require.Equal(t, first.Files[0].Manifest.Types[i].Name, ty.Name)
		require.Equal(t, first.Files[0].Manifest.Types[i].Wire, ty.Wire)
	}
}

func TestCompileTracesPasses(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "telemetry.yaml", goodSchema)
	var buf bytes.Buffer
	tracer := trace.NewStreamTracer(&buf, trace.LevelDetail, trace.FormatText)
	ctx := trace.WithTracer(context.Background(), tracer)

	_, err := Compile(ctx, []string{path}, Options{MaxDiagnostics: 10})
	require.NoError(t, err)
	require.NoError(t, tracer.Flush())

	out := buf.String()
	for _, pass := range []string{"parse", "declare", "define", "services", "reference-pass", "layout"} {
		require.Contains(t, out, "-> "+pass)
	}
	require.Contains(t, out, "file:"+path)
	require.NotContains(t, out, "decl:Reading")
}

func TestCompileTimings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "telemetry.yaml", goodSchema)

	res, err := Compile(context.Background(), []string{path}, Options{MaxDiagnostics: 10})
	require.NoError(t, err)
	summary := res.Timer.Summary()
	require.Contains(t, summary, "load")
	require.Contains(t, summary, path+"/layout")
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "schemas/a.yaml", goodSchema)
	b := writeFile(t, dir, "schemas/nested/b.yml", goodSchema)
	writeFile(t, dir, "schemas/readme.txt", "not a schema")
	single := writeFile(t, dir, "other.yaml", goodSchema)

	got, err := ResolveInputs([]string{filepath.Join(dir, "schemas"), single, a}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{single, a, b}, got)
}

func TestResolveInputsFromProject(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "schemas/a.yaml", goodSchema)
	writeFile(t, dir, project.ManifestName, "[package]\nname = \"telemetry\"\n\n[schemas]\npaths = [\"schemas/*.yaml\"]\n")

	proj, ok, err := project.Load(dir)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := ResolveInputs(nil, proj)
	require.NoError(t, err)
	require.Equal(t, []string{a}, got)

	_, err = ResolveInputs(nil, nil)
	require.ErrorIs(t, err, ErrNoInputs)
}

func TestIsSchemaFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.yaml": true, "b.YML": true, "c.json": false, "yaml": false,
	} {
		if got := IsSchemaFile(path); got != want {
			t.Errorf("IsSchemaFile(%q) = %v, want %v", path, got, want)
		}
	}
}
