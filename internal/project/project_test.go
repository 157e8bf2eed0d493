package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `
[package]
name = "telemetry"

[schemas]
paths = ["schemas/*.yaml", "extra.yaml"]

[build]
max_diagnostics = 20
jobs = 2
cache = false
`)
	writeFile(t, filepath.Join(root, "schemas", "b.yaml"), "module: b\n")
	writeFile(t, filepath.Join(root, "schemas", "a.yaml"), "module: a\n")
	writeFile(t, filepath.Join(root, "extra.yaml"), "module: extra\n")
	nested := filepath.Join(root, "schemas", "deep", "er")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, ok, err := Load(nested)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if m.Config.Package.Name != "telemetry" {
		t.Errorf("name = %q", m.Config.Package.Name)
	}
	if m.Config.Build.MaxDiagnostics != 20 || m.Config.Build.Jobs != 2 || m.Config.Build.Cache {
		t.Errorf("build = %+v", m.Config.Build)
	}

	files, err := m.SchemaFiles()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		names = append(names, filepath.ToSlash(rel))
	}
	if got := strings.Join(names, ","); got != "extra.yaml,schemas/a.yaml,schemas/b.yaml" {
		t.Errorf("schema files = %s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "[package]\nname = \"p\"\n")
	m, ok, err := Load(root)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if m.Config.Build.MaxDiagnostics != DefaultMaxDiagnostics || !m.Config.Build.Cache {
		t.Errorf("defaults not applied: %+v", m.Config.Build)
	}
	if m.Root != root {
		t.Errorf("root = %q, want %q", m.Root, root)
	}
}

func TestLoadMissing(t *testing.T) {
	m, ok, err := Load(t.TempDir())
	if err != nil || ok || m != nil {
		t.Fatalf("expected no manifest, got %v %v %v", m, ok, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no name", "[package]\n", "missing [package].name"},
		{"bad name", "[package]\nname = \"1abc\"\n", "not an identifier"},
		{"unknown key", "[package]\nname = \"p\"\nversion = 2\n", "unknown key"},
		{"negative jobs", "[package]\nname = \"p\"\n[build]\njobs = -1\n", "jobs"},
		{"bad glob", "[package]\nname = \"p\"\n[schemas]\npaths = [\"[\"]\n", "bad schema glob"},
		{"syntax", "[package\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tt.content)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestSchemaGlobMatchesNothing(t *testing.T) {
	root := t.TempDir()
	m := &Manifest{Path: filepath.Join(root, ManifestName), Root: root, Config: Config{
		Schemas: SchemasConfig{Paths: []string{"missing/*.yaml"}},
	}}
	if _, err := m.SchemaFiles(); err == nil {
		t.Fatal("expected error for empty glob")
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := HashContent([]byte("a")), HashContent([]byte("b"))
	if Combine(a, b) == Combine(b, a) {
		t.Fatal("Combine should depend on order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatal("Combine should be deterministic")
	}
}
