// Package project reads wirec.toml, the optional project file that names a
// schema package, lists its schema files and sets build defaults.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// DefaultMaxDiagnostics caps reported diagnostics when nothing else does.
const DefaultMaxDiagnostics = 100

// Config mirrors wirec.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Schemas SchemasConfig `toml:"schemas"`
	Build   BuildConfig   `toml:"build"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// SchemasConfig lists schema files as globs relative to the project root.
type SchemasConfig struct {
	Paths []string `toml:"paths"`
}

type BuildConfig struct {
	MaxDiagnostics int  `toml:"max_diagnostics"`
	Jobs           int  `toml:"jobs"` // 0 means GOMAXPROCS
	Cache          bool `toml:"cache"`
}

// Manifest is a loaded wirec.toml together with where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Load finds and decodes wirec.toml starting at startDir. ok is false when
// no project file exists; that is not an error.
func Load(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig decodes and validates one wirec.toml.
func LoadConfig(path string) (Config, error) {
	cfg := Config{Build: BuildConfig{MaxDiagnostics: DefaultMaxDiagnostics, Cache: true}}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if !IsValidPackageName(cfg.Package.Name) {
		return Config{}, fmt.Errorf("%s: [package].name %q is not an identifier", path, cfg.Package.Name)
	}
	if cfg.Build.MaxDiagnostics < 0 {
		return Config{}, fmt.Errorf("%s: [build].max_diagnostics must not be negative", path)
	}
	if cfg.Build.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	for _, p := range cfg.Schemas.Paths {
		if _, err := filepath.Match(p, ""); err != nil {
			return Config{}, fmt.Errorf("%s: bad schema glob %q: %w", path, p, err)
		}
	}
	return cfg, nil
}

// IsValidPackageName accepts ASCII identifiers.
func IsValidPackageName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// SchemaFiles expands [schemas].paths against the project root. The result
// is sorted and free of duplicates. A glob matching nothing is an error.
func (m *Manifest) SchemaFiles() ([]string, error) {
	var out []string
	for _, pattern := range m.Config.Schemas.Paths {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(m.Root, filepath.FromSlash(pattern))
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, fmt.Errorf("%s: bad schema glob %q: %w", m.Path, pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: schema glob %q matched no files", m.Path, pattern)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && !info.IsDir() {
				out = append(out, match)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
