package driver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"wirec/internal/project"
)

// ErrNoInputs is returned when neither arguments nor a project name any
// schema file.
var ErrNoInputs = errors.New("no schema files given and no wirec.toml found")

// IsSchemaFile reports whether path has a schema extension.
func IsSchemaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ResolveInputs turns command-line arguments into a sorted list of schema
// files. Directories are walked for *.yaml and *.yml files; plain files are
// taken as given. With no arguments the project's [schemas].paths are used.
func ResolveInputs(args []string, proj *project.Manifest) ([]string, error) {
	if len(args) == 0 {
		if proj == nil {
			return nil, ErrNoInputs
		}
		return proj.SchemaFiles()
	}
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// Missing files are reported per file by Compile.
			out = append(out, arg)
			continue
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := listSchemaFiles(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func listSchemaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSchemaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
