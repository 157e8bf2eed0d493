package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wirec/internal/diag"
	"wirec/internal/diagfmt"
	"wirec/internal/driver"
	"wirec/internal/manifest"
	"wirec/internal/project"
)

// settings merge wirec.toml with command-line flags. Flags win when set.
type settings struct {
	project        *project.Manifest
	maxDiagnostics int
	jobs           int
	cache          bool
	defaultModule  string
	color          bool
	quiet          bool
	timings        bool
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{maxDiagnostics: project.DefaultMaxDiagnostics}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	proj, ok, err := project.Load(wd)
	if err != nil {
		return nil, err
	}
	if ok {
		s.project = proj
		s.defaultModule = proj.Config.Package.Name
		s.maxDiagnostics = proj.Config.Build.MaxDiagnostics
		s.jobs = proj.Config.Build.Jobs
		s.cache = proj.Config.Build.Cache
	}

	root := cmd.Root().PersistentFlags()
	if root.Changed("max-diagnostics") || !ok {
		if s.maxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
			return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if s.quiet, err = root.GetBool("quiet"); err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.timings, err = root.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.color, err = useColor(cmd, os.Stderr); err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("jobs"); f != nil && f.Changed {
		if s.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return nil, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if f := cmd.Flags().Lookup("cache"); f != nil && f.Changed {
		if s.cache, err = cmd.Flags().GetBool("cache"); err != nil {
			return nil, fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	return s, nil
}

func (s *settings) driverOptions() driver.Options {
	return driver.Options{
		MaxDiagnostics: s.maxDiagnostics,
		Jobs:           s.jobs,
		DefaultModule:  s.defaultModule,
	}
}

func (s *settings) openCache() *manifest.DiskCache {
	if !s.cache {
		return nil
	}
	c, err := manifest.OpenDiskCache("wirec")
	if err != nil {
		return nil
	}
	return c
}

// compileSingle compiles one schema, printing diagnostics to stderr. It
// returns errFailed when the schema has errors.
func compileSingle(cmd *cobra.Command, s *settings, path string, opts driver.Options) (*driver.FileResult, error) {
	res, err := driver.Compile(cmd.Context(), []string{path}, opts)
	if err != nil {
		return nil, err
	}
	bag := res.Diagnostics()
	if bag.Len() > 0 && (!s.quiet || bag.HasErrors()) {
		printDiagnostics(cmd, s, res, bag)
	}
	if s.timings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timer.Summary())
	}
	if res.HasErrors() {
		return nil, errFailed
	}
	return &res.Files[0], nil
}

func printDiagnostics(cmd *cobra.Command, s *settings, res *driver.Result, bag *diag.Bag) {
	diagfmt.Pretty(cmd.ErrOrStderr(), bag, res.FileSet, diagfmt.PrettyOpts{
		Color:     s.color,
		Context:   1,
		PathMode:  diagfmt.PathModeAuto,
		ShowNotes: true,
	})
}
