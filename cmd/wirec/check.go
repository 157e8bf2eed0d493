package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wirec/internal/diagfmt"
	"wirec/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [schema.yaml|directory...]",
	Short: "Check schema files and report diagnostics",
	Long: `Check resolves names and generics, runs the reference-type pass and computes layouts.
Without arguments the schemas listed in wirec.toml are checked.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	paths, err := driver.ResolveInputs(args, s.project)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no schema files found")
	}

	res, err := driver.Compile(cmd.Context(), paths, s.driverOptions())
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	bag := res.Diagnostics()

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		if !s.quiet || bag.HasErrors() {
			colored, err := useColor(cmd, os.Stdout)
			if err != nil {
				return err
			}
			diagfmt.Pretty(out, bag, res.FileSet, diagfmt.PrettyOpts{
				Color:     colored,
				Context:   2,
				PathMode:  pathMode,
				ShowNotes: withNotes,
			})
		}
	case "short":
		if err := diagfmt.Short(out, bag, res.FileSet); err != nil {
			return err
		}
	case "json":
		if err := diagfmt.JSON(out, bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			Max:              s.maxDiagnostics,
		}); err != nil {
			return err
		}
	}

	if s.timings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timer.Summary())
	}
	if res.HasErrors() {
		return errFailed
	}
	if format == "pretty" && !s.quiet {
		status := "ok"
		if bag.HasWarnings() {
			status = fmt.Sprintf("ok with %d warning(s)", bag.Len())
		}
		fmt.Fprintf(out, "checked %d schema file(s): %s\n", len(paths), status)
	}
	return nil
}
