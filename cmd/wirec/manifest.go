package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wirec/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [flags] <schema.yaml>",
	Short: "Write the layout manifest of a schema",
	Long: `Write the types, layouts and services of a schema for code generators.
With the cache enabled an unchanged schema is served from the manifest cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().String("format", "msgpack", "output format (msgpack|json)")
	manifestCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	manifestCmd.Flags().Bool("cache", false, "use the manifest cache (default from wirec.toml)")
	manifestCmd.Flags().Bool("clear-cache", false, "drop every cached manifest before compiling")
}

func runManifest(cmd *cobra.Command, args []string) (err error) {
	defer dumpTraceOnPanic()

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := manifest.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	if format == manifest.FormatMsgpack && outPath == "" && isTerminal(os.Stdout) {
		return fmt.Errorf("refusing to write msgpack to a terminal; use --out or --format json")
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	opts := s.driverOptions()
	opts.BuildManifests = true
	opts.Cache = s.openCache()
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return fmt.Errorf("failed to get clear-cache flag: %w", err)
	}
	if clearCache && opts.Cache != nil {
		if err := opts.Cache.DropAll(); err != nil {
			return fmt.Errorf("failed to clear manifest cache: %w", err)
		}
	}
	opts.ManifestOnly = opts.Cache != nil
	fr, err := compileSingle(cmd, s, args[0], opts)
	if err != nil {
		return err
	}
	if fr.Manifest == nil {
		return fmt.Errorf("%s: no manifest produced", args[0])
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if err := manifest.Encode(w, fr.Manifest, format); err != nil {
		return err
	}
	if !s.quiet && fr.Cached {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: manifest served from cache\n", args[0])
	}
	return nil
}
