package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wirec/internal/diagfmt"
	"wirec/internal/manifest"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [flags] <schema.yaml>",
	Short: "Print the layouts of every type in a schema",
	Long:  `Print sizes, alignments, wire layouts, member offsets and reference classification`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

func init() {
	layoutCmd.Flags().String("type", "", "only show types with this name")
	layoutCmd.Flags().String("format", "table", "output format (table|json)")
	layoutCmd.Flags().Bool("members", true, "list members under each type")
	layoutCmd.Flags().Int("max-name", 48, "truncate type names to this width (0=no limit)")
}

func runLayout(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	typeName, err := cmd.Flags().GetString("type")
	if err != nil {
		return fmt.Errorf("failed to get type flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	members, err := cmd.Flags().GetBool("members")
	if err != nil {
		return fmt.Errorf("failed to get members flag: %w", err)
	}
	maxName, err := cmd.Flags().GetInt("max-name")
	if err != nil {
		return fmt.Errorf("failed to get max-name flag: %w", err)
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	opts := s.driverOptions()
	opts.BuildManifests = true
	fr, err := compileSingle(cmd, s, args[0], opts)
	if err != nil {
		return err
	}

	man := fr.Manifest
	if typeName != "" {
		man = selectTypes(man, typeName)
		if len(man.Types) == 0 {
			return fmt.Errorf("no type named %q in %s", typeName, args[0])
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return manifest.Encode(out, man, manifest.FormatJSON)
	}
	colored, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}
	return diagfmt.LayoutTable(out, man, diagfmt.TableOpts{
		Color:   colored,
		Members: members,
		MaxName: maxName,
	})
}

// selectTypes keeps the types whose qualified name is name or ends in
// ::name.
func selectTypes(m *manifest.Manifest, name string) *manifest.Manifest {
	out := *m
	out.Types = nil
	for _, t := range m.Types {
		if t.Name == name || strings.HasSuffix(t.Name, "::"+name) {
			out.Types = append(out.Types, t)
		}
	}
	out.Services = nil
	return &out
}
