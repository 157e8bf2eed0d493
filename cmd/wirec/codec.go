package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wirec/internal/codec"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [flags] <schema.yaml>",
	Short: "Encode a YAML value into its wire representation",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode [flags] <schema.yaml>",
	Short: "Decode a wire representation and print it as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	encodeCmd.Flags().StringP("type", "t", "", "root type, e.g. Reading or vector<i32>")
	encodeCmd.Flags().StringP("in", "i", "-", "YAML value file (- for stdin)")
	encodeCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	_ = encodeCmd.MarkFlagRequired("type")

	decodeCmd.Flags().StringP("type", "t", "", "root type, e.g. Reading or vector<i32>")
	decodeCmd.Flags().StringP("in", "i", "-", "binary input file (- for stdin)")
	_ = decodeCmd.MarkFlagRequired("type")
}

func runEncode(cmd *cobra.Command, args []string) (err error) {
	defer dumpTraceOnPanic()

	typeExpr, inPath, err := codecFlags(cmd)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	fr, err := compileSingle(cmd, s, args[0], s.driverOptions())
	if err != nil {
		return err
	}
	root, err := fr.Module.LookupType(typeExpr)
	if err != nil {
		return fmt.Errorf("type %s: %w", typeExpr, err)
	}

	input, err := readInput(cmd, inPath)
	if err != nil {
		return err
	}
	var value yaml.Node
	if err := yaml.Unmarshal(input, &value); err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	data, err := codec.NewEncoder(fr.Module.Layouts).Marshal(root, &value)
	if err != nil {
		return err
	}

	if outPath == "" {
		if isTerminal(os.Stdout) {
			return fmt.Errorf("refusing to write binary data to a terminal; use --out")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func runDecode(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	typeExpr, inPath, err := codecFlags(cmd)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	fr, err := compileSingle(cmd, s, args[0], s.driverOptions())
	if err != nil {
		return err
	}
	root, err := fr.Module.LookupType(typeExpr)
	if err != nil {
		return fmt.Errorf("type %s: %w", typeExpr, err)
	}

	data, err := readInput(cmd, inPath)
	if err != nil {
		return err
	}
	value, err := codec.NewDecoder(fr.Module.Layouts).Decode(root, data)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}

func codecFlags(cmd *cobra.Command) (typeExpr, inPath string, err error) {
	if typeExpr, err = cmd.Flags().GetString("type"); err != nil {
		return "", "", fmt.Errorf("failed to get type flag: %w", err)
	}
	if inPath, err = cmd.Flags().GetString("in"); err != nil {
		return "", "", fmt.Errorf("failed to get in flag: %w", err)
	}
	return typeExpr, inPath, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	// #nosec G304 -- path comes from the command line
	return os.ReadFile(path)
}
