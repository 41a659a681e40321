package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opal-lang/sketchvm/core/astfmt"
	"github.com/opal-lang/sketchvm/core/astfmt/formatter"
)

func newDumpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the header, string table and node tree of a compiled sketch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			return dumpProgram(cmd.OutOrStdout(), prog, ShouldUseColor(g.noColor))
		},
	}
}

func dumpProgram(w io.Writer, prog *astfmt.Program, useColor bool) error {
	formatter.FormatHeader(w, prog, useColor)
	fp, err := astfmt.Fingerprint(prog.Root)
	if err != nil {
		return fmt.Errorf("fingerprinting tree: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n\n", Colorize("fingerprint:", ColorCyan, useColor), hex.EncodeToString(fp[:]))
	formatter.FormatTree(w, prog.Root, useColor)
	return nil
}
