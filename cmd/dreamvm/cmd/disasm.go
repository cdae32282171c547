package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dreamkit/dream/disasm"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:     "disasm <file>",
	GroupID: "program",
	Short:   "Print a disassembly listing of a Dream object file.",
	Long:    `Print a disassembly listing of a Dream object file to standard output, without executing it.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := disassembleFile(cmd, args[0]); err != nil {
			cmd.PrintErrln("Error:", err)
			os.Exit(1)
		}
	},
}

func disassembleFile(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}

	if err := disasm.Disassemble(bytes.NewReader(raw), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("disassembly failed: %w", err)
	}
	return nil
}
