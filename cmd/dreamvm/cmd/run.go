package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dreamkit/dream/disasm"
	"github.com/dreamkit/dream/hostio"
	"github.com/dreamkit/dream/objfile"
	"github.com/dreamkit/dream/vm"
	"github.com/spf13/cobra"
)

var emitDisassemblyPath string

var runCmd = &cobra.Command{
	Use:     "run <file>",
	GroupID: "program",
	Short:   "Load and execute a Dream object file.",
	Long:    `Load and execute a Dream object file, halting when the outermost procedure returns.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runProgram(cmd, args[0]); err != nil {
			cmd.PrintErrln("Error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&emitDisassemblyPath, "emit-disassembly", "", "write a disassembly listing of the loaded file to this path")
}

func runProgram(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}

	if emitDisassemblyPath != "" {
		if err := emitDisassembly(raw, emitDisassemblyPath); err != nil {
			return err
		}
	}

	obj, err := objfile.ReadObjectFile(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}

	bridge := hostio.NewBridge()
	machine := vm.New(bridge)
	machine.Load(obj.Code, obj.Entry, obj.Strings)

	if err := machine.Run(); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	return nil
}

func emitDisassembly(raw []byte, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := disasm.Disassemble(bytes.NewReader(raw), out); err != nil {
		return fmt.Errorf("disassembly failed: %w", err)
	}
	return nil
}
