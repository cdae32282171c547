package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dreamvm",
	Short: "Dream Machine runner",
	Long:  `dreamvm loads and executes Dream Machine object files, and can emit a disassembly listing alongside execution.`,
}

// Execute runs the root command, exiting nonzero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "program",
		Title: "Program operations",
	})

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(disasmCmd)
}
