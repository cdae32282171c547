// Command dreamvm loads, executes, and disassembles Dream Machine object
// files.
package main

import "github.com/dreamkit/dream/cmd/dreamvm/cmd"

func main() {
	cmd.Execute()
}
