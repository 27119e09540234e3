// Command blocksync validates block declarations, runs editing scenarios,
// and inspects revision journals.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/blocksync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
