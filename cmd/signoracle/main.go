package main

import (
	"fmt"
	"os"

	"github.com/roach88/signoracle/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "signoracle: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
