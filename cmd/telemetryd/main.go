// Package main is the telemetryd command.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/telemetryd/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
