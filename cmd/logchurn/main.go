package main

import (
	"fmt"
	"os"

	"github.com/GabrielNunesIT/logchurn/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		os.Exit(cli.ExitCode(err))
	}
}
