package main

import (
	"os"

	"github.com/checkpoint-dev/checkpoint/internal/cli"
)

var version = "0.1.0-dev"

func main() {
	err := cli.NewRootCommand(version).Execute()
	os.Exit(cli.ExitCode(err, os.Stderr))
}
