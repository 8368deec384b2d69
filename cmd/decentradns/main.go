package main

import (
	"os"

	"github.com/pendergraft/decentradns/internal/cli"
)

// Set by ldflags at build time
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
