package main

import (
	"os"

	"github.com/plumber-cd/ez-netmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
