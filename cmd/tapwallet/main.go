package main

import (
	"os"

	"github.com/voltaic-labs/tapwallet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
