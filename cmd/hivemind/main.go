package main

import (
	"os"

	"github.com/apiarylab/hivemind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
