package main

import (
	"os"

	"github.com/solatis/expenserules/cmd/expenserules/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
