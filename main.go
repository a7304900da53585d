package main

import (
	"os"

	"github.com/synthql/synthql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
