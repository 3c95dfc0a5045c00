package main

import (
	"os"

	"github.com/pageforge/pageforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
