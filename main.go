package main

import (
	"os"

	"github.com/bimmerbailey/cwl4/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
