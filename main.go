package main

import (
	"os"

	"github.com/mkobayashi/jobscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
