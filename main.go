package main

import (
	"os"

	"github.com/cramdeck/cramdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
