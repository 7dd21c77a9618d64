package main

import (
	"os"

	"github.com/mtian8/physics-agent/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
