package main

import (
	"fmt"
	"os"

	corecmd "github.com/m3rciful/copperbot/core/cmd"
)

func main() {
	if err := corecmd.Execute(corecmd.Options{
		DefaultConfigPath: "config.yaml",
	}); err != nil {
		fmt.Fprintln(os.Stderr, "copperbot:", err)
		os.Exit(1)
	}
}
