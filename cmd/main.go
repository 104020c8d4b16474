package main

import (
	"os"

	"github.com/ipc2023-classical/planner1/cmd/root"
)

func main() {
	rootCmd := root.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		root.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
