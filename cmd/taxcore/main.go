// Package main is the entry point for the taxcore service and CLI.
package main

import (
	"os"

	"3tcapital/taxcore/cmd/taxcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
