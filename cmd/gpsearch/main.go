// Package main provides the entry point for the gpsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/gpsearch/cmd/gpsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
