// Package main is the entry point for the learndot-sync command.
package main

import (
	"os"

	"github.com/open-craft/learndot-sync/cmd/learndot-sync/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
