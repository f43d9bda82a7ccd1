// Package main is the entry point for the incidentdb CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/appri/incidentdb/cmd/incidentdb/commands"
	"github.com/appri/incidentdb/internal/ui"
	"github.com/appri/incidentdb/internal/version"
)

func main() {
	if err := run(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp()
	rootCmd := commands.NewRootCommand(app, version.Get().String())

	// Execute root command
	return rootCmd.ExecuteContext(ctx)
}
