// Package main is the entry point for the fieldsync daemon and CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/cmd/fieldsync/commands"
	"go.trai.ch/fieldsync/internal/app"
	"go.trai.ch/fieldsync/internal/core/domain"
	_ "go.trai.ch/fieldsync/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run(opts ...func(*app.App)) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = components.App.Close() }()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		// The geofence check already printed its verdict.
		if errors.Is(err, domain.ErrGeoFenceViolation) {
			return 2
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
