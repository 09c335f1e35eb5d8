// Package commands implements the CLI commands for fieldsync.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/fieldsync/internal/app"
	"go.trai.ch/fieldsync/internal/build"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// CLI represents the command line interface for fieldsync.
type CLI struct {
	app     *app.App
	metrics ports.Metrics
	logger  ports.Logger
	rootCmd *cobra.Command
}

// New creates a new CLI instance from the initialized components.
func New(c *app.Components) *CLI {
	rootCmd := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Offline-first cache and sync daemon for construction-site clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	cli := &CLI{
		app:     c.App,
		metrics: c.Metrics,
		logger:  c.Logger,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(cli.newServeCmd())
	rootCmd.AddCommand(cli.newSyncCmd())
	rootCmd.AddCommand(cli.newQueueCmd())
	rootCmd.AddCommand(cli.newGeofenceCmd())
	rootCmd.AddCommand(cli.newCacheCmd())
	rootCmd.AddCommand(cli.newVersionCmd())

	return cli
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}
