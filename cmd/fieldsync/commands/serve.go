package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/fieldsync/internal/adapters/httpapi"
)

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the caching proxy, control API and sync loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := httpapi.New(c.app, c.app.Router(), c.metrics, c.logger)
			return c.app.Serve(cmd.Context(), handler)
		},
	}
}
