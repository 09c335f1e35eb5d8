package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove cache namespaces other than the configured version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := c.app.CleanCache(cmd.Context())
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to remove")
				return nil
			}
			for _, ns := range removed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", ns)
			}
			return nil
		},
	})
	return cmd
}
