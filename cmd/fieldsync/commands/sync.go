package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/fieldsync/internal/core/domain"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Submit pending records to the server once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.SyncNow(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func printReport(w io.Writer, r *domain.SyncReport) {
	if r.Submitted == 0 && r.Requeued == 0 && r.Failed == 0 {
		_, _ = fmt.Fprintln(w, "nothing to sync")
		return
	}
	_, _ = fmt.Fprintf(w, "submitted %d, delivered %d, will retry %d, failed %d\n",
		r.Submitted, r.Delivered, r.Requeued, r.Failed)
	if r.Recovered > 0 {
		_, _ = fmt.Fprintf(w, "recovered %d stale record(s)\n", r.Recovered)
	}
	for _, id := range r.FailedIDs {
		_, _ = fmt.Fprintf(w, "failed permanently: %s\n", id)
	}
}
