package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/fieldsync/internal/app"
	"go.trai.ch/fieldsync/internal/core/domain"
)

func (c *CLI) newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline queue",
	}
	cmd.AddCommand(c.newQueueListCmd())
	cmd.AddCommand(c.newQueueAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed record with a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Retry(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "discard <id>",
		Short: "Drop a pending or failed record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Discard(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func (c *CLI) newQueueListCmd() *cobra.Command {
	var states []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter []domain.DeliveryState
			for _, s := range states {
				st, err := domain.ParseDeliveryState(strings.TrimSpace(s))
				if err != nil {
					return err
				}
				filter = append(filter, st)
			}

			records, err := c.app.ListQueue(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tKIND\tSTATE\tATTEMPTS\tENQUEUED\tERROR")
			for _, r := range records {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.Kind, r.State, r.Attempts, r.EnqueuedAt.Format(time.RFC3339), r.LastError)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only list records in these states")
	return cmd
}

func (c *CLI) newQueueAddCmd() *cobra.Command {
	var (
		kind     string
		payload  string
		lat, lon float64
		fence    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a record for delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := app.EnqueueRequest{
				Kind:    domain.RecordKind(kind),
				Payload: json.RawMessage(payload),
			}
			if fence != "" {
				spec, err := readFence(fence)
				if err != nil {
					return err
				}
				req.Fence = &spec
				req.Location = &domain.Coordinate{Latitude: lat, Longitude: lon}
			}

			id, check, err := c.app.Enqueue(cmd.Context(), req)
			if check != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "geofence: %s %dm\n", check.Status, check.DistanceMeters)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Record kind: progress-report, attendance-event or material-request")
	cmd.Flags().StringVar(&payload, "payload", "", "Record payload as a JSON object")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of an attendance event")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude of an attendance event")
	cmd.Flags().StringVar(&fence, "fence", "", "Site fence as JSON, or @file")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("payload")
	cmd.MarkFlagsRequiredTogether("lat", "lon", "fence")
	return cmd
}
