package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/fieldsync/internal/core/domain"
)

func (c *CLI) newGeofenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geofence",
		Short: "Validate locations against a project site fence",
	}

	var lat, lon float64
	var fence string
	check := &cobra.Command{
		Use:   "check",
		Short: "Report the distance from the site and whether the location is allowed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := readFence(fence)
			if err != nil {
				return err
			}
			res, err := c.app.CheckFence(domain.Coordinate{Latitude: lat, Longitude: lon}, spec)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %dm\n", res.Status, res.DistanceMeters)
			if res.Violation {
				return domain.ErrGeoFenceViolation
			}
			return nil
		},
	}
	check.Flags().Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	check.Flags().Float64Var(&lon, "lon", 0, "Longitude in decimal degrees")
	check.Flags().StringVar(&fence, "fence", "", "Fence as JSON, or @file")
	_ = check.MarkFlagRequired("lat")
	_ = check.MarkFlagRequired("lon")
	_ = check.MarkFlagRequired("fence")

	cmd.AddCommand(check)
	return cmd
}
