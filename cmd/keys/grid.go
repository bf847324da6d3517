package main

import (
	"fmt"

	"github.com/couchcryptid/exposure-keys-etl/internal/adapter/keysdata"
	"github.com/spf13/cobra"
)

func newGridCmd(a *app) *cobra.Command {
	var lon, lat float64
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the village-grid cell containing a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			grid, err := keysdata.NewLoader(a.cfg, a.logger, a.metrics).LoadGrid(cmd.Context())
			if err != nil {
				return err
			}
			id, ok := grid.Lookup(lon, lat)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no cell at lon=%g lat=%g\n", lon, lat)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}
