package main

import (
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <vin|lot|url>",
		Short: "Resolve a VIN, lot number or listing URL into a vehicle record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			record, err := svcs.Lookup.Resolve(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
}
