package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/vincheck-api/internal/http/handlers"
)

func newBackendsCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show the generation backend candidates and selection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, logger, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			if probe && svcs.Selector.Configured() {
				if _, err := svcs.Selector.Ensure(cmd.Context()); err != nil {
					logger.Warn("probe failed", "error", err)
				}
			}
			out, err := handlers.NewBackendsHandler(svcs.Selector, svcs.Catalog).GetBackends(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out.Body)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "probe candidates in rank order before reporting")
	return cmd
}
