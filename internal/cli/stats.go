package cli

import (
	"github.com/b1411/finka/internal/stats"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show staging record counts and processed periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(app *App) error {
				return writeJSON(cmd.OutOrStdout(), stats.Collect(cmd.Context(), app.Backend.Store, org))
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "branch org unit code (default all branches)")
	return cmd
}
