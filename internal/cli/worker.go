package cli

import (
	"context"
	"errors"

	"github.com/b1411/finka/internal/log"
	"github.com/spf13/cobra"
)

var errNoAMQP = errors.New("ETL requests need AMQP_URL to be set")

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	var rebuild []string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume ETL requests and publish ledgers",
		Long: `Consume ETL requests from AMQP. Each request runs the pipeline for one
branch and period, replaces the published ledgers and mirrors them to the
configured spreadsheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ShutdownContext(cmd.Context(), opts.logger)
			defer stop()
			return opts.withApp(ctx, func(app *App) error {
				for _, org := range rebuild {
					n, err := app.Worker.RebuildOrg(ctx, org)
					if err != nil {
						app.Logger.Error("Startup rebuild incomplete",
							log.FieldOrgUnit, org,
							"rebuilt", n,
							log.FieldError, err)
					}
				}
				return consumeETL(ctx, app)
			})
		},
	}
	cmd.Flags().StringSliceVar(&rebuild, "rebuild", nil, "branches to rebuild for every period before consuming")
	return cmd
}

// consumeETL blocks until ctx is cancelled. Cancellation is a clean exit.
func consumeETL(ctx context.Context, app *App) error {
	if app.Backend.AMQP == nil {
		return errNoAMQP
	}
	app.Logger.Info("Starting ETL worker", log.FieldOperation, log.OpStartup)
	err := app.Backend.AMQP.ConsumeETLRequests(ctx, app.Worker.HandleETLRequest)
	if errors.Is(err, context.Canceled) {
		app.Logger.Info("ETL worker stopped")
		return nil
	}
	return err
}
