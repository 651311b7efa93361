package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/b1411/finka/internal/etl"
	"github.com/spf13/cobra"
)

func newETLCmd(opts *rootOptions) *cobra.Command {
	var (
		sf      scopeFlags
		publish bool
		rebuild bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Build the BDR, DDS and FOT ledgers of a branch",
		Long: `Run the ETL pipeline over the approved records of a branch and period.
Without --publish the run is a dry run. --rebuild publishes every period the
branch has staging data for and ignores --period.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if rebuild {
				if sf.org == "" {
					return errors.New("--rebuild needs --org")
				}
				return opts.withApp(ctx, func(app *App) error {
					n, err := app.Worker.RebuildOrg(ctx, sf.org)
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d periods rebuilt\n", sf.org, n)
					return err
				})
			}

			scope, err := sf.scope()
			if err != nil {
				return err
			}
			return opts.withApp(ctx, func(app *App) error {
				var res etl.RunResult
				if publish {
					res, err = app.Worker.Process(ctx, scope)
				} else {
					res = app.Pipeline.RunFullETLProcess(ctx, scope)
				}

				if asJSON {
					if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
						return werr
					}
				} else {
					printRun(cmd, res, publish && err == nil)
				}
				if err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("etl run %s failed: %s", res.RunID, strings.Join(res.Errors, "; "))
				}
				return nil
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&publish, "publish", false, "store the ledgers and mirror them to the spreadsheet")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "publish every period of --org")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run result with all ledger lines as JSON")
	return cmd
}

func printRun(cmd *cobra.Command, res etl.RunResult, published bool) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s for %s %s\n", res.RunID, res.Scope.OrgUnitCode, res.Scope.PeriodYM)
	fmt.Fprintf(w, "  revenues:     %d\n", res.ProcessedRecords.Revenues)
	fmt.Fprintf(w, "  cash flows:   %d\n", res.ProcessedRecords.CashFlows)
	fmt.Fprintf(w, "  consolidated: %d\n", res.ProcessedRecords.Consolidated)
	if res.DroppedCashFlows > 0 {
		fmt.Fprintf(w, "  dropped cash flows without revenue: %d\n", res.DroppedCashFlows)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	if published {
		fmt.Fprintln(w, "  published")
	}
}
