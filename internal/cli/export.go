package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		sf     scopeFlags
		output string
		live   bool
		sheets bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledgers of a branch to an xlsx workbook or the spreadsheet",
		Long: `Export the published ledgers of a branch and period. --live exports a
fresh pipeline run instead. --sheets pushes to the configured spreadsheet
instead of writing a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := sf.scope()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return opts.withApp(ctx, func(app *App) error {
				var ledgers core.Ledgers
				if live {
					res := app.Pipeline.RunFullETLProcess(ctx, scope)
					if !res.Success {
						return fmt.Errorf("etl run failed: %s", strings.Join(res.Errors, "; "))
					}
					ledgers = res.Ledgers()
				} else if ledgers, err = app.Backend.Store.Ledgers(ctx, scope); err != nil {
					return fmt.Errorf("read ledgers: %w", err)
				}

				if sheets {
					if app.Backend.Exporter == nil {
						return errors.New("no spreadsheet configured, set GOOGLE_SPREADSHEET_ID")
					}
					if err := app.Backend.Exporter.ExportLedgers(ctx, scope, ledgers); err != nil {
						return fmt.Errorf("export to spreadsheet: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "exported %s %s to spreadsheet\n", scope.OrgUnitCode, scope.PeriodYM)
					return nil
				}

				path := output
				if path == "" {
					path = fmt.Sprintf("finka_%s_%s.xlsx", scope.OrgUnitCode, scope.PeriodYM)
				}
				return writeWorkbookFile(path, ledgers)
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "workbook path (default finka_<org>_<period>.xlsx)")
	cmd.Flags().BoolVar(&live, "live", false, "export a fresh pipeline run instead of the published ledgers")
	cmd.Flags().BoolVar(&sheets, "sheets", false, "push to the configured spreadsheet instead of a file")
	return cmd
}

func writeWorkbookFile(path string, l core.Ledgers) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()
	return export.WriteWorkbook(f, l)
}
