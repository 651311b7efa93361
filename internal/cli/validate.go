package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/validation"
	"github.com/spf13/cobra"
)

var errScopeInvalid = errors.New("scope has validation errors")

// scopeFlags are the --org and --period flags shared by scoped commands.
type scopeFlags struct {
	org    string
	period string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.org, "org", "", "branch org unit code")
	cmd.Flags().StringVar(&f.period, "period", "", "reporting period, YYYY-MM")
}

func (f *scopeFlags) scope() (core.Scope, error) {
	if err := requireScopeFlags(f.org, f.period); err != nil {
		return core.Scope{}, err
	}
	period, err := core.ParsePeriod(f.period)
	if err != nil {
		return core.Scope{}, err
	}
	s := core.Scope{OrgUnitCode: f.org, PeriodYM: period, UserID: "cli"}
	return s, s.Validate()
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		sf     scopeFlags
		asJSON bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the staging data of a branch and period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := sf.scope()
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(app *App) error {
				res, err := app.Validator.Validate(cmd.Context(), scope)
				if err != nil {
					return err
				}
				if asJSON {
					err = writeJSON(cmd.OutOrStdout(), res)
				} else {
					err = printResult(cmd.OutOrStdout(), res)
				}
				if err != nil {
					return err
				}
				if strict && !res.IsValid {
					return errScopeInvalid
				}
				return nil
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the scope has errors")
	return cmd
}

func printResult(w io.Writer, res validation.Result) error {
	state := "valid"
	if !res.IsValid {
		state = "invalid"
	}
	s := res.Summary
	if _, err := fmt.Fprintf(w, "%s %s: %s\nrecords: %d total, %d valid\n",
		res.Scope.OrgUnitCode, res.Scope.PeriodYM, state, s.TotalRecords, s.ValidRecords); err != nil {
		return err
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "\nerrors (%d):\n", len(res.Errors))
		for _, e := range res.Errors {
			field := e.Module
			if e.Field != "" {
				field += "." + e.Field
			}
			if e.RecordID != "" {
				fmt.Fprintf(w, "  %s [%s]: %s\n", field, e.RecordID, e.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", field, e.Message)
			}
		}
	}
	printNotes(w, "warnings", res.Warnings)
	printNotes(w, "info", res.Infos)
	return nil
}

func printNotes(w io.Writer, title string, notes []validation.Note) {
	if len(notes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(notes))
	for _, n := range notes {
		fmt.Fprintf(w, "  %s: %s\n", n.Module, n.Message)
	}
}
