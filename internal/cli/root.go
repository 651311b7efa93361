package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/b1411/finka/internal/config"
	"github.com/b1411/finka/internal/log"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and what PersistentPreRunE
// builds from them.
type rootOptions struct {
	envFiles []string
	logLevel string
	backend  string

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCmd builds the finka command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "finka",
		Short: "Validate and aggregate branch budget data",
		Long: `finka validates the staging data branches enter each month, maps
approved records into the BDR, DDS and FOT ledgers, and publishes them for
headquarters. Configuration comes from the environment and .env files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig(opts.envFiles, func(c *config.Config) {
				if opts.logLevel != "" {
					c.LogLevel = opts.logLevel
				}
				if opts.backend != "" {
					c.DataBackend = opts.backend
				}
			})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "override DATA_BACKEND (memory, sqlite)")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newValidateCmd(opts),
		newETLCmd(opts),
		newExportCmd(opts),
		newStatsCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// withApp builds the engine, runs fn and releases the backend.
func (o *rootOptions) withApp(ctx context.Context, fn func(*App) error) error {
	app, err := BuildApp(ctx, o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			o.logger.Error("Failed to release backend", log.FieldError, err)
		}
	}()
	return fn(app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
