package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/b1411/finka/internal/cache"
	apphttp "github.com/b1411/finka/internal/http"
	"github.com/b1411/finka/internal/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheSweepInterval = time.Minute
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON API on PORT. With --worker the process also consumes ETL
requests from AMQP, which the memory backend needs because its data is not
shared with a separate worker process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := ShutdownContext(cmd.Context(), opts.logger)
			defer stop()
			return opts.withApp(ctx, func(app *App) error {
				return serve(ctx, app, withWorker)
			})
		},
	}
	cmd.Flags().BoolVar(&withWorker, "worker", false, "also consume ETL requests in this process")
	return cmd
}

func serve(ctx context.Context, app *App, withWorker bool) error {
	cfg := app.Config
	deps := apphttp.Deps{
		Validator: app.Validator,
		Pipeline:  app.Pipeline,
		Publisher: app.Worker,
		Workflow:  app.Workflow,
		Store:     app.Backend.Store,
		Logger:    app.Logger,
	}
	if cfg.MetricsEnabled {
		deps.Gatherer = app.Registry
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	janitor := cache.NewJanitor(app.Logger, app.Validator.Caches()...)
	go janitor.Run(ctx, cacheSweepInterval)

	if withWorker {
		go func() {
			if err := consumeETL(ctx, app); err != nil {
				app.Logger.Error("ETL consumer stopped", log.FieldError, err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		app.Logger.Info("Starting finka server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"metrics", cfg.MetricsEnabled,
			"worker", withWorker)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-janitor.Done()
	app.Logger.Info("Server stopped gracefully")
	return nil
}
