package cli

import (
	"context"
	"fmt"

	"github.com/b1411/finka/internal/backend"
	"github.com/b1411/finka/internal/config"
	"github.com/b1411/finka/internal/etl"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/metrics"
	"github.com/b1411/finka/internal/rules"
	"github.com/b1411/finka/internal/services"
	"github.com/b1411/finka/internal/validation"
	"github.com/b1411/finka/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is the fully wired engine a command runs against.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Backend   *backend.BackendResult
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Validator *validation.Service
	Pipeline  *etl.Pipeline
	Worker    *worker.ETLWorker
	Workflow  *services.WorkflowService
}

// BuildApp creates the backend and every service on top of it. Call Close
// when done.
func BuildApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	thresholds := rules.DefaultThresholds()
	if cfg.RulesFile != "" {
		t, err := rules.LoadThresholds(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load rule thresholds: %w", err)
		}
		thresholds = t
		logger.Info("Rule thresholds loaded", "path", cfg.RulesFile)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	validator := validation.NewService(res.Store, validation.NewOrchestrator(thresholds),
		validation.WithLogger(logger),
		validation.WithMetrics(m),
		validation.WithCache(cfg.ValidationCacheSize, cfg.ValidationCacheTTL))
	pipeline := etl.NewPipeline(res.Store, logger, m)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Backend:   res,
		Registry:  reg,
		Metrics:   m,
		Validator: validator,
		Pipeline:  pipeline,
		Worker:    worker.NewETLWorker(pipeline, res.Store, res.Store, res.Exporter, m, logger),
		Workflow: services.NewWorkflowService(res.Store, validator, res.ETLPublisher(), services.WorkflowConfig{
			GateSubmissions: cfg.GateSubmissions,
			Metrics:         m,
			Logger:          logger,
		}),
	}, nil
}

func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}
