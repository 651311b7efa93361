package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/etl"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/middleware/ratelimit"
	"github.com/b1411/finka/internal/middleware/security"
	"github.com/b1411/finka/internal/staging"
	"github.com/b1411/finka/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collaborators the handlers call. The concrete services in validation,
// etl, worker and services satisfy them.
type (
	Validator interface {
		Validate(ctx context.Context, scope core.Scope) (validation.Result, error)
	}

	Pipeline interface {
		RunFullETLProcess(ctx context.Context, scope core.Scope) etl.RunResult
		ConsolidateDataToFOT(ctx context.Context, org string, period core.PeriodYM) ([]core.ConsolidatedLine, error)
	}

	// Publisher runs the pipeline and stores the result.
	Publisher interface {
		Process(ctx context.Context, scope core.Scope) (etl.RunResult, error)
	}

	Workflow interface {
		SaveRecord(ctx context.Context, actor core.Scope, rec core.Record) (core.Record, []validation.Issue, error)
		Transition(ctx context.Context, actor core.Scope, domain core.Domain, id string, action core.Action) (core.Record, error)
	}

	Store interface {
		staging.LedgerReader
		staging.Counter
	}
)

type Deps struct {
	Validator Validator
	Pipeline  Pipeline
	// Publisher may be nil; publishing ETL runs is then refused.
	Publisher Publisher
	Workflow  Workflow
	Store     Store
	Logger    *log.Logger
	// Gatherer exposes /metrics when set.
	Gatherer  prometheus.Gatherer
	RateLimit ratelimit.Config
	// RequestTimeout bounds each request. Zero means one minute.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	deps    Deps
	logger  *log.Logger
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = time.Minute
	}

	s := &Server{
		deps:    deps,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(deps.RateLimit),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.deps.RequestTimeout))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/validation", s.handleValidation)
		r.Get("/ledgers/consolidated", s.handleConsolidated)
		r.Get("/export.xlsx", s.handleExport)
		r.Get("/stats", s.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(func(w http.ResponseWriter, r *http.Request) {
				s.logger.WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, r.RemoteAddr,
					log.FieldPath, r.URL.Path)
				TooManyRequestsError().Write(w)
			}))
			r.Post("/etl", s.handleETL)
			r.Post("/records/{domain}", s.handleCreateRecord)
			r.Post("/records/{domain}/{id}/{action}", s.handleTransition)
		})
	})

	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
