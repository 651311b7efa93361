package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/b1411/finka/internal/cache"
	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/metrics"
	"github.com/b1411/finka/internal/staging"
)

// Service validates a scope read from a repository. Results are cached per
// scope when a cache is configured.
type Service struct {
	reader  staging.SnapshotReader
	orch    *Orchestrator
	logger  *log.Logger
	metrics *metrics.Metrics
	cache   *cache.LRUCache[Result]
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentValidation) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache keeps results for ttl. A non-positive ttl disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = cache.NewLRUCache[Result](size, ttl)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(reader staging.SnapshotReader, orch *Orchestrator, opts ...Option) *Service {
	s := &Service{
		reader: reader,
		orch:   orch,
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate loads every record of the scope, whatever its status, and runs
// the orchestrator over it.
func (s *Service) Validate(ctx context.Context, scope core.Scope) (Result, error) {
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}

	key := cache.ScopeKey(scope.OrgUnitCode, scope.PeriodYM)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			return res, nil
		}
	}

	snap, err := s.reader.LoadSnapshot(ctx, scope, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load records for validation",
			log.FieldOrgUnit, scope.OrgUnitCode,
			log.FieldPeriod, scope.PeriodYM,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return Result{}, fmt.Errorf("load records: %w", err)
	}

	res := s.orch.Run(scope, snap, s.now())
	s.metrics.ObserveValidation(res.IsValid, res.Summary.ErrorCount, res.Summary.WarningCount, res.Summary.InfoCount)
	s.logger.InfoContext(ctx, "Scope validated",
		log.FieldOperation, log.OpValidate,
		log.FieldOrgUnit, scope.OrgUnitCode,
		log.FieldPeriod, scope.PeriodYM,
		log.FieldRecords, res.Summary.TotalRecords,
		log.FieldErrorCount, res.Summary.ErrorCount,
		log.FieldWarningCount, res.Summary.WarningCount,
		"valid", res.IsValid)

	if s.cache != nil {
		s.cache.Set(key, res)
	}
	return res, nil
}

// Invalidate drops the cached result of a scope after its records change.
func (s *Service) Invalidate(org string, period core.PeriodYM) {
	if s.cache != nil {
		s.cache.Delete(cache.ScopeKey(org, period))
	}
}

// Caches returns the service's caches for periodic cleanup.
func (s *Service) Caches() []cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return []cache.Cleaner{s.cache}
}
