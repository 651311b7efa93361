package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/metrics"
	"github.com/b1411/finka/internal/staging"
	"github.com/google/uuid"
)

// ProcessedRecords counts the lines produced by each stage.
type ProcessedRecords struct {
	Revenues     int `json:"revenues"`
	CashFlows    int `json:"cash_flows"`
	Consolidated int `json:"consolidated"`
}

// RunResult reports one full ETL run. Nothing in it has been persisted.
type RunResult struct {
	RunID            string                  `json:"run_id"`
	Scope            core.Scope              `json:"scope"`
	Success          bool                    `json:"success"`
	ProcessedRecords ProcessedRecords        `json:"processed_records"`
	Errors           []string                `json:"errors"`
	Revenues         []core.BudgetLine       `json:"revenues"`
	CashFlows        []core.CashFlowLine     `json:"cash_flows"`
	Consolidated     []core.ConsolidatedLine `json:"consolidated"`
	DroppedCashFlows int                     `json:"dropped_cash_flows"`
	StartedAt        time.Time               `json:"started_at"`
	Duration         time.Duration           `json:"duration"`
}

// Ledgers returns the produced lines in publishable form.
func (r RunResult) Ledgers() core.Ledgers {
	return core.Ledgers{Revenues: r.Revenues, CashFlows: r.CashFlows, Consolidated: r.Consolidated}
}

// Pipeline reads approved staging records and maps them into ledgers.
type Pipeline struct {
	reader  staging.SnapshotReader
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPipeline creates a pipeline. logger and m may be nil.
func NewPipeline(reader staging.SnapshotReader, logger *log.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = log.Discard()
	}
	return &Pipeline{
		reader:  reader,
		logger:  logger.WithComponent(log.ComponentETL),
		metrics: m,
		now:     time.Now,
	}
}

func (p *Pipeline) load(ctx context.Context, scope core.Scope) (core.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return core.Snapshot{}, err
	}
	snap, err := p.reader.LoadSnapshot(ctx, scope, core.StatusApproved)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load approved records: %w", err)
	}
	return snap, nil
}

// AggregateRevenuesToBDR maps the approved contingent and accruals of a
// branch and period into BDR revenue lines.
func (p *Pipeline) AggregateRevenuesToBDR(ctx context.Context, org string, period core.PeriodYM) ([]core.BudgetLine, error) {
	scope := core.Scope{OrgUnitCode: org, PeriodYM: period}
	snap, err := p.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	lines := MapRevenues(scope, snap)
	p.logger.DebugContext(ctx, "Revenues aggregated",
		log.FieldOperation, log.OpAggregate,
		log.FieldOrgUnit, org,
		log.FieldPeriod, period,
		log.FieldRecords, len(lines))
	return lines, nil
}

// AggregateCashFlowToDDS maps the approved cash schedule into DDS lines.
func (p *Pipeline) AggregateCashFlowToDDS(ctx context.Context, org string, period core.PeriodYM) ([]core.CashFlowLine, error) {
	scope := core.Scope{OrgUnitCode: org, PeriodYM: period}
	snap, err := p.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	lines := MapCashFlows(scope, snap)
	p.logger.DebugContext(ctx, "Cash flows aggregated",
		log.FieldOperation, log.OpAggregate,
		log.FieldOrgUnit, org,
		log.FieldPeriod, period,
		log.FieldRecords, len(lines))
	return lines, nil
}

// ConsolidateDataToFOT builds the FOT lines of a branch and period. Without
// both an org and a period there is nothing to consolidate and the result
// is empty.
func (p *Pipeline) ConsolidateDataToFOT(ctx context.Context, org string, period core.PeriodYM) ([]core.ConsolidatedLine, error) {
	if org == "" || period == "" {
		p.logger.WarnContext(ctx, "Consolidation across branches or periods is not supported",
			log.FieldOrgUnit, org,
			log.FieldPeriod, period)
		return []core.ConsolidatedLine{}, nil
	}
	scope := core.Scope{OrgUnitCode: org, PeriodYM: period}
	snap, err := p.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	lines, dropped := Consolidate(scope, MapRevenues(scope, snap), MapCashFlows(scope, snap))
	if dropped > 0 {
		p.logger.WarnContext(ctx, "Cash flows without matching revenue dropped",
			log.FieldOperation, log.OpConsolidate,
			log.FieldOrgUnit, org,
			log.FieldPeriod, period,
			"dropped", dropped)
	}
	return lines, nil
}

// RunFullETLProcess runs all three stages over one snapshot of the scope.
// Failures, including panics, are reported in RunResult.Errors.
func (p *Pipeline) RunFullETLProcess(ctx context.Context, scope core.Scope) (res RunResult) {
	res = RunResult{
		RunID:        uuid.NewString(),
		Scope:        scope,
		Errors:       []string{},
		Revenues:     []core.BudgetLine{},
		CashFlows:    []core.CashFlowLine{},
		Consolidated: []core.ConsolidatedLine{},
		StartedAt:    p.now(),
	}
	logger := p.logger.ForScope(scope.OrgUnitCode, string(scope.PeriodYM)).With(log.FieldRunID, res.RunID)
	logger.InfoContext(ctx, "ETL run started", log.FieldUserID, scope.UserID)

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Errors = append(res.Errors, fmt.Sprintf("pipeline panic: %v", r))
		}
		res.Duration = p.now().Sub(res.StartedAt)
		p.metrics.ObserveETL(res.Success, res.ProcessedRecords.Revenues, res.ProcessedRecords.CashFlows,
			res.ProcessedRecords.Consolidated, res.DroppedCashFlows, res.Duration)
		if res.Success {
			logger.InfoContext(ctx, "ETL run completed",
				"revenues", res.ProcessedRecords.Revenues,
				"cash_flows", res.ProcessedRecords.CashFlows,
				"consolidated", res.ProcessedRecords.Consolidated,
				"dropped_cash_flows", res.DroppedCashFlows,
				log.FieldDuration, res.Duration.Milliseconds())
		} else {
			logger.ErrorContext(ctx, "ETL run failed",
				log.FieldErrorCount, len(res.Errors),
				log.FieldError, res.Errors)
		}
	}()

	snap, err := p.load(ctx, scope)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	res.Revenues = MapRevenues(scope, snap)
	res.ProcessedRecords.Revenues = len(res.Revenues)

	res.CashFlows = MapCashFlows(scope, snap)
	res.ProcessedRecords.CashFlows = len(res.CashFlows)

	res.Consolidated, res.DroppedCashFlows = Consolidate(scope, res.Revenues, res.CashFlows)
	res.ProcessedRecords.Consolidated = len(res.Consolidated)

	res.Success = true
	return res
}
