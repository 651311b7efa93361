// Package worker rebuilds and publishes ledgers in response to queued
// ETL requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/b1411/finka/internal/amqp"
	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/etl"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/metrics"
	"github.com/b1411/finka/internal/sheets"
	"github.com/b1411/finka/internal/staging"
)

// Runner produces ledgers for a scope. *etl.Pipeline implements it.
type Runner interface {
	RunFullETLProcess(ctx context.Context, scope core.Scope) etl.RunResult
}

// ETLWorker runs the pipeline, replaces the scope's published ledgers and
// optionally mirrors them to a spreadsheet.
type ETLWorker struct {
	runner    Runner
	publisher staging.LedgerPublisher
	periods   staging.Counter
	exporter  sheets.LedgerExporter
	metrics   *metrics.Metrics
	logger    *log.Logger
}

// NewETLWorker wires a worker. exporter, m and logger may be nil.
func NewETLWorker(runner Runner, publisher staging.LedgerPublisher, periods staging.Counter, exporter sheets.LedgerExporter, m *metrics.Metrics, logger *log.Logger) *ETLWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ETLWorker{
		runner:    runner,
		publisher: publisher,
		periods:   periods,
		exporter:  exporter,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleETLRequest processes one queued request. A returned error makes the
// consumer requeue the message.
func (w *ETLWorker) HandleETLRequest(ctx context.Context, msg *amqp.ETLRequestMessage) error {
	_, err := w.Process(ctx, msg.Scope())
	return err
}

// Process runs the pipeline for scope and publishes the result. A failed run
// leaves the previously published ledgers untouched.
func (w *ETLWorker) Process(ctx context.Context, scope core.Scope) (etl.RunResult, error) {
	logger := w.logger.ForScope(scope.OrgUnitCode, string(scope.PeriodYM))

	res := w.runner.RunFullETLProcess(ctx, scope)
	if !res.Success {
		return res, fmt.Errorf("etl run %s: %s", res.RunID, strings.Join(res.Errors, "; "))
	}

	if err := w.publisher.PublishLedgers(ctx, scope, res.Ledgers()); err != nil {
		w.metrics.ObservePublication(false)
		logger.ErrorContext(ctx, "Failed to publish ledgers",
			log.FieldRunID, res.RunID,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return res, fmt.Errorf("publish ledgers: %w", err)
	}
	w.metrics.ObservePublication(true)

	logger.InfoContext(ctx, "Ledgers published",
		log.FieldOperation, log.OpPublish,
		log.FieldRunID, res.RunID,
		"revenues", res.ProcessedRecords.Revenues,
		"cash_flows", res.ProcessedRecords.CashFlows,
		"consolidated", res.ProcessedRecords.Consolidated)

	if w.exporter != nil {
		// Spreadsheet export is best effort; the ledgers are already stored.
		if err := w.exporter.ExportLedgers(ctx, scope, res.Ledgers()); err != nil {
			logger.ErrorContext(ctx, "Failed to export ledgers to spreadsheet",
				log.FieldRunID, res.RunID,
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
		}
	}
	return res, nil
}

// RebuildOrg processes every period the branch has staging data for. It
// keeps going after a failed period and returns the joined errors.
func (w *ETLWorker) RebuildOrg(ctx context.Context, org string) (int, error) {
	periods, err := w.periods.Periods(ctx, org)
	if err != nil {
		return 0, fmt.Errorf("list periods: %w", err)
	}

	var errs []error
	done := 0
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := w.Process(ctx, core.Scope{OrgUnitCode: org, PeriodYM: p}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		done++
	}

	w.logger.InfoContext(ctx, "Branch rebuild finished",
		log.FieldOrgUnit, org,
		"periods", len(periods),
		"rebuilt", done,
		log.FieldErrorCount, len(errs))
	return done, errors.Join(errs...)
}
