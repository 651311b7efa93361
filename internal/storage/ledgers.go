package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/b1411/finka/internal/core"
)

var ledgerTables = []string{"bdr_revenue", "dds_cash_flow", "fot_consolidated"}

// PublishLedgers replaces every ledger line of the scope inside one
// transaction. On error the previously published lines stay in place.
func (r *SQLiteRepository) PublishLedgers(ctx context.Context, scope core.Scope, l core.Ledgers) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range ledgerTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE org_unit_code = ? AND period_ym = ?",
			scope.OrgUnitCode, string(scope.PeriodYM)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}

	for _, line := range l.Revenues {
		if _, err = tx.ExecContext(ctx, `INSERT INTO bdr_revenue
			(id, org_unit_code, period_ym, user_id, revenue_type, funding_source, article_code,
			 planned_amount, actual_amount, calculation_base, source_table, source_record_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, line.OrgUnitCode, string(line.PeriodYM), line.UserID, line.RevenueType, string(line.FundingSource), line.ArticleCode,
			line.PlannedAmount, line.ActualAmount, line.CalculationBase, line.SourceTable, line.SourceRecordID); err != nil {
			return fmt.Errorf("insert revenue %s: %w", line.ID, err)
		}
	}

	for _, line := range l.CashFlows {
		if _, err = tx.ExecContext(ctx, `INSERT INTO dds_cash_flow
			(id, org_unit_code, period_ym, user_id, flow_type, funding_source, article_code,
			 planned_amount, actual_amount, transaction_date, document_date, payment_method,
			 description, source_table, source_record_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, line.OrgUnitCode, string(line.PeriodYM), line.UserID, line.FlowType, string(line.FundingSource), line.ArticleCode,
			line.PlannedAmount, line.ActualAmount, line.TransactionDate, line.DocumentDate, line.PaymentMethod,
			line.Description, line.SourceTable, line.SourceRecordID); err != nil {
			return fmt.Errorf("insert cash flow %s: %w", line.ID, err)
		}
	}

	for _, line := range l.Consolidated {
		var rules []byte
		if rules, err = json.Marshal(line.ConsolidationRules); err != nil {
			return fmt.Errorf("encode rules for %s: %w", line.ID, err)
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO fot_consolidated
			(id, org_unit_code, period_ym, funding_source, article_code,
			 planned_revenue, actual_revenue, planned_expenses, actual_expenses,
			 planned_cash_flow, actual_cash_flow, consolidation_rules)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, line.OrgUnitCode, string(line.PeriodYM), string(line.FundingSource), line.ArticleCode,
			line.PlannedRevenue, line.ActualRevenue, line.PlannedExpenses, line.ActualExpenses,
			line.PlannedCashFlow, line.ActualCashFlow, string(rules)); err != nil {
			return fmt.Errorf("insert consolidated %s: %w", line.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}

	slog.InfoContext(ctx, "Ledgers published",
		"org_unit_code", scope.OrgUnitCode,
		"period_ym", scope.PeriodYM,
		"revenues", len(l.Revenues),
		"cash_flows", len(l.CashFlows),
		"consolidated", len(l.Consolidated))
	return nil
}

// Ledgers returns the published ledger lines of a scope ordered by id.
func (r *SQLiteRepository) Ledgers(ctx context.Context, scope core.Scope) (core.Ledgers, error) {
	var l core.Ledgers
	args := []any{scope.OrgUnitCode, string(scope.PeriodYM)}

	err := r.each(ctx, `SELECT id, org_unit_code, period_ym, user_id, revenue_type, funding_source, article_code,
		planned_amount, actual_amount, calculation_base, source_table, source_record_id
		FROM bdr_revenue WHERE org_unit_code = ? AND period_ym = ? ORDER BY id`, args, func(scan scanFunc) error {
		var b core.BudgetLine
		if err := scan(&b.ID, &b.OrgUnitCode, &b.PeriodYM, &b.UserID, &b.RevenueType, &b.FundingSource, &b.ArticleCode,
			&b.PlannedAmount, &b.ActualAmount, &b.CalculationBase, &b.SourceTable, &b.SourceRecordID); err != nil {
			return err
		}
		l.Revenues = append(l.Revenues, b)
		return nil
	})
	if err != nil {
		return core.Ledgers{}, fmt.Errorf("read revenues: %w", err)
	}

	err = r.each(ctx, `SELECT id, org_unit_code, period_ym, user_id, flow_type, funding_source, article_code,
		planned_amount, actual_amount, transaction_date, document_date, payment_method,
		description, source_table, source_record_id
		FROM dds_cash_flow WHERE org_unit_code = ? AND period_ym = ? ORDER BY id`, args, func(scan scanFunc) error {
		var c core.CashFlowLine
		if err := scan(&c.ID, &c.OrgUnitCode, &c.PeriodYM, &c.UserID, &c.FlowType, &c.FundingSource, &c.ArticleCode,
			&c.PlannedAmount, &c.ActualAmount, &c.TransactionDate, &c.DocumentDate, &c.PaymentMethod,
			&c.Description, &c.SourceTable, &c.SourceRecordID); err != nil {
			return err
		}
		l.CashFlows = append(l.CashFlows, c)
		return nil
	})
	if err != nil {
		return core.Ledgers{}, fmt.Errorf("read cash flows: %w", err)
	}

	err = r.each(ctx, `SELECT id, org_unit_code, period_ym, funding_source, article_code,
		planned_revenue, actual_revenue, planned_expenses, actual_expenses,
		planned_cash_flow, actual_cash_flow, consolidation_rules
		FROM fot_consolidated WHERE org_unit_code = ? AND period_ym = ? ORDER BY id`, args, func(scan scanFunc) error {
		var f core.ConsolidatedLine
		var rules string
		if err := scan(&f.ID, &f.OrgUnitCode, &f.PeriodYM, &f.FundingSource, &f.ArticleCode,
			&f.PlannedRevenue, &f.ActualRevenue, &f.PlannedExpenses, &f.ActualExpenses,
			&f.PlannedCashFlow, &f.ActualCashFlow, &rules); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(rules), &f.ConsolidationRules); err != nil {
			return fmt.Errorf("decode rules for %s: %w", f.ID, err)
		}
		l.Consolidated = append(l.Consolidated, f)
		return nil
	})
	if err != nil {
		return core.Ledgers{}, fmt.Errorf("read consolidated: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) each(ctx context.Context, query string, args []any, fn func(scanFunc) error) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}
