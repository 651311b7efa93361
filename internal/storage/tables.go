package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/b1411/finka/internal/core"
)

// Timestamps are stored as fixed-width UTC text so MAX() and ORDER BY
// compare them correctly.
const tsLayout = "2006-01-02 15:04:05.000000000"

var metaColumns = []string{"id", "org_unit_code", "period_ym", "status", "user_id", "created_at", "updated_at"}

type scanFunc func(dest ...any) error

// table maps one staging domain onto its SQL table.
type table struct {
	domain  core.Domain
	columns []string
	values  func(core.Record) []any
	scan    func(scanFunc) (core.Record, error)
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

type metaRow struct {
	m                core.Meta
	created, updated string
}

func (r *metaRow) dest(extra ...any) []any {
	return append([]any{&r.m.ID, &r.m.OrgUnitCode, &r.m.PeriodYM, &r.m.Status, &r.m.UserID, &r.created, &r.updated}, extra...)
}

func (r *metaRow) meta() (core.Meta, error) {
	var err error
	if r.m.CreatedAt, err = parseTS(r.created); err != nil {
		return core.Meta{}, err
	}
	if r.m.UpdatedAt, err = parseTS(r.updated); err != nil {
		return core.Meta{}, err
	}
	return r.m, nil
}

func metaValues(m core.Meta, extra ...any) []any {
	return append([]any{m.ID, m.OrgUnitCode, string(m.PeriodYM), string(m.Status), m.UserID, formatTS(m.CreatedAt), formatTS(m.UpdatedAt)}, extra...)
}

func (t table) name() string { return t.domain.Table() }

func (t table) allColumns() []string {
	return append(append([]string{}, metaColumns...), t.columns...)
}

func (t table) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.allColumns(), ", "), t.name())
}

func (t table) upsertSQL() string {
	cols := t.allColumns()
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "id" || c == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		t.name(), strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(sets, ", "))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var tables = map[core.Domain]table{
	core.DomainContingent: {
		domain:  core.DomainContingent,
		columns: []string{"program_name", "grade_level", "education_profile", "study_language", "student_count", "funding_source", "tariff_amount", "calculation_note"},
		values: func(rec core.Record) []any {
			r := rec.(core.Contingent)
			return metaValues(r.Meta, r.ProgramName, r.GradeLevel, r.EducationProfile, r.Language, r.StudentCount, string(r.FundingSource), r.TariffAmount, r.CalculationNote)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.Contingent
			var mr metaRow
			if err := scan(mr.dest(&r.ProgramName, &r.GradeLevel, &r.EducationProfile, &r.Language, &r.StudentCount, &r.FundingSource, &r.TariffAmount, &r.CalculationNote)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
	core.DomainAccruals: {
		domain:  core.DomainAccruals,
		columns: []string{"funding_source", "article_code", "accrual_amount", "accrual_date", "calculation_base", "contingent_id"},
		values: func(rec core.Record) []any {
			r := rec.(core.IncomeAccrual)
			return metaValues(r.Meta, string(r.FundingSource), r.ArticleCode, r.AccrualAmount, r.AccrualDate, r.CalculationBase, r.ContingentID)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.IncomeAccrual
			var mr metaRow
			if err := scan(mr.dest(&r.FundingSource, &r.ArticleCode, &r.AccrualAmount, &r.AccrualDate, &r.CalculationBase, &r.ContingentID)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
	core.DomainCashSchedule: {
		domain:  core.DomainCashSchedule,
		columns: []string{"funding_source", "article_code", "amount", "expected_date", "payment_date", "doc_date", "payment_method", "receipt_status", "description", "accrual_id"},
		values: func(rec core.Record) []any {
			r := rec.(core.CashSchedule)
			return metaValues(r.Meta, string(r.FundingSource), r.ArticleCode, r.Amount, r.ExpectedDate, r.PaymentDate, r.DocDate, r.PaymentMethod, r.ReceiptStatus, r.Description, r.AccrualID)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.CashSchedule
			var mr metaRow
			if err := scan(mr.dest(&r.FundingSource, &r.ArticleCode, &r.Amount, &r.ExpectedDate, &r.PaymentDate, &r.DocDate, &r.PaymentMethod, &r.ReceiptStatus, &r.Description, &r.AccrualID)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
	core.DomainStaffing: {
		domain:  core.DomainStaffing,
		columns: []string{"employee_id", "full_name", "position", "department", "employment_status", "base_salary", "bonus", "allowances"},
		values: func(rec core.Record) []any {
			r := rec.(core.Staffing)
			return metaValues(r.Meta, r.EmployeeID, r.FullName, r.Position, r.Department, r.EmploymentStatus, r.BaseSalary, r.Bonus, r.Allowances)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.Staffing
			var mr metaRow
			if err := scan(mr.dest(&r.EmployeeID, &r.FullName, &r.Position, &r.Department, &r.EmploymentStatus, &r.BaseSalary, &r.Bonus, &r.Allowances)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
	core.DomainTrips: {
		domain:  core.DomainTrips,
		columns: []string{"employee_name", "destination", "purpose", "start_date", "end_date", "total_amount", "international", "funding_source", "article_code"},
		values: func(rec core.Record) []any {
			r := rec.(core.Trip)
			return metaValues(r.Meta, r.EmployeeName, r.Destination, r.Purpose, r.StartDate, r.EndDate, r.TotalAmount, r.International, string(r.FundingSource), r.ArticleCode)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.Trip
			var mr metaRow
			if err := scan(mr.dest(&r.EmployeeName, &r.Destination, &r.Purpose, &r.StartDate, &r.EndDate, &r.TotalAmount, &r.International, &r.FundingSource, &r.ArticleCode)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
	core.DomainCalculations: {
		domain:  core.DomainCalculations,
		columns: []string{"service_name", "calculation_method", "calculated_amount", "calculation_date", "funding_source", "article_code"},
		values: func(rec core.Record) []any {
			r := rec.(core.UtilityCalculation)
			return metaValues(r.Meta, r.ServiceName, r.CalculationMethod, r.CalculatedAmount, r.CalculationDate, string(r.FundingSource), r.ArticleCode)
		},
		scan: func(scan scanFunc) (core.Record, error) {
			var r core.UtilityCalculation
			var mr metaRow
			if err := scan(mr.dest(&r.ServiceName, &r.CalculationMethod, &r.CalculatedAmount, &r.CalculationDate, &r.FundingSource, &r.ArticleCode)...); err != nil {
				return nil, err
			}
			m, err := mr.meta()
			r.Meta = m
			return r, err
		},
	},
}

func tableFor(d core.Domain) (table, error) {
	t, ok := tables[d]
	if !ok {
		return table{}, fmt.Errorf("%w: %q", core.ErrUnknownDomain, d)
	}
	return t, nil
}
