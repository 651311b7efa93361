package validation

import (
	"strings"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/rules"
)

// ValidateRecord runs the field-level checks for a single record: required
// values, signs of amounts and date ordering. It does not look at siblings.
func ValidateRecord(rec core.Record) []Issue {
	v := fieldChecker{domain: rec.Domain(), id: rec.Base().ID}

	m := rec.Base()
	v.require("org_unit_code", m.OrgUnitCode)
	if err := m.PeriodYM.Validate(); err != nil {
		v.add("period_ym", "period must be in YYYY-MM form")
	}

	switch r := rec.(type) {
	case core.Contingent:
		v.require("grade_level", r.GradeLevel)
		v.require("funding_source", string(r.FundingSource))
		if r.StudentCount < 0 {
			v.add("student_count", "student count cannot be negative")
		}
		if r.TariffAmount.Valid && r.TariffAmount.Decimal.IsNegative() {
			v.add("tariff_amount", "tariff cannot be negative")
		}
		if r.FundingSource == core.FundingPU && (!r.TariffAmount.Valid || !r.TariffAmount.Decimal.IsPositive()) {
			v.add("tariff_amount", "paid classes require a tariff greater than zero")
		}

	case core.IncomeAccrual:
		v.require("funding_source", string(r.FundingSource))
		v.require("article_code", r.ArticleCode)
		if !r.AccrualAmount.IsPositive() {
			v.add("accrual_amount", "accrual amount must be positive")
		}
		if r.AccrualDate.IsZero() {
			v.add("accrual_date", "accrual date is required")
		}

	case core.CashSchedule:
		v.require("funding_source", string(r.FundingSource))
		v.require("article_code", r.ArticleCode)
		if !r.Amount.IsPositive() {
			v.add("amount", "amount must be positive")
		}
		if r.ExpectedDate.IsZero() {
			v.add("expected_date", "expected date is required")
		}
		if !r.DocDate.IsZero() && !r.PaymentDate.IsZero() && r.DocDate.After(r.PaymentDate.Time) {
			v.add("doc_date", "document date cannot be after payment date")
		}

	case core.Staffing:
		v.require("employee_id", r.EmployeeID)
		v.require("full_name", r.FullName)
		v.require("position", r.Position)
		if r.BaseSalary.IsNegative() || r.Bonus.IsNegative() || r.Allowances.IsNegative() {
			v.add("base_salary", "salary components cannot be negative")
		}

	case core.Trip:
		v.require("employee_name", r.EmployeeName)
		v.require("destination", r.Destination)
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			v.add("start_date", "trip dates are required")
		} else if r.EndDate.Before(r.StartDate.Time) {
			v.add("end_date", "end date cannot be before start date")
		}
		if r.TotalAmount.IsNegative() {
			v.add("total_amount", "trip amount cannot be negative")
		}

	case core.UtilityCalculation:
		v.require("service_name", r.ServiceName)
		v.require("calculation_method", r.CalculationMethod)
		if r.CalculationDate.IsZero() {
			v.add("calculation_date", "calculation date is required")
		}
		if r.CalculatedAmount.IsNegative() {
			v.add("calculated_amount", "calculated amount cannot be negative")
		}
	}

	return v.issues
}

type fieldChecker struct {
	domain core.Domain
	id     string
	issues []Issue
}

func (v *fieldChecker) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, field+" is required")
	}
}

func (v *fieldChecker) add(field, msg string) {
	v.issues = append(v.issues, Issue{
		Module:   string(v.domain),
		Field:    field,
		Message:  msg,
		Severity: SeverityError,
		Kind:     rules.KindField,
		RecordID: v.id,
	})
}
