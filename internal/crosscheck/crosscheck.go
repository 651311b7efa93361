// Package crosscheck runs consistency checks that span staging domains.
package crosscheck

import (
	"fmt"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/rules"
	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Check is the outcome of one cross-module check. A valid check may still
// carry an informational message.
type Check struct {
	IsValid  bool            `json:"is_valid"`
	Severity Severity        `json:"severity,omitempty"`
	Message  string          `json:"message,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	Margin   decimal.Decimal `json:"margin"`
}

var hundred = decimal.NewFromInt(100)

type Validator struct {
	t rules.Thresholds
}

func New(t rules.Thresholds) *Validator {
	return &Validator{t: t}
}

// ValidateRevenueVsContingent warns when accrued revenue strays too far
// from a per-student estimate.
func (v *Validator) ValidateRevenueVsContingent(contingent []core.Contingent, accruals []core.IncomeAccrual) Check {
	students := totalStudents(contingent)
	actual := sumAccruals(accruals)
	expected := v.t.ExpectedRevenuePerStudent.Mul(decimal.NewFromInt(int64(students)))
	if expected.IsZero() {
		if actual.IsPositive() {
			return Check{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("revenue %s accrued without contingent", actual.StringFixed(0)),
			}
		}
		return Check{IsValid: true}
	}

	deviation := actual.Sub(expected).Abs().Div(expected)
	if deviation.GreaterThan(v.t.RevenueDeviationLimit) {
		return Check{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("revenue %s deviates %s%% from the expected %s for %d students",
				actual.StringFixed(0), deviation.Mul(hundred).StringFixed(1), expected.StringFixed(0), students),
		}
	}
	return Check{IsValid: true}
}

// ValidateStaffingVsContingent compares students to active staff.
func (v *Validator) ValidateStaffingVsContingent(contingent []core.Contingent, staffing []core.Staffing) Check {
	students := totalStudents(contingent)
	active := 0
	for _, s := range staffing {
		if s.Active() {
			active++
		}
	}
	if students == 0 {
		return Check{IsValid: true}
	}
	if active == 0 {
		return Check{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d students and no active staff, target ratio is %s", students, v.t.IdealStudentStaffRatio),
		}
	}

	ratio := decimal.NewFromInt(int64(students)).Div(decimal.NewFromInt(int64(active)))
	switch {
	case ratio.LessThan(v.t.MinStudentStaffRatio):
		return Check{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("overstaffed: %s students per employee, below %s (target %s)",
				ratio.StringFixed(1), v.t.MinStudentStaffRatio, v.t.IdealStudentStaffRatio),
		}
	case ratio.GreaterThan(v.t.MaxStudentStaffRatio):
		return Check{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("understaffed: %s students per employee, above %s (target %s)",
				ratio.StringFixed(1), v.t.MaxStudentStaffRatio, v.t.IdealStudentStaffRatio),
		}
	}
	return Check{IsValid: true}
}

// ValidateBudgetBalance compares accrued revenue to payroll plus operating
// costs (trips and utilities).
func (v *Validator) ValidateBudgetBalance(accruals []core.IncomeAccrual, staffing []core.Staffing, trips []core.Trip, calcs []core.UtilityCalculation) Check {
	revenue := sumAccruals(accruals)

	salaries := decimal.Zero
	for _, s := range staffing {
		salaries = salaries.Add(s.TotalSalary())
	}
	opex := decimal.Zero
	for _, t := range trips {
		opex = opex.Add(t.TotalAmount)
	}
	for _, c := range calcs {
		opex = opex.Add(c.CalculatedAmount)
	}
	expenses := salaries.Add(opex)
	balance := revenue.Sub(expenses)

	if revenue.IsZero() && expenses.IsZero() {
		return Check{IsValid: true}
	}
	if balance.IsNegative() {
		return Check{
			Severity: SeverityError,
			Message:  fmt.Sprintf("budget deficit of %s: revenue %s, expenses %s", balance.Abs().StringFixed(0), revenue.StringFixed(0), expenses.StringFixed(0)),
			Balance:  balance,
		}
	}

	// Zero revenue without a deficit means expenses net to zero or below.
	if !revenue.IsPositive() {
		return Check{IsValid: true, Balance: balance}
	}

	margin := balance.Div(revenue).Mul(hundred)
	if margin.LessThan(v.t.MinBudgetMarginPercent) {
		return Check{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("low budget margin %s%%, minimum is %s%%", margin.StringFixed(1), v.t.MinBudgetMarginPercent),
			Balance:  balance,
			Margin:   margin,
		}
	}
	return Check{
		IsValid:  true,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("budget balanced: surplus %s, margin %s%%", balance.StringFixed(0), margin.StringFixed(1)),
		Balance:  balance,
		Margin:   margin,
	}
}

func totalStudents(contingent []core.Contingent) int {
	n := 0
	for _, c := range contingent {
		n += c.StudentCount
	}
	return n
}

func sumAccruals(accruals []core.IncomeAccrual) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accruals {
		sum = sum.Add(a.AccrualAmount)
	}
	return sum
}
