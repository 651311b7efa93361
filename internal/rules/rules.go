// Package rules holds the per-record business rules for staging data.
//
// Every rule takes the candidate record and its siblings: the other
// records of the same domain, never including the candidate itself.
package rules

import (
	"fmt"
	"math"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
)

// ErrorKind tells range failures apart from duplicate detection.
type ErrorKind string

const (
	KindField      ErrorKind = "field"
	KindUniqueness ErrorKind = "uniqueness"
)

// Result is the outcome of a single rule.
type Result struct {
	IsValid bool      `json:"is_valid"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

func pass() Result { return Result{IsValid: true} }

func fail(kind ErrorKind, format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...), Kind: kind}
}

// Library evaluates rules against a set of thresholds.
type Library struct {
	t Thresholds
}

func New(t Thresholds) *Library {
	return &Library{t: t}
}

// Default returns a library configured with DefaultThresholds.
func Default() *Library {
	return New(DefaultThresholds())
}

func (l *Library) Thresholds() Thresholds { return l.t }

// ValidateStudentCount checks class size. The preparatory grade has no minimum.
func (l *Library) ValidateStudentCount(count int, gradeLevel string) Result {
	if count > l.t.MaxStudentsPerClass {
		return fail(KindField, "class has %d students, maximum is %d", count, l.t.MaxStudentsPerClass)
	}
	if count < l.t.MinStudentsPerClass && gradeLevel != core.PreparatoryGrade {
		return fail(KindField, "class has %d students, minimum is %d", count, l.t.MinStudentsPerClass)
	}
	return pass()
}

// ValidateUniqueClass rejects a second class with the same grade, profile
// and language in one branch and period.
func (l *Library) ValidateUniqueClass(c core.Contingent, siblings []core.Contingent) Result {
	for _, s := range siblings {
		if s.GradeLevel == c.GradeLevel &&
			s.EducationProfile == c.EducationProfile &&
			s.Language == c.Language &&
			s.OrgUnitCode == c.OrgUnitCode &&
			s.PeriodYM == c.PeriodYM {
			return fail(KindUniqueness, "class %s/%s/%s already exists for %s in %s",
				c.GradeLevel, c.EducationProfile, c.Language, c.OrgUnitCode, c.PeriodYM)
		}
	}
	return pass()
}

func (l *Library) ValidateAccrual(a core.IncomeAccrual, siblings []core.IncomeAccrual) Result {
	if a.AccrualAmount.GreaterThan(l.t.MaxAccrualAmount) {
		return fail(KindField, "accrual amount %s exceeds maximum %s", a.AccrualAmount, l.t.MaxAccrualAmount)
	}
	if a.AccrualAmount.LessThan(l.t.MinAccrualAmount) {
		return fail(KindField, "accrual amount %s is below minimum %s", a.AccrualAmount, l.t.MinAccrualAmount)
	}
	for _, s := range siblings {
		if s.FundingSource == a.FundingSource &&
			s.AccrualDate.SameDay(a.AccrualDate) &&
			s.OrgUnitCode == a.OrgUnitCode &&
			s.AccrualAmount.Sub(a.AccrualAmount).Abs().LessThan(l.t.DuplicateAmountTolerance) {
			return fail(KindUniqueness, "duplicate %s accrual of %s on %s", a.FundingSource, a.AccrualAmount, a.AccrualDate)
		}
	}
	return pass()
}

// ValidateCashSchedule applies the accrual ceiling to planned receipts and
// rejects two receipts from one funding source expected on the same day.
func (l *Library) ValidateCashSchedule(c core.CashSchedule, siblings []core.CashSchedule) Result {
	if c.Amount.GreaterThan(l.t.MaxAccrualAmount) {
		return fail(KindField, "receipt amount %s exceeds maximum %s", c.Amount, l.t.MaxAccrualAmount)
	}
	for _, s := range siblings {
		if s.FundingSource == c.FundingSource &&
			s.ExpectedDate.SameDay(c.ExpectedDate) &&
			s.OrgUnitCode == c.OrgUnitCode {
			return fail(KindUniqueness, "receipt from %s already scheduled for %s", c.FundingSource, c.ExpectedDate)
		}
	}
	return pass()
}

func (l *Library) ValidateEmployee(e core.Staffing, siblings []core.Staffing) Result {
	for _, s := range siblings {
		if s.EmployeeID == e.EmployeeID && s.OrgUnitCode == e.OrgUnitCode && s.PeriodYM == e.PeriodYM {
			return fail(KindUniqueness, "employee %s already listed for %s in %s", e.EmployeeID, e.OrgUnitCode, e.PeriodYM)
		}
	}
	if e.BaseSalary.GreaterThan(l.t.MaxSalary) {
		return fail(KindField, "base salary %s exceeds maximum %s", e.BaseSalary, l.t.MaxSalary)
	}
	if e.BaseSalary.LessThan(l.t.MinSalary) {
		return fail(KindField, "base salary %s is below the minimum wage %s", e.BaseSalary, l.t.MinSalary)
	}
	maxBonus := e.BaseSalary.Mul(l.t.MaxBonusPercent).Div(decimal.NewFromInt(100))
	if e.Bonus.GreaterThan(maxBonus) {
		return fail(KindField, "bonus %s exceeds %s%% of base salary", e.Bonus, l.t.MaxBonusPercent)
	}
	return pass()
}

func (l *Library) ValidateTrip(t core.Trip, siblings []core.Trip) Result {
	days := TripDays(t.StartDate, t.EndDate)
	if days < l.t.MinTripDays {
		return fail(KindField, "trip lasts %d days, minimum is %d", days, l.t.MinTripDays)
	}
	if days > l.t.MaxTripDays {
		return fail(KindField, "trip lasts %d days, maximum is %d", days, l.t.MaxTripDays)
	}
	if t.TotalAmount.GreaterThan(l.t.MaxTripAmount) {
		return fail(KindField, "trip amount %s exceeds maximum %s", t.TotalAmount, l.t.MaxTripAmount)
	}
	for _, s := range siblings {
		if s.EmployeeName == t.EmployeeName && Overlaps(s, t) {
			return fail(KindUniqueness, "%s already travels to %s between %s and %s",
				t.EmployeeName, s.Destination, s.StartDate, s.EndDate)
		}
	}
	return pass()
}

func (l *Library) ValidateUtilityCalculation(c core.UtilityCalculation, siblings []core.UtilityCalculation) Result {
	if c.CalculatedAmount.LessThan(l.t.MinUtilityAmount) {
		return fail(KindField, "utility amount %s is below minimum %s", c.CalculatedAmount, l.t.MinUtilityAmount)
	}
	if c.CalculatedAmount.GreaterThan(l.t.MaxUtilityAmount) {
		return fail(KindField, "utility amount %s exceeds maximum %s", c.CalculatedAmount, l.t.MaxUtilityAmount)
	}
	month := c.CalculationDate.YearMonth()
	for _, s := range siblings {
		if s.ServiceName == c.ServiceName && s.CalculationDate.YearMonth() == month {
			return fail(KindUniqueness, "%s already calculated for %s", c.ServiceName, month)
		}
	}
	return pass()
}

// Overlaps reports whether two trips share at least one calendar day.
// Both intervals are inclusive.
func Overlaps(a, b core.Trip) bool {
	return !a.StartDate.After(b.EndDate.Time) && !b.StartDate.After(a.EndDate.Time)
}

// TripDays is the trip length in whole days, rounding partial days up.
func TripDays(start, end core.Date) int {
	return int(math.Ceil(end.Sub(start.Time).Hours() / 24))
}

// Taxes is the payroll deduction breakdown for one employee.
type Taxes struct {
	Gross           decimal.Decimal `json:"gross"`
	SocialTax       decimal.Decimal `json:"social_tax"`
	Pension         decimal.Decimal `json:"pension"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	Net             decimal.Decimal `json:"net"`
}

func (l *Library) CalculateTaxes(base, bonus, allowances decimal.Decimal) Taxes {
	gross := base.Add(bonus).Add(allowances)
	social := gross.Mul(l.t.SocialTaxRate).Round(0)
	pension := gross.Mul(l.t.PensionRate).Round(0)
	total := social.Add(pension)
	return Taxes{
		Gross:           gross,
		SocialTax:       social,
		Pension:         pension,
		TotalDeductions: total,
		Net:             gross.Sub(total),
	}
}

// Allowance is the per-diem owed for a trip.
type Allowance struct {
	Days  int             `json:"days"`
	Rate  decimal.Decimal `json:"rate"`
	Total decimal.Decimal `json:"total"`
}

func (l *Library) CalculateDailyAllowances(start, end core.Date, international bool) Allowance {
	days := TripDays(start, end)
	rate := l.t.DomesticDailyAllowance
	if international {
		rate = l.t.InternationalDailyAllowance
	}
	return Allowance{
		Days:  days,
		Rate:  rate,
		Total: rate.Mul(decimal.NewFromInt(int64(days))),
	}
}
