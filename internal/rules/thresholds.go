package rules

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Thresholds holds every limit the rule library and the cross-module
// checks compare against. Money values are in tenge.
type Thresholds struct {
	MaxStudentsPerClass int `toml:"max_students_per_class"`
	MinStudentsPerClass int `toml:"min_students_per_class"`

	MinAccrualAmount         decimal.Decimal `toml:"min_accrual_amount"`
	MaxAccrualAmount         decimal.Decimal `toml:"max_accrual_amount"`
	DuplicateAmountTolerance decimal.Decimal `toml:"duplicate_amount_tolerance"`

	MinSalary       decimal.Decimal `toml:"min_salary"`
	MaxSalary       decimal.Decimal `toml:"max_salary"`
	MaxBonusPercent decimal.Decimal `toml:"max_bonus_percent"`

	MinTripDays   int             `toml:"min_trip_days"`
	MaxTripDays   int             `toml:"max_trip_days"`
	MaxTripAmount decimal.Decimal `toml:"max_trip_amount"`

	MinUtilityAmount decimal.Decimal `toml:"min_utility_amount"`
	MaxUtilityAmount decimal.Decimal `toml:"max_utility_amount"`

	SocialTaxRate decimal.Decimal `toml:"social_tax_rate"`
	PensionRate   decimal.Decimal `toml:"pension_rate"`

	DomesticDailyAllowance      decimal.Decimal `toml:"domestic_daily_allowance"`
	InternationalDailyAllowance decimal.Decimal `toml:"international_daily_allowance"`

	// ExpectedRevenuePerStudent is a rough average used only for the
	// revenue-vs-contingent warning.
	ExpectedRevenuePerStudent decimal.Decimal `toml:"expected_revenue_per_student"`
	RevenueDeviationLimit     decimal.Decimal `toml:"revenue_deviation_limit"`

	MinStudentStaffRatio   decimal.Decimal `toml:"min_student_staff_ratio"`
	MaxStudentStaffRatio   decimal.Decimal `toml:"max_student_staff_ratio"`
	IdealStudentStaffRatio decimal.Decimal `toml:"ideal_student_staff_ratio"`

	MinBudgetMarginPercent decimal.Decimal `toml:"min_budget_margin_percent"`
	CashFlowTolerance      decimal.Decimal `toml:"cash_flow_tolerance"`
}

// DefaultThresholds returns the production limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxStudentsPerClass: 30,
		MinStudentsPerClass: 15,

		MinAccrualAmount:         decimal.NewFromInt(1_000),
		MaxAccrualAmount:         decimal.NewFromInt(50_000_000),
		DuplicateAmountTolerance: decimal.NewFromInt(1),

		MinSalary:       decimal.NewFromInt(85_000),
		MaxSalary:       decimal.NewFromInt(2_000_000),
		MaxBonusPercent: decimal.NewFromInt(100),

		MinTripDays:   1,
		MaxTripDays:   30,
		MaxTripAmount: decimal.NewFromInt(500_000),

		MinUtilityAmount: decimal.NewFromInt(10_000),
		MaxUtilityAmount: decimal.NewFromInt(5_000_000),

		SocialTaxRate: decimal.RequireFromString("0.095"),
		PensionRate:   decimal.RequireFromString("0.10"),

		DomesticDailyAllowance:      decimal.NewFromInt(8_000),
		InternationalDailyAllowance: decimal.NewFromInt(25_000),

		ExpectedRevenuePerStudent: decimal.NewFromInt(500_000),
		RevenueDeviationLimit:     decimal.RequireFromString("0.5"),

		MinStudentStaffRatio:   decimal.NewFromInt(8),
		MaxStudentStaffRatio:   decimal.NewFromInt(25),
		IdealStudentStaffRatio: decimal.NewFromInt(15),

		MinBudgetMarginPercent: decimal.NewFromInt(5),
		CashFlowTolerance:      decimal.RequireFromString("0.01"),
	}
}

// LoadThresholds reads a TOML file and overlays it on the defaults.
// Keys missing from the file keep their default values.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return Thresholds{}, fmt.Errorf("decode thresholds %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Thresholds{}, fmt.Errorf("decode thresholds %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate checks that every min/max pair is ordered.
func (t Thresholds) Validate() error {
	var errors []string

	if t.MinStudentsPerClass > t.MaxStudentsPerClass {
		errors = append(errors, fmt.Sprintf("min students %d exceeds max %d", t.MinStudentsPerClass, t.MaxStudentsPerClass))
	}
	if t.MinTripDays > t.MaxTripDays {
		errors = append(errors, fmt.Sprintf("min trip days %d exceeds max %d", t.MinTripDays, t.MaxTripDays))
	}
	pairs := []struct {
		name     string
		min, max decimal.Decimal
	}{
		{"accrual amount", t.MinAccrualAmount, t.MaxAccrualAmount},
		{"salary", t.MinSalary, t.MaxSalary},
		{"utility amount", t.MinUtilityAmount, t.MaxUtilityAmount},
		{"student/staff ratio", t.MinStudentStaffRatio, t.MaxStudentStaffRatio},
	}
	for _, p := range pairs {
		if p.min.GreaterThan(p.max) {
			errors = append(errors, fmt.Sprintf("min %s %s exceeds max %s", p.name, p.min, p.max))
		}
	}
	if t.CashFlowTolerance.IsNegative() {
		errors = append(errors, "cash flow tolerance must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("threshold validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
