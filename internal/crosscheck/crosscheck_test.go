package crosscheck

import (
	"strings"
	"testing"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/rules"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func classes(counts ...int) []core.Contingent {
	out := make([]core.Contingent, 0, len(counts))
	for _, n := range counts {
		out = append(out, core.Contingent{StudentCount: n})
	}
	return out
}

func accruals(amounts ...int64) []core.IncomeAccrual {
	out := make([]core.IncomeAccrual, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, core.IncomeAccrual{AccrualAmount: dec(a)})
	}
	return out
}

func staff(active, inactive int) []core.Staffing {
	var out []core.Staffing
	for i := 0; i < active; i++ {
		out = append(out, core.Staffing{EmploymentStatus: core.EmploymentActive})
	}
	for i := 0; i < inactive; i++ {
		out = append(out, core.Staffing{EmploymentStatus: core.EmploymentTerminated})
	}
	return out
}

func TestValidateRevenueVsContingent(t *testing.T) {
	v := New(rules.DefaultThresholds())
	tests := []struct {
		name     string
		students []core.Contingent
		accruals []core.IncomeAccrual
		wantOK   bool
	}{
		{"revenue without students", nil, accruals(1000), false},
		{"nothing at all", nil, nil, true},
		{"on estimate", classes(20), accruals(10_000_000), true},
		{"within half", classes(20), accruals(6_000_000), true},
		{"far below", classes(20), accruals(4_000_000), false},
		{"far above", classes(20), accruals(16_000_000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateRevenueVsContingent(tt.students, tt.accruals)
			if got.IsValid != tt.wantOK {
				t.Errorf("ValidateRevenueVsContingent() = %+v, want valid=%v", got, tt.wantOK)
			}
			if !got.IsValid && got.Severity != SeverityWarning {
				t.Errorf("severity = %q, want warning", got.Severity)
			}
		})
	}
}

func TestValidateStaffingVsContingent(t *testing.T) {
	v := New(rules.DefaultThresholds())
	tests := []struct {
		name    string
		classes []core.Contingent
		staff   []core.Staffing
		wantOK  bool
		wantSub string
	}{
		{"ideal", classes(30), staff(2, 0), true, ""},
		{"overstaffed", classes(20), staff(5, 0), false, "overstaffed"},
		{"understaffed", classes(30, 30), staff(2, 0), false, "understaffed"},
		{"inactive staff ignored", classes(30, 30), staff(2, 10), false, "understaffed"},
		{"no staff", classes(20), nil, false, "no active staff"},
		{"empty branch", nil, nil, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateStaffingVsContingent(tt.classes, tt.staff)
			if got.IsValid != tt.wantOK {
				t.Fatalf("ValidateStaffingVsContingent() = %+v, want valid=%v", got, tt.wantOK)
			}
			if tt.wantSub != "" && !strings.Contains(got.Message, tt.wantSub) {
				t.Errorf("message %q does not mention %q", got.Message, tt.wantSub)
			}
		})
	}
}

func TestValidateBudgetBalance(t *testing.T) {
	v := New(rules.DefaultThresholds())
	salary := func(amount int64) []core.Staffing {
		return []core.Staffing{{BaseSalary: dec(amount)}}
	}
	trips := []core.Trip{{TotalAmount: dec(100_000)}}
	calcs := []core.UtilityCalculation{{CalculatedAmount: dec(100_000)}}

	tests := []struct {
		name     string
		revenue  []core.IncomeAccrual
		staffing []core.Staffing
		wantOK   bool
		wantSev  Severity
		balance  int64
	}{
		{"deficit", accruals(1_000_000), salary(1_000_000), false, SeverityError, -200_000},
		{"thin margin", accruals(10_000_000), salary(9_600_000), false, SeverityWarning, 200_000},
		{"healthy", accruals(10_000_000), salary(5_000_000), true, SeverityInfo, 4_800_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateBudgetBalance(tt.revenue, tt.staffing, trips, calcs)
			if got.IsValid != tt.wantOK || got.Severity != tt.wantSev {
				t.Fatalf("ValidateBudgetBalance() = %+v, want valid=%v severity=%q", got, tt.wantOK, tt.wantSev)
			}
			if !got.Balance.Equal(dec(tt.balance)) {
				t.Errorf("Balance = %s, want %d", got.Balance, tt.balance)
			}
		})
	}
}

func TestValidateBudgetBalanceWithoutRevenue(t *testing.T) {
	v := New(rules.DefaultThresholds())
	tests := []struct {
		name    string
		trips   []core.Trip
		wantOK  bool
		balance int64
	}{
		{"negative trip", []core.Trip{{TotalAmount: dec(-100)}}, true, 100},
		{"expenses cancel out", []core.Trip{{TotalAmount: dec(-100)}, {TotalAmount: dec(100)}}, true, 0},
		{"plain expense", []core.Trip{{TotalAmount: dec(100)}}, false, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateBudgetBalance(nil, nil, tt.trips, nil)
			if got.IsValid != tt.wantOK {
				t.Fatalf("ValidateBudgetBalance() = %+v, want valid=%v", got, tt.wantOK)
			}
			if !got.Balance.Equal(dec(tt.balance)) {
				t.Errorf("Balance = %s, want %d", got.Balance, tt.balance)
			}
			if !got.Margin.IsZero() {
				t.Errorf("Margin = %s, want 0", got.Margin)
			}
		})
	}
}

func TestValidateBudgetBalanceEmpty(t *testing.T) {
	got := New(rules.DefaultThresholds()).ValidateBudgetBalance(nil, nil, nil, nil)
	if !got.IsValid || got.Message != "" {
		t.Errorf("empty budget = %+v, want valid without message", got)
	}
}

func TestValidateRevenueVsCashFlow(t *testing.T) {
	v := New(rules.DefaultThresholds())
	sched := func(amounts ...int64) []core.CashSchedule {
		var out []core.CashSchedule
		for _, a := range amounts {
			out = append(out, core.CashSchedule{Amount: dec(a)})
		}
		return out
	}

	got := v.ValidateRevenueVsCashFlow(accruals(60, 40), sched(100))
	if !got.IsValid || !got.Variance.IsZero() {
		t.Errorf("matching totals = %+v, want valid with zero variance", got)
	}

	got = v.ValidateRevenueVsCashFlow(accruals(100_000), sched(99_500))
	if !got.IsValid {
		t.Errorf("0.5%% variance rejected: %+v", got)
	}

	got = v.ValidateRevenueVsCashFlow(accruals(100_000), sched(95_000))
	if got.IsValid || len(got.Errors) != 1 {
		t.Errorf("5%% variance = %+v, want one error", got)
	}
	if !got.Variance.Equal(dec(5_000)) || !got.VariancePercent.Equal(dec(5)) {
		t.Errorf("variance = %s (%s%%), want 5000 (5%%)", got.Variance, got.VariancePercent)
	}

	got = v.ValidateRevenueVsCashFlow(nil, sched(100))
	if !got.VariancePercent.IsZero() || !got.IsValid {
		t.Errorf("zero revenue = %+v, want percent 0", got)
	}
}

func TestCalculateRevenueFromContingent(t *testing.T) {
	tariff := decimal.NewNullDecimal(dec(65_000))
	tests := []struct {
		name string
		c    core.Contingent
		want int64
	}{
		{"paid class", core.Contingent{FundingSource: core.FundingPU, StudentCount: 28, TariffAmount: tariff}, 1_820_000},
		{"budget class", core.Contingent{FundingSource: core.FundingRB, StudentCount: 28, TariffAmount: tariff}, 0},
		{"no tariff", core.Contingent{FundingSource: core.FundingPU, StudentCount: 28}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateRevenueFromContingent(tt.c); !got.Equal(dec(tt.want)) {
				t.Errorf("CalculateRevenueFromContingent() = %s, want %d", got, tt.want)
			}
		})
	}
}
