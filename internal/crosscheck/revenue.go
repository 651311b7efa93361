package crosscheck

import (
	"fmt"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
)

// Reconciliation compares accrued revenue with scheduled receipts.
type Reconciliation struct {
	IsValid         bool            `json:"is_valid"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalCash       decimal.Decimal `json:"total_cash"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Errors          []string        `json:"errors,omitempty"`
}

// ValidateRevenueVsCashFlow checks that scheduled receipts cover accruals
// within the configured tolerance (a fraction, 0.01 = 1%).
func (v *Validator) ValidateRevenueVsCashFlow(accruals []core.IncomeAccrual, schedule []core.CashSchedule) Reconciliation {
	revenue := sumAccruals(accruals)
	cash := decimal.Zero
	for _, c := range schedule {
		cash = cash.Add(c.Amount)
	}

	variance := revenue.Sub(cash).Abs()
	percent := decimal.Zero
	if !revenue.IsZero() {
		percent = variance.Div(revenue)
	}

	r := Reconciliation{
		IsValid:         true,
		TotalRevenue:    revenue,
		TotalCash:       cash,
		Variance:        variance,
		VariancePercent: percent.Mul(hundred),
	}
	if percent.GreaterThan(v.t.CashFlowTolerance) {
		r.IsValid = false
		r.Errors = append(r.Errors, fmt.Sprintf("receipts %s differ from accruals %s by %s (%s%%), tolerance is %s%%",
			cash.StringFixed(0), revenue.StringFixed(0), variance.StringFixed(0),
			r.VariancePercent.StringFixed(2), v.t.CashFlowTolerance.Mul(hundred).StringFixed(2)))
	}
	return r
}

// CalculateRevenueFromContingent returns the tuition a paid class brings
// in: student count times tariff. Other funding sources yield zero.
func CalculateRevenueFromContingent(c core.Contingent) decimal.Decimal {
	if c.FundingSource != core.FundingPU || !c.TariffAmount.Valid {
		return decimal.Zero
	}
	return c.TariffAmount.Decimal.Mul(decimal.NewFromInt(int64(c.StudentCount)))
}
