// Package etl turns approved staging records into the BDR, DDS and FOT
// ledgers of one branch and period.
package etl

import (
	"fmt"
	"sort"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
)

// TuitionArticle is the budget article for paid-services tuition revenue.
const TuitionArticle = "1.1.1"

const (
	defaultAccrualBase = "Direct accrual"
	defaultCashNote    = "Cash receipt"
)

// MapRevenues builds BDR revenue lines from the approved contingent and
// income accruals of scope. Contingent rows contribute only when they are
// paid services with a tariff.
func MapRevenues(scope core.Scope, snap core.Snapshot) []core.BudgetLine {
	in, _ := snap.Filter(scope, core.StatusApproved)
	out := make([]core.BudgetLine, 0, len(in.Contingent)+len(in.Accruals))

	for _, c := range in.Contingent {
		if c.FundingSource != core.FundingPU || !c.TariffAmount.Valid || c.TariffAmount.Decimal.IsZero() {
			continue
		}
		amount := decimal.NewFromInt(int64(c.StudentCount)).Mul(c.TariffAmount.Decimal)
		out = append(out, core.BudgetLine{
			ID:              core.LineID(core.PrefixContingent, c.ID),
			OrgUnitCode:     scope.OrgUnitCode,
			PeriodYM:        scope.PeriodYM,
			UserID:          c.UserID,
			RevenueType:     core.FundingPU.RevenueType(),
			FundingSource:   core.FundingPU,
			ArticleCode:     TuitionArticle,
			PlannedAmount:   amount,
			ActualAmount:    amount,
			CalculationBase: fmt.Sprintf("Contingent: %d students × %s", c.StudentCount, c.TariffAmount.Decimal),
			SourceTable:     core.DomainContingent.Table(),
			SourceRecordID:  c.ID,
		})
	}

	for _, a := range in.Accruals {
		base := a.CalculationBase
		if base == "" {
			base = defaultAccrualBase
		}
		out = append(out, core.BudgetLine{
			ID:              core.LineID(core.PrefixAccrual, a.ID),
			OrgUnitCode:     scope.OrgUnitCode,
			PeriodYM:        scope.PeriodYM,
			UserID:          a.UserID,
			RevenueType:     a.FundingSource.RevenueType(),
			FundingSource:   a.FundingSource,
			ArticleCode:     a.ArticleCode,
			PlannedAmount:   a.AccrualAmount,
			ActualAmount:    a.AccrualAmount,
			CalculationBase: base,
			SourceTable:     core.DomainAccruals.Table(),
			SourceRecordID:  a.ID,
		})
	}
	return out
}

// MapCashFlows builds one inflow DDS line per approved cash-schedule record.
func MapCashFlows(scope core.Scope, snap core.Snapshot) []core.CashFlowLine {
	in, _ := snap.Filter(scope, core.StatusApproved)
	out := make([]core.CashFlowLine, 0, len(in.CashSchedule))
	for _, p := range in.CashSchedule {
		desc := p.Description
		if desc == "" {
			desc = defaultCashNote
		}
		out = append(out, core.CashFlowLine{
			ID:              core.LineID(core.PrefixCash, p.ID),
			OrgUnitCode:     scope.OrgUnitCode,
			PeriodYM:        scope.PeriodYM,
			UserID:          p.UserID,
			FlowType:        core.FlowInflow,
			FundingSource:   p.FundingSource,
			ArticleCode:     p.ArticleCode,
			PlannedAmount:   p.Amount,
			ActualAmount:    p.Amount,
			TransactionDate: p.PaymentDate,
			DocumentDate:    p.DocDate,
			PaymentMethod:   p.PaymentMethod,
			Description:     desc,
			SourceTable:     core.DomainCashSchedule.Table(),
			SourceRecordID:  p.ID,
		})
	}
	return out
}

// Consolidate groups revenue lines by (org, funding source, article) and
// folds cash flows into the groups that already exist. Cash flows whose key
// has no revenue are dropped; their number is returned alongside the lines,
// which are sorted by key.
func Consolidate(scope core.Scope, revenues []core.BudgetLine, cashFlows []core.CashFlowLine) ([]core.ConsolidatedLine, int) {
	groups := make(map[core.ConsolidationKey]*core.ConsolidatedLine)

	for _, r := range revenues {
		key := core.ConsolidationKey{OrgUnitCode: r.OrgUnitCode, FundingSource: r.FundingSource, ArticleCode: r.ArticleCode}
		line, ok := groups[key]
		if !ok {
			line = &core.ConsolidatedLine{
				ID:                 core.LineID(core.PrefixConsolidated, key.String()+"_"+string(scope.PeriodYM)),
				OrgUnitCode:        r.OrgUnitCode,
				PeriodYM:           r.PeriodYM,
				FundingSource:      r.FundingSource,
				ArticleCode:        r.ArticleCode,
				ConsolidationRules: ConsolidationRules(r.FundingSource),
			}
			groups[key] = line
		}
		line.PlannedRevenue = line.PlannedRevenue.Add(r.PlannedAmount)
		line.ActualRevenue = line.ActualRevenue.Add(r.ActualAmount)
	}

	dropped := 0
	for _, cf := range cashFlows {
		key := core.ConsolidationKey{OrgUnitCode: cf.OrgUnitCode, FundingSource: cf.FundingSource, ArticleCode: cf.ArticleCode}
		line, ok := groups[key]
		if !ok {
			dropped++
			continue
		}
		if cf.FlowType == core.FlowOutflow {
			line.PlannedCashFlow = line.PlannedCashFlow.Sub(cf.PlannedAmount)
			line.ActualCashFlow = line.ActualCashFlow.Sub(cf.ActualAmount)
		} else {
			line.PlannedCashFlow = line.PlannedCashFlow.Add(cf.PlannedAmount)
			line.ActualCashFlow = line.ActualCashFlow.Add(cf.ActualAmount)
		}
	}

	out := make([]core.ConsolidatedLine, 0, len(groups))
	for _, line := range groups {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out, dropped
}

// ConsolidationRules lists the rules applied when building a consolidated
// line for the given funding source.
func ConsolidationRules(funding core.FundingSource) []core.ConsolidationRule {
	rules := []core.ConsolidationRule{
		{Type: core.RuleMapping, Rule: "sum", Source: "planned_amount", Target: "planned_revenue"},
		{Type: core.RuleMapping, Rule: "sum", Source: "actual_amount", Target: "actual_revenue"},
	}
	if funding == core.FundingPU {
		rules = append(rules, core.ConsolidationRule{
			Type: core.RuleValidation, Rule: "validate_positive", Source: "tariff_amount", Target: "planned_revenue",
		})
	}
	return rules
}
