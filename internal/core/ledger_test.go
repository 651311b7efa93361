package core

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedgerLinesJSONVariance(t *testing.T) {
	budget := BudgetLine{
		ID:            LineID(PrefixAccrual, "a1"),
		OrgUnitCode:   "ALM01",
		PeriodYM:      "2024-09",
		RevenueType:   "budget",
		FundingSource: FundingRB,
		ArticleCode:   "1.2.1",
		PlannedAmount: decimal.NewFromInt(1000),
		ActualAmount:  decimal.NewFromInt(1250),
		SourceTable:   "income_accruals",
	}
	cash := CashFlowLine{
		ID:            LineID(PrefixCash, "s1"),
		OrgUnitCode:   "ALM01",
		PeriodYM:      "2024-09",
		FlowType:      FlowInflow,
		FundingSource: FundingRB,
		ArticleCode:   "1.2.1",
		PlannedAmount: decimal.NewFromInt(900),
		ActualAmount:  decimal.NewFromInt(800),
	}
	fot := ConsolidatedLine{
		ID:              "fot_ALM01_RB_1.2.1",
		OrgUnitCode:     "ALM01",
		PeriodYM:        "2024-09",
		FundingSource:   FundingRB,
		ArticleCode:     "1.2.1",
		PlannedRevenue:  decimal.NewFromInt(1000),
		ActualRevenue:   decimal.NewFromInt(1250),
		PlannedCashFlow: decimal.NewFromInt(900),
		ActualCashFlow:  decimal.NewFromInt(800),
		ConsolidationRules: []ConsolidationRule{
			{Type: RuleMapping, Rule: "sum", Source: "bdr.actual_amount", Target: "actual_revenue"},
		},
	}

	tests := []struct {
		name string
		line any
		want map[string]string
	}{
		{"budget line", budget, map[string]string{"variance_amount": "250"}},
		{"cash flow line", cash, map[string]string{"variance_amount": "-100"}},
		{"consolidated line", fot, map[string]string{
			"variance_revenue":   "250",
			"variance_expenses":  "0",
			"variance_cash_flow": "-100",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.line)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var fields map[string]any
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatal(err)
			}
			for key, want := range tt.want {
				if got, _ := fields[key].(string); got != want {
					t.Errorf("%s = %v, want %s in %s", key, fields[key], want, data)
				}
			}
			if fields["id"] == "" || fields["org_unit_code"] != "ALM01" {
				t.Errorf("line fields missing from %s", data)
			}
		})
	}

	// Derived fields are ignored on decode.
	data, err := json.Marshal(Ledgers{Revenues: []BudgetLine{budget}, CashFlows: []CashFlowLine{cash}, Consolidated: []ConsolidatedLine{fot}})
	if err != nil {
		t.Fatal(err)
	}
	var back Ledgers
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Revenues[0].ActualAmount.Equal(budget.ActualAmount) || back.Revenues[0].ID != budget.ID {
		t.Errorf("budget line round trip = %+v", back.Revenues[0])
	}
	if !back.CashFlows[0].PlannedAmount.Equal(cash.PlannedAmount) {
		t.Errorf("cash flow line round trip = %+v", back.CashFlows[0])
	}
	if !reflect.DeepEqual(back.Consolidated[0].ConsolidationRules, fot.ConsolidationRules) ||
		!back.Consolidated[0].ActualCashFlow.Equal(fot.ActualCashFlow) {
		t.Errorf("consolidated line round trip = %+v", back.Consolidated[0])
	}
}
