package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	FlowInflow  = "inflow"
	FlowOutflow = "outflow"
)

// Line id prefixes, one per source.
const (
	PrefixContingent   = "cont"
	PrefixAccrual      = "accr"
	PrefixCash         = "cash"
	PrefixConsolidated = "fot"
)

// LineID derives a ledger line id from its source, so re-running the
// pipeline produces the same ids.
func LineID(prefix, sourceID string) string {
	return prefix + "_" + sourceID
}

// BudgetLine is one BDR (budget of income and expenses) revenue line.
type BudgetLine struct {
	ID              string          `json:"id"`
	OrgUnitCode     string          `json:"org_unit_code"`
	PeriodYM        PeriodYM        `json:"period_ym"`
	UserID          string          `json:"user_id,omitempty"`
	RevenueType     string          `json:"revenue_type"`
	FundingSource   FundingSource   `json:"funding_source"`
	ArticleCode     string          `json:"article_code"`
	PlannedAmount   decimal.Decimal `json:"planned_amount"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	CalculationBase string          `json:"calculation_base"`
	SourceTable     string          `json:"source_table"`
	SourceRecordID  string          `json:"source_record_id"`
}

func (l BudgetLine) Variance() decimal.Decimal {
	return l.ActualAmount.Sub(l.PlannedAmount)
}

// MarshalJSON adds the derived variance_amount.
func (l BudgetLine) MarshalJSON() ([]byte, error) {
	type plain BudgetLine
	return json.Marshal(struct {
		plain
		VarianceAmount decimal.Decimal `json:"variance_amount"`
	}{plain(l), l.Variance()})
}

// CashFlowLine is one DDS (cash movement) line.
type CashFlowLine struct {
	ID              string          `json:"id"`
	OrgUnitCode     string          `json:"org_unit_code"`
	PeriodYM        PeriodYM        `json:"period_ym"`
	UserID          string          `json:"user_id,omitempty"`
	FlowType        string          `json:"flow_type"`
	FundingSource   FundingSource   `json:"funding_source"`
	ArticleCode     string          `json:"article_code"`
	PlannedAmount   decimal.Decimal `json:"planned_amount"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	TransactionDate Date            `json:"transaction_date"`
	DocumentDate    Date            `json:"document_date"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Description     string          `json:"description,omitempty"`
	SourceTable     string          `json:"source_table"`
	SourceRecordID  string          `json:"source_record_id"`
}

func (l CashFlowLine) Variance() decimal.Decimal {
	return l.ActualAmount.Sub(l.PlannedAmount)
}

func (l CashFlowLine) MarshalJSON() ([]byte, error) {
	type plain CashFlowLine
	return json.Marshal(struct {
		plain
		VarianceAmount decimal.Decimal `json:"variance_amount"`
	}{plain(l), l.Variance()})
}

// Consolidation rule types.
const (
	RuleMapping    = "mapping"
	RuleValidation = "validation"
)

// ConsolidationRule describes how a consolidated line was assembled: Rule
// is the transformation ("sum", "validate_positive") applied from the
// Source field onto the Target field.
type ConsolidationRule struct {
	Type   string `json:"type"`
	Rule   string `json:"rule"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// ConsolidationKey groups lines for consolidation.
type ConsolidationKey struct {
	OrgUnitCode   string
	FundingSource FundingSource
	ArticleCode   string
}

func (k ConsolidationKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.OrgUnitCode, k.FundingSource, k.ArticleCode)
}

// ConsolidatedLine is one FOT line: revenue and cash movement combined
// for an (org, funding source, article) key within a period.
type ConsolidatedLine struct {
	ID                 string              `json:"id"`
	OrgUnitCode        string              `json:"org_unit_code"`
	PeriodYM           PeriodYM            `json:"period_ym"`
	FundingSource      FundingSource       `json:"funding_source"`
	ArticleCode        string              `json:"article_code"`
	PlannedRevenue     decimal.Decimal     `json:"planned_revenue"`
	ActualRevenue      decimal.Decimal     `json:"actual_revenue"`
	PlannedExpenses    decimal.Decimal     `json:"planned_expenses"`
	ActualExpenses     decimal.Decimal     `json:"actual_expenses"`
	PlannedCashFlow    decimal.Decimal     `json:"planned_cash_flow"`
	ActualCashFlow     decimal.Decimal     `json:"actual_cash_flow"`
	ConsolidationRules []ConsolidationRule `json:"consolidation_rules"`
}

func (l ConsolidatedLine) Key() ConsolidationKey {
	return ConsolidationKey{OrgUnitCode: l.OrgUnitCode, FundingSource: l.FundingSource, ArticleCode: l.ArticleCode}
}

func (l ConsolidatedLine) RevenueVariance() decimal.Decimal {
	return l.ActualRevenue.Sub(l.PlannedRevenue)
}

func (l ConsolidatedLine) ExpenseVariance() decimal.Decimal {
	return l.ActualExpenses.Sub(l.PlannedExpenses)
}

func (l ConsolidatedLine) CashFlowVariance() decimal.Decimal {
	return l.ActualCashFlow.Sub(l.PlannedCashFlow)
}

// MarshalJSON adds the derived revenue, expense and cash-flow variances.
// They are not read back on decode.
func (l ConsolidatedLine) MarshalJSON() ([]byte, error) {
	type plain ConsolidatedLine
	return json.Marshal(struct {
		plain
		VarianceRevenue  decimal.Decimal `json:"variance_revenue"`
		VarianceExpenses decimal.Decimal `json:"variance_expenses"`
		VarianceCashFlow decimal.Decimal `json:"variance_cash_flow"`
	}{plain(l), l.RevenueVariance(), l.ExpenseVariance(), l.CashFlowVariance()})
}

// Ledgers is the output of one ETL run for a scope.
type Ledgers struct {
	Revenues     []BudgetLine       `json:"revenues"`
	CashFlows    []CashFlowLine     `json:"cash_flows"`
	Consolidated []ConsolidatedLine `json:"consolidated"`
}
