package memory

import (
	"context"
	"testing"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
)

func TestExporterReplacesScope(t *testing.T) {
	e := New()
	scope := core.Scope{OrgUnitCode: "ALM01", PeriodYM: "2024-09"}
	line := core.BudgetLine{OrgUnitCode: "ALM01", PeriodYM: "2024-09", ArticleCode: "1.1.1", PlannedAmount: decimal.NewFromInt(10)}

	if err := e.ExportLedgers(context.Background(), scope, core.Ledgers{Revenues: []core.BudgetLine{line, line}}); err != nil {
		t.Fatalf("ExportLedgers() error = %v", err)
	}
	if err := e.ExportLedgers(context.Background(), scope, core.Ledgers{Revenues: []core.BudgetLine{line}}); err != nil {
		t.Fatalf("ExportLedgers() error = %v", err)
	}

	sheets, ok := e.Sheets(scope)
	if !ok || len(sheets) != 3 {
		t.Fatalf("Sheets() = %v, %v", sheets, ok)
	}
	if n := len(sheets[0].Rows); n != 1 {
		t.Errorf("BDR rows = %d, want 1 after re-export", n)
	}

	if _, ok := e.Sheets(core.Scope{OrgUnitCode: "AST01", PeriodYM: "2024-09"}); ok {
		t.Error("unexpected export for another branch")
	}
}

func TestExporterRejectsInvalidScope(t *testing.T) {
	if err := New().ExportLedgers(context.Background(), core.Scope{PeriodYM: "2024-09"}, core.Ledgers{}); err == nil {
		t.Error("expected an error")
	}
}
