package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sampleLedgers() core.Ledgers {
	d := decimal.RequireFromString
	return core.Ledgers{
		Revenues: []core.BudgetLine{{
			ID: "cont_c1", OrgUnitCode: "ALM01", PeriodYM: "2024-09",
			FundingSource: core.FundingPU, ArticleCode: "1.1.1",
			PlannedAmount: d("1500000"), ActualAmount: d("1200000"),
		}},
		CashFlows: []core.CashFlowLine{{
			ID: "cash_p1", OrgUnitCode: "ALM01", PeriodYM: "2024-09",
			FundingSource: core.FundingPU, ArticleCode: "1.1.1",
			PlannedAmount: d("1000000"), ActualAmount: d("1000000"),
		}},
		Consolidated: []core.ConsolidatedLine{{
			ID: "fot_ALM01_PU_1.1.1_2024-09", OrgUnitCode: "ALM01", PeriodYM: "2024-09",
			FundingSource: core.FundingPU, ArticleCode: "1.1.1",
			PlannedRevenue: d("1500000"), ActualRevenue: d("1200000"),
			PlannedCashFlow: d("1000000"), ActualCashFlow: d("1000000"),
		}},
	}
}

func TestSheets(t *testing.T) {
	sheets := Sheets(sampleLedgers())
	if len(sheets) != 3 {
		t.Fatalf("Sheets() returned %d sheets, want 3", len(sheets))
	}
	names := []string{sheets[0].Name, sheets[1].Name, sheets[2].Name}
	if !reflect.DeepEqual(names, []string{SheetBDR, SheetDDS, SheetFOT}) {
		t.Errorf("sheet names = %v", names)
	}

	want := Row{
		OrgUnitCode: "ALM01", PeriodYM: "2024-09", FundingSource: "PU", ArticleCode: "1.1.1",
		PlannedAmount: 1500000, ActualAmount: 1200000, VarianceAmount: -300000,
	}
	if got := sheets[0].Rows[0]; got != want {
		t.Errorf("BDR row = %+v, want %+v", got, want)
	}
	if got := sheets[2].Rows[0]; got != want {
		t.Errorf("FOT row = %+v, want %+v", got, want)
	}
	if got := sheets[1].Rows[0].VarianceAmount; got != 0 {
		t.Errorf("DDS variance = %v, want 0", got)
	}
}

func TestSheetsEmptyLedgers(t *testing.T) {
	for _, s := range Sheets(core.Ledgers{}) {
		if s.Rows == nil || len(s.Rows) != 0 {
			t.Errorf("sheet %s rows = %v, want empty non-nil", s.Name, s.Rows)
		}
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sampleLedgers()); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetBDR, SheetDDS, SheetFOT}) {
		t.Errorf("GetSheetList() = %v", got)
	}

	rows, err := f.GetRows(SheetBDR)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("BDR has %d rows, want header + 1", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v", rows[0])
	}
	wantRow := []string{"ALM01", "2024-09", "PU", "1.1.1", "1500000", "1200000", "-300000"}
	if !reflect.DeepEqual(rows[1], wantRow) {
		t.Errorf("BDR row = %v, want %v", rows[1], wantRow)
	}
}
