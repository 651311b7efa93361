// Package export flattens ledgers into rows and writes them as an Excel
// workbook with one sheet per ledger.
package export

import (
	"fmt"
	"io"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names, one per ledger.
const (
	SheetBDR = "BDR"
	SheetDDS = "DDS"
	SheetFOT = "FOT"
)

// Header is the first row of every sheet.
var Header = []string{
	"org_unit_code",
	"period_ym",
	"funding_source",
	"article_code",
	"planned_amount",
	"actual_amount",
	"variance_amount",
}

// Row is one exported ledger line. Amounts are plain numbers.
type Row struct {
	OrgUnitCode    string  `json:"org_unit_code"`
	PeriodYM       string  `json:"period_ym"`
	FundingSource  string  `json:"funding_source"`
	ArticleCode    string  `json:"article_code"`
	PlannedAmount  float64 `json:"planned_amount"`
	ActualAmount   float64 `json:"actual_amount"`
	VarianceAmount float64 `json:"variance_amount"`
}

// CellValues returns the row in Header order.
func (r Row) CellValues() []any {
	return []any{
		r.OrgUnitCode,
		r.PeriodYM,
		r.FundingSource,
		r.ArticleCode,
		r.PlannedAmount,
		r.ActualAmount,
		r.VarianceAmount,
	}
}

func newRow(org string, period core.PeriodYM, fs core.FundingSource, article string, planned, actual decimal.Decimal) Row {
	return Row{
		OrgUnitCode:    org,
		PeriodYM:       string(period),
		FundingSource:  string(fs),
		ArticleCode:    article,
		PlannedAmount:  planned.InexactFloat64(),
		ActualAmount:   actual.InexactFloat64(),
		VarianceAmount: actual.Sub(planned).InexactFloat64(),
	}
}

// Sheet is a named block of rows.
type Sheet struct {
	Name string
	Rows []Row
}

// Sheets flattens ledgers into the BDR, DDS and FOT sheets, in that order.
// FOT rows carry the consolidated revenue figures.
func Sheets(l core.Ledgers) []Sheet {
	bdr := make([]Row, 0, len(l.Revenues))
	for _, r := range l.Revenues {
		bdr = append(bdr, newRow(r.OrgUnitCode, r.PeriodYM, r.FundingSource, r.ArticleCode, r.PlannedAmount, r.ActualAmount))
	}
	dds := make([]Row, 0, len(l.CashFlows))
	for _, c := range l.CashFlows {
		dds = append(dds, newRow(c.OrgUnitCode, c.PeriodYM, c.FundingSource, c.ArticleCode, c.PlannedAmount, c.ActualAmount))
	}
	fot := make([]Row, 0, len(l.Consolidated))
	for _, c := range l.Consolidated {
		fot = append(fot, newRow(c.OrgUnitCode, c.PeriodYM, c.FundingSource, c.ArticleCode, c.PlannedRevenue, c.ActualRevenue))
	}
	return []Sheet{
		{Name: SheetBDR, Rows: bdr},
		{Name: SheetDDS, Rows: dds},
		{Name: SheetFOT, Rows: fot},
	}
}

// WriteWorkbook writes ledgers as an xlsx workbook to w.
func WriteWorkbook(w io.Writer, l core.Ledgers) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range Sheets(l) {
		if i == 0 {
			// Reuse the default sheet so the workbook has no empty tab.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet.Name, err)
	}
	for i, r := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.CellValues()
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet.Name, i+2, err)
		}
	}
	return nil
}
