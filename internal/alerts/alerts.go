// Package alerts scans a snapshot for conditions that need attention
// regardless of individual record validity.
package alerts

import (
	"fmt"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/rules"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

const (
	CodeOverdueReceipts   = "overdue_receipts"
	CodeInactivePaidStaff = "inactive_paid_staff"
	CodeUnderfilled       = "underfilled_classes"
)

type Alert struct {
	Type    Type            `json:"type"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
}

type System struct {
	minStudents int
}

func New(t rules.Thresholds) *System {
	return &System{minStudents: t.MinStudentsPerClass}
}

// CheckCriticalAlerts returns at most one alert per condition. now decides
// which pending receipts are overdue.
func (s *System) CheckCriticalAlerts(snap core.Snapshot, now time.Time) []Alert {
	var out []Alert

	overdue, overdueSum := 0, decimal.Zero
	for _, c := range snap.CashSchedule {
		if isOverdue(c, now) {
			overdue++
			overdueSum = overdueSum.Add(c.Amount)
		}
	}
	if overdue > 0 {
		out = append(out, Alert{
			Type:    TypeError,
			Code:    CodeOverdueReceipts,
			Message: fmt.Sprintf("%d overdue receipts totalling %s", overdue, overdueSum.StringFixed(0)),
			Count:   overdue,
			Amount:  overdueSum,
		})
	}

	inactive := 0
	for _, st := range snap.Staffing {
		if !st.Active() && st.TotalSalary().IsPositive() {
			inactive++
		}
	}
	if inactive > 0 {
		out = append(out, Alert{
			Type:    TypeWarning,
			Code:    CodeInactivePaidStaff,
			Message: fmt.Sprintf("%d inactive employees still have salary assigned", inactive),
			Count:   inactive,
		})
	}

	small := 0
	for _, c := range snap.Contingent {
		if c.StudentCount < s.minStudents && c.GradeLevel != core.PreparatoryGrade {
			small++
		}
	}
	if small > 0 {
		out = append(out, Alert{
			Type:    TypeWarning,
			Code:    CodeUnderfilled,
			Message: fmt.Sprintf("%d classes have fewer than %d students", small, s.minStudents),
			Count:   small,
		})
	}

	return out
}

func isOverdue(c core.CashSchedule, now time.Time) bool {
	switch c.ReceiptStatus {
	case core.ReceiptOverdue:
		return true
	case core.ReceiptPending:
		return !c.ExpectedDate.IsZero() && c.ExpectedDate.Before(now)
	}
	return false
}
