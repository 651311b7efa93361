// Package validation runs every rule, cross-module check and alert over a
// scoped snapshot and reports the combined result.
package validation

import (
	"fmt"
	"time"

	"github.com/b1411/finka/internal/alerts"
	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/crosscheck"
	"github.com/b1411/finka/internal/rules"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Module names for findings that do not belong to one staging domain.
const (
	ModuleCrossModule = "cross_module"
	ModuleAlerts      = "alerts"
	ModuleScope       = "scope"
)

// KindAlert marks an error raised by the alert system.
const KindAlert rules.ErrorKind = "alert"

type Issue struct {
	Module   string          `json:"module"`
	Field    string          `json:"field,omitempty"`
	Message  string          `json:"message"`
	Severity string          `json:"severity"`
	Kind     rules.ErrorKind `json:"kind,omitempty"`
	RecordID string          `json:"record_id,omitempty"`
}

type Note struct {
	Module  string `json:"module"`
	Message string `json:"message"`
}

type Summary struct {
	TotalRecords int `json:"total_records"`
	ValidRecords int `json:"valid_records"`
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	InfoCount    int `json:"info_count"`
}

type Result struct {
	Scope    core.Scope `json:"scope"`
	IsValid  bool       `json:"is_valid"`
	Errors   []Issue    `json:"errors"`
	Warnings []Note     `json:"warnings"`
	Infos    []Note     `json:"infos"`
	Summary  Summary    `json:"summary"`
}

// Orchestrator combines the rule library, the cross-module validator and
// the alert system. It performs no I/O.
type Orchestrator struct {
	rules  *rules.Library
	cross  *crosscheck.Validator
	alerts *alerts.System
}

func NewOrchestrator(t rules.Thresholds) *Orchestrator {
	return &Orchestrator{
		rules:  rules.New(t),
		cross:  crosscheck.New(t),
		alerts: alerts.New(t),
	}
}

// Run validates the part of snap that belongs to scope. Records from other
// branches or periods are ignored and reported as an info note.
func (o *Orchestrator) Run(scope core.Scope, snap core.Snapshot, now time.Time) Result {
	res := Result{Scope: scope, Errors: []Issue{}, Warnings: []Note{}, Infos: []Note{}}

	in, dropped := snap.Filter(scope, "")
	if dropped > 0 {
		res.Infos = append(res.Infos, Note{
			Module:  ModuleScope,
			Message: fmt.Sprintf("%d records outside %s/%s ignored", dropped, scope.OrgUnitCode, scope.PeriodYM),
		})
	}

	invalid := 0
	check := func(rec core.Record, results ...rules.Result) {
		res.Summary.TotalRecords++
		issues := ValidateRecord(rec)
		for _, r := range results {
			if r.IsValid {
				continue
			}
			issues = append(issues, Issue{
				Module:   string(rec.Domain()),
				Message:  r.Error,
				Severity: SeverityError,
				Kind:     r.Kind,
				RecordID: rec.Base().ID,
			})
		}
		if len(issues) > 0 {
			invalid++
			res.Errors = append(res.Errors, issues...)
		}
	}

	for i, c := range in.Contingent {
		check(c,
			o.rules.ValidateStudentCount(c.StudentCount, c.GradeLevel),
			o.rules.ValidateUniqueClass(c, without(in.Contingent, i)),
		)
	}
	for i, a := range in.Accruals {
		check(a, o.rules.ValidateAccrual(a, without(in.Accruals, i)))
	}
	for i, c := range in.CashSchedule {
		check(c, o.rules.ValidateCashSchedule(c, without(in.CashSchedule, i)))
	}
	for i, s := range in.Staffing {
		check(s, o.rules.ValidateEmployee(s, without(in.Staffing, i)))
	}
	for i, t := range in.Trips {
		check(t, o.rules.ValidateTrip(t, without(in.Trips, i)))
	}
	for i, c := range in.Calculations {
		check(c, o.rules.ValidateUtilityCalculation(c, without(in.Calculations, i)))
	}

	o.crossModule(&res, in)

	for _, a := range o.alerts.CheckCriticalAlerts(in, now) {
		switch a.Type {
		case alerts.TypeError:
			res.Errors = append(res.Errors, Issue{
				Module:   ModuleAlerts,
				Field:    a.Code,
				Message:  a.Message,
				Severity: SeverityError,
				Kind:     KindAlert,
			})
		case alerts.TypeWarning:
			res.Warnings = append(res.Warnings, Note{Module: ModuleAlerts, Message: a.Message})
		default:
			res.Infos = append(res.Infos, Note{Module: ModuleAlerts, Message: a.Message})
		}
	}

	res.Summary.ValidRecords = res.Summary.TotalRecords - invalid
	res.Summary.ErrorCount = len(res.Errors)
	res.Summary.WarningCount = len(res.Warnings)
	res.Summary.InfoCount = len(res.Infos)
	res.IsValid = res.Summary.ErrorCount == 0
	return res
}

func (o *Orchestrator) crossModule(res *Result, in core.Snapshot) {
	for _, c := range []crosscheck.Check{
		o.cross.ValidateRevenueVsContingent(in.Contingent, in.Accruals),
		o.cross.ValidateStaffingVsContingent(in.Contingent, in.Staffing),
	} {
		if !c.IsValid {
			res.Warnings = append(res.Warnings, Note{Module: ModuleCrossModule, Message: c.Message})
		}
	}

	if len(in.CashSchedule) > 0 {
		if rec := o.cross.ValidateRevenueVsCashFlow(in.Accruals, in.CashSchedule); !rec.IsValid {
			for _, msg := range rec.Errors {
				res.Warnings = append(res.Warnings, Note{Module: ModuleCrossModule, Message: msg})
			}
		}
	}

	bal := o.cross.ValidateBudgetBalance(in.Accruals, in.Staffing, in.Trips, in.Calculations)
	if bal.Message == "" {
		return
	}
	switch bal.Severity {
	case crosscheck.SeverityError:
		res.Errors = append(res.Errors, Issue{
			Module:   ModuleCrossModule,
			Field:    "budget_balance",
			Message:  bal.Message,
			Severity: SeverityError,
		})
	case crosscheck.SeverityWarning:
		res.Warnings = append(res.Warnings, Note{Module: ModuleCrossModule, Message: bal.Message})
	default:
		res.Infos = append(res.Infos, Note{Module: ModuleCrossModule, Message: bal.Message})
	}
}

// without returns the records of s other than the one at index i.
func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
