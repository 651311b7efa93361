package core

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
)

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

const (
	FundingPU   FundingSource = "PU" // paid services
	FundingRB   FundingSource = "RB" // republican budget
	FundingDOTA FundingSource = "DOTA"
)

const (
	RoleBranchEconomist  Role = "branch_economist"
	RoleBranchAccountant Role = "branch_accountant"
	RoleBranchHR         Role = "branch_hr"
	RoleHQChiefEconomist Role = "hq_chief_economist"
	RoleHQBoard          Role = "hq_board"
	RoleAdmin            Role = "admin"
)

type (
	Status        string
	Action        string
	FundingSource string
	Role          string

	// PeriodYM is a reporting month in "YYYY-MM" form.
	PeriodYM string

	Date struct {
		time.Time
	}

	// Scope identifies the branch and period an operation runs against,
	// together with the user on whose behalf it runs.
	Scope struct {
		OrgUnitCode string   `json:"org_unit_code"`
		PeriodYM    PeriodYM `json:"period_ym"`
		UserID      string   `json:"user_id,omitempty"`
		Role        Role     `json:"role,omitempty"`
	}
)

// Approver reports whether r may approve records and change approved ones.
func (r Role) Approver() bool {
	return r == RoleHQChiefEconomist || r == RoleAdmin
}

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePeriod validates s and returns it as a PeriodYM.
func ParsePeriod(s string) (PeriodYM, error) {
	s = strings.TrimSpace(s)
	if !periodPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodYM(s), nil
}

func (p PeriodYM) Validate() error {
	if !periodPattern.MatchString(string(p)) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
	return nil
}

// Month returns the first day of the period in UTC.
func (p PeriodYM) Month() (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Parse("2006-01", string(p))
}

func (p PeriodYM) String() string { return string(p) }

func (s Scope) Validate() error {
	org := strings.TrimSpace(s.OrgUnitCode)
	if len(org) < 2 || len(org) > 10 {
		return fmt.Errorf("%w: org unit code must be 2-10 characters", ErrInvalidScope)
	}
	if err := s.PeriodYM.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}
	return nil
}

// Matches reports whether a record with the given org and period belongs to the scope.
func (s Scope) Matches(org string, period PeriodYM) bool {
	return s.OrgUnitCode == org && s.PeriodYM == period
}

func (st Status) Validate() error {
	switch st {
	case StatusDraft, StatusSubmitted, StatusApproved:
		return nil
	}
	return fmt.Errorf("invalid status %q", string(st))
}

// Transition applies a workflow action to the status.
//
//	draft --submit--> submitted --approve--> approved
//	submitted --reject--> draft
func (st Status) Transition(a Action) (Status, error) {
	switch {
	case st == StatusDraft && a == ActionSubmit:
		return StatusSubmitted, nil
	case st == StatusSubmitted && a == ActionApprove:
		return StatusApproved, nil
	case st == StatusSubmitted && a == ActionReject:
		return StatusDraft, nil
	}
	return st, fmt.Errorf("%w: cannot %s a %s record", ErrInvalidTransition, a, st)
}

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSubmit, ActionApprove, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, s)
}

// RevenueType maps a funding source onto the BDR revenue classification.
func (f FundingSource) RevenueType() string {
	switch f {
	case FundingPU:
		return "tuition"
	case FundingRB:
		return "budget"
	case FundingDOTA:
		return "grants"
	default:
		return "other"
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// SameDay compares calendar days, ignoring time of day.
func (d Date) SameDay(o Date) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// YearMonth returns the "YYYY-MM" bucket of the date.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores dates as "YYYY-MM-DD" text; the zero date is NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{Time: v.UTC()}
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
