package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-09", true},
		{" 2024-12 ", true},
		{"2024-13", false},
		{"2024-00", false},
		{"2024-9", false},
		{"", false},
	}
	for i, tc := range cases {
		_, err := ParsePeriod(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("case %d expected ErrInvalidPeriod, got %v", i, err)
		}
	}
}

func TestPeriodMonth(t *testing.T) {
	m, err := PeriodYM("2024-09").Month()
	if err != nil {
		t.Fatalf("Month() error = %v", err)
	}
	if want := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC); !m.Equal(want) {
		t.Errorf("Month() = %v, want %v", m, want)
	}
}

func TestScopeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"valid", Scope{OrgUnitCode: "ALM01", PeriodYM: "2024-09"}, false},
		{"short org", Scope{OrgUnitCode: "A", PeriodYM: "2024-09"}, true},
		{"long org", Scope{OrgUnitCode: "ALMATY-BRANCH", PeriodYM: "2024-09"}, true},
		{"bad period", Scope{OrgUnitCode: "ALM01", PeriodYM: "09-2024"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidScope) {
				t.Errorf("Validate() error = %v, want ErrInvalidScope", err)
			}
		})
	}
}

func TestStatusTransition(t *testing.T) {
	tests := []struct {
		from    Status
		action  Action
		want    Status
		wantErr bool
	}{
		{StatusDraft, ActionSubmit, StatusSubmitted, false},
		{StatusSubmitted, ActionApprove, StatusApproved, false},
		{StatusSubmitted, ActionReject, StatusDraft, false},
		{StatusDraft, ActionApprove, StatusDraft, true},
		{StatusApproved, ActionReject, StatusApproved, true},
		{StatusApproved, ActionSubmit, StatusApproved, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			got, err := tt.from.Transition(tt.action)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Transition() error = %v, want ErrInvalidTransition", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRevenueType(t *testing.T) {
	tests := map[FundingSource]string{
		FundingPU:   "tuition",
		FundingRB:   "budget",
		FundingDOTA: "grants",
		"GRANT":     "other",
	}
	for fs, want := range tests {
		if got := fs.RevenueType(); got != want {
			t.Errorf("%s.RevenueType() = %q, want %q", fs, got, want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		D Date `json:"d"`
		E Date `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-09-15","e":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.D.SameDay(NewDate(2024, 9, 15)) {
		t.Errorf("D = %v, want 2024-09-15", payload.D)
	}
	if !payload.E.IsZero() {
		t.Errorf("E = %v, want zero", payload.E)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"d":"2024-09-15","e":null}`; string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestDateYearMonth(t *testing.T) {
	if got := NewDate(2024, 3, 31).YearMonth(); got != "2024-03" {
		t.Errorf("YearMonth() = %q, want 2024-03", got)
	}
}

func TestStaffingTotalSalary(t *testing.T) {
	s := Staffing{
		BaseSalary: decimal.NewFromInt(200000),
		Bonus:      decimal.NewFromInt(50000),
		Allowances: decimal.NewFromInt(10000),
	}
	if got := s.TotalSalary(); !got.Equal(decimal.NewFromInt(260000)) {
		t.Errorf("TotalSalary() = %s, want 260000", got)
	}
}

func TestSnapshotFilter(t *testing.T) {
	scope := Scope{OrgUnitCode: "ALM01", PeriodYM: "2024-09"}
	snap := Snapshot{
		Contingent: []Contingent{
			{Meta: Meta{ID: "c1", OrgUnitCode: "ALM01", PeriodYM: "2024-09", Status: StatusApproved}},
			{Meta: Meta{ID: "c2", OrgUnitCode: "ALM01", PeriodYM: "2024-09", Status: StatusDraft}},
			{Meta: Meta{ID: "c3", OrgUnitCode: "AST01", PeriodYM: "2024-09", Status: StatusApproved}},
		},
		Accruals: []IncomeAccrual{
			{Meta: Meta{ID: "a1", OrgUnitCode: "ALM01", PeriodYM: "2024-08", Status: StatusApproved}},
		},
	}

	all, dropped := snap.Filter(scope, "")
	if all.Len() != 2 || dropped != 2 {
		t.Errorf("Filter(any) len = %d dropped = %d, want 2 and 2", all.Len(), dropped)
	}

	approved, dropped := snap.Filter(scope, StatusApproved)
	if approved.Len() != 1 || dropped != 3 {
		t.Fatalf("Filter(approved) len = %d dropped = %d, want 1 and 3", approved.Len(), dropped)
	}
	if approved.Contingent[0].ID != "c1" {
		t.Errorf("Filter(approved) kept %q, want c1", approved.Contingent[0].ID)
	}
}

func TestWithMeta(t *testing.T) {
	r, err := WithMeta(Trip{EmployeeName: "Ivanov"}, Meta{ID: "t1"})
	if err != nil {
		t.Fatalf("WithMeta() error = %v", err)
	}
	trip, ok := r.(Trip)
	if !ok || trip.ID != "t1" || trip.EmployeeName != "Ivanov" {
		t.Errorf("WithMeta() = %#v", r)
	}
}

func TestLineID(t *testing.T) {
	if got := LineID(PrefixAccrual, "42"); got != "accr_42" {
		t.Errorf("LineID() = %q, want accr_42", got)
	}
}

func TestDecodeRecord(t *testing.T) {
	body := []byte(`{"id":"a1","org_unit_code":"ALM01","period_ym":"2024-09","funding_source":"RB","article_code":"1.2.1","accrual_amount":"150000.50","accrual_date":"2024-09-05"}`)
	rec, err := DecodeRecord(DomainAccruals, body)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	a, ok := rec.(IncomeAccrual)
	if !ok {
		t.Fatalf("DecodeRecord() type = %T, want IncomeAccrual", rec)
	}
	if a.OrgUnitCode != "ALM01" || !a.AccrualAmount.Equal(decimal.RequireFromString("150000.50")) {
		t.Errorf("decoded = %+v", a)
	}

	if _, err := DecodeRecord("unknown", body); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("unknown domain error = %v, want ErrUnknownDomain", err)
	}
	if _, err := DecodeRecord(DomainTrips, []byte(`{"distance_km": "x"`)); err == nil {
		t.Error("expected error for malformed body")
	}
}
