package rules

import (
	"testing"

	"github.com/b1411/finka/internal/core"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func meta(id string) core.Meta {
	return core.Meta{ID: id, OrgUnitCode: "ALM01", PeriodYM: "2024-09", Status: core.StatusDraft}
}

func TestValidateStudentCount(t *testing.T) {
	lib := Default()
	tests := []struct {
		name  string
		count int
		grade string
		want  bool
	}{
		{"upper bound", 30, "5", true},
		{"over max", 31, "5", false},
		{"lower bound", 15, "5", true},
		{"under min", 14, "5", false},
		{"preparatory exempt from min", 10, "0", true},
		{"preparatory still capped", 31, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lib.ValidateStudentCount(tt.count, tt.grade)
			if got.IsValid != tt.want {
				t.Errorf("ValidateStudentCount(%d, %q) = %+v, want valid=%v", tt.count, tt.grade, got, tt.want)
			}
			if !got.IsValid && got.Error == "" {
				t.Errorf("invalid result without message")
			}
		})
	}
}

func TestValidateUniqueClass(t *testing.T) {
	lib := Default()
	c := core.Contingent{Meta: meta("c1"), GradeLevel: "5", EducationProfile: "general", Language: "kz"}
	same := core.Contingent{Meta: meta("c2"), GradeLevel: "5", EducationProfile: "general", Language: "kz"}
	otherLang := core.Contingent{Meta: meta("c3"), GradeLevel: "5", EducationProfile: "general", Language: "ru"}

	if r := lib.ValidateUniqueClass(c, []core.Contingent{otherLang}); !r.IsValid {
		t.Errorf("different language flagged: %+v", r)
	}
	r := lib.ValidateUniqueClass(c, []core.Contingent{otherLang, same})
	if r.IsValid || r.Kind != KindUniqueness {
		t.Errorf("duplicate class not flagged: %+v", r)
	}
}

func TestValidateAccrual(t *testing.T) {
	lib := Default()
	date := core.NewDate(2024, 9, 15)
	base := core.IncomeAccrual{Meta: meta("a1"), FundingSource: core.FundingPU, AccrualAmount: dec(100000), AccrualDate: date}

	tests := []struct {
		name     string
		amount   decimal.Decimal
		siblings []core.IncomeAccrual
		wantOK   bool
		wantKind ErrorKind
	}{
		{"in range", dec(100000), nil, true, ""},
		{"at minimum", dec(1000), nil, true, ""},
		{"below minimum", dec(999), nil, false, KindField},
		{"above maximum", dec(50000001), nil, false, KindField},
		{
			name:   "near-equal duplicate",
			amount: dec(100000),
			siblings: []core.IncomeAccrual{
				{Meta: meta("a2"), FundingSource: core.FundingPU, AccrualAmount: decimal.RequireFromString("100000.5"), AccrualDate: date},
			},
			wantOK:   false,
			wantKind: KindUniqueness,
		},
		{
			name:   "same day different source",
			amount: dec(100000),
			siblings: []core.IncomeAccrual{
				{Meta: meta("a2"), FundingSource: core.FundingRB, AccrualAmount: dec(100000), AccrualDate: date},
			},
			wantOK: true,
		},
		{
			name:   "amount differs by one",
			amount: dec(100000),
			siblings: []core.IncomeAccrual{
				{Meta: meta("a2"), FundingSource: core.FundingPU, AccrualAmount: dec(100001), AccrualDate: date},
			},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			a.AccrualAmount = tt.amount
			got := lib.ValidateAccrual(a, tt.siblings)
			if got.IsValid != tt.wantOK || got.Kind != tt.wantKind {
				t.Errorf("ValidateAccrual() = %+v, want valid=%v kind=%q", got, tt.wantOK, tt.wantKind)
			}
		})
	}
}

func TestValidateCashSchedule(t *testing.T) {
	lib := Default()
	c := core.CashSchedule{Meta: meta("s1"), FundingSource: core.FundingRB, Amount: dec(500000), ExpectedDate: core.NewDate(2024, 9, 10)}
	if r := lib.ValidateCashSchedule(c, nil); !r.IsValid {
		t.Errorf("valid receipt flagged: %+v", r)
	}
	dup := c
	dup.ID = "s2"
	if r := lib.ValidateCashSchedule(c, []core.CashSchedule{dup}); r.IsValid {
		t.Errorf("duplicate receipt not flagged")
	}
	big := c
	big.Amount = dec(60000000)
	if r := lib.ValidateCashSchedule(big, nil); r.IsValid || r.Kind != KindField {
		t.Errorf("oversized receipt = %+v", r)
	}
}

func TestValidateEmployee(t *testing.T) {
	lib := Default()
	emp := core.Staffing{Meta: meta("e1"), EmployeeID: "E-1", BaseSalary: dec(200000), Bonus: dec(50000)}

	tests := []struct {
		name     string
		mutate   func(*core.Staffing)
		siblings []core.Staffing
		wantOK   bool
	}{
		{"valid", func(*core.Staffing) {}, nil, true},
		{"below minimum wage", func(e *core.Staffing) { e.BaseSalary = dec(80000) }, nil, false},
		{"above maximum", func(e *core.Staffing) { e.BaseSalary = dec(2000001) }, nil, false},
		{"bonus equals base", func(e *core.Staffing) { e.Bonus = dec(200000) }, nil, true},
		{"bonus above base", func(e *core.Staffing) { e.Bonus = dec(200001) }, nil, false},
		{
			name:     "duplicate employee",
			mutate:   func(*core.Staffing) {},
			siblings: []core.Staffing{{Meta: meta("e2"), EmployeeID: "E-1"}},
			wantOK:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := emp
			tt.mutate(&e)
			if got := lib.ValidateEmployee(e, tt.siblings); got.IsValid != tt.wantOK {
				t.Errorf("ValidateEmployee() = %+v, want valid=%v", got, tt.wantOK)
			}
		})
	}
}

func TestValidateTrip(t *testing.T) {
	lib := Default()
	trip := core.Trip{
		Meta:         meta("t1"),
		EmployeeName: "Ivanov",
		Destination:  "Astana",
		StartDate:    core.NewDate(2024, 12, 1),
		EndDate:      core.NewDate(2024, 12, 5),
		TotalAmount:  dec(150000),
	}
	other := core.Trip{
		Meta:         meta("t2"),
		EmployeeName: "Ivanov",
		Destination:  "Shymkent",
		StartDate:    core.NewDate(2024, 12, 3),
		EndDate:      core.NewDate(2024, 12, 7),
	}

	r := lib.ValidateTrip(trip, []core.Trip{other})
	if r.IsValid || r.Kind != KindUniqueness {
		t.Errorf("overlapping trip not flagged: %+v", r)
	}

	other.EmployeeName = "Petrov"
	if r := lib.ValidateTrip(trip, []core.Trip{other}); !r.IsValid {
		t.Errorf("other employee flagged: %+v", r)
	}

	touching := core.Trip{EmployeeName: "Ivanov", StartDate: core.NewDate(2024, 12, 5), EndDate: core.NewDate(2024, 12, 6)}
	if r := lib.ValidateTrip(trip, []core.Trip{touching}); r.IsValid {
		t.Errorf("trips sharing an end day must overlap")
	}

	sameDay := trip
	sameDay.EndDate = sameDay.StartDate
	if r := lib.ValidateTrip(sameDay, nil); r.IsValid {
		t.Errorf("zero-day trip accepted")
	}

	long := trip
	long.EndDate = core.NewDate(2025, 1, 1)
	if r := lib.ValidateTrip(long, nil); r.IsValid {
		t.Errorf("31-day trip accepted")
	}

	costly := trip
	costly.TotalAmount = dec(500001)
	if r := lib.ValidateTrip(costly, nil); r.IsValid {
		t.Errorf("costly trip accepted")
	}
}

func TestValidateUtilityCalculation(t *testing.T) {
	lib := Default()
	c := core.UtilityCalculation{
		Meta:             meta("u1"),
		ServiceName:      "electricity",
		CalculatedAmount: dec(120000),
		CalculationDate:  core.NewDate(2024, 9, 3),
	}
	if r := lib.ValidateUtilityCalculation(c, nil); !r.IsValid {
		t.Errorf("valid calculation flagged: %+v", r)
	}

	sameMonth := core.UtilityCalculation{ServiceName: "electricity", CalculationDate: core.NewDate(2024, 9, 28)}
	if r := lib.ValidateUtilityCalculation(c, []core.UtilityCalculation{sameMonth}); r.IsValid {
		t.Errorf("same service in same month accepted")
	}

	nextMonth := core.UtilityCalculation{ServiceName: "electricity", CalculationDate: core.NewDate(2024, 10, 1)}
	if r := lib.ValidateUtilityCalculation(c, []core.UtilityCalculation{nextMonth}); !r.IsValid {
		t.Errorf("next month flagged: %+v", r)
	}

	low := c
	low.CalculatedAmount = dec(9999)
	if r := lib.ValidateUtilityCalculation(low, nil); r.IsValid {
		t.Errorf("amount below minimum accepted")
	}
}

func TestCalculateTaxes(t *testing.T) {
	got := Default().CalculateTaxes(dec(200000), dec(50000), dec(0))

	want := Taxes{
		Gross:           dec(250000),
		SocialTax:       dec(23750),
		Pension:         dec(25000),
		TotalDeductions: dec(48750),
		Net:             dec(201250),
	}
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"gross", got.Gross, want.Gross},
		{"social", got.SocialTax, want.SocialTax},
		{"pension", got.Pension, want.Pension},
		{"total", got.TotalDeductions, want.TotalDeductions},
		{"net", got.Net, want.Net},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestCalculateTaxesRounds(t *testing.T) {
	got := Default().CalculateTaxes(dec(100001), dec(0), dec(0))
	// 100001 * 0.095 = 9500.095
	if !got.SocialTax.Equal(dec(9500)) {
		t.Errorf("SocialTax = %s, want 9500", got.SocialTax)
	}
}

func TestCalculateDailyAllowances(t *testing.T) {
	lib := Default()
	start, end := core.NewDate(2024, 12, 1), core.NewDate(2024, 12, 5)

	dom := lib.CalculateDailyAllowances(start, end, false)
	if dom.Days != 4 || !dom.Total.Equal(dec(32000)) {
		t.Errorf("domestic = %+v, want 4 days 32000", dom)
	}
	intl := lib.CalculateDailyAllowances(start, end, true)
	if !intl.Rate.Equal(dec(25000)) || !intl.Total.Equal(dec(100000)) {
		t.Errorf("international = %+v, want rate 25000 total 100000", intl)
	}
}
