package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain names one staging area.
type Domain string

const (
	DomainContingent   Domain = "contingent"
	DomainAccruals     Domain = "income_accruals"
	DomainCashSchedule Domain = "cash_schedule"
	DomainStaffing     Domain = "staffing"
	DomainTrips        Domain = "trips"
	DomainCalculations Domain = "utility_calculations"
)

// Domains lists every staging domain in validation order.
var Domains = []Domain{
	DomainContingent,
	DomainAccruals,
	DomainCashSchedule,
	DomainStaffing,
	DomainTrips,
	DomainCalculations,
}

func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// Table returns the staging table backing the domain.
func (d Domain) Table() string {
	return "stg_" + string(d)
}

const (
	EmploymentActive     = "ACTIVE"
	EmploymentTerminated = "TERMINATED"
	EmploymentOnLeave    = "ON_LEAVE"
	EmploymentSuspended  = "SUSPENDED"
)

const (
	ReceiptPending  = "PENDING"
	ReceiptReceived = "RECEIVED"
	ReceiptOverdue  = "OVERDUE"
)

// PreparatoryGrade is exempt from the class minimum.
const PreparatoryGrade = "0"

// Meta carries the fields every staging record shares.
type Meta struct {
	ID          string    `json:"id"`
	OrgUnitCode string    `json:"org_unit_code"`
	PeriodYM    PeriodYM  `json:"period_ym"`
	Status      Status    `json:"status"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Record is implemented by every staging variant.
type Record interface {
	Domain() Domain
	Base() Meta
}

type Contingent struct {
	Meta
	ProgramName      string              `json:"program_name"`
	GradeLevel       string              `json:"grade_level"`
	EducationProfile string              `json:"education_profile"`
	Language         string              `json:"study_language"`
	StudentCount     int                 `json:"student_count"`
	FundingSource    FundingSource       `json:"funding_source"`
	TariffAmount     decimal.NullDecimal `json:"tariff_amount"`
	CalculationNote  string              `json:"calculation_note,omitempty"`
}

type IncomeAccrual struct {
	Meta
	FundingSource   FundingSource   `json:"funding_source"`
	ArticleCode     string          `json:"article_code"`
	AccrualAmount   decimal.Decimal `json:"accrual_amount"`
	AccrualDate     Date            `json:"accrual_date"`
	CalculationBase string          `json:"calculation_base,omitempty"`
	ContingentID    string          `json:"contingent_id,omitempty"`
}

type CashSchedule struct {
	Meta
	FundingSource FundingSource   `json:"funding_source"`
	ArticleCode   string          `json:"article_code"`
	Amount        decimal.Decimal `json:"amount"`
	ExpectedDate  Date            `json:"expected_date"`
	PaymentDate   Date            `json:"payment_date"`
	DocDate       Date            `json:"doc_date"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	ReceiptStatus string          `json:"receipt_status"`
	Description   string          `json:"description,omitempty"`
	AccrualID     string          `json:"accrual_id,omitempty"`
}

type Staffing struct {
	Meta
	EmployeeID       string          `json:"employee_id"`
	FullName         string          `json:"full_name"`
	Position         string          `json:"position"`
	Department       string          `json:"department,omitempty"`
	EmploymentStatus string          `json:"employment_status"`
	BaseSalary       decimal.Decimal `json:"base_salary"`
	Bonus            decimal.Decimal `json:"bonus"`
	Allowances       decimal.Decimal `json:"allowances"`
}

// TotalSalary is base salary plus bonus plus allowances.
func (s Staffing) TotalSalary() decimal.Decimal {
	return s.BaseSalary.Add(s.Bonus).Add(s.Allowances)
}

func (s Staffing) Active() bool { return s.EmploymentStatus == EmploymentActive }

type Trip struct {
	Meta
	EmployeeName  string          `json:"employee_name"`
	Destination   string          `json:"destination"`
	Purpose       string          `json:"purpose,omitempty"`
	StartDate     Date            `json:"start_date"`
	EndDate       Date            `json:"end_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	International bool            `json:"international"`
	FundingSource FundingSource   `json:"funding_source"`
	ArticleCode   string          `json:"article_code"`
}

type UtilityCalculation struct {
	Meta
	ServiceName       string          `json:"service_name"`
	CalculationMethod string          `json:"calculation_method"`
	CalculatedAmount  decimal.Decimal `json:"calculated_amount"`
	CalculationDate   Date            `json:"calculation_date"`
	FundingSource     FundingSource   `json:"funding_source"`
	ArticleCode       string          `json:"article_code"`
}

func (r Contingent) Domain() Domain { return DomainContingent }
func (r IncomeAccrual) Domain() Domain { return DomainAccruals }
func (r CashSchedule) Domain() Domain { return DomainCashSchedule }
func (r Staffing) Domain() Domain { return DomainStaffing }
func (r Trip) Domain() Domain { return DomainTrips }
func (r UtilityCalculation) Domain() Domain { return DomainCalculations }

func (r Contingent) Base() Meta { return r.Meta }
func (r IncomeAccrual) Base() Meta { return r.Meta }
func (r CashSchedule) Base() Meta { return r.Meta }
func (r Staffing) Base() Meta { return r.Meta }
func (r Trip) Base() Meta { return r.Meta }
func (r UtilityCalculation) Base() Meta { return r.Meta }

// WithMeta returns a copy of r carrying m.
func WithMeta(r Record, m Meta) (Record, error) {
	switch v := r.(type) {
	case Contingent:
		v.Meta = m
		return v, nil
	case IncomeAccrual:
		v.Meta = m
		return v, nil
	case CashSchedule:
		v.Meta = m
		return v, nil
	case Staffing:
		v.Meta = m
		return v, nil
	case Trip:
		v.Meta = m
		return v, nil
	case UtilityCalculation:
		v.Meta = m
		return v, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownDomain, r)
}

// DecodeRecord parses a JSON record of the given domain.
func DecodeRecord(d Domain, data []byte) (Record, error) {
	var (
		rec Record
		err error
	)
	switch d {
	case DomainContingent:
		var v Contingent
		err = json.Unmarshal(data, &v)
		rec = v
	case DomainAccruals:
		var v IncomeAccrual
		err = json.Unmarshal(data, &v)
		rec = v
	case DomainCashSchedule:
		var v CashSchedule
		err = json.Unmarshal(data, &v)
		rec = v
	case DomainStaffing:
		var v Staffing
		err = json.Unmarshal(data, &v)
		rec = v
	case DomainTrips:
		var v Trip
		err = json.Unmarshal(data, &v)
		rec = v
	case DomainCalculations:
		var v UtilityCalculation
		err = json.Unmarshal(data, &v)
		rec = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s record: %w", d, err)
	}
	return rec, nil
}
