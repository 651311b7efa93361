package core

// Snapshot is a point-in-time set of staging records, one slice per domain.
type Snapshot struct {
	Contingent   []Contingent         `json:"contingent"`
	Accruals     []IncomeAccrual      `json:"income_accruals"`
	CashSchedule []CashSchedule       `json:"cash_schedule"`
	Staffing     []Staffing           `json:"staffing"`
	Trips        []Trip               `json:"trips"`
	Calculations []UtilityCalculation `json:"utility_calculations"`
}

// Len returns the number of records across all domains.
func (s Snapshot) Len() int {
	return len(s.Contingent) + len(s.Accruals) + len(s.CashSchedule) +
		len(s.Staffing) + len(s.Trips) + len(s.Calculations)
}

// Count returns the number of records in one domain.
func (s Snapshot) Count(d Domain) int {
	switch d {
	case DomainContingent:
		return len(s.Contingent)
	case DomainAccruals:
		return len(s.Accruals)
	case DomainCashSchedule:
		return len(s.CashSchedule)
	case DomainStaffing:
		return len(s.Staffing)
	case DomainTrips:
		return len(s.Trips)
	case DomainCalculations:
		return len(s.Calculations)
	}
	return 0
}

// Add appends r to the slice of its domain.
func (s *Snapshot) Add(r Record) error {
	switch v := r.(type) {
	case Contingent:
		s.Contingent = append(s.Contingent, v)
	case IncomeAccrual:
		s.Accruals = append(s.Accruals, v)
	case CashSchedule:
		s.CashSchedule = append(s.CashSchedule, v)
	case Staffing:
		s.Staffing = append(s.Staffing, v)
	case Trip:
		s.Trips = append(s.Trips, v)
	case UtilityCalculation:
		s.Calculations = append(s.Calculations, v)
	default:
		return ErrUnknownDomain
	}
	return nil
}

// Records flattens the snapshot in domain order.
func (s Snapshot) Records() []Record {
	out := make([]Record, 0, s.Len())
	for _, r := range s.Contingent {
		out = append(out, r)
	}
	for _, r := range s.Accruals {
		out = append(out, r)
	}
	for _, r := range s.CashSchedule {
		out = append(out, r)
	}
	for _, r := range s.Staffing {
		out = append(out, r)
	}
	for _, r := range s.Trips {
		out = append(out, r)
	}
	for _, r := range s.Calculations {
		out = append(out, r)
	}
	return out
}

// Filter keeps the records that belong to scope and, when status is not
// empty, carry that status. It returns the number of records dropped.
func (s Snapshot) Filter(scope Scope, status Status) (Snapshot, int) {
	var out Snapshot
	dropped := 0
	for _, r := range s.Records() {
		m := r.Base()
		if !scope.Matches(m.OrgUnitCode, m.PeriodYM) || (status != "" && m.Status != status) {
			dropped++
			continue
		}
		_ = out.Add(r)
	}
	return out, dropped
}
