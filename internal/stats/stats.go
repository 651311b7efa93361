// Package stats summarises what the staging area holds.
package stats

import (
	"context"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/staging"
)

type Statistics struct {
	StagingRecords   map[core.Domain]int `json:"staging_records"`
	ProcessedPeriods []core.PeriodYM     `json:"processed_periods"`
	LastUpdated      *time.Time          `json:"last_updated"`
	Errors           []string            `json:"errors"`
}

// Collect counts staging records per domain, lists the periods present and
// finds the latest update. An empty org covers every branch. Repository
// failures are reported in Errors and leave the affected field empty.
func Collect(ctx context.Context, c staging.Counter, org string) Statistics {
	st := Statistics{
		StagingRecords:   make(map[core.Domain]int, len(core.Domains)),
		ProcessedPeriods: []core.PeriodYM{},
		Errors:           []string{},
	}
	for _, d := range core.Domains {
		st.StagingRecords[d] = 0
	}

	counts, err := c.CountRecords(ctx, org)
	if err != nil {
		st.Errors = append(st.Errors, err.Error())
	}
	for d, n := range counts {
		st.StagingRecords[d] = n
	}

	periods, err := c.Periods(ctx, org)
	if err != nil {
		st.Errors = append(st.Errors, err.Error())
	} else if periods != nil {
		st.ProcessedPeriods = periods
	}

	last, err := c.LastUpdated(ctx, org)
	if err != nil {
		st.Errors = append(st.Errors, err.Error())
	} else if !last.IsZero() {
		st.LastUpdated = &last
	}
	return st
}
