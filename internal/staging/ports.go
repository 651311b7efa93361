// Package staging defines the repository ports the engine reads staging
// records through, plus helpers shared by the store implementations.
package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/google/uuid"
)

// Ports for repository adapters.
type (
	// SnapshotReader returns the records of one branch and period. An empty
	// status returns records in any status.
	SnapshotReader interface {
		LoadSnapshot(ctx context.Context, scope core.Scope, status core.Status) (core.Snapshot, error)
	}

	RecordReader interface {
		Get(ctx context.Context, domain core.Domain, id string) (core.Record, error)
	}

	RecordWriter interface {
		// Save inserts or replaces a record and returns it with id and
		// timestamps filled in.
		Save(ctx context.Context, rec core.Record) (core.Record, error)
		UpdateStatus(ctx context.Context, domain core.Domain, id string, status core.Status) error
	}

	// Counter feeds the statistics helpers. An empty org covers every branch.
	Counter interface {
		CountRecords(ctx context.Context, org string) (map[core.Domain]int, error)
		Periods(ctx context.Context, org string) ([]core.PeriodYM, error)
		LastUpdated(ctx context.Context, org string) (time.Time, error)
	}

	// LedgerPublisher replaces the published ledgers of a scope.
	LedgerPublisher interface {
		PublishLedgers(ctx context.Context, scope core.Scope, l core.Ledgers) error
	}

	LedgerReader interface {
		Ledgers(ctx context.Context, scope core.Scope) (core.Ledgers, error)
	}

	Store interface {
		SnapshotReader
		RecordReader
		RecordWriter
		Counter
		LedgerPublisher
		LedgerReader
		Close() error
	}
)

// Prepare fills in defaults before a record is stored: a new id, draft
// status and timestamps. It rejects records without a valid scope.
func Prepare(rec core.Record, now time.Time) (core.Record, error) {
	m := rec.Base()
	if m.OrgUnitCode == "" {
		return nil, fmt.Errorf("%w: record without org unit code", core.ErrInvalidScope)
	}
	if err := m.PeriodYM.Validate(); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = core.StatusDraft
	}
	if err := m.Status.Validate(); err != nil {
		return nil, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return core.WithMeta(rec, m)
}
