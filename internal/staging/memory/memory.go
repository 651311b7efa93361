package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/staging"
)

type ledgerKey struct {
	org    string
	period core.PeriodYM
}

// Store keeps staging records and published ledgers in memory. Records are
// returned in insertion order.
type Store struct {
	mu      sync.RWMutex
	records map[core.Domain]map[string]core.Record
	order   map[core.Domain][]string
	ledgers map[ledgerKey]core.Ledgers
	now     func() time.Time
}

func New() *Store {
	s := &Store{
		records: make(map[core.Domain]map[string]core.Record),
		order:   make(map[core.Domain][]string),
		ledgers: make(map[ledgerKey]core.Ledgers),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, d := range core.Domains {
		s.records[d] = make(map[string]core.Record)
	}
	return s
}

// NewFromSeed returns a store preloaded from a JSON snapshot file.
func NewFromSeed(ctx context.Context, path string) (*Store, error) {
	s := New()
	snap, err := staging.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	if _, err := staging.Seed(ctx, s, snap); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Save(_ context.Context, rec core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.Domain()][rec.Base().ID]; ok {
		m := rec.Base()
		m.CreatedAt = existing.Base().CreatedAt
		var err error
		if rec, err = core.WithMeta(rec, m); err != nil {
			return nil, err
		}
	}
	prepared, err := staging.Prepare(rec, s.now())
	if err != nil {
		return nil, err
	}
	d, id := prepared.Domain(), prepared.Base().ID
	if _, ok := s.records[d][id]; !ok {
		s.order[d] = append(s.order[d], id)
	}
	s.records[d][id] = prepared
	return prepared, nil
}

func (s *Store) Get(_ context.Context, domain core.Domain, id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.records[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDomain, domain)
	}
	rec, ok := recs[id]
	if !ok {
		return nil, fmt.Errorf("get %s %s: %w", domain, id, core.ErrRecordNotFound)
	}
	return rec, nil
}

func (s *Store) UpdateStatus(_ context.Context, domain core.Domain, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[domain][id]
	if !ok {
		return fmt.Errorf("update %s %s: %w", domain, id, core.ErrRecordNotFound)
	}
	m := rec.Base()
	m.Status = status
	m.UpdatedAt = s.now()
	updated, err := core.WithMeta(rec, m)
	if err != nil {
		return err
	}
	s.records[domain][id] = updated
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context, scope core.Scope, status core.Status) (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snap core.Snapshot
	for _, d := range core.Domains {
		for _, id := range s.order[d] {
			rec := s.records[d][id]
			m := rec.Base()
			if !scope.Matches(m.OrgUnitCode, m.PeriodYM) || (status != "" && m.Status != status) {
				continue
			}
			if err := snap.Add(rec); err != nil {
				return core.Snapshot{}, err
			}
		}
	}
	return snap, nil
}

func (s *Store) CountRecords(_ context.Context, org string) (map[core.Domain]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.Domain]int, len(core.Domains))
	for _, d := range core.Domains {
		out[d] = 0
	}
	s.each(org, func(rec core.Record) { out[rec.Domain()]++ })
	return out, nil
}

func (s *Store) Periods(_ context.Context, org string) ([]core.PeriodYM, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[core.PeriodYM]struct{}{}
	s.each(org, func(rec core.Record) { seen[rec.Base().PeriodYM] = struct{}{} })
	out := make([]core.PeriodYM, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) LastUpdated(_ context.Context, org string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	s.each(org, func(rec core.Record) {
		if u := rec.Base().UpdatedAt; u.After(last) {
			last = u
		}
	})
	return last, nil
}

func (s *Store) PublishLedgers(_ context.Context, scope core.Scope, l core.Ledgers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[ledgerKey{scope.OrgUnitCode, scope.PeriodYM}] = l
	return nil
}

func (s *Store) Ledgers(_ context.Context, scope core.Scope) (core.Ledgers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledgers[ledgerKey{scope.OrgUnitCode, scope.PeriodYM}], nil
}

func (s *Store) Close() error { return nil }

// each visits every record of org, or of all branches when org is empty.
// Callers hold the lock.
func (s *Store) each(org string, fn func(core.Record)) {
	for _, d := range core.Domains {
		for _, id := range s.order[d] {
			rec := s.records[d][id]
			if org != "" && rec.Base().OrgUnitCode != org {
				continue
			}
			fn(rec)
		}
	}
}

var _ staging.Store = (*Store)(nil)
