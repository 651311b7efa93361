package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/staging"
	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save implements staging.RecordWriter. Existing ids are updated in place
// and keep their creation time.
func (r *SQLiteRepository) Save(ctx context.Context, rec core.Record) (core.Record, error) {
	t, err := tableFor(rec.Domain())
	if err != nil {
		return nil, err
	}
	prepared, err := staging.Prepare(rec, r.now())
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, t.upsertSQL(), t.values(prepared)...); err != nil {
		return nil, fmt.Errorf("save %s: %w", t.domain, err)
	}

	slog.DebugContext(ctx, "Staging record saved",
		"domain", t.domain,
		"id", prepared.Base().ID,
		"org_unit_code", prepared.Base().OrgUnitCode,
		"period_ym", prepared.Base().PeriodYM)

	return r.Get(ctx, t.domain, prepared.Base().ID)
}

func (r *SQLiteRepository) Get(ctx context.Context, domain core.Domain, id string) (core.Record, error) {
	t, err := tableFor(domain)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id)
	rec, err := t.scan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %s: %w", domain, id, core.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", domain, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, domain core.Domain, id string, status core.Status) error {
	t, err := tableFor(domain)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET status = ?, updated_at = ? WHERE id = ?", t.name()),
		string(status), formatTS(r.now()), id)
	if err != nil {
		return fmt.Errorf("update %s status: %w", domain, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s status: %w", domain, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s %s: %w", domain, id, core.ErrRecordNotFound)
	}
	return nil
}

// LoadSnapshot reads the six domain tables in parallel.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, scope core.Scope, status core.Status) (core.Snapshot, error) {
	where := " WHERE org_unit_code = ? AND period_ym = ?"
	args := []any{scope.OrgUnitCode, string(scope.PeriodYM)}
	if status != "" {
		where += " AND status = ?"
		args = append(args, string(status))
	}
	where += " ORDER BY created_at, id"

	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Contingent, err = queryDomain[core.Contingent](gctx, r.db, tables[core.DomainContingent], where, args)
		return err
	})
	g.Go(func() (err error) {
		snap.Accruals, err = queryDomain[core.IncomeAccrual](gctx, r.db, tables[core.DomainAccruals], where, args)
		return err
	})
	g.Go(func() (err error) {
		snap.CashSchedule, err = queryDomain[core.CashSchedule](gctx, r.db, tables[core.DomainCashSchedule], where, args)
		return err
	})
	g.Go(func() (err error) {
		snap.Staffing, err = queryDomain[core.Staffing](gctx, r.db, tables[core.DomainStaffing], where, args)
		return err
	})
	g.Go(func() (err error) {
		snap.Trips, err = queryDomain[core.Trip](gctx, r.db, tables[core.DomainTrips], where, args)
		return err
	})
	g.Go(func() (err error) {
		snap.Calculations, err = queryDomain[core.UtilityCalculation](gctx, r.db, tables[core.DomainCalculations], where, args)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot %s/%s: %w", scope.OrgUnitCode, scope.PeriodYM, err)
	}
	return snap, nil
}

func queryDomain[T core.Record](ctx context.Context, db *sql.DB, t table, where string, args []any) ([]T, error) {
	rows, err := db.QueryContext(ctx, t.selectSQL()+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name(), err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := t.scan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name(), err)
		}
		out = append(out, rec.(T))
	}
	return out, rows.Err()
}

func orgFilter(org string) (string, []any) {
	if org == "" {
		return "", nil
	}
	return " WHERE org_unit_code = ?", []any{org}
}

func (r *SQLiteRepository) CountRecords(ctx context.Context, org string) (map[core.Domain]int, error) {
	where, args := orgFilter(org)
	out := make(map[core.Domain]int, len(core.Domains))
	for _, d := range core.Domains {
		var n int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.Table()+where, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", d, err)
		}
		out[d] = n
	}
	return out, nil
}

func (r *SQLiteRepository) Periods(ctx context.Context, org string) ([]core.PeriodYM, error) {
	where, one := orgFilter(org)
	parts := make([]string, 0, len(core.Domains))
	var args []any
	for _, d := range core.Domains {
		parts = append(parts, "SELECT period_ym FROM "+d.Table()+where)
		args = append(args, one...)
	}
	rows, err := r.db.QueryContext(ctx, strings.Join(parts, " UNION ")+" ORDER BY period_ym", args...)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var out []core.PeriodYM
	for rows.Next() {
		var p core.PeriodYM
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) LastUpdated(ctx context.Context, org string) (time.Time, error) {
	where, args := orgFilter(org)
	var last time.Time
	for _, d := range core.Domains {
		var s sql.NullString
		if err := r.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM "+d.Table()+where, args...).Scan(&s); err != nil {
			return time.Time{}, fmt.Errorf("last update %s: %w", d, err)
		}
		if !s.Valid {
			continue
		}
		t, err := parseTS(s.String)
		if err != nil {
			return time.Time{}, err
		}
		if t.After(last) {
			last = t
		}
	}
	return last, nil
}

var _ staging.Store = (*SQLiteRepository)(nil)
