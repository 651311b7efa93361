package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/b1411/finka/internal/config"
	"github.com/b1411/finka/internal/core"
	sheetsmem "github.com/b1411/finka/internal/sheets/memory"
)

const seedJSON = `{
  "contingent": [
    {"id": "c1", "org_unit_code": "ALM01", "period_ym": "2024-09", "status": "approved",
     "grade_level": "5", "student_count": 28, "funding_source": "PU", "tariff_amount": "65000"}
  ]
}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func countAll(t *testing.T, res *BackendResult) int {
	t.Helper()
	counts, err := res.Store.CountRecords(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: writeSeed(t)})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Cleanup()

	if n := countAll(t, res); n != 1 {
		t.Errorf("seeded records = %d, want 1", n)
	}
	if _, ok := res.Exporter.(*sheetsmem.Exporter); !ok {
		t.Errorf("Exporter = %T, want in-memory exporter", res.Exporter)
	}
	if res.AMQP != nil || res.ETLPublisher() != nil {
		t.Error("AMQP should be off without a URL")
	}
}

func TestCreateSQLiteBackendSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "data", "finka.db"),
		SeedFile:     writeSeed(t),
	}

	res, err := NewFactory(nil).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Exporter != nil {
		t.Errorf("Exporter = %T, want none for sqlite without a spreadsheet", res.Exporter)
	}
	rec, err := res.Store.Get(ctx, core.DomainContingent, "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := res.Store.UpdateStatus(ctx, core.DomainContingent, rec.Base().ID, core.StatusDraft); err != nil {
		t.Fatal(err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	// Reopening must not overwrite the edited record with the seed.
	res, err = NewFactory(nil).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend() reopen error = %v", err)
	}
	defer res.Cleanup()
	rec, err = res.Store.Get(ctx, core.DomainContingent, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Base().Status != core.StatusDraft {
		t.Errorf("status after reopen = %s, want draft", rec.Base().Status)
	}
}

func TestCreateBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"invalid type", Config{Type: "sheets"}},
		{"sqlite without path", Config{Type: SQLiteBackend}},
		{"AMQP without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "finka"}},
		{"spreadsheet without credentials", Config{Type: MemoryBackend, GoogleSpreadsheetID: "sheet-1"}},
		{"malformed seed", Config{Type: MemoryBackend, SeedFile: func() string {
			p := filepath.Join(t.TempDir(), "bad.json")
			os.WriteFile(p, []byte("{"), 0644)
			return p
		}()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFactory(nil).CreateBackend(context.Background(), tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected an error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected an error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/finka.db",
		AMQPURL:      "amqp://localhost/",
		AMQPQueue:    "etl_requests",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "./data/finka.db" || cfg.AMQPQueue != "etl_requests" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}
