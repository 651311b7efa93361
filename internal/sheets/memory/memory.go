// Package memory keeps exported ledgers in process, for development setups
// without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"github.com/b1411/finka/internal/cache"
	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/export"
	ports "github.com/b1411/finka/internal/sheets"
)

type Exporter struct {
	mu     sync.Mutex
	sheets map[string][]export.Sheet
}

var _ ports.LedgerExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{sheets: make(map[string][]export.Sheet)}
}

// ExportLedgers replaces the sheets stored for scope.
func (e *Exporter) ExportLedgers(_ context.Context, scope core.Scope, l core.Ledgers) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[cache.ScopeKey(scope.OrgUnitCode, scope.PeriodYM)] = export.Sheets(l)
	return nil
}

// Sheets returns the last export for scope.
func (e *Exporter) Sheets(scope core.Scope) ([]export.Sheet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sheets[cache.ScopeKey(scope.OrgUnitCode, scope.PeriodYM)]
	return s, ok
}
