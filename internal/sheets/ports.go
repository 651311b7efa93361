package sheets

import (
	"context"

	"github.com/b1411/finka/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter mirrors published ledgers to an external spreadsheet.
	LedgerExporter interface {
		ExportLedgers(ctx context.Context, scope core.Scope, l core.Ledgers) error
	}
)
