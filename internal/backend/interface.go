package backend

import (
	"context"

	"github.com/b1411/finka/internal/amqp"
	"github.com/b1411/finka/internal/services"
	"github.com/b1411/finka/internal/sheets"
	"github.com/b1411/finka/internal/staging"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the collaborators every command is built from.
// AMQP and Exporter are nil when not configured.
type BackendResult struct {
	Store    staging.Store
	AMQP     *amqp.Client
	Exporter sheets.LedgerExporter
	Cleanup  CleanupFunc
}

// ETLPublisher returns the AMQP client as a publisher, or a nil interface
// when AMQP is off.
func (r *BackendResult) ETLPublisher() services.ETLPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	// SeedFile preloads staging records. A SQLite database is only seeded
	// while it is empty.
	SeedFile string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
