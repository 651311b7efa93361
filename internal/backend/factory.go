package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/b1411/finka/internal/amqp"
	"github.com/b1411/finka/internal/log"
	gsheet "github.com/b1411/finka/internal/sheets/google"
	sheetsmem "github.com/b1411/finka/internal/sheets/memory"
	"github.com/b1411/finka/internal/staging"
	"github.com/b1411/finka/internal/staging/memory"
	"github.com/b1411/finka/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, then the optional AMQP client and
// spreadsheet exporter. AMQP failures are logged and the backend runs
// without it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store staging.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store, err = f.createMemoryStore(ctx, config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &BackendResult{Store: store}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ETL requests",
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
		} else {
			res.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	switch {
	case config.GoogleSpreadsheetID != "":
		exporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			res.close()
			return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
		}
		res.Exporter = exporter
		f.logger.InfoContext(ctx, "Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
	case config.Type == MemoryBackend:
		res.Exporter = sheetsmem.New()
	}

	res.Cleanup = res.close
	return res, nil
}

func (r *BackendResult) close() error {
	var errs []error
	if r.AMQP != nil {
		errs = append(errs, r.AMQP.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (staging.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		counts, err := repo.CountRecords(ctx, "")
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("count records: %w", err)
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		if total == 0 {
			if err := f.seed(ctx, repo, config.SeedFile); err != nil {
				repo.Close()
				return nil, err
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) (staging.Store, error) {
	if config.SeedFile == "" {
		f.logger.InfoContext(ctx, "Initialized empty memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromSeed(ctx, config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("seed memory backend: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)
	return store, nil
}

func (f *DefaultFactory) seed(ctx context.Context, w staging.RecordWriter, path string) error {
	snap, err := staging.LoadSeed(path)
	if err != nil {
		return err
	}
	n, err := staging.Seed(ctx, w, snap)
	if err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "Seeded staging records", log.FieldRecords, n, "seed_file", path)
	return nil
}
