package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"quarra/internal/gcs"
	"quarra/internal/sheets/excel"
	gsheet "quarra/internal/sheets/google"
	"quarra/internal/sheets/memory"
	"quarra/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case ExcelBackend:
		return f.createExcelBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir, config.Layout)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Backend: store, Check: statCheck(dataDir)}, nil
}

func (f *DefaultFactory) createExcelBackend(config Config) (*BackendResult, error) {
	wb := excel.New(config.WorkbookPath, config.Layout)
	f.logger.Info("Initialized excel backend",
		"workbook", config.WorkbookPath,
		"remote", gcs.IsURI(config.WorkbookPath))

	result := &BackendResult{Backend: wb}
	if !gcs.IsURI(config.WorkbookPath) {
		result.Check = statCheck(config.WorkbookPath)
	}
	return result, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx, config.GoogleSpreadsheetID, config.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
		Check:   repo.Ping,
	}, nil
}

// statCheck reports a missing local file or directory.
func statCheck(path string) CheckFunc {
	return func(context.Context) error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("data source unavailable: %w", err)
		}
		return nil
	}
}
