package backend

import (
	"context"

	"quarra/internal/sheets"
)

// Backend is the data source the dashboard reads series from.
type Backend interface {
	sheets.SeriesReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// CheckFunc reports whether the backend can currently serve reads.
type CheckFunc func(ctx context.Context) error

// BackendResult contains the backend instance and optional cleanup and
// readiness functions
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	Check   CheckFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type   BackendType
	Layout sheets.Layout

	// Memory backend specific
	DataDirectory string

	// Excel backend specific, local path or gs:// URI
	WorkbookPath string

	// Google Sheets specific
	GoogleSpreadsheetID string

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	ExcelBackend  BackendType = "excel"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, ExcelBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
