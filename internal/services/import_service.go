package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quarra/internal/core"
	"quarra/internal/sheets"
	"quarra/internal/sheets/excel"
	"quarra/internal/storage"
)

// ImportStore is where imported series end up.
type ImportStore interface {
	sheets.SeriesWriter
	RecordImportRun(ctx context.Context, run storage.ImportRun) error
}

// ImportResult summarizes one import.
type ImportResult struct {
	ID       string
	Source   string
	Records  map[core.SeriesKind]int
	Missing  []core.SeriesKind
	Duration time.Duration
}

// Total is the number of records imported across all series.
func (r ImportResult) Total() int {
	n := 0
	for _, c := range r.Records {
		n += c
	}
	return n
}

// ImportService copies the four series from a reader into the SQLite store.
type ImportService struct {
	store ImportStore
	now   func() time.Time
}

func NewImportService(store ImportStore) *ImportService {
	return &ImportService{store: store, now: time.Now}
}

// Import reads every series from reader and replaces the stored copies.
// A series the reader does not have is stored empty.
func (s *ImportService) Import(ctx context.Context, source string, reader sheets.SeriesReader) (ImportResult, error) {
	return s.ImportWithID(ctx, uuid.NewString(), source, reader)
}

// ImportWorkbook imports a local or gs:// workbook, opening it once.
func (s *ImportService) ImportWorkbook(ctx context.Context, id, path string, layout sheets.Layout) (ImportResult, error) {
	started := s.now()
	store, _, err := excel.New(path, layout).Load(ctx)
	if err != nil {
		s.recordFailure(ctx, id, path, started, err)
		return ImportResult{ID: id, Source: path}, fmt.Errorf("load workbook: %w", err)
	}
	return s.ImportWithID(ctx, id, path, store)
}

// ImportWithID is Import with a caller-provided run ID, e.g. from a queued request.
func (s *ImportService) ImportWithID(ctx context.Context, id, source string, reader sheets.SeriesReader) (ImportResult, error) {
	if id == "" {
		id = uuid.NewString()
	}
	started := s.now()
	result := ImportResult{ID: id, Source: source, Records: map[core.SeriesKind]int{}}

	// Read everything before writing anything, so a broken source leaves
	// the stored data untouched.
	loaded := make([]core.Series, 0, len(core.AllSeries))
	for _, kind := range core.AllSeries {
		series, err := reader.ReadSeries(ctx, kind)
		if err != nil {
			if !errors.Is(err, sheets.ErrSeriesNotFound) {
				s.recordFailure(ctx, id, source, started, err)
				return result, fmt.Errorf("read %s: %w", kind, err)
			}
			slog.WarnContext(ctx, "Series missing from source, importing as empty",
				"import_id", id, "series", kind)
			series = core.Series{Kind: kind, Fields: []string{}}
			result.Missing = append(result.Missing, kind)
		}
		series.Kind = kind
		loaded = append(loaded, series)
	}

	for _, series := range loaded {
		if err := s.store.ReplaceSeries(ctx, series); err != nil {
			s.recordFailure(ctx, id, source, started, err)
			return result, fmt.Errorf("store %s: %w", series.Kind, err)
		}
		result.Records[series.Kind] = len(series.Records)
	}

	finished := s.now()
	result.Duration = finished.Sub(started)
	run := storage.ImportRun{
		ID:         id,
		Source:     source,
		Status:     storage.StatusSucceeded,
		Records:    result.Total(),
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := s.store.RecordImportRun(ctx, run); err != nil {
		// The data is in place; only the audit row is lost.
		slog.ErrorContext(ctx, "Failed to record import run", "import_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Import completed",
		"import_id", id,
		"source", source,
		"records", result.Total(),
		"missing", len(result.Missing),
		"duration", result.Duration)
	return result, nil
}

func (s *ImportService) recordFailure(ctx context.Context, id, source string, started time.Time, cause error) {
	run := storage.ImportRun{
		ID:         id,
		Source:     source,
		Status:     storage.StatusFailed,
		Error:      cause.Error(),
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if err := s.store.RecordImportRun(ctx, run); err != nil {
		slog.ErrorContext(ctx, "Failed to record failed import run", "import_id", id, "error", err)
	}
}
