package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"quarra/internal/core"
	ports "quarra/internal/sheets"
)

// Store serves series held in memory, optionally seeded from CSV files.
type Store struct {
	mu     sync.Mutex
	series map[core.SeriesKind]core.Series
	base   string
	layout ports.Layout
}

var (
	_ ports.SeriesReader = (*Store)(nil)
	_ ports.SeriesWriter = (*Store)(nil)
)

// New returns a store holding the given series.
func New(series ...core.Series) *Store {
	s := &Store{series: map[core.SeriesKind]core.Series{}, layout: ports.DefaultLayout()}
	for _, v := range series {
		s.series[v.Kind] = v
	}
	return s
}

// NewFromFiles returns a store that reads "<base>/<sheet>.csv" for each series.
// Files are read on every call, so edits show up on the next page load.
func NewFromFiles(base string, layout ports.Layout) *Store {
	return &Store{series: map[core.SeriesKind]core.Series{}, base: base, layout: layout}
}

// ReadSeries returns the stored series, or reads it from the seed directory.
func (s *Store) ReadSeries(ctx context.Context, kind core.SeriesKind) (core.Series, error) {
	s.mu.Lock()
	v, ok := s.series[kind]
	s.mu.Unlock()
	if ok {
		return v, nil
	}
	if s.base == "" {
		return core.Series{}, fmt.Errorf("%s: %w", kind, ports.ErrSeriesNotFound)
	}

	sheet := s.layout.SheetName(kind)
	path := filepath.Join(s.base, sheet+".csv")
	rows, err := readCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Series{}, fmt.Errorf("%s (%s): %w", kind, path, ports.ErrSeriesNotFound)
		}
		return core.Series{}, err
	}
	series, skipped := ports.ParseValues(kind, ports.StringRows(rows), s.layout.DateColumnName())
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped rows with invalid dates", "series", kind, "path", path, "skipped", skipped)
	}
	return series, nil
}

// ReplaceSeries stores the series, shadowing any seed file.
func (s *Store) ReplaceSeries(_ context.Context, series core.Series) error {
	if !series.Kind.IsValid() {
		return core.ErrInvalidSeries
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[series.Kind] = series
	return nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
