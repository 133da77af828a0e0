// Package excel reads series from an xlsx workbook, one tab per series.
package excel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"quarra/internal/core"
	"quarra/internal/gcs"
	ports "quarra/internal/sheets"
	"quarra/internal/sheets/memory"
)

// Workbook reads a local or gs:// workbook. The file is opened on every read.
type Workbook struct {
	path   string
	layout ports.Layout
	fetch  func(ctx context.Context, uri string) ([]byte, error)
}

var _ ports.Snapshotter = (*Workbook)(nil)

// New returns a reader for the workbook at path.
func New(path string, layout ports.Layout) *Workbook {
	return &Workbook{path: path, layout: layout, fetch: gcs.Fetch}
}

// Path returns the configured workbook location.
func (w *Workbook) Path() string { return w.path }

func (w *Workbook) open(ctx context.Context) (*excelize.File, error) {
	if gcs.IsURI(w.path) {
		data, err := w.fetch(ctx, w.path)
		if err != nil {
			return nil, fmt.Errorf("fetch workbook: %w", err)
		}
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
		}
		return f, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	return f, nil
}

// ReadSeries reads the tab mapped to kind.
func (w *Workbook) ReadSeries(ctx context.Context, kind core.SeriesKind) (core.Series, error) {
	f, err := w.open(ctx)
	if err != nil {
		return core.Series{}, err
	}
	defer f.Close()
	return w.readSheet(ctx, f, kind)
}

// Load reads every series with a single open of the workbook. Missing tabs
// are left out of the returned store.
func (w *Workbook) Load(ctx context.Context) (*memory.Store, []core.SeriesKind, error) {
	f, err := w.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var (
		loaded  []core.Series
		missing []core.SeriesKind
	)
	for _, kind := range core.AllSeries {
		s, err := w.readSheet(ctx, f, kind)
		if err != nil {
			if ports.IsNotFound(err) {
				missing = append(missing, kind)
				continue
			}
			return nil, nil, err
		}
		loaded = append(loaded, s)
	}
	return memory.New(loaded...), missing, nil
}

// Snapshot opens the workbook once and returns its series in memory.
// Missing tabs read as ErrSeriesNotFound from the returned store.
func (w *Workbook) Snapshot(ctx context.Context) (ports.SeriesReader, error) {
	store, _, err := w.Load(ctx)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (w *Workbook) readSheet(ctx context.Context, f *excelize.File, kind core.SeriesKind) (core.Series, error) {
	sheet := w.layout.SheetName(kind)
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx == -1 {
		return core.Series{}, fmt.Errorf("%s (tab %q): %w", kind, sheet, ports.ErrSeriesNotFound)
	}

	// Raw values keep dates as serial numbers regardless of cell formatting.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.Series{}, fmt.Errorf("read tab %q: %w", sheet, err)
	}

	series, skipped := ports.ParseValues(kind, ports.StringRows(rows), w.layout.DateColumnName())
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped rows with invalid dates", "series", kind, "sheet", sheet, "skipped", skipped)
	}
	return series, nil
}
