package sheets

import (
	"context"
	"errors"

	"quarra/internal/core"
)

// ErrSeriesNotFound reports that the source has no relation for a series.
// Callers treat it as "no data for this series", not as a failure.
var ErrSeriesNotFound = errors.New("series not found")

// Ports for inbound data sources.
type (
	// SeriesReader loads one source relation as dated records.
	SeriesReader interface {
		ReadSeries(ctx context.Context, kind core.SeriesKind) (core.Series, error)
	}

	// Snapshotter is a reader whose relations live in one document. Snapshot
	// reads it once and returns a reader over that copy, so every series of
	// a report comes from the same version.
	Snapshotter interface {
		SeriesReader
		Snapshot(ctx context.Context) (SeriesReader, error)
	}

	// SeriesWriter replaces the stored records of a series.
	SeriesWriter interface {
		ReplaceSeries(ctx context.Context, s core.Series) error
	}
)

// Layout maps series to the tab (or table) holding them.
type Layout struct {
	Sheets     map[core.SeriesKind]string
	DateColumn string
}

// DefaultLayout matches the tab names of the company workbook.
func DefaultLayout() Layout {
	return Layout{
		Sheets: map[core.SeriesKind]string{
			core.Production: "Produzione",
			core.Income:     "Entrate",
			core.Expense:    "Uscite",
			core.Balance:    "Saldo",
		},
		DateColumn: "Data",
	}
}

// SheetName returns the tab name for kind, falling back to the default layout.
func (l Layout) SheetName(kind core.SeriesKind) string {
	if name, ok := l.Sheets[kind]; ok && name != "" {
		return name
	}
	return DefaultLayout().Sheets[kind]
}

// DateColumnName returns the configured date header, "Data" when unset.
func (l Layout) DateColumnName() string {
	if l.DateColumn == "" {
		return DefaultLayout().DateColumn
	}
	return l.DateColumn
}

// IsNotFound reports whether err marks a missing series.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSeriesNotFound)
}
