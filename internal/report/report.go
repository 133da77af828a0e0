// Package report assembles the weekly dashboard for a selected month.
//
// A report is built from scratch on every call: the four series are read from
// the configured source, aggregated into weeks and filtered to one month. No
// state is kept between builds.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"quarra/internal/config"
	"quarra/internal/core"
	"quarra/internal/sheets"
)

var (
	gaugeFactor  = decimal.NewFromFloat(1.5)
	gaugeDefault = decimal.NewFromInt(100)
)

// SeriesView is one series as shown on the dashboard.
type SeriesView struct {
	Kind    core.SeriesKind
	Config  config.SeriesConfig
	Fields  []string
	Weekly  []core.WeekBucket
	Monthly []core.WeekBucket
	// Latest is the most recent week of the whole history, nil when empty.
	Latest *core.WeekBucket
	// Missing is set when the source has no relation for the series.
	Missing bool
}

// Report is the result of one Build.
type Report struct {
	Series       []SeriesView
	Months       []core.YearMonth
	Selected     core.YearMonth
	HasSelection bool
	LatestEnd    core.Date
	LatestLabel  string
	WeekEndsOn   time.Weekday
	GeneratedAt  time.Time
}

// Builder reads series from Reader and builds reports.
type Builder struct {
	Reader     sheets.SeriesReader
	Catalog    *config.SeriesCatalog
	WeekEndsOn time.Weekday
	Now        func() time.Time
}

// NewBuilder returns a builder with the default catalog and the wall clock.
func NewBuilder(reader sheets.SeriesReader, catalog *config.SeriesCatalog, weekEndsOn time.Weekday) *Builder {
	return &Builder{Reader: reader, Catalog: catalog, WeekEndsOn: weekEndsOn, Now: time.Now}
}

// Build loads every series and assembles the report. When selection is nil
// the month is picked with core.DefaultMonth. A selection outside the
// available months yields empty monthly views, not an error.
func (b *Builder) Build(ctx context.Context, selection *core.YearMonth) (*Report, error) {
	if b.Reader == nil {
		return nil, errors.New("report builder has no reader")
	}
	if selection != nil {
		if err := selection.Validate(); err != nil {
			return nil, err
		}
	}
	catalog := b.Catalog
	if catalog == nil {
		catalog = config.DefaultSeriesCatalog()
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	series, missing, err := b.load(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{WeekEndsOn: b.WeekEndsOn, GeneratedAt: now()}
	weekly := make([][]core.WeekBucket, 0, len(core.AllSeries))
	for i, kind := range core.AllSeries {
		buckets := core.AggregateByWeek(series[i].Records, b.WeekEndsOn)
		weekly = append(weekly, buckets)

		view := SeriesView{
			Kind:    kind,
			Config:  catalog.Get(kind),
			Fields:  series[i].Fields,
			Weekly:  buckets,
			Missing: missing[i],
		}
		if len(buckets) > 0 {
			latest := buckets[len(buckets)-1]
			view.Latest = &latest
			if latest.End.After(rep.LatestEnd.Time) {
				rep.LatestEnd = latest.End
			}
		}
		rep.Series = append(rep.Series, view)
	}

	// The header week follows the balance sheet; other series only stand in
	// when it has no rows.
	if bal := rep.Get(core.Balance); bal != nil && bal.Latest != nil {
		rep.LatestEnd = bal.Latest.End
	}
	if !rep.LatestEnd.IsZero() {
		rep.LatestLabel = core.LabelWeek(rep.LatestEnd)
	}

	rep.Months = core.AvailableMonths(weekly...)
	if selection != nil {
		rep.Selected, rep.HasSelection = *selection, true
	} else {
		rep.Selected, rep.HasSelection = core.DefaultMonth(rep.Months, rep.GeneratedAt)
	}

	for i := range rep.Series {
		if rep.HasSelection {
			rep.Series[i].Monthly = core.FilterByMonth(rep.Series[i].Weekly, rep.Selected.Year, rep.Selected.Month)
		} else {
			rep.Series[i].Monthly = []core.WeekBucket{}
		}
	}
	return rep, nil
}

// load reads the series concurrently, from a single snapshot when the
// reader supports one. Results are indexed like core.AllSeries.
func (b *Builder) load(ctx context.Context) ([]core.Series, []bool, error) {
	series := make([]core.Series, len(core.AllSeries))
	missing := make([]bool, len(core.AllSeries))

	reader := b.Reader
	if snap, ok := reader.(sheets.Snapshotter); ok {
		r, err := snap.Snapshot(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load source: %w", err)
		}
		reader = r
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range core.AllSeries {
		g.Go(func() error {
			s, err := reader.ReadSeries(gctx, kind)
			if err != nil {
				if errors.Is(err, sheets.ErrSeriesNotFound) {
					slog.WarnContext(gctx, "Series not found, treating as empty", "series", kind, "error", err)
					series[i] = core.Series{Kind: kind, Fields: []string{}, Records: []core.Record{}}
					missing[i] = true
					return nil
				}
				return fmt.Errorf("read %s: %w", kind, err)
			}
			s.Kind = kind
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return series, missing, nil
}

// Get returns the view of kind, or nil.
func (r *Report) Get(kind core.SeriesKind) *SeriesView {
	for i := range r.Series {
		if r.Series[i].Kind == kind {
			return &r.Series[i]
		}
	}
	return nil
}

// IsEmpty reports whether the series has no weekly data at all.
func (v SeriesView) IsEmpty() bool {
	return len(v.Weekly) == 0
}

// Field is the field plotted on the dashboard: the configured default field
// when the series has it, otherwise the first one.
func (v SeriesView) Field() string {
	if f := v.Config.DefaultField; f != "" {
		for _, name := range v.Fields {
			if name == f {
				return f
			}
		}
	}
	if len(v.Fields) > 0 {
		return v.Fields[0]
	}
	if v.Latest != nil && len(v.Latest.Fields) > 0 {
		return v.Latest.Fields[0].Name
	}
	return ""
}

// LatestValue is the plotted field of the latest week, zero when empty.
func (v SeriesView) LatestValue() decimal.Decimal {
	if v.Latest == nil {
		return decimal.Zero
	}
	return v.Latest.Value(v.Field())
}

// GaugeMax is the upper bound of the gauge axis for value.
func GaugeMax(value decimal.Decimal) decimal.Decimal {
	if value.IsPositive() {
		return value.Mul(gaugeFactor)
	}
	return gaugeDefault
}
