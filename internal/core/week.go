// Package core holds the domain types and the weekly reporting pipeline.
//
// Records are grouped into 7-day windows that end on a fixed weekday. Every
// window is identified by its end date, and months are attributed by that end
// date only: a week running from 27 January to 2 February belongs to February.
package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// WeekLength is the width of a bucket window in days.
const WeekLength = 7

// WindowEnd returns the end date of the window containing d, i.e. the first
// date on or after d that falls on weekEndsOn.
func WindowEnd(d Date, weekEndsOn time.Weekday) Date {
	offset := (int(weekEndsOn) - int(d.Weekday()) + WeekLength) % WeekLength
	return DateOf(d.Time).AddDays(offset)
}

// AggregateByWeek buckets records into weekly windows ending on weekEndsOn
// and sums every field per window.
//
// Only windows that contain at least one record are returned, sorted by end
// date. Absent values are skipped; a field without any value in a window sums
// to zero. Field order follows the first appearance across records. The input
// is not modified.
func AggregateByWeek(records []Record, weekEndsOn time.Weekday) []WeekBucket {
	type acc struct {
		sums     map[string]decimal.Decimal
		observed map[string]int
	}

	var order []string
	known := map[string]struct{}{}
	windows := map[time.Time]*acc{}

	for _, r := range records {
		end := WindowEnd(r.Date, weekEndsOn)
		a, ok := windows[end.Time]
		if !ok {
			a = &acc{sums: map[string]decimal.Decimal{}, observed: map[string]int{}}
			windows[end.Time] = a
		}
		for _, f := range r.Fields {
			if _, seen := known[f.Name]; !seen {
				known[f.Name] = struct{}{}
				order = append(order, f.Name)
			}
			if !f.Value.Valid {
				continue
			}
			a.sums[f.Name] = a.sums[f.Name].Add(f.Value.Decimal)
			a.observed[f.Name]++
		}
	}

	ends := make([]time.Time, 0, len(windows))
	for end := range windows {
		ends = append(ends, end)
	}
	slices.SortFunc(ends, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]WeekBucket, 0, len(ends))
	for _, t := range ends {
		a := windows[t]
		end := Date{Time: t}
		fields := make([]FieldSum, 0, len(order))
		for _, name := range order {
			sum, ok := a.sums[name]
			if !ok {
				sum = decimal.Zero
			}
			fields = append(fields, FieldSum{Name: name, Sum: sum, Observed: a.observed[name]})
		}
		out = append(out, WeekBucket{End: end, Fields: fields, Label: LabelWeek(end)})
	}
	return out
}

// LabelWeek formats the window ending on end as "DD-Mon → DD-Mon".
// Month abbreviations are English and independent of the locale.
func LabelWeek(end Date) string {
	start := end.AddDays(-(WeekLength - 1))
	return fmt.Sprintf("%02d-%s → %02d-%s",
		start.Day(), monthAbbrev(start.Month()),
		end.Day(), monthAbbrev(end.Month()))
}

func monthAbbrev(m time.Month) string {
	return m.String()[:3]
}
