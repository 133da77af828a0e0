package core

import (
	"slices"
	"time"
)

// FilterByMonth keeps the buckets whose end date falls in year/month,
// preserving their order.
func FilterByMonth(buckets []WeekBucket, year int, month time.Month) []WeekBucket {
	out := make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.End.Year() == year && b.End.Month() == month {
			out = append(out, b)
		}
	}
	return out
}

// AvailableMonths returns the distinct months of the bucket end dates in
// ascending order. Several bucket sequences can be passed to enumerate their union.
func AvailableMonths(buckets ...[]WeekBucket) []YearMonth {
	seen := map[YearMonth]struct{}{}
	var out []YearMonth
	for _, seq := range buckets {
		for _, b := range seq {
			ym := b.End.YearMonth()
			if _, ok := seen[ym]; ok {
				continue
			}
			seen[ym] = struct{}{}
			out = append(out, ym)
		}
	}
	slices.SortFunc(out, func(a, b YearMonth) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// DefaultMonth picks the month matching now when available, otherwise the most
// recent one. It returns false when months is empty.
func DefaultMonth(months []YearMonth, now time.Time) (YearMonth, bool) {
	if len(months) == 0 {
		return YearMonth{}, false
	}
	current := YearMonth{Year: now.Year(), Month: now.Month()}
	for _, ym := range months {
		if ym == current {
			return ym, true
		}
	}
	return months[len(months)-1], true
}
