package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Production SeriesKind = "production"
	Income     SeriesKind = "income"
	Expense    SeriesKind = "expense"
	Balance    SeriesKind = "balance"
)

// AllSeries lists the source series in display order.
var AllSeries = []SeriesKind{Production, Income, Expense, Balance}

type (
	SeriesKind string

	// Date is a calendar date held at UTC midnight.
	Date struct {
		time.Time
	}

	// Field is one named numeric value of a record. An invalid Value means
	// the cell was blank or not a number.
	Field struct {
		Name  string
		Value decimal.NullDecimal
	}

	// Record is one dated observation of a source series.
	Record struct {
		Date   Date
		Fields []Field
	}

	// Series is one source relation. Fields keeps the numeric column names
	// in header order, also when Records is empty.
	Series struct {
		Kind    SeriesKind
		Fields  []string
		Records []Record
	}

	// FieldSum is the total of one field over a week. Observed counts the
	// values that were present, so a zero Sum with Observed == 0 means no data.
	FieldSum struct {
		Name     string
		Sum      decimal.Decimal
		Observed int
	}

	// WeekBucket aggregates the records of a 7-day window ending on End.
	WeekBucket struct {
		End    Date
		Fields []FieldSum
		Label  string
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}
)

var (
	ErrInvalidSeries    = errors.New("invalid series kind")
	ErrInvalidYearMonth = errors.New("invalid year/month")
)

// ParseSeriesKind accepts the canonical kind names, case-insensitively.
func ParseSeriesKind(s string) (SeriesKind, error) {
	k := SeriesKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeries, s)
	}
	return k, nil
}

func (k SeriesKind) IsValid() bool {
	switch k {
	case Production, Income, Expense, Balance:
		return true
	default:
		return false
	}
}

func (k SeriesKind) String() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t, keeping its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// YearMonth returns the calendar month containing d.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Value returns the value of the named field, or an invalid NullDecimal.
func (r Record) Value(name string) decimal.NullDecimal {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return decimal.NullDecimal{}
}

// IsEmpty reports whether the series has no records.
func (s Series) IsEmpty() bool {
	return len(s.Records) == 0
}

// Start is the first day of the bucket window.
func (b WeekBucket) Start() Date {
	return b.End.AddDays(-(WeekLength - 1))
}

// Value returns the sum of the named field, zero if the field is unknown.
func (b WeekBucket) Value(name string) decimal.Decimal {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Sum
		}
	}
	return decimal.Zero
}

// Primary returns the sum of the first field, which the dashboard shows.
func (b WeekBucket) Primary() decimal.Decimal {
	if len(b.Fields) == 0 {
		return decimal.Zero
	}
	return b.Fields[0].Sum
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// Key formats the month as YYYY-MM.
func (ym YearMonth) Key() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// String formats the month for display, e.g. "June 2024".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%s %d", ym.Month, ym.Year)
}

// Before orders months chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidYearMonth, int(ym.Month))
	}
	if ym.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidYearMonth, ym.Year)
	}
	return nil
}
