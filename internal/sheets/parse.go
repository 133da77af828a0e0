package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quarra/internal/core"
)

// dateLayouts are tried in order for textual date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
}

// ParseValues converts a values matrix (as returned by the Sheets API, a CSV
// reader or an xlsx reader) into a Series.
//
// The first non-empty row is the header. The date column is matched by name,
// case-insensitively, and defaults to the first column; every other non-blank
// header becomes a numeric field. A repeated header is renamed with a numeric
// suffix ("Valore", "Valore.1") so field names stay unique. Rows whose date cannot be parsed are skipped
// and counted in the second return value.
func ParseValues(kind core.SeriesKind, values [][]any, dateColumn string) (core.Series, int) {
	series := core.Series{Kind: kind, Fields: []string{}, Records: []core.Record{}}

	start := -1
	for i, row := range values {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start == -1 {
		return series, 0
	}

	headers := toStrings(values[start])
	dateCol := indexOf(headers, dateColumn)
	if dateCol == -1 {
		dateCol = 0
	}

	type column struct {
		idx  int
		name string
	}
	var cols []column
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		if i != dateCol && h != "" {
			seen[h] = true
		}
	}
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		if i == dateCol || h == "" {
			continue
		}
		name := h
		for n := 1; used[name]; n++ {
			if candidate := fmt.Sprintf("%s.%d", h, n); !seen[candidate] && !used[candidate] {
				name = candidate
			}
		}
		used[name] = true
		cols = append(cols, column{idx: i, name: name})
		series.Fields = append(series.Fields, name)
	}

	skipped := 0
	for _, row := range values[start+1:] {
		if blankRow(row) {
			continue
		}
		d, ok := ParseDateCell(cellAt(row, dateCol))
		if !ok {
			skipped++
			continue
		}
		r := core.Record{Date: d, Fields: make([]core.Field, 0, len(cols))}
		for _, c := range cols {
			r.Fields = append(r.Fields, core.Field{Name: c.name, Value: ParseNumberCell(cellAt(row, c.idx))})
		}
		series.Records = append(series.Records, r)
	}
	return series, skipped
}

// ParseDateCell accepts Excel serial numbers (numeric or textual), time.Time
// values and the textual layouts in dateLayouts.
func ParseDateCell(v any) (core.Date, bool) {
	switch x := v.(type) {
	case nil:
		return core.Date{}, false
	case time.Time:
		if x.IsZero() {
			return core.Date{}, false
		}
		return core.DateOf(x), true
	case float64:
		return fromSerial(x)
	case float32:
		return fromSerial(float64(x))
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return core.Date{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return core.DateOf(t), true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
		return core.Date{}, false
	default:
		return ParseDateCell(fmt.Sprint(x))
	}
}

// ParseNumberCell converts a cell to a number; blanks and text are absent.
func ParseNumberCell(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(x))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x))
	case string:
		return core.ParseAmount(x)
	default:
		return core.ParseAmount(fmt.Sprint(x))
	}
}

// serialEpoch is day zero of spreadsheet serial dates (1900 date system).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// fromSerial keeps the day part of a serial date; the fraction is the time of day.
func fromSerial(f float64) (core.Date, bool) {
	if f < 1 || math.IsNaN(f) || math.IsInf(f, 0) {
		return core.Date{}, false
	}
	return core.Date{Time: serialEpoch.AddDate(0, 0, int(math.Floor(f)))}, true
}

// StringRows adapts rows of strings (CSV, xlsx) to the values matrix shape.
func StringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func blankRow(row []any) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
