package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quarra/internal/core"
)

// reportTimeout bounds reading the four series for one request.
const reportTimeout = 20 * time.Second

// parseMonth reads ?month=YYYY-MM. A missing or blank value returns nil, so
// the report picks its default month.
func parseMonth(r *http.Request) (*core.YearMonth, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return nil, nil
	}
	ym, err := core.ParseYearMonth(v)
	if err != nil {
		return nil, err
	}
	return &ym, nil
}

// formatEuros formats an amount as a Euro string with a decimal comma and
// dot thousands separators (e.g. "€1.234,50").
func formatEuros(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	s := b.String() + "," + cents
	if neg {
		return "-€" + s
	}
	return "€" + s
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeJSONError writes {"error": msg} with status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
