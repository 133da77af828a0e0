package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"quarra/internal/core"
	applog "quarra/internal/log"
	"quarra/internal/report"
)

// monthOption is one entry of the month selector.
type monthOption struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// weekPoint is one weekly bucket of the plotted field.
type weekPoint struct {
	End     string             `json:"end"`
	Label   string             `json:"label"`
	Value   float64            `json:"value"`
	Display string             `json:"display"`
	Fields  map[string]float64 `json:"fields"`
}

// latestWeek feeds the gauge of a series.
type latestWeek struct {
	End      string  `json:"end"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Display  string  `json:"display"`
	GaugeMax float64 `json:"gauge_max"`
}

type seriesPayload struct {
	Kind        string      `json:"kind"`
	Title       string      `json:"title"`
	TrendTitle  string      `json:"trend_title"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	FillColor   string      `json:"fill_color"`
	Field       string      `json:"field"`
	Missing     bool        `json:"missing"`
	Empty       bool        `json:"empty"`
	Latest      *latestWeek `json:"latest,omitempty"`
	Weeks       []weekPoint `json:"weeks"`
}

// reportPayload is served by /api/report and rendered by the dashboard page.
type reportPayload struct {
	Month       string          `json:"month,omitempty"`
	MonthLabel  string          `json:"month_label,omitempty"`
	Months      []monthOption   `json:"months"`
	LatestWeek  string          `json:"latest_week,omitempty"`
	WeekEndsOn  string          `json:"week_ends_on"`
	GeneratedAt time.Time       `json:"generated_at"`
	Series      []seriesPayload `json:"series"`
}

// HasData reports whether any series has at least one week.
func (p reportPayload) HasData() bool {
	for _, s := range p.Series {
		if !s.Empty {
			return true
		}
	}
	return false
}

// HasMonthData reports whether any series has a week in the selected month.
func (p reportPayload) HasMonthData() bool {
	for _, s := range p.Series {
		if len(s.Weeks) > 0 {
			return true
		}
	}
	return false
}

func newReportPayload(rep *report.Report) reportPayload {
	p := reportPayload{
		Months:      make([]monthOption, 0, len(rep.Months)),
		LatestWeek:  rep.LatestLabel,
		WeekEndsOn:  rep.WeekEndsOn.String(),
		GeneratedAt: rep.GeneratedAt,
		Series:      make([]seriesPayload, 0, len(rep.Series)),
	}
	if rep.HasSelection {
		p.Month = rep.Selected.Key()
		p.MonthLabel = rep.Selected.String()
	}

	// Newest month first in the selector.
	for i := len(rep.Months) - 1; i >= 0; i-- {
		ym := rep.Months[i]
		p.Months = append(p.Months, monthOption{
			Key:      ym.Key(),
			Label:    ym.String(),
			Selected: rep.HasSelection && ym == rep.Selected,
		})
	}

	for _, v := range rep.Series {
		p.Series = append(p.Series, newSeriesPayload(v))
	}
	return p
}

func newSeriesPayload(v report.SeriesView) seriesPayload {
	field := v.Field()
	sp := seriesPayload{
		Kind:        v.Kind.String(),
		Title:       v.Config.Title,
		TrendTitle:  v.Config.TrendTitle,
		Description: v.Config.Description,
		Color:       v.Config.Color,
		FillColor:   v.Config.FillColor,
		Field:       field,
		Missing:     v.Missing,
		Empty:       v.IsEmpty(),
		Weeks:       make([]weekPoint, 0, len(v.Monthly)),
	}
	if sp.TrendTitle == "" {
		sp.TrendTitle = sp.Title
	}

	if v.Latest != nil {
		value := v.LatestValue()
		sp.Latest = &latestWeek{
			End:      v.Latest.End.String(),
			Label:    v.Latest.Label,
			Value:    value.InexactFloat64(),
			Display:  formatEuros(value),
			GaugeMax: report.GaugeMax(value).InexactFloat64(),
		}
	}

	for _, b := range v.Monthly {
		sp.Weeks = append(sp.Weeks, newWeekPoint(b, field))
	}
	return sp
}

func newWeekPoint(b core.WeekBucket, field string) weekPoint {
	value := decimal.Zero
	if field != "" {
		value = b.Value(field)
	}
	fields := make(map[string]float64, len(b.Fields))
	for _, f := range b.Fields {
		fields[f.Name] = f.Sum.InexactFloat64()
	}
	return weekPoint{
		End:     b.End.String(),
		Label:   b.Label,
		Value:   value.InexactFloat64(),
		Display: formatEuros(value),
		Fields:  fields,
	}
}

// handleDashboard renders the main dashboard page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	selection, err := parseMonth(r)
	if err != nil {
		logger.WarnContext(ctx, "Invalid month parameter", applog.FieldMonth, r.URL.Query().Get("month"), applog.FieldError, err)
		http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
		return
	}

	rep, err := s.buildReport(ctx, selection)
	if err != nil {
		s.reportError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", newReportPayload(rep)); err != nil {
		logger.ErrorContext(ctx, "Dashboard template execution failed", applog.FieldError, err, applog.FieldOperation, applog.OpRender)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleReport serves the report of the selected month as JSON.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	selection, err := parseMonth(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}

	rep, err := s.buildReport(ctx, selection)
	if err != nil {
		if errors.Is(err, core.ErrInvalidYearMonth) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to build report", applog.FieldError, err, applog.FieldOperation, applog.OpAggregate)
		writeJSONError(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	if err := writeJSON(w, http.StatusOK, newReportPayload(rep)); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to encode report", applog.FieldError, err)
	}
}

// reportError maps a failed build to 400 or 500.
func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrInvalidYearMonth) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	applog.FromContext(ctx).ErrorContext(ctx, "Failed to build report", applog.FieldError, err, applog.FieldOperation, applog.OpAggregate)
	http.Error(w, "failed to load data", http.StatusInternalServerError)
}
