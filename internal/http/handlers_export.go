package http

import (
	"bytes"
	"net/http"
	"strconv"
	"sync/atomic"

	"quarra/internal/export"
	applog "quarra/internal/log"
)

// handleExport streams the selected month as weekly_summary.xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	selection, err := parseMonth(r)
	if err != nil {
		http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
		return
	}

	rep, err := s.buildReport(ctx, selection)
	if err != nil {
		s.reportError(w, r, err)
		return
	}

	month := ""
	if rep.HasSelection {
		month = rep.Selected.Key()
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, rep); err != nil {
		applog.NewStructuredLogger(logger).LogError(ctx, "Export failed", err, applog.ComponentExport, applog.OpExport, applog.NewFields().WithMonth(month))
		http.Error(w, "failed to build workbook", http.StatusInternalServerError)
		return
	}
	atomic.AddInt64(&s.exportsServed, 1)
	logger.InfoContext(ctx, "Workbook exported",
		applog.FieldMonth, month,
		applog.FieldOperation, applog.OpExport,
		"bytes", buf.Len())

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// handleExportLimited answers exports over the per-client limit.
func (s *Server) handleExportLimited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applog.FromContext(ctx).WarnContext(ctx, "Export rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r))
	http.Error(w, "too many exports, please try again later", http.StatusTooManyRequests)
}
