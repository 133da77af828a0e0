package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports 503 until templates are loaded and the source is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil || s.templates.Lookup("dashboard.html") == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready == nil {
		checks["data_source"] = "not_checked"
	} else if err := s.ready(ctx); err != nil {
		checks["data_source"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["data_source"] = "ok"
	}

	_ = writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	limiter := s.exportLimiter.Stats()
	detection := s.detector.Stats()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("reports_built_total", "counter", "Reports built from the data source", atomic.LoadInt64(&s.reportsBuilt))
	metric("exports_total", "counter", "Workbooks exported", atomic.LoadInt64(&s.exportsServed))
	metric("export_rate_limited_total", "counter", "Exports rejected by the rate limiter", limiter.Rejected)
	metric("export_rate_limit_clients", "gauge", "Clients tracked by the export limiter", limiter.Clients)
	metric("suspicious_requests_total", "counter", "Requests matching probe patterns", detection.Suspicious)
	metric("blocked_requests_total", "counter", "Requests rejected by method", detection.Blocked)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}
