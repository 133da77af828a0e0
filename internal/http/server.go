package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"quarra/internal/core"
	applog "quarra/internal/log"
	"quarra/internal/middleware/ratelimit"
	"quarra/internal/middleware/security"
	"quarra/internal/middleware/trace"
	"quarra/internal/report"
	appweb "quarra/web"
)

// ReadyFunc reports whether the data source can currently be read.
type ReadyFunc func(ctx context.Context) error

// Options configures NewServer.
type Options struct {
	Addr                string
	Builder             *report.Builder
	ExportRatePerMinute int
	TrustedProxies      []string
	// Ready is consulted by /readyz; nil means the source is always ready.
	Ready  ReadyFunc
	Logger *applog.Logger
}

// Server wraps http.Server with the dashboard dependencies.
type Server struct {
	http.Server

	templates     *template.Template
	builder       *report.Builder
	ready         ReadyFunc
	logger        *applog.Logger
	detector      *security.Detector
	exportLimiter *ratelimit.Limiter

	started       time.Time
	reportsBuilt  int64
	exportsServed int64
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server. Call Shutdown to stop it and release the limiter.
func NewServer(opts Options) (*Server, error) {
	if opts.Builder == nil {
		return nil, errors.New("http server needs a report builder")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:     t,
		builder:       opts.Builder,
		ready:         opts.Ready,
		logger:        logger,
		detector:      detector,
		exportLimiter: ratelimit.NewLimiter(ratelimit.PerMinute(opts.ExportRatePerMinute)),
		started:       time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", s.component(applog.ComponentReport, http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /api/report", s.component(applog.ComponentReport, http.HandlerFunc(s.handleReport)))

	limited := s.exportLimiter.Middleware(s.detector.ClientIP, s.handleExportLimited)
	mux.Handle("GET /export", s.component(applog.ComponentExport, limited(http.HandlerFunc(s.handleExport))))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, s.detector.ClientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.detector.Middleware(tracer.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// component tags the request logger and disables caching of report data.
func (s *Server) component(name string, h http.Handler) http.Handler {
	return applog.ComponentMiddleware(name)(security.NoStore(h))
}

// Shutdown gracefully stops the HTTP server and the export limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.exportLimiter.Stop()
	s.logger.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
	return s.Server.Shutdown(ctx)
}

// buildReport builds the report for selection and logs the weeks per series.
func (s *Server) buildReport(ctx context.Context, selection *core.YearMonth) (*report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	rep, err := s.builder.Build(ctx, selection)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&s.reportsBuilt, 1)

	weeks := make(map[string]int, len(rep.Series))
	for _, v := range rep.Series {
		weeks[v.Kind.String()] = len(v.Monthly)
	}
	month := ""
	if rep.HasSelection {
		month = rep.Selected.Key()
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogReportBuilt(ctx, month, weeks)
	return rep, nil
}
