// Package worker runs workbook imports requested over AMQP or on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"quarra/internal/amqp"
	"quarra/internal/services"
	"quarra/internal/sheets"
)

// Importer is the part of services.ImportService the worker needs.
type Importer interface {
	ImportWorkbook(ctx context.Context, id, path string, layout sheets.Layout) (services.ImportResult, error)
}

// ImportWorker imports workbooks one at a time.
type ImportWorker struct {
	importer        Importer
	layout          sheets.Layout
	defaultWorkbook string
	timeout         time.Duration

	// Serializes imports coming from the queue and the schedule.
	mu sync.Mutex
}

func NewImportWorker(importer Importer, layout sheets.Layout, defaultWorkbook string, timeout time.Duration) *ImportWorker {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ImportWorker{
		importer:        importer,
		layout:          layout,
		defaultWorkbook: defaultWorkbook,
		timeout:         timeout,
	}
}

// HandleImportRequest processes a single import request from AMQP.
func (w *ImportWorker) HandleImportRequest(ctx context.Context, req *amqp.ImportRequest) error {
	workbook := req.Workbook
	if workbook == "" {
		workbook = w.defaultWorkbook
	}
	slog.InfoContext(ctx, "Processing import request",
		"import_id", req.ID,
		"workbook", workbook,
		"requested_by", req.RequestedBy,
		"queued_for", time.Since(req.RequestedAt).Round(time.Millisecond))

	if _, err := w.run(ctx, req.ID.String(), workbook); err != nil {
		return fmt.Errorf("import %s: %w", req.ID, err)
	}
	return nil
}

// RunScheduled imports the default workbook. Errors are logged, the schedule keeps going.
func (w *ImportWorker) RunScheduled(ctx context.Context) {
	id := uuid.NewString()
	if _, err := w.run(ctx, id, w.defaultWorkbook); err != nil {
		slog.ErrorContext(ctx, "Scheduled import failed", "import_id", id, "error", err)
	}
}

func (w *ImportWorker) run(ctx context.Context, id, workbook string) (services.ImportResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	res, err := w.importer.ImportWorkbook(ctx, id, workbook, w.layout)
	if err != nil {
		return res, err
	}
	slog.InfoContext(ctx, "Workbook imported",
		"import_id", id,
		"workbook", workbook,
		"records", res.Total(),
		"missing", len(res.Missing))
	return res, nil
}

// StartSchedule runs RunScheduled on the cron spec until ctx is done.
// It returns once the schedule is registered.
func (w *ImportWorker) StartSchedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { w.RunScheduled(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	slog.InfoContext(ctx, "Refresh schedule started", "schedule", spec)

	go func() {
		<-ctx.Done()
		// Wait for a running import to finish.
		<-c.Stop().Done()
		slog.InfoContext(context.Background(), "Refresh schedule stopped")
	}()
	return nil
}
