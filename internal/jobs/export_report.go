// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/metrics"
	"github.com/DukeRupert/turfplot/internal/report"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/storage"
	"github.com/DukeRupert/turfplot/internal/worker"
)

// ExportReportHandler renders a filtered treatment report and stores it at
// the key chosen when the export was queued.
type ExportReportHandler struct {
	reports service.ReportService
	storage storage.Storage
	logger  *slog.Logger
}

// NewExportReportHandler creates a new handler for report export jobs.
func NewExportReportHandler(reports service.ReportService, store storage.Storage, logger *slog.Logger) *ExportReportHandler {
	return &ExportReportHandler{
		reports: reports,
		storage: store,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *ExportReportHandler) Type() string {
	return worker.JobTypeExportReport
}

// Handle executes the export job.
func (h *ExportReportHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.ExportReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	gen, err := report.NewGenerator(p.Format)
	if err != nil {
		return worker.NewPermanentError(err)
	}
	if !storage.IsReportKey(p.StorageKey) {
		return worker.NewPermanentError(fmt.Errorf("invalid storage key: %q", p.StorageKey))
	}

	h.logger.Info("exporting report",
		"format", p.Format,
		"storage_key", p.StorageKey,
		"requested_by", p.RequestedBy,
	)

	data, err := h.reports.Data(ctx, p.Criteria)
	if err != nil {
		if domain.ErrorCode(err) == domain.EINVALID {
			return worker.NewPermanentError(err)
		}
		return fmt.Errorf("load report data: %w", err)
	}
	if p.Title != "" {
		data.Title = p.Title
	}

	var buf bytes.Buffer
	size, err := gen.Generate(ctx, data, &buf)
	if err != nil {
		return fmt.Errorf("generate %s: %w", p.Format, err)
	}

	// Retries after a failed upload rewrite the same key.
	err = h.storage.Put(ctx, p.StorageKey, &buf, storage.PutOptions{
		ContentType: p.Format.ContentType(),
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("upload report to storage: %w", err)
	}

	metrics.ReportsExported.WithLabelValues(string(p.Format)).Inc()
	h.logger.Info("report export completed",
		"storage_key", p.StorageKey,
		"format", p.Format,
		"size_bytes", size,
		"treatments", data.TreatmentCount(),
	)
	return nil
}
