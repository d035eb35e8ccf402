// Package service contains the business logic layer.
//
// This file implements the report service: filtered treatment data for the
// report endpoints, direct rendering and background exports to storage.
package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/metrics"
	"github.com/DukeRupert/turfplot/internal/report"
	"github.com/DukeRupert/turfplot/internal/storage"
	"github.com/DukeRupert/turfplot/internal/worker"
)

// DefaultReportTitle is used when REPORT_TITLE is unset.
const DefaultReportTitle = "Treatment Report"

// =============================================================================
// Interface Definition
// =============================================================================

// ReportService defines operations for treatment reports.
type ReportService interface {
	// Data returns the treatments matching criteria along with the header
	// information generators need.
	Data(ctx context.Context, criteria domain.ReportCriteria) (*domain.ReportData, error)

	// Generate renders the matching treatments in format to w and returns the
	// number of bytes written.
	Generate(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, w io.Writer) (int64, error)

	// EnqueueExport queues a background render into object storage.
	EnqueueExport(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, requestedBy uuid.UUID) (*domain.ReportExport, error)

	// OpenExport opens a stored export for viewer, who must have requested
	// it or be staff. Other exports report domain.ENOTFOUND. The caller
	// closes the reader.
	OpenExport(ctx context.Context, key string, viewer *domain.User) (io.ReadCloser, storage.ObjectInfo, error)
}

// =============================================================================
// Implementation
// =============================================================================

type reportService struct {
	treatments TreatmentService
	plots      PlotService
	jobs       worker.Enqueuer
	storage    storage.Storage
	title      string
	logger     *slog.Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService. jobs and store may be nil
// when background exports are not available, as in the CLI.
func NewReportService(
	treatments TreatmentService,
	plots PlotService,
	jobs worker.Enqueuer,
	store storage.Storage,
	title string,
	logger *slog.Logger,
) ReportService {
	if strings.TrimSpace(title) == "" {
		title = DefaultReportTitle
	}
	return &reportService{
		treatments: treatments,
		plots:      plots,
		jobs:       jobs,
		storage:    store,
		title:      title,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reportService) Data(ctx context.Context, criteria domain.ReportCriteria) (*domain.ReportData, error) {
	const op = "ReportService.Data"

	if err := criteria.Validate(op); err != nil {
		return nil, err
	}

	treatments, err := s.treatments.List(ctx, domain.TreatmentListFilter{})
	if err != nil {
		return nil, err
	}
	plots, err := s.plots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return buildReportData(s.title, criteria, treatments, plots, s.now()), nil
}

func (s *reportService) Generate(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, w io.Writer) (int64, error) {
	const op = "ReportService.Generate"

	gen, err := report.NewGenerator(format)
	if err != nil {
		return 0, domain.NewValidationError(op, "format", "Unsupported report format.")
	}

	data, err := s.Data(ctx, criteria)
	if err != nil {
		return 0, err
	}

	n, err := gen.Generate(ctx, data, w)
	if err != nil {
		return n, domain.Internal(err, op, "Failed to generate report")
	}

	metrics.ReportsExported.WithLabelValues(string(format)).Inc()
	s.logger.Info("report generated",
		"format", format,
		"treatments", data.TreatmentCount(),
		"size_bytes", n,
	)
	return n, nil
}

func (s *reportService) EnqueueExport(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, requestedBy uuid.UUID) (*domain.ReportExport, error) {
	const op = "ReportService.EnqueueExport"

	if s.jobs == nil || s.storage == nil {
		return nil, domain.Errorf(domain.EINTERNAL, op, "Background exports are not configured")
	}
	if !format.IsValid() {
		return nil, domain.NewValidationError(op, "format", "Unsupported report format.")
	}
	if err := criteria.Validate(op); err != nil {
		return nil, err
	}

	now := s.now()
	key := storage.ReportKey(requestedBy, uuid.New(), format.Filename(now), now)

	job, err := worker.EnqueueExportReport(ctx, s.jobs, worker.ExportReportPayload{
		Format:      format,
		Criteria:    criteria,
		Title:       s.title,
		RequestedBy: requestedBy,
		StorageKey:  key,
		RequestedAt: now,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to queue export")
	}

	s.logger.Info("report export queued", "job_id", job.ID, "format", format, "storage_key", key)

	return &domain.ReportExport{
		JobID:       job.ID,
		Format:      format,
		Criteria:    criteria,
		StorageKey:  key,
		RequestedBy: requestedBy,
	}, nil
}

func (s *reportService) OpenExport(ctx context.Context, key string, viewer *domain.User) (io.ReadCloser, storage.ObjectInfo, error) {
	const op = "ReportService.OpenExport"

	owner, ok := storage.ReportOwner(key)
	if s.storage == nil || !ok || viewer == nil {
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "export", key)
	}
	if owner != viewer.ID && !viewer.IsStaff {
		s.logger.Warn("export download refused", "user_id", viewer.ID, "storage_key", key)
		return nil, storage.ObjectInfo{}, domain.NotFound(op, "export", key)
	}

	rc, info, err := s.storage.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, storage.ObjectInfo{}, domain.NotFound(op, "export", key)
		}
		return nil, storage.ObjectInfo{}, domain.Internal(err, op, "Failed to open export")
	}
	return rc, info, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// buildReportData filters treatments and resolves the selected plot names
// for the report header. Ids missing from the snapshot are skipped.
func buildReportData(title string, criteria domain.ReportCriteria, treatments []domain.Treatment, plots []domain.Plot, now time.Time) *domain.ReportData {
	names := make(map[int64]string, len(plots))
	for _, p := range plots {
		names[p.ID] = p.Name
	}

	var plotNames []string
	for _, id := range uniqueIDs(criteria.PlotIDs) {
		if name, ok := names[id]; ok {
			plotNames = append(plotNames, name)
		}
	}

	return &domain.ReportData{
		Title:       title,
		Criteria:    criteria,
		Treatments:  report.Filter(treatments, criteria),
		PlotNames:   plotNames,
		GeneratedAt: now,
	}
}
