package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

// ReportHandler serves filtered treatment reports.
//
// Routes handled (under /api/turf-research/reports):
// - GET  /treatments            JSON
// - GET  /treatments.csv
// - GET  /treatments/print      HTML print view
// - GET  /treatments.pdf
// - GET  /treatments.xlsx
// - POST /exports               queue a background export
// - GET  /exports/{key...}      download a stored export
type ReportHandler struct {
	reports service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// ReportResponse is the JSON form of a filtered report.
type ReportResponse struct {
	Title        string                       `json:"title"`
	Criteria     domain.ReportCriteria        `json:"criteria"`
	PlotNames    []string                     `json:"plot_names"`
	Count        int                          `json:"count"`
	CountsByType map[domain.TreatmentType]int `json:"counts_by_type"`
	GeneratedAt  time.Time                    `json:"generated_at"`
	Treatments   []domain.Treatment           `json:"treatments"`
}

type exportRequest struct {
	Format   domain.ReportFormat   `json:"format"`
	Criteria domain.ReportCriteria `json:"criteria"`
}

// criteriaFromQuery reads plots, date_from, date_to and treatment_type.
func criteriaFromQuery(r *http.Request) (domain.ReportCriteria, error) {
	q := r.URL.Query()
	plotIDs, err := parseIDList(q.Get("plots"), "plots")
	if err != nil {
		return domain.ReportCriteria{}, err
	}
	return domain.ReportCriteria{
		PlotIDs:       plotIDs,
		DateFrom:      q.Get("date_from"),
		DateTo:        q.Get("date_to"),
		TreatmentType: domain.TreatmentType(q.Get("treatment_type")),
	}, nil
}

// Treatments returns the filtered treatments as JSON.
func (h *ReportHandler) Treatments(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	data, err := h.reports.Data(r.Context(), criteria)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	treatments := data.Treatments
	if treatments == nil {
		treatments = []domain.Treatment{}
	}
	writeJSON(w, http.StatusOK, ReportResponse{
		Title:        data.Title,
		Criteria:     data.Criteria,
		PlotNames:    data.PlotNames,
		Count:        data.TreatmentCount(),
		CountsByType: data.CountByType(),
		GeneratedAt:  data.GeneratedAt,
		Treatments:   treatments,
	})
}

// Download renders the report in format. The body is buffered so a failed
// render still yields a clean error response.
func (h *ReportHandler) Download(format domain.ReportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := criteriaFromQuery(r)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		var buf bytes.Buffer
		if _, err := h.reports.Generate(r.Context(), format, criteria, &buf); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		disposition := "attachment"
		if format == domain.ReportFormatHTML {
			disposition = "inline"
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, format.Filename(time.Now())))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

// CreateExport queues a background export and returns its job and key.
func (h *ReportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	export, err := h.reports.EnqueueExport(r.Context(), req.Format, req.Criteria, auth.UserID(r.Context()))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, export)
}

// GetExport streams a stored export to the user who requested it, or to staff.
func (h *ReportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	key := r.PathValue("key")

	rc, info, err := h.reports.OpenExport(r.Context(), key, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream export", "error", err, "storage_key", key)
	}
}

// RegisterRoutes registers the report routes behind requireUser.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, requireUser Middleware) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireUser(fn))
	}

	base := APIPrefix + "/reports"
	route("GET "+base+"/treatments", h.Treatments)
	route("GET "+base+"/treatments.csv", h.Download(domain.ReportFormatCSV))
	route("GET "+base+"/treatments/print", h.Download(domain.ReportFormatHTML))
	route("GET "+base+"/treatments.pdf", h.Download(domain.ReportFormatPDF))
	route("GET "+base+"/treatments.xlsx", h.Download(domain.ReportFormatXLSX))
	route("POST "+base+"/exports", h.CreateExport)
	route("GET "+base+"/exports/{key...}", h.GetExport)
}
