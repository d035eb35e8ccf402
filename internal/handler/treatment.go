package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

// TreatmentHandler serves treatment records.
//
// Routes handled (under /api/turf-research/treatments):
// - GET  ""        list (treatment_type, date, plot, search)
// - POST ""        create; ?cascade=true adds every descendant of each plot
// - GET|PUT|DELETE /{id}
type TreatmentHandler struct {
	treatments service.TreatmentService
	logger     *slog.Logger
}

// NewTreatmentHandler creates a new TreatmentHandler.
func NewTreatmentHandler(treatments service.TreatmentService, logger *slog.Logger) *TreatmentHandler {
	return &TreatmentHandler{treatments: treatments, logger: logger}
}

func (h *TreatmentHandler) List(w http.ResponseWriter, r *http.Request) {
	plotID, err := queryID(r, "plot")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	treatments, err := h.treatments.List(r.Context(), domain.TreatmentListFilter{
		TreatmentType: domain.TreatmentType(q.Get("treatment_type")),
		Date:          q.Get("date"),
		PlotID:        plotID,
		Search:        q.Get("search"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, treatments)
}

func (h *TreatmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	treatment, err := h.treatments.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, treatment)
}

func (h *TreatmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.TreatmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	treatment, err := h.treatments.Create(r.Context(), domain.CreateTreatmentParams{
		TreatmentInput: in,
		AppliedBy:      auth.UserID(r.Context()),
		Cascade:        queryBool(r, "cascade"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, treatment)
}

func (h *TreatmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var in domain.TreatmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	treatment, err := h.treatments.Update(r.Context(), domain.UpdateTreatmentParams{
		ID:             id,
		TreatmentInput: in,
		Cascade:        queryBool(r, "cascade"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, treatment)
}

func (h *TreatmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := h.treatments.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the treatment routes behind requireUser.
func (h *TreatmentHandler) RegisterRoutes(mux *http.ServeMux, requireUser Middleware) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireUser(fn))
	}

	base := APIPrefix + "/treatments"
	route("GET "+base, h.List)
	route("POST "+base, h.Create)
	route("GET "+base+"/{id}", h.Get)
	route("PUT "+base+"/{id}", h.Update)
	route("DELETE "+base+"/{id}", h.Delete)
}
