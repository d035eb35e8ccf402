package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

// PlotHandler serves plots and their hierarchy.
//
// Routes handled (under /api/turf-research/plots):
// - GET|POST ""                     list (parent_only, parent_plot, search) / create
// - GET|PUT|DELETE /{id}
// - GET /tree                       nested forest
// - GET /{id}/treatment_history
// - GET /{id}/subplots
// - GET /{id}/hierarchy             parents, current, subplots, all_descendants
// - GET /{id}/descendants           ids only
// - POST /selection/toggle          cascading selection toggle
type PlotHandler struct {
	plots      service.PlotService
	treatments service.TreatmentService
	logger     *slog.Logger
}

// NewPlotHandler creates a new PlotHandler.
func NewPlotHandler(plots service.PlotService, treatments service.TreatmentService, logger *slog.Logger) *PlotHandler {
	return &PlotHandler{plots: plots, treatments: treatments, logger: logger}
}

type toggleSelectionRequest struct {
	PlotID    int64   `json:"plot_id"`
	Selection []int64 `json:"selection"`
}

func (h *PlotHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID, err := queryID(r, "parent_plot")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	plots, err := h.plots.List(r.Context(), domain.PlotListFilter{
		ParentOnly:   queryBool(r, "parent_only"),
		ParentPlotID: parentID,
		Search:       r.URL.Query().Get("search"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plots)
}

func (h *PlotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plot, err := h.plots.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (h *PlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.PlotInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plot, err := h.plots.Create(r.Context(), domain.CreatePlotParams{
		PlotInput: in,
		CreatedBy: auth.UserID(r.Context()),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, plot)
}

func (h *PlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var in domain.PlotInput
	if err := decodeJSON(w, r, &in); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plot, err := h.plots.Update(r.Context(), domain.UpdatePlotParams{ID: id, PlotInput: in})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (h *PlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := h.plots.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tree returns the whole forest with nested children.
func (h *PlotHandler) Tree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.plots.Tree(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

func (h *PlotHandler) TreatmentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	treatments, err := h.treatments.History(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, treatments)
}

func (h *PlotHandler) Subplots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	plots, err := h.plots.Subplots(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plots)
}

func (h *PlotHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	hier, err := h.plots.Hierarchy(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hier)
}

func (h *PlotHandler) Descendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	ids, err := h.plots.Descendants(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// ToggleSelection flips a plot and all of its descendants in the client's
// selection set and returns the new set.
func (h *PlotHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleSelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.PlotID <= 0 {
		ErrorResponse(w, r, h.logger, domain.NewValidationError("PlotHandler.ToggleSelection", "plot_id", "A plot id is required."))
		return
	}

	sel, err := h.plots.ToggleSelection(r.Context(), req.PlotID, req.Selection)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": sel})
}

// RegisterRoutes registers the plot routes behind requireUser.
func (h *PlotHandler) RegisterRoutes(mux *http.ServeMux, requireUser Middleware) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireUser(fn))
	}

	base := APIPrefix + "/plots"
	route("GET "+base, h.List)
	route("POST "+base, h.Create)
	route("GET "+base+"/tree", h.Tree)
	route("POST "+base+"/selection/toggle", h.ToggleSelection)
	route("GET "+base+"/{id}", h.Get)
	route("PUT "+base+"/{id}", h.Update)
	route("DELETE "+base+"/{id}", h.Delete)
	route("GET "+base+"/{id}/treatment_history", h.TreatmentHistory)
	route("GET "+base+"/{id}/subplots", h.Subplots)
	route("GET "+base+"/{id}/hierarchy", h.Hierarchy)
	route("GET "+base+"/{id}/descendants", h.Descendants)
}
