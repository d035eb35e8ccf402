package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

// MasterListHandler serves the location and grass type lists.
//
// Routes handled (under /api/turf-research):
// - GET|POST /locations, GET|PUT|DELETE /locations/{id}
// - GET|POST /grass-types, GET|PUT|DELETE /grass-types/{id}
type MasterListHandler struct {
	lists  service.MasterListService
	logger *slog.Logger
}

// NewMasterListHandler creates a new MasterListHandler.
func NewMasterListHandler(lists service.MasterListService, logger *slog.Logger) *MasterListHandler {
	return &MasterListHandler{lists: lists, logger: logger}
}

// =============================================================================
// Locations
// =============================================================================

func (h *MasterListHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.lists.ListLocations(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (h *MasterListHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	location, err := h.lists.GetLocation(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (h *MasterListHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var params domain.LocationParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	location, err := h.lists.CreateLocation(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (h *MasterListHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.LocationParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	location, err := h.lists.UpdateLocation(r.Context(), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (h *MasterListHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := h.lists.DeleteLocation(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Grass types
// =============================================================================

func (h *MasterListHandler) ListGrassTypes(w http.ResponseWriter, r *http.Request) {
	grassTypes, err := h.lists.ListGrassTypes(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, grassTypes)
}

func (h *MasterListHandler) GetGrassType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	grassType, err := h.lists.GetGrassType(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, grassType)
}

func (h *MasterListHandler) CreateGrassType(w http.ResponseWriter, r *http.Request) {
	var params domain.GrassTypeParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	grassType, err := h.lists.CreateGrassType(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, grassType)
}

func (h *MasterListHandler) UpdateGrassType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.GrassTypeParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	grassType, err := h.lists.UpdateGrassType(r.Context(), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, grassType)
}

func (h *MasterListHandler) DeleteGrassType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := h.lists.DeleteGrassType(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the master list routes behind requireUser.
func (h *MasterListHandler) RegisterRoutes(mux *http.ServeMux, requireUser Middleware) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireUser(fn))
	}

	route("GET "+APIPrefix+"/locations", h.ListLocations)
	route("POST "+APIPrefix+"/locations", h.CreateLocation)
	route("GET "+APIPrefix+"/locations/{id}", h.GetLocation)
	route("PUT "+APIPrefix+"/locations/{id}", h.UpdateLocation)
	route("DELETE "+APIPrefix+"/locations/{id}", h.DeleteLocation)

	route("GET "+APIPrefix+"/grass-types", h.ListGrassTypes)
	route("POST "+APIPrefix+"/grass-types", h.CreateGrassType)
	route("GET "+APIPrefix+"/grass-types/{id}", h.GetGrassType)
	route("PUT "+APIPrefix+"/grass-types/{id}", h.UpdateGrassType)
	route("DELETE "+APIPrefix+"/grass-types/{id}", h.DeleteGrassType)
}
