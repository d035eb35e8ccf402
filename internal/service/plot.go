package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/turfplot/internal/cache"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/geo"
	"github.com/DukeRupert/turfplot/internal/hierarchy"
	"github.com/DukeRupert/turfplot/internal/metrics"
	"github.com/DukeRupert/turfplot/internal/repository"
)

// PlotService defines the interface for plot operations.
//
// Reads are served from a full plot snapshot which is cached when Redis is
// configured. Every write invalidates the snapshot.
type PlotService interface {
	// Snapshot returns every plot ordered by name, with hierarchy_display set.
	Snapshot(ctx context.Context) ([]domain.Plot, error)

	// List returns the snapshot narrowed by filter.
	List(ctx context.Context, filter domain.PlotListFilter) ([]domain.Plot, error)

	// Get returns a single plot.
	// Returns domain.ENOTFOUND if the plot does not exist.
	Get(ctx context.Context, id int64) (*domain.Plot, error)

	// Create validates and stores a new plot.
	Create(ctx context.Context, params domain.CreatePlotParams) (*domain.Plot, error)

	// Update validates and stores changes to a plot, rejecting parent cycles.
	Update(ctx context.Context, params domain.UpdatePlotParams) (*domain.Plot, error)

	// Delete removes a plot and, through the schema, its sub-plots.
	Delete(ctx context.Context, id int64) error

	// Tree returns the plot forest.
	Tree(ctx context.Context) ([]*hierarchy.Node, error)

	// Subplots returns the direct children of a plot.
	Subplots(ctx context.Context, id int64) ([]domain.Plot, error)

	// Hierarchy returns the ancestors, children and every descendant of a plot.
	Hierarchy(ctx context.Context, id int64) (*domain.PlotHierarchy, error)

	// Descendants returns the ids of every plot below id.
	Descendants(ctx context.Context, id int64) ([]int64, error)

	// ToggleSelection selects or deselects a plot and its subtree.
	ToggleSelection(ctx context.Context, plotID int64, selection []int64) (hierarchy.Selection, error)

	// Invalidate drops the cached snapshot.
	Invalidate(ctx context.Context)
}

// PlotStore is the persistence the plot service needs. *repository.Queries
// satisfies it.
type PlotStore interface {
	ListPlots(ctx context.Context) ([]repository.PlotRow, error)
	CreatePlot(ctx context.Context, arg repository.CreatePlotParams) (int64, error)
	UpdatePlot(ctx context.Context, arg repository.UpdatePlotParams) (int64, error)
	DeletePlot(ctx context.Context, id int64) (int64, error)
}

type plotService struct {
	queries PlotStore
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewPlotService creates a new PlotService. c may be a disabled cache.
func NewPlotService(queries PlotStore, c *cache.Cache, logger *slog.Logger) PlotService {
	return &plotService{
		queries: queries,
		cache:   c,
		logger:  logger,
	}
}

// =============================================================================
// Reads
// =============================================================================

func (s *plotService) Snapshot(ctx context.Context) ([]domain.Plot, error) {
	const op = "PlotService.Snapshot"

	if plots, ok := s.cache.Plots(ctx); ok {
		return plots, nil
	}

	rows, err := s.queries.ListPlots(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load plots")
	}

	plots := make([]domain.Plot, 0, len(rows))
	for _, row := range rows {
		p, err := repoPlotToDomain(row)
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to decode plot")
		}
		plots = append(plots, p)
	}
	for i := range plots {
		plots[i].HierarchyDisplay = hierarchy.Display(plots[i].ID, plots)
	}

	s.cache.SetPlots(ctx, plots)
	return plots, nil
}

func (s *plotService) List(ctx context.Context, filter domain.PlotListFilter) ([]domain.Plot, error) {
	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return filterPlots(plots, filter), nil
}

func (s *plotService) Get(ctx context.Context, id int64) (*domain.Plot, error) {
	const op = "PlotService.Get"

	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := findPlot(plots, id)
	if !ok {
		return nil, domain.NotFound(op, "plot", strconv.FormatInt(id, 10))
	}
	return &p, nil
}

func (s *plotService) Tree(ctx context.Context) ([]*hierarchy.Node, error) {
	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.Build(plots), nil
}

func (s *plotService) Subplots(ctx context.Context, id int64) ([]domain.Plot, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return filterPlots(plots, domain.PlotListFilter{ParentPlotID: &id}), nil
}

func (s *plotService) Hierarchy(ctx context.Context, id int64) (*domain.PlotHierarchy, error) {
	const op = "PlotService.Hierarchy"

	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := findPlot(plots, id)
	if !ok {
		return nil, domain.NotFound(op, "plot", strconv.FormatInt(id, 10))
	}

	parents := hierarchy.Ancestors(id, plots)
	if parents == nil {
		parents = []domain.Plot{}
	}
	byID := make(map[int64]domain.Plot, len(plots))
	for _, p := range plots {
		if _, dup := byID[p.ID]; !dup {
			byID[p.ID] = p
		}
	}
	descendants := hierarchy.Descendants(id, plots)
	all := make([]domain.Plot, 0, len(descendants))
	for _, d := range descendants {
		all = append(all, byID[d])
	}

	return &domain.PlotHierarchy{
		Parents:        parents,
		Current:        current,
		Subplots:       filterPlots(plots, domain.PlotListFilter{ParentPlotID: &id}),
		AllDescendants: all,
	}, nil
}

func (s *plotService) Descendants(ctx context.Context, id int64) ([]int64, error) {
	const op = "PlotService.Descendants"

	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := findPlot(plots, id); !ok {
		return nil, domain.NotFound(op, "plot", strconv.FormatInt(id, 10))
	}
	return hierarchy.Descendants(id, plots), nil
}

// ToggleSelection never fails on unknown ids: the plot is toggled alone.
func (s *plotService) ToggleSelection(ctx context.Context, plotID int64, selection []int64) (hierarchy.Selection, error) {
	plots, err := s.Snapshot(ctx)
	if err != nil {
		return hierarchy.Selection{}, err
	}
	return hierarchy.Toggle(plotID, hierarchy.NewSelection(selection...), plots), nil
}

func (s *plotService) Invalidate(ctx context.Context) {
	s.cache.InvalidatePlots(ctx)
}

// =============================================================================
// Writes
// =============================================================================

func (s *plotService) Create(ctx context.Context, params domain.CreatePlotParams) (*domain.Plot, error) {
	const op = "PlotService.Create"

	if err := normalizePlotInput(op, &params.PlotInput); err != nil {
		return nil, err
	}

	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if params.ParentPlotID != nil {
		if _, ok := findPlot(plots, *params.ParentPlotID); !ok {
			return nil, domain.NewValidationError(op, "parent_plot", "Parent plot not found")
		}
	}

	polygon, err := polygonParam(params.Polygon)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode polygon")
	}

	createdBy := uuid.NullUUID{UUID: params.CreatedBy, Valid: params.CreatedBy != uuid.Nil}
	id, err := s.queries.CreatePlot(ctx, repository.CreatePlotParams{
		Name:               params.Name,
		ParentPlotID:       domain.ToNullInt64(params.ParentPlotID),
		Location:           params.Location,
		SizeSqft:           domain.ToNullFloat(params.SizeSqft),
		GrassType:          params.GrassType,
		Notes:              params.Notes,
		PolygonCoordinates: polygon,
		CenterLat:          domain.ToNullFloat(params.CenterLat),
		CenterLng:          domain.ToNullFloat(params.CenterLng),
		CreatedBy:          createdBy,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.NewValidationError(op, "name", "A plot with this name already exists")
		}
		return nil, domain.Internal(err, op, "Failed to create plot")
	}

	s.Invalidate(ctx)
	metrics.PlotsCreated.Inc()
	s.logger.Info("plot created", "plot_id", id, "name", params.Name)

	return s.Get(ctx, id)
}

func (s *plotService) Update(ctx context.Context, params domain.UpdatePlotParams) (*domain.Plot, error) {
	const op = "PlotService.Update"

	if err := normalizePlotInput(op, &params.PlotInput); err != nil {
		return nil, err
	}

	plots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := findPlot(plots, params.ID); !ok {
		return nil, domain.NotFound(op, "plot", strconv.FormatInt(params.ID, 10))
	}
	if params.ParentPlotID != nil {
		if _, ok := findPlot(plots, *params.ParentPlotID); !ok && *params.ParentPlotID != params.ID {
			return nil, domain.NewValidationError(op, "parent_plot", "Parent plot not found")
		}
		if err := hierarchy.ValidateParent(params.ID, *params.ParentPlotID, plots); err != nil {
			return nil, domain.NewValidationError(op, "parent_plot", parentErrorMessage(err))
		}
	}

	polygon, err := polygonParam(params.Polygon)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode polygon")
	}

	n, err := s.queries.UpdatePlot(ctx, repository.UpdatePlotParams{
		ID:                 params.ID,
		Name:               params.Name,
		ParentPlotID:       domain.ToNullInt64(params.ParentPlotID),
		Location:           params.Location,
		SizeSqft:           domain.ToNullFloat(params.SizeSqft),
		GrassType:          params.GrassType,
		Notes:              params.Notes,
		PolygonCoordinates: polygon,
		CenterLat:          domain.ToNullFloat(params.CenterLat),
		CenterLng:          domain.ToNullFloat(params.CenterLng),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.NewValidationError(op, "name", "A plot with this name already exists")
		}
		if repository.IsCheckViolation(err) {
			return nil, domain.NewValidationError(op, "parent_plot", parentErrorMessage(hierarchy.ErrSelfParent))
		}
		return nil, domain.Internal(err, op, "Failed to update plot")
	}
	if n == 0 {
		return nil, domain.NotFound(op, "plot", strconv.FormatInt(params.ID, 10))
	}

	s.Invalidate(ctx)
	s.logger.Info("plot updated", "plot_id", params.ID)

	return s.Get(ctx, params.ID)
}

func (s *plotService) Delete(ctx context.Context, id int64) error {
	const op = "PlotService.Delete"

	n, err := s.queries.DeletePlot(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete plot")
	}
	if n == 0 {
		return domain.NotFound(op, "plot", strconv.FormatInt(id, 10))
	}

	s.Invalidate(ctx)
	s.logger.Info("plot deleted", "plot_id", id)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// normalizePlotInput trims text fields, validates lengths and coordinates,
// and derives the center from the polygon when no center was given.
func normalizePlotInput(op string, in *domain.PlotInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.GrassType = strings.TrimSpace(in.GrassType)
	in.Notes = strings.TrimSpace(in.Notes)

	ve := &domain.ValidationError{Op: op}

	switch {
	case in.Name == "":
		ve.Add("name", "Name is required")
	case len([]rune(in.Name)) > domain.MaxPlotNameLength:
		ve.Add("name", "Name must be 100 characters or less")
	}
	if len([]rune(in.Location)) > domain.MaxPlotLocationLength {
		ve.Add("location", "Location must be 200 characters or less")
	}
	if len([]rune(in.GrassType)) > domain.MaxPlotGrassTypeLength {
		ve.Add("grass_type", "Grass type must be 100 characters or less")
	}
	if in.SizeSqft != nil && *in.SizeSqft < 0 {
		ve.Add("size_sqft", "Size cannot be negative")
	}

	if in.Polygon != nil {
		if err := geo.ValidatePolygon(in.Polygon); err != nil {
			ve.Add("polygon_coordinates", err.Error())
		} else if in.CenterLat == nil || in.CenterLng == nil {
			lat, lng, _ := geo.Center(in.Polygon)
			in.CenterLat, in.CenterLng = &lat, &lng
		}
	}
	if in.CenterLat != nil && in.CenterLng != nil {
		if err := geo.ValidPoint(*in.CenterLat, *in.CenterLng); err != nil {
			ve.Add("center_lat", err.Error())
		} else {
			lat, lng := geo.Round(*in.CenterLat), geo.Round(*in.CenterLng)
			in.CenterLat, in.CenterLng = &lat, &lng
		}
	}

	hasCenter := in.CenterLat != nil && in.CenterLng != nil
	if !hasCenter && in.Polygon == nil {
		ve.Add("polygon_coordinates", "Plot must have map coordinates. Please draw the plot boundary on the map.")
		ve.Add("center_lat", "Center coordinates are required.")
		ve.Add("center_lng", "Center coordinates are required.")
	}

	return ve.ErrOrNil()
}

func parentErrorMessage(err error) string {
	if errors.Is(err, hierarchy.ErrSelfParent) {
		return "A plot cannot be its own parent."
	}
	return "Cannot set a sub-plot as the parent. This would create a circular reference."
}

// filterPlots applies a listing filter, preserving order.
func filterPlots(plots []domain.Plot, filter domain.PlotListFilter) []domain.Plot {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Plot, 0, len(plots))
	for _, p := range plots {
		if filter.ParentOnly && p.ParentPlotID != nil {
			continue
		}
		if filter.ParentPlotID != nil && (p.ParentPlotID == nil || *p.ParentPlotID != *filter.ParentPlotID) {
			continue
		}
		if search != "" && !plotMatches(p, search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func plotMatches(p domain.Plot, search string) bool {
	for _, field := range []string{p.Name, p.Location, p.GrassType, p.Notes} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func findPlot(plots []domain.Plot, id int64) (domain.Plot, bool) {
	for _, p := range plots {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Plot{}, false
}

func repoPlotToDomain(row repository.PlotRow) (domain.Plot, error) {
	p := domain.Plot{
		ID:             row.ID,
		Name:           row.Name,
		ParentPlotID:   domain.NullInt64Value(row.ParentPlotID),
		ParentPlotName: row.ParentPlotName,
		Location:       row.Location,
		SizeSqft:       domain.NullFloatValue(row.SizeSqft),
		GrassType:      row.GrassType,
		Notes:          row.Notes,
		CenterLat:      domain.NullFloatValue(row.CenterLat),
		CenterLng:      domain.NullFloatValue(row.CenterLng),
		CreatedByName:  row.CreatedByName,
		TreatmentCount: int(row.TreatmentCount),
		SubplotCount:   int(row.SubplotCount),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.CreatedBy.Valid {
		id := row.CreatedBy.UUID
		p.CreatedBy = &id
	}
	if row.PolygonCoordinates.Valid && len(row.PolygonCoordinates.RawMessage) > 0 {
		if err := json.Unmarshal(row.PolygonCoordinates.RawMessage, &p.Polygon); err != nil {
			return domain.Plot{}, err
		}
	}
	return p, nil
}

func polygonParam(poly domain.Polygon) (pqtype.NullRawMessage, error) {
	if poly == nil {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(poly)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
