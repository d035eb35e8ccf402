package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/repository"
)

// Master list field limits.
const (
	MaxLocationNameLength  = 200
	MaxGrassTypeNameLength = 100
	MaxScientificNameLen   = 200
)

// MasterListService manages the location and grass type lists that plot
// forms pick from.
type MasterListService interface {
	ListLocations(ctx context.Context, search string) ([]domain.Location, error)
	GetLocation(ctx context.Context, id int64) (*domain.Location, error)
	CreateLocation(ctx context.Context, params domain.LocationParams) (*domain.Location, error)
	UpdateLocation(ctx context.Context, id int64, params domain.LocationParams) (*domain.Location, error)
	DeleteLocation(ctx context.Context, id int64) error

	ListGrassTypes(ctx context.Context, search string) ([]domain.GrassType, error)
	GetGrassType(ctx context.Context, id int64) (*domain.GrassType, error)
	CreateGrassType(ctx context.Context, params domain.GrassTypeParams) (*domain.GrassType, error)
	UpdateGrassType(ctx context.Context, id int64, params domain.GrassTypeParams) (*domain.GrassType, error)
	DeleteGrassType(ctx context.Context, id int64) error
}

type masterListService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewMasterListService creates a new MasterListService.
func NewMasterListService(queries *repository.Queries, logger *slog.Logger) MasterListService {
	return &masterListService{
		queries: queries,
		logger:  logger,
	}
}

// =============================================================================
// Locations
// =============================================================================

func (s *masterListService) ListLocations(ctx context.Context, search string) ([]domain.Location, error) {
	const op = "MasterListService.ListLocations"

	rows, err := s.queries.ListLocations(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list locations")
	}
	out := make([]domain.Location, 0, len(rows))
	for _, r := range rows {
		out = append(out, repoLocationToDomain(r))
	}
	return out, nil
}

func (s *masterListService) GetLocation(ctx context.Context, id int64) (*domain.Location, error) {
	const op = "MasterListService.GetLocation"

	row, err := s.queries.GetLocation(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, op, "location", id)
	}
	loc := repoLocationToDomain(row)
	return &loc, nil
}

func (s *masterListService) CreateLocation(ctx context.Context, params domain.LocationParams) (*domain.Location, error) {
	const op = "MasterListService.CreateLocation"

	if err := validateLocation(op, &params); err != nil {
		return nil, err
	}
	row, err := s.queries.CreateLocation(ctx, repository.CreateLocationParams{
		Name:        params.Name,
		Description: params.Description,
	})
	if err != nil {
		return nil, uniqueOrInternal(err, op, "A location with this name already exists")
	}

	s.logger.Info("location created", "location_id", row.ID, "name", row.Name)
	loc := repoLocationToDomain(row)
	return &loc, nil
}

func (s *masterListService) UpdateLocation(ctx context.Context, id int64, params domain.LocationParams) (*domain.Location, error) {
	const op = "MasterListService.UpdateLocation"

	if err := validateLocation(op, &params); err != nil {
		return nil, err
	}
	row, err := s.queries.UpdateLocation(ctx, repository.UpdateLocationParams{
		ID:          id,
		Name:        params.Name,
		Description: params.Description,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "location", strconv.FormatInt(id, 10))
		}
		return nil, uniqueOrInternal(err, op, "A location with this name already exists")
	}

	loc := repoLocationToDomain(row)
	return &loc, nil
}

func (s *masterListService) DeleteLocation(ctx context.Context, id int64) error {
	const op = "MasterListService.DeleteLocation"

	n, err := s.queries.DeleteLocation(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete location")
	}
	if n == 0 {
		return domain.NotFound(op, "location", strconv.FormatInt(id, 10))
	}
	s.logger.Info("location deleted", "location_id", id)
	return nil
}

// =============================================================================
// Grass Types
// =============================================================================

func (s *masterListService) ListGrassTypes(ctx context.Context, search string) ([]domain.GrassType, error) {
	const op = "MasterListService.ListGrassTypes"

	rows, err := s.queries.ListGrassTypes(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list grass types")
	}
	out := make([]domain.GrassType, 0, len(rows))
	for _, r := range rows {
		out = append(out, repoGrassTypeToDomain(r))
	}
	return out, nil
}

func (s *masterListService) GetGrassType(ctx context.Context, id int64) (*domain.GrassType, error) {
	const op = "MasterListService.GetGrassType"

	row, err := s.queries.GetGrassType(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, op, "grass type", id)
	}
	gt := repoGrassTypeToDomain(row)
	return &gt, nil
}

func (s *masterListService) CreateGrassType(ctx context.Context, params domain.GrassTypeParams) (*domain.GrassType, error) {
	const op = "MasterListService.CreateGrassType"

	if err := validateGrassType(op, &params); err != nil {
		return nil, err
	}
	row, err := s.queries.CreateGrassType(ctx, repository.CreateGrassTypeParams{
		Name:           params.Name,
		ScientificName: params.ScientificName,
		Description:    params.Description,
	})
	if err != nil {
		return nil, uniqueOrInternal(err, op, "A grass type with this name already exists")
	}

	s.logger.Info("grass type created", "grass_type_id", row.ID, "name", row.Name)
	gt := repoGrassTypeToDomain(row)
	return &gt, nil
}

func (s *masterListService) UpdateGrassType(ctx context.Context, id int64, params domain.GrassTypeParams) (*domain.GrassType, error) {
	const op = "MasterListService.UpdateGrassType"

	if err := validateGrassType(op, &params); err != nil {
		return nil, err
	}
	row, err := s.queries.UpdateGrassType(ctx, repository.UpdateGrassTypeParams{
		ID:             id,
		Name:           params.Name,
		ScientificName: params.ScientificName,
		Description:    params.Description,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "grass type", strconv.FormatInt(id, 10))
		}
		return nil, uniqueOrInternal(err, op, "A grass type with this name already exists")
	}

	gt := repoGrassTypeToDomain(row)
	return &gt, nil
}

func (s *masterListService) DeleteGrassType(ctx context.Context, id int64) error {
	const op = "MasterListService.DeleteGrassType"

	n, err := s.queries.DeleteGrassType(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete grass type")
	}
	if n == 0 {
		return domain.NotFound(op, "grass type", strconv.FormatInt(id, 10))
	}
	s.logger.Info("grass type deleted", "grass_type_id", id)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func validateLocation(op string, p *domain.LocationParams) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)

	switch {
	case p.Name == "":
		return domain.NewValidationError(op, "name", "Name is required")
	case len([]rune(p.Name)) > MaxLocationNameLength:
		return domain.NewValidationError(op, "name", "Name must be 200 characters or less")
	}
	return nil
}

func validateGrassType(op string, p *domain.GrassTypeParams) error {
	p.Name = strings.TrimSpace(p.Name)
	p.ScientificName = strings.TrimSpace(p.ScientificName)
	p.Description = strings.TrimSpace(p.Description)

	ve := &domain.ValidationError{Op: op}
	switch {
	case p.Name == "":
		ve.Add("name", "Name is required")
	case len([]rune(p.Name)) > MaxGrassTypeNameLength:
		ve.Add("name", "Name must be 100 characters or less")
	}
	if len([]rune(p.ScientificName)) > MaxScientificNameLen {
		ve.Add("scientific_name", "Scientific name must be 200 characters or less")
	}
	return ve.ErrOrNil()
}

func notFoundOrInternal(err error, op, resource string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(op, resource, strconv.FormatInt(id, 10))
	}
	return domain.Internal(err, op, "Failed to retrieve "+resource)
}

func uniqueOrInternal(err error, op, conflictMessage string) error {
	if repository.IsUniqueViolation(err) {
		return domain.Conflict(op, conflictMessage)
	}
	return domain.Internal(err, op, "Failed to save")
}

func repoLocationToDomain(r repository.Location) domain.Location {
	return domain.Location{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func repoGrassTypeToDomain(r repository.GrassType) domain.GrassType {
	return domain.GrassType{
		ID:             r.ID,
		Name:           r.Name,
		ScientificName: r.ScientificName,
		Description:    r.Description,
		CreatedAt:      r.CreatedAt,
	}
}
