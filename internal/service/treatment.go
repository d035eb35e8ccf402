package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/hierarchy"
	"github.com/DukeRupert/turfplot/internal/metrics"
	"github.com/DukeRupert/turfplot/internal/repository"
)

// TreatmentService defines the interface for treatment operations.
type TreatmentService interface {
	// List returns treatments newest first, narrowed by filter.
	List(ctx context.Context, filter domain.TreatmentListFilter) ([]domain.Treatment, error)

	// History returns the treatments applied to one plot.
	// Returns domain.ENOTFOUND if the plot does not exist.
	History(ctx context.Context, plotID int64) ([]domain.Treatment, error)

	// Get returns a single treatment.
	Get(ctx context.Context, id int64) (*domain.Treatment, error)

	// Create records a treatment with its details in one transaction.
	// With Cascade set, every descendant of each listed plot is included.
	Create(ctx context.Context, params domain.CreateTreatmentParams) (*domain.Treatment, error)

	// Update replaces a treatment's fields, plots and details.
	Update(ctx context.Context, params domain.UpdateTreatmentParams) (*domain.Treatment, error)

	// Delete removes a treatment.
	Delete(ctx context.Context, id int64) error
}

// TreatmentStore is the persistence the treatment service needs, inside and
// outside transactions. *repository.Queries satisfies it.
type TreatmentStore interface {
	ListTreatments(ctx context.Context, arg repository.ListTreatmentsParams) ([]repository.TreatmentRow, error)
	GetTreatment(ctx context.Context, id int64) (repository.TreatmentRow, error)
	CreateTreatment(ctx context.Context, arg repository.CreateTreatmentParams) (int64, error)
	UpdateTreatment(ctx context.Context, arg repository.UpdateTreatmentParams) (int64, error)
	DeleteTreatment(ctx context.Context, id int64) (int64, error)
	CountExistingPlots(ctx context.Context, ids []int64) (int64, error)
	SetTreatmentPlots(ctx context.Context, treatmentID int64, plotIDs []int64) error
	ClearTreatmentPlots(ctx context.Context, treatmentID int64) error
	ClearTreatmentDetails(ctx context.Context, treatmentID int64) error
	CreateWaterDetails(ctx context.Context, arg repository.CreateWaterDetailsParams) error
	CreateFertilizerDetails(ctx context.Context, arg repository.CreateFertilizerDetailsParams) error
	CreateChemicalDetails(ctx context.Context, arg repository.CreateChemicalDetailsParams) error
	CreateMowingDetails(ctx context.Context, arg repository.CreateMowingDetailsParams) error
}

// txRunner runs fn against a store bound to one transaction, committing when
// fn returns nil.
type txRunner func(ctx context.Context, fn func(q TreatmentStore) error) error

type treatmentService struct {
	queries TreatmentStore
	inTx    txRunner
	plots   PlotService
	logger  *slog.Logger
}

// NewTreatmentService creates a new TreatmentService. The plot service
// supplies the hierarchy snapshot for cascading and is invalidated after
// writes because plot treatment counts change.
func NewTreatmentService(db *sql.DB, queries *repository.Queries, plots PlotService, logger *slog.Logger) TreatmentService {
	return newTreatmentService(queries, sqlTx(db, queries), plots, logger)
}

func newTreatmentService(queries TreatmentStore, inTx txRunner, plots PlotService, logger *slog.Logger) *treatmentService {
	return &treatmentService{
		queries: queries,
		inTx:    inTx,
		plots:   plots,
		logger:  logger,
	}
}

// =============================================================================
// Reads
// =============================================================================

func (s *treatmentService) List(ctx context.Context, filter domain.TreatmentListFilter) ([]domain.Treatment, error) {
	const op = "TreatmentService.List"

	if filter.TreatmentType != "" && !filter.TreatmentType.IsValid() {
		return nil, domain.NewValidationError(op, "treatment_type", "Unknown treatment type.")
	}

	rows, err := s.queries.ListTreatments(ctx, repository.ListTreatmentsParams{
		TreatmentType: string(filter.TreatmentType),
		Date:          filter.Date,
		PlotID:        domain.ToNullInt64(filter.PlotID),
		Search:        filter.Search,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list treatments")
	}

	out := make([]domain.Treatment, 0, len(rows))
	for _, row := range rows {
		out = append(out, repoTreatmentToDomain(row))
	}
	return out, nil
}

func (s *treatmentService) History(ctx context.Context, plotID int64) ([]domain.Treatment, error) {
	if _, err := s.plots.Get(ctx, plotID); err != nil {
		return nil, err
	}
	return s.List(ctx, domain.TreatmentListFilter{PlotID: &plotID})
}

func (s *treatmentService) Get(ctx context.Context, id int64) (*domain.Treatment, error) {
	const op = "TreatmentService.Get"

	row, err := s.queries.GetTreatment(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "treatment", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "Failed to retrieve treatment")
	}
	t := repoTreatmentToDomain(row)
	return &t, nil
}

// =============================================================================
// Writes
// =============================================================================

func (s *treatmentService) Create(ctx context.Context, params domain.CreateTreatmentParams) (*domain.Treatment, error) {
	const op = "TreatmentService.Create"

	in := params.TreatmentInput
	plotIDs, err := s.prepare(ctx, op, &in, params.Cascade)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.inTx(ctx, func(q TreatmentStore) error {
		if err := checkPlotsExist(ctx, q, op, plotIDs); err != nil {
			return err
		}

		id, err = q.CreateTreatment(ctx, repository.CreateTreatmentParams{
			TreatmentType: string(in.TreatmentType),
			Date:          in.Date,
			Time:          in.Time,
			Notes:         in.Notes,
			AppliedBy:     uuid.NullUUID{UUID: params.AppliedBy, Valid: params.AppliedBy != uuid.Nil},
		})
		if err != nil {
			return domain.Internal(err, op, "Failed to create treatment")
		}
		if err := q.SetTreatmentPlots(ctx, id, plotIDs); err != nil {
			return domain.Internal(err, op, "Failed to link plots")
		}
		return insertDetails(ctx, q, op, id, in)
	})
	if err != nil {
		return nil, err
	}

	s.plots.Invalidate(ctx)
	metrics.TreatmentsRecorded.WithLabelValues(string(in.TreatmentType)).Inc()
	s.logger.Info("treatment recorded",
		"treatment_id", id,
		"type", in.TreatmentType,
		"plots", len(plotIDs),
		"cascade", params.Cascade,
	)

	return s.Get(ctx, id)
}

func (s *treatmentService) Update(ctx context.Context, params domain.UpdateTreatmentParams) (*domain.Treatment, error) {
	const op = "TreatmentService.Update"

	in := params.TreatmentInput
	plotIDs, err := s.prepare(ctx, op, &in, params.Cascade)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(q TreatmentStore) error {
		if err := checkPlotsExist(ctx, q, op, plotIDs); err != nil {
			return err
		}

		n, err := q.UpdateTreatment(ctx, repository.UpdateTreatmentParams{
			ID:            params.ID,
			TreatmentType: string(in.TreatmentType),
			Date:          in.Date,
			Time:          in.Time,
			Notes:         in.Notes,
		})
		if err != nil {
			return domain.Internal(err, op, "Failed to update treatment")
		}
		if n == 0 {
			return domain.NotFound(op, "treatment", strconv.FormatInt(params.ID, 10))
		}

		if err := q.ClearTreatmentPlots(ctx, params.ID); err != nil {
			return domain.Internal(err, op, "Failed to unlink plots")
		}
		if err := q.SetTreatmentPlots(ctx, params.ID, plotIDs); err != nil {
			return domain.Internal(err, op, "Failed to link plots")
		}
		if err := q.ClearTreatmentDetails(ctx, params.ID); err != nil {
			return domain.Internal(err, op, "Failed to clear treatment details")
		}
		return insertDetails(ctx, q, op, params.ID, in)
	})
	if err != nil {
		return nil, err
	}

	s.plots.Invalidate(ctx)
	s.logger.Info("treatment updated", "treatment_id", params.ID, "plots", len(plotIDs))

	return s.Get(ctx, params.ID)
}

func (s *treatmentService) Delete(ctx context.Context, id int64) error {
	const op = "TreatmentService.Delete"

	n, err := s.queries.DeleteTreatment(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete treatment")
	}
	if n == 0 {
		return domain.NotFound(op, "treatment", strconv.FormatInt(id, 10))
	}

	s.plots.Invalidate(ctx)
	s.logger.Info("treatment deleted", "treatment_id", id)
	return nil
}

// prepare normalizes and validates the input and resolves the final plot
// scope.
func (s *treatmentService) prepare(ctx context.Context, op string, in *domain.TreatmentInput, cascade bool) ([]int64, error) {
	in.Normalize()
	if err := in.Validate(op); err != nil {
		return nil, err
	}

	if !cascade {
		return uniqueIDs(in.PlotIDs), nil
	}
	plots, err := s.plots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hierarchy.ExpandScope(in.PlotIDs, plots), nil
}

func sqlTx(db *sql.DB, queries *repository.Queries) txRunner {
	return func(ctx context.Context, fn func(q TreatmentStore) error) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return domain.Internal(err, "TreatmentService.inTx", "Failed to begin transaction")
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(queries.WithTx(tx)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return domain.Internal(err, "TreatmentService.inTx", "Failed to commit transaction")
		}
		return nil
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func checkPlotsExist(ctx context.Context, q TreatmentStore, op string, plotIDs []int64) error {
	n, err := q.CountExistingPlots(ctx, plotIDs)
	if err != nil {
		return domain.Internal(err, op, "Failed to verify plots")
	}
	if int(n) != len(plotIDs) {
		return domain.NewValidationError(op, "plots", "One or more selected plots do not exist.")
	}
	return nil
}

func insertDetails(ctx context.Context, q TreatmentStore, op string, id int64, in domain.TreatmentInput) error {
	var err error
	switch in.TreatmentType {
	case domain.TreatmentTypeWater:
		w := in.Water
		var duration sql.NullInt64
		if w.DurationMinutes != nil {
			duration = sql.NullInt64{Int64: int64(*w.DurationMinutes), Valid: true}
		}
		err = q.CreateWaterDetails(ctx, repository.CreateWaterDetailsParams{
			TreatmentID:     id,
			AmountInches:    w.AmountInches,
			DurationMinutes: duration,
			Method:          w.Method,
		})
	case domain.TreatmentTypeFertilizer:
		f := in.Fertilizer
		err = q.CreateFertilizerDetails(ctx, repository.CreateFertilizerDetailsParams{
			TreatmentID:     id,
			ProductName:     f.ProductName,
			NpkRatio:        f.NPKRatio,
			Amount:          f.Amount,
			AmountUnit:      f.AmountUnit,
			RatePer1000sqft: domain.ToNullFloat(f.RatePer1000Sqft),
		})
	case domain.TreatmentTypeChemical:
		c := in.Chemical
		err = q.CreateChemicalDetails(ctx, repository.CreateChemicalDetailsParams{
			TreatmentID:      id,
			ChemicalType:     string(c.ChemicalType),
			ProductName:      c.ProductName,
			ActiveIngredient: c.ActiveIngredient,
			Amount:           c.Amount,
			AmountUnit:       c.AmountUnit,
			RatePer1000sqft:  domain.ToNullFloat(c.RatePer1000Sqft),
			TargetPest:       c.TargetPest,
		})
	case domain.TreatmentTypeMowing:
		m := in.Mowing
		err = q.CreateMowingDetails(ctx, repository.CreateMowingDetailsParams{
			TreatmentID:      id,
			HeightInches:     m.HeightInches,
			ClippingsRemoved: m.ClippingsRemoved,
			MowerType:        m.MowerType,
			Pattern:          m.Pattern,
		})
	}
	if err != nil {
		return domain.Internal(err, op, "Failed to save treatment details")
	}
	return nil
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func repoTreatmentToDomain(row repository.TreatmentRow) domain.Treatment {
	t := domain.Treatment{
		ID:            row.ID,
		PlotIDs:       []int64(row.PlotIDs),
		PlotNames:     []string(row.PlotNames),
		TreatmentType: domain.TreatmentType(row.TreatmentType),
		Date:          row.Date,
		Time:          row.Time,
		Notes:         row.Notes,
		AppliedByName: row.AppliedByName,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if t.PlotIDs == nil {
		t.PlotIDs = []int64{}
	}
	if t.PlotNames == nil {
		t.PlotNames = []string{}
	}
	if row.AppliedBy.Valid {
		id := row.AppliedBy.UUID
		t.AppliedBy = &id
	}

	switch t.TreatmentType {
	case domain.TreatmentTypeWater:
		if row.WaterAmountInches.Valid {
			w := &domain.WaterDetails{
				AmountInches: row.WaterAmountInches.Float64,
				Method:       row.WaterMethod.String,
			}
			if row.WaterDurationMinutes.Valid {
				d := int(row.WaterDurationMinutes.Int64)
				w.DurationMinutes = &d
			}
			t.Water = w
		}
	case domain.TreatmentTypeFertilizer:
		if row.FertilizerProductName.Valid {
			t.Fertilizer = &domain.FertilizerDetails{
				ProductName:     row.FertilizerProductName.String,
				NPKRatio:        row.FertilizerNpkRatio.String,
				Amount:          row.FertilizerAmount.Float64,
				AmountUnit:      row.FertilizerAmountUnit.String,
				RatePer1000Sqft: domain.NullFloatValue(row.FertilizerRatePer1000sqft),
			}
		}
	case domain.TreatmentTypeChemical:
		if row.ChemicalProductName.Valid {
			t.Chemical = &domain.ChemicalDetails{
				ChemicalType:     domain.ChemicalType(row.ChemicalType.String),
				ProductName:      row.ChemicalProductName.String,
				ActiveIngredient: row.ChemicalActiveIngredient.String,
				Amount:           row.ChemicalAmount.Float64,
				AmountUnit:       row.ChemicalAmountUnit.String,
				RatePer1000Sqft:  domain.NullFloatValue(row.ChemicalRatePer1000sqft),
				TargetPest:       row.ChemicalTargetPest.String,
			}
		}
	case domain.TreatmentTypeMowing:
		if row.MowingHeightInches.Valid {
			t.Mowing = &domain.MowingDetails{
				HeightInches:     row.MowingHeightInches.Float64,
				ClippingsRemoved: row.MowingClippingsRemoved.Bool,
				MowerType:        row.MowingMowerType.String,
				Pattern:          row.MowingPattern.String,
			}
		}
	}
	return t
}
