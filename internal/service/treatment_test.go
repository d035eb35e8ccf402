package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/repository"
)

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Equal(t, []int64{}, uniqueIDs(nil))
}

func TestRepoTreatmentToDomain_Water(t *testing.T) {
	applier := uuid.New()
	row := repository.TreatmentRow{
		ID:                   7,
		TreatmentType:        "water",
		Date:                 "2024-06-01",
		Time:                 "07:30",
		AppliedBy:            uuid.NullUUID{UUID: applier, Valid: true},
		AppliedByName:        "Sam Green",
		PlotIDs:              pq.Int64Array{1, 2},
		PlotNames:            pq.StringArray{"North Field", "Block A"},
		WaterAmountInches:    sql.NullFloat64{Float64: 0.5, Valid: true},
		WaterDurationMinutes: sql.NullInt64{Int64: 20, Valid: true},
		WaterMethod:          sql.NullString{String: "sprinkler", Valid: true},
	}

	tr := repoTreatmentToDomain(row)
	assert.Equal(t, domain.TreatmentTypeWater, tr.TreatmentType)
	assert.Equal(t, []int64{1, 2}, tr.PlotIDs)
	assert.Equal(t, []string{"North Field", "Block A"}, tr.PlotNames)
	require.NotNil(t, tr.AppliedBy)
	assert.Equal(t, applier, *tr.AppliedBy)
	require.NotNil(t, tr.Water)
	assert.Equal(t, 0.5, tr.Water.AmountInches)
	assert.Equal(t, 20, *tr.Water.DurationMinutes)
	assert.Nil(t, tr.Fertilizer)
	assert.True(t, tr.Details.Matches(domain.TreatmentTypeWater))
}

func TestRepoTreatmentToDomain_Chemical(t *testing.T) {
	row := repository.TreatmentRow{
		TreatmentType:       "chemical",
		ChemicalType:        sql.NullString{String: "fungicide", Valid: true},
		ChemicalProductName: sql.NullString{String: "Heritage", Valid: true},
		ChemicalAmount:      sql.NullFloat64{Float64: 2, Valid: true},
		ChemicalAmountUnit:  sql.NullString{String: "oz", Valid: true},
		ChemicalTargetPest:  sql.NullString{String: "dollar spot", Valid: true},
	}

	tr := repoTreatmentToDomain(row)
	require.NotNil(t, tr.Chemical)
	assert.Equal(t, domain.ChemicalTypeFungicide, tr.Chemical.ChemicalType)
	assert.Nil(t, tr.Chemical.RatePer1000Sqft)
	assert.Equal(t, []int64{}, tr.PlotIDs)
	assert.Nil(t, tr.AppliedBy)
}

func TestRepoTreatmentToDomain_MissingDetails(t *testing.T) {
	tr := repoTreatmentToDomain(repository.TreatmentRow{TreatmentType: "mowing"})
	assert.Nil(t, tr.Mowing)
}

// =============================================================================
// Service writes
// =============================================================================

// fakeTreatmentStore keeps treatments in memory. Writes made inside a
// transaction are staged and only kept when the transaction commits.
type fakeTreatmentStore struct {
	existing map[int64]bool
	plots    map[int64][]int64
	details  map[int64]string
	nextID   int64
	commits  int
	rollback int
}

func newFakeTreatmentStore(existing ...int64) *fakeTreatmentStore {
	f := &fakeTreatmentStore{
		existing: map[int64]bool{},
		plots:    map[int64][]int64{},
		details:  map[int64]string{},
		nextID:   10,
	}
	for _, id := range existing {
		f.existing[id] = true
	}
	return f
}

func (f *fakeTreatmentStore) inTx(ctx context.Context, fn func(q TreatmentStore) error) error {
	plots := make(map[int64][]int64, len(f.plots))
	for k, v := range f.plots {
		plots[k] = v
	}
	details := make(map[int64]string, len(f.details))
	for k, v := range f.details {
		details[k] = v
	}
	nextID := f.nextID

	if err := fn(f); err != nil {
		f.plots, f.details, f.nextID = plots, details, nextID
		f.rollback++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeTreatmentStore) ListTreatments(ctx context.Context, arg repository.ListTreatmentsParams) ([]repository.TreatmentRow, error) {
	return nil, nil
}

func (f *fakeTreatmentStore) GetTreatment(ctx context.Context, id int64) (repository.TreatmentRow, error) {
	ids, ok := f.plots[id]
	if !ok {
		return repository.TreatmentRow{}, sql.ErrNoRows
	}
	return repository.TreatmentRow{ID: id, TreatmentType: f.details[id], Date: "2024-06-01", PlotIDs: ids}, nil
}

func (f *fakeTreatmentStore) CreateTreatment(ctx context.Context, arg repository.CreateTreatmentParams) (int64, error) {
	f.nextID++
	f.plots[f.nextID] = []int64{}
	return f.nextID, nil
}

func (f *fakeTreatmentStore) UpdateTreatment(ctx context.Context, arg repository.UpdateTreatmentParams) (int64, error) {
	if _, ok := f.plots[arg.ID]; !ok {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeTreatmentStore) DeleteTreatment(ctx context.Context, id int64) (int64, error) {
	if _, ok := f.plots[id]; !ok {
		return 0, nil
	}
	delete(f.plots, id)
	delete(f.details, id)
	return 1, nil
}

func (f *fakeTreatmentStore) CountExistingPlots(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if f.existing[id] {
			n++
		}
	}
	return n, nil
}

func (f *fakeTreatmentStore) SetTreatmentPlots(ctx context.Context, treatmentID int64, plotIDs []int64) error {
	f.plots[treatmentID] = append([]int64(nil), plotIDs...)
	return nil
}

func (f *fakeTreatmentStore) ClearTreatmentPlots(ctx context.Context, treatmentID int64) error {
	f.plots[treatmentID] = []int64{}
	return nil
}

func (f *fakeTreatmentStore) ClearTreatmentDetails(ctx context.Context, treatmentID int64) error {
	delete(f.details, treatmentID)
	return nil
}

func (f *fakeTreatmentStore) CreateWaterDetails(ctx context.Context, arg repository.CreateWaterDetailsParams) error {
	f.details[arg.TreatmentID] = "water"
	return nil
}

func (f *fakeTreatmentStore) CreateFertilizerDetails(ctx context.Context, arg repository.CreateFertilizerDetailsParams) error {
	f.details[arg.TreatmentID] = "fertilizer"
	return nil
}

func (f *fakeTreatmentStore) CreateChemicalDetails(ctx context.Context, arg repository.CreateChemicalDetailsParams) error {
	f.details[arg.TreatmentID] = "chemical"
	return nil
}

func (f *fakeTreatmentStore) CreateMowingDetails(ctx context.Context, arg repository.CreateMowingDetailsParams) error {
	f.details[arg.TreatmentID] = "mowing"
	return nil
}

// countingPlots serves a fixed snapshot and counts invalidations.
type countingPlots struct {
	PlotService
	plots         []domain.Plot
	invalidations int
}

func (c *countingPlots) Snapshot(ctx context.Context) ([]domain.Plot, error) {
	return c.plots, nil
}

func (c *countingPlots) Invalidate(ctx context.Context) {
	c.invalidations++
}

// newTestTreatmentService serves North Field <- Block A <- Row 1 and South Field.
func newTestTreatmentService() (*treatmentService, *fakeTreatmentStore, *countingPlots) {
	plots := &countingPlots{plots: []domain.Plot{
		{ID: 1, Name: "North Field"},
		{ID: 2, Name: "Block A", ParentPlotID: i64(1)},
		{ID: 3, Name: "Row 1", ParentPlotID: i64(2)},
		{ID: 4, Name: "South Field"},
	}}
	store := newFakeTreatmentStore(1, 2, 3, 4)
	return newTreatmentService(store, store.inTx, plots, discardLogger()), store, plots
}

func waterInput(plotIDs ...int64) domain.TreatmentInput {
	return domain.TreatmentInput{
		PlotIDs:       plotIDs,
		TreatmentType: domain.TreatmentTypeWater,
		Date:          "2024-06-01",
		Details:       domain.Details{Water: &domain.WaterDetails{AmountInches: 0.5}},
	}
}

func TestTreatmentService_Create_Cascade(t *testing.T) {
	svc, store, plots := newTestTreatmentService()

	tr, err := svc.Create(context.Background(), domain.CreateTreatmentParams{
		TreatmentInput: waterInput(1, 4),
		Cascade:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, store.plots[tr.ID])
	assert.Equal(t, []int64{1, 2, 3, 4}, tr.PlotIDs)
	assert.Equal(t, "water", store.details[tr.ID])
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, 1, plots.invalidations)
}

func TestTreatmentService_Create_WithoutCascade(t *testing.T) {
	svc, store, plots := newTestTreatmentService()

	tr, err := svc.Create(context.Background(), domain.CreateTreatmentParams{TreatmentInput: waterInput(2, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, store.plots[tr.ID])
	assert.Equal(t, 1, plots.invalidations)
}

func TestTreatmentService_Create_UnknownPlotRollsBack(t *testing.T) {
	svc, store, plots := newTestTreatmentService()

	_, err := svc.Create(context.Background(), domain.CreateTreatmentParams{TreatmentInput: waterInput(1, 99)})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "plots")
	assert.Equal(t, 1, store.rollback)
	assert.Empty(t, store.plots)
	assert.Zero(t, plots.invalidations)
}

func TestTreatmentService_Create_InvalidInput(t *testing.T) {
	svc, store, plots := newTestTreatmentService()

	in := waterInput(1)
	in.Water = nil
	_, err := svc.Create(context.Background(), domain.CreateTreatmentParams{TreatmentInput: in})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Zero(t, store.commits+store.rollback)
	assert.Zero(t, plots.invalidations)
}

func TestTreatmentService_Update_ReplacesScope(t *testing.T) {
	svc, store, plots := newTestTreatmentService()
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateTreatmentParams{TreatmentInput: waterInput(4)})
	require.NoError(t, err)

	in := waterInput(2)
	in.TreatmentType = domain.TreatmentTypeMowing
	in.Water = nil
	in.Mowing = &domain.MowingDetails{HeightInches: 2.5}
	updated, err := svc.Update(ctx, domain.UpdateTreatmentParams{ID: created.ID, TreatmentInput: in, Cascade: true})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 3}, updated.PlotIDs)
	assert.Equal(t, "mowing", store.details[created.ID])
	assert.Equal(t, 2, plots.invalidations)
}

func TestTreatmentService_Update_NotFound(t *testing.T) {
	svc, store, plots := newTestTreatmentService()

	_, err := svc.Update(context.Background(), domain.UpdateTreatmentParams{ID: 404, TreatmentInput: waterInput(1)})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, 1, store.rollback)
	assert.Zero(t, plots.invalidations)
}

func TestTreatmentService_Delete(t *testing.T) {
	svc, _, plots := newTestTreatmentService()
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateTreatmentParams{TreatmentInput: waterInput(1)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, 2, plots.invalidations)

	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(svc.Delete(ctx, created.ID)))
	assert.Equal(t, 2, plots.invalidations)
}
