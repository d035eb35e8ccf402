package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/cache"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/hierarchy"
	"github.com/DukeRupert/turfplot/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func square() domain.Polygon {
	return domain.Polygon{
		{Lat: 35.0, Lng: -97.0},
		{Lat: 35.0, Lng: -96.0},
		{Lat: 36.0, Lng: -96.0},
		{Lat: 36.0, Lng: -97.0},
	}
}

// =============================================================================
// Plot input
// =============================================================================

func TestNormalizePlotInput_DerivesCenter(t *testing.T) {
	in := domain.PlotInput{Name: "  North Field ", Polygon: square()}

	require.NoError(t, normalizePlotInput("test", &in))
	assert.Equal(t, "North Field", in.Name)
	require.NotNil(t, in.CenterLat)
	require.NotNil(t, in.CenterLng)
	assert.Equal(t, 35.5, *in.CenterLat)
	assert.Equal(t, -96.5, *in.CenterLng)
}

func TestNormalizePlotInput_KeepsGivenCenter(t *testing.T) {
	in := domain.PlotInput{Name: "A", Polygon: square(), CenterLat: f64(35.123456789), CenterLng: f64(-96.1)}

	require.NoError(t, normalizePlotInput("test", &in))
	assert.Equal(t, 35.12345679, *in.CenterLat)
	assert.Equal(t, -96.1, *in.CenterLng)
}

func TestNormalizePlotInput_Errors(t *testing.T) {
	long := make([]rune, domain.MaxPlotNameLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name   string
		in     domain.PlotInput
		fields []string
	}{
		{"missing name", domain.PlotInput{CenterLat: f64(1), CenterLng: f64(1)}, []string{"name"}},
		{"name too long", domain.PlotInput{Name: string(long), CenterLat: f64(1), CenterLng: f64(1)}, []string{"name"}},
		{"no coordinates", domain.PlotInput{Name: "A"}, []string{"polygon_coordinates", "center_lat", "center_lng"}},
		{"half a center", domain.PlotInput{Name: "A", CenterLat: f64(1)}, []string{"polygon_coordinates", "center_lat", "center_lng"}},
		{"center out of range", domain.PlotInput{Name: "A", CenterLat: f64(91), CenterLng: f64(1)}, []string{"center_lat"}},
		{"degenerate polygon", domain.PlotInput{Name: "A", Polygon: square()[:2], CenterLat: f64(1), CenterLng: f64(1)}, []string{"polygon_coordinates"}},
		{"negative size", domain.PlotInput{Name: "A", SizeSqft: f64(-1), CenterLat: f64(1), CenterLng: f64(1)}, []string{"size_sqft"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizePlotInput("test", &tt.in)
			require.Error(t, err)

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			for _, f := range tt.fields {
				assert.Contains(t, ve.Fields, f)
			}
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

// =============================================================================
// Filtering
// =============================================================================

func TestFilterPlots(t *testing.T) {
	plots := []domain.Plot{
		{ID: 1, Name: "North Field", GrassType: "Bermuda"},
		{ID: 2, Name: "Block A", ParentPlotID: i64(1), Notes: "shade trial"},
		{ID: 3, Name: "Block B", ParentPlotID: i64(1)},
		{ID: 4, Name: "South Field", Location: "Stillwater"},
	}

	ids := func(ps []domain.Plot) []int64 {
		out := []int64{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(filterPlots(plots, domain.PlotListFilter{})))
	assert.Equal(t, []int64{1, 4}, ids(filterPlots(plots, domain.PlotListFilter{ParentOnly: true})))
	assert.Equal(t, []int64{2, 3}, ids(filterPlots(plots, domain.PlotListFilter{ParentPlotID: i64(1)})))
	assert.Equal(t, []int64{}, ids(filterPlots(plots, domain.PlotListFilter{ParentPlotID: i64(4)})))
	assert.Equal(t, []int64{1}, ids(filterPlots(plots, domain.PlotListFilter{Search: "bermuda"})))
	assert.Equal(t, []int64{2}, ids(filterPlots(plots, domain.PlotListFilter{Search: "SHADE"})))
	assert.Equal(t, []int64{4}, ids(filterPlots(plots, domain.PlotListFilter{Search: "still", ParentOnly: true})))
}

func TestParentErrorMessage(t *testing.T) {
	assert.Equal(t, "A plot cannot be its own parent.", parentErrorMessage(hierarchy.ErrSelfParent))
	assert.Contains(t, parentErrorMessage(hierarchy.ErrCircularParent), "circular reference")
}

// =============================================================================
// Mapping
// =============================================================================

func TestRepoPlotToDomain(t *testing.T) {
	raw, err := polygonParam(square())
	require.NoError(t, err)
	require.True(t, raw.Valid)

	row := repository.PlotRow{
		Plot: repository.Plot{
			ID:                 2,
			Name:               "Block A",
			ParentPlotID:       sql.NullInt64{Int64: 1, Valid: true},
			SizeSqft:           sql.NullFloat64{Float64: 1000, Valid: true},
			PolygonCoordinates: raw,
			CenterLat:          sql.NullFloat64{Float64: 35.5, Valid: true},
		},
		ParentPlotName: "North Field",
		TreatmentCount: 3,
	}

	p, err := repoPlotToDomain(row)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *p.ParentPlotID)
	assert.Equal(t, "North Field", p.ParentPlotName)
	assert.Equal(t, 1000.0, *p.SizeSqft)
	assert.Equal(t, square(), p.Polygon)
	assert.Equal(t, 35.5, *p.CenterLat)
	assert.Nil(t, p.CenterLng)
	assert.Nil(t, p.CreatedBy)
	assert.Equal(t, 3, p.TreatmentCount)
}

func TestRepoPlotToDomain_BadPolygon(t *testing.T) {
	row := repository.PlotRow{Plot: repository.Plot{
		PolygonCoordinates: pqtype.NullRawMessage{RawMessage: []byte(`{"type":`), Valid: true},
	}}
	_, err := repoPlotToDomain(row)
	assert.Error(t, err)
}

func TestPolygonParam_Nil(t *testing.T) {
	raw, err := polygonParam(nil)
	require.NoError(t, err)
	assert.False(t, raw.Valid)
}

// =============================================================================
// Service writes
// =============================================================================

// fakePlotStore keeps plot rows in memory and records writes.
type fakePlotStore struct {
	rows    []repository.PlotRow
	creates []repository.CreatePlotParams
	updates []repository.UpdatePlotParams
	lists   int
}

func (f *fakePlotStore) ListPlots(ctx context.Context) ([]repository.PlotRow, error) {
	f.lists++
	return f.rows, nil
}

func (f *fakePlotStore) CreatePlot(ctx context.Context, arg repository.CreatePlotParams) (int64, error) {
	f.creates = append(f.creates, arg)
	id := int64(100 + len(f.creates))
	f.rows = append(f.rows, repository.PlotRow{Plot: repository.Plot{
		ID: id, Name: arg.Name, ParentPlotID: arg.ParentPlotID,
		CenterLat: arg.CenterLat, CenterLng: arg.CenterLng,
	}})
	return id, nil
}

func (f *fakePlotStore) UpdatePlot(ctx context.Context, arg repository.UpdatePlotParams) (int64, error) {
	f.updates = append(f.updates, arg)
	for i := range f.rows {
		if f.rows[i].ID == arg.ID {
			f.rows[i].Name = arg.Name
			f.rows[i].ParentPlotID = arg.ParentPlotID
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakePlotStore) DeletePlot(ctx context.Context, id int64) (int64, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func plotRow(id int64, parent *int64, name string) repository.PlotRow {
	return repository.PlotRow{Plot: repository.Plot{
		ID:           id,
		Name:         name,
		ParentPlotID: domain.ToNullInt64(parent),
		CenterLat:    sql.NullFloat64{Float64: 35.5, Valid: true},
		CenterLng:    sql.NullFloat64{Float64: -96.5, Valid: true},
	}}
}

// newChainPlotService serves North Field <- Block A <- Row 1 plus South Field.
func newChainPlotService() (*fakePlotStore, PlotService) {
	store := &fakePlotStore{rows: []repository.PlotRow{
		plotRow(1, nil, "North Field"),
		plotRow(2, i64(1), "Block A"),
		plotRow(3, i64(2), "Row 1"),
		plotRow(4, nil, "South Field"),
	}}
	return store, NewPlotService(store, cache.New(nil, 0, discardLogger()), discardLogger())
}

func located(name string, parent *int64) domain.PlotInput {
	return domain.PlotInput{Name: name, ParentPlotID: parent, CenterLat: f64(35.5), CenterLng: f64(-96.5)}
}

func TestPlotService_Update_RejectsDescendantAsParent(t *testing.T) {
	store, svc := newChainPlotService()

	_, err := svc.Update(context.Background(), domain.UpdatePlotParams{ID: 1, PlotInput: located("North Field", i64(3))})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields["parent_plot"], "circular reference")
	assert.Empty(t, store.updates)
}

func TestPlotService_Update_RejectsSelfParent(t *testing.T) {
	store, svc := newChainPlotService()

	_, err := svc.Update(context.Background(), domain.UpdatePlotParams{ID: 2, PlotInput: located("Block A", i64(2))})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "A plot cannot be its own parent.", ve.Fields["parent_plot"])
	assert.Empty(t, store.updates)
}

func TestPlotService_Update_MovesSubtree(t *testing.T) {
	store, svc := newChainPlotService()

	p, err := svc.Update(context.Background(), domain.UpdatePlotParams{ID: 2, PlotInput: located("Block A", i64(4))})
	require.NoError(t, err)
	require.Len(t, store.updates, 1)
	assert.Equal(t, sql.NullInt64{Int64: 4, Valid: true}, store.updates[0].ParentPlotID)
	assert.Equal(t, "South Field > Block A", p.HierarchyDisplay)

	ids, err := svc.Descendants(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestPlotService_Update_UnknownPlot(t *testing.T) {
	_, svc := newChainPlotService()

	_, err := svc.Update(context.Background(), domain.UpdatePlotParams{ID: 99, PlotInput: located("Nowhere", nil)})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPlotService_Create_UnknownParent(t *testing.T) {
	store, svc := newChainPlotService()

	_, err := svc.Create(context.Background(), domain.CreatePlotParams{PlotInput: located("Block Z", i64(99))})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "parent_plot")
	assert.Empty(t, store.creates)
}

func TestPlotService_Create(t *testing.T) {
	store, svc := newChainPlotService()

	p, err := svc.Create(context.Background(), domain.CreatePlotParams{PlotInput: located("  Block B ", i64(1))})
	require.NoError(t, err)
	assert.Equal(t, "Block B", p.Name)
	assert.Equal(t, "North Field > Block B", p.HierarchyDisplay)
	require.Len(t, store.creates, 1)
	assert.Equal(t, sql.NullInt64{Int64: 1, Valid: true}, store.creates[0].ParentPlotID)
}

func TestPlotService_Delete(t *testing.T) {
	_, svc := newChainPlotService()

	require.NoError(t, svc.Delete(context.Background(), 4))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(svc.Delete(context.Background(), 4)))
}

func TestPlotService_Hierarchy(t *testing.T) {
	_, svc := newChainPlotService()

	h, err := svc.Hierarchy(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, h.Parents)
	assert.Equal(t, "North Field", h.Current.Name)
	require.Len(t, h.Subplots, 1)
	assert.Equal(t, "Block A", h.Subplots[0].Name)

	var names []string
	for _, d := range h.AllDescendants {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Block A", "Row 1"}, names)
	assert.Equal(t, "North Field > Block A > Row 1", h.AllDescendants[1].HierarchyDisplay)

	h, err = svc.Hierarchy(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, h.Parents, 2)
	assert.Equal(t, "North Field", h.Parents[0].Name)
	assert.NotNil(t, h.AllDescendants)
	assert.Empty(t, h.AllDescendants)
}
