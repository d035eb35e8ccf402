package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
)

type fakeTreatments struct {
	service.TreatmentService
	filter  domain.TreatmentListFilter
	created domain.CreateTreatmentParams
	updated domain.UpdateTreatmentParams
	deleted int64
}

func (f *fakeTreatments) List(ctx context.Context, filter domain.TreatmentListFilter) ([]domain.Treatment, error) {
	f.filter = filter
	return []domain.Treatment{}, nil
}

func (f *fakeTreatments) Create(ctx context.Context, params domain.CreateTreatmentParams) (*domain.Treatment, error) {
	f.created = params
	return &domain.Treatment{ID: 5, TreatmentType: params.TreatmentType, PlotIDs: params.PlotIDs}, nil
}

func (f *fakeTreatments) Update(ctx context.Context, params domain.UpdateTreatmentParams) (*domain.Treatment, error) {
	f.updated = params
	return &domain.Treatment{ID: params.ID}, nil
}

func (f *fakeTreatments) Delete(ctx context.Context, id int64) error {
	f.deleted = id
	return nil
}

func (f *fakeTreatments) History(ctx context.Context, plotID int64) ([]domain.Treatment, error) {
	return nil, domain.NotFound("PlotService.Get", "plot", "x")
}

func newTreatmentMux(f *fakeTreatments) *http.ServeMux {
	mux := http.NewServeMux()
	NewTreatmentHandler(f, testLogger()).RegisterRoutes(mux, passthrough)
	return mux
}

func TestTreatmentHandler_ListFilters(t *testing.T) {
	f := &fakeTreatments{}
	rec := httptest.NewRecorder()
	newTreatmentMux(f).ServeHTTP(rec, httptest.NewRequest("GET",
		"/api/turf-research/treatments?treatment_type=water&date=2024-06-01&plot=4&search=north", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, domain.TreatmentTypeWater, f.filter.TreatmentType)
	assert.Equal(t, "2024-06-01", f.filter.Date)
	require.NotNil(t, f.filter.PlotID)
	assert.Equal(t, int64(4), *f.filter.PlotID)
	assert.Equal(t, "north", f.filter.Search)
}

func TestTreatmentHandler_CreateCascade(t *testing.T) {
	f := &fakeTreatments{}
	user := &domain.User{ID: uuid.New()}

	body := `{"plots":[1],"treatment_type":"water","date":"2024-06-01","water_details":{"amount_inches":0.5}}`
	req := httptest.NewRequest("POST", "/api/turf-research/treatments?cascade=true", strings.NewReader(body))
	req = req.WithContext(auth.SetUser(req.Context(), user))
	rec := httptest.NewRecorder()
	newTreatmentMux(f).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, f.created.Cascade)
	assert.Equal(t, user.ID, f.created.AppliedBy)
	assert.Equal(t, []int64{1}, f.created.PlotIDs)
	require.NotNil(t, f.created.Water)
	assert.Equal(t, 0.5, f.created.Water.AmountInches)
}

func TestTreatmentHandler_UpdateAndDelete(t *testing.T) {
	f := &fakeTreatments{}
	mux := newTreatmentMux(f)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/turf-research/treatments/9",
		strings.NewReader(`{"plots":[2],"treatment_type":"mowing","date":"2024-06-02","mowing_details":{"height_inches":2.5}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), f.updated.ID)
	assert.False(t, f.updated.Cascade)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/turf-research/treatments/9", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(9), f.deleted)
}

func TestPlotHandler_TreatmentHistoryUnknownPlot(t *testing.T) {
	mux := http.NewServeMux()
	NewPlotHandler(&fakePlots{}, &fakeTreatments{}, testLogger()).RegisterRoutes(mux, passthrough)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/turf-research/plots/42/treatment_history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
