package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/storage"
)

type fakeReports struct {
	service.ReportService
	criteria domain.ReportCriteria
	format   domain.ReportFormat
	stored   map[string]string
	viewer   *domain.User
}

func (f *fakeReports) Data(ctx context.Context, criteria domain.ReportCriteria) (*domain.ReportData, error) {
	f.criteria = criteria
	if err := criteria.Validate("ReportService.Data"); err != nil {
		return nil, err
	}
	return &domain.ReportData{
		Title:       "Treatment Report",
		Criteria:    criteria,
		PlotNames:   []string{"North Field"},
		GeneratedAt: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		Treatments: []domain.Treatment{
			{ID: 1, TreatmentType: domain.TreatmentTypeWater, Date: "2024-06-01"},
			{ID: 2, TreatmentType: domain.TreatmentTypeWater, Date: "2024-06-02"},
		},
	}, nil
}

func (f *fakeReports) Generate(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, w io.Writer) (int64, error) {
	f.format = format
	f.criteria = criteria
	n, err := io.WriteString(w, "Date,Time")
	return int64(n), err
}

func (f *fakeReports) EnqueueExport(ctx context.Context, format domain.ReportFormat, criteria domain.ReportCriteria, requestedBy uuid.UUID) (*domain.ReportExport, error) {
	if !format.IsValid() {
		return nil, domain.NewValidationError("ReportService.EnqueueExport", "format", "Unsupported report format.")
	}
	return &domain.ReportExport{JobID: uuid.New(), Format: format, Criteria: criteria, StorageKey: "reports/2024/06/x/treatment-report-2024-06-05.csv"}, nil
}

func (f *fakeReports) OpenExport(ctx context.Context, key string, viewer *domain.User) (io.ReadCloser, storage.ObjectInfo, error) {
	f.viewer = viewer
	body, ok := f.stored[key]
	if !ok {
		return nil, storage.ObjectInfo{}, domain.NotFound("ReportService.OpenExport", "export", key)
	}
	return io.NopCloser(strings.NewReader(body)), storage.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: "text/csv"}, nil
}

func newReportMux(f *fakeReports) *http.ServeMux {
	mux := http.NewServeMux()
	NewReportHandler(f, testLogger()).RegisterRoutes(mux, passthrough)
	return mux
}

func TestReportHandler_TreatmentsJSON(t *testing.T) {
	f := &fakeReports{}
	rec := httptest.NewRecorder()
	newReportMux(f).ServeHTTP(rec, httptest.NewRequest("GET",
		"/api/turf-research/reports/treatments?plots=1,2&date_from=2024-06-01&date_to=2024-06-30&treatment_type=water", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportCriteria{
		PlotIDs:       []int64{1, 2},
		DateFrom:      "2024-06-01",
		DateTo:        "2024-06-30",
		TreatmentType: domain.TreatmentTypeWater,
	}, f.criteria)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"counts_by_type":{"water":2}`)
}

func TestReportHandler_BadCriteria(t *testing.T) {
	mux := newReportMux(&fakeReports{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/turf-research/reports/treatments?plots=1,abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/turf-research/reports/treatments?date_from=June", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date_from")
}

func TestReportHandler_Downloads(t *testing.T) {
	tests := []struct {
		path        string
		format      domain.ReportFormat
		disposition string
	}{
		{"/api/turf-research/reports/treatments.csv", domain.ReportFormatCSV, "attachment"},
		{"/api/turf-research/reports/treatments.pdf", domain.ReportFormatPDF, "attachment"},
		{"/api/turf-research/reports/treatments.xlsx", domain.ReportFormatXLSX, "attachment"},
		{"/api/turf-research/reports/treatments/print", domain.ReportFormatHTML, "inline"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f := &fakeReports{}
			rec := httptest.NewRecorder()
			newReportMux(f).ServeHTTP(rec, httptest.NewRequest("GET", tt.path+"?treatment_type=mowing", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.format, f.format)
			assert.Equal(t, domain.TreatmentTypeMowing, f.criteria.TreatmentType)
			assert.Equal(t, tt.format.ContentType(), rec.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), tt.disposition+`; filename="treatment-report-`))
			assert.Equal(t, "Date,Time", rec.Body.String())
		})
	}
}

func TestReportHandler_Exports(t *testing.T) {
	key := "reports/2024/06/abc/treatment-report-2024-06-05.csv"
	reports := &fakeReports{stored: map[string]string{key: "Date,Time"}}
	mux := newReportMux(reports)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/turf-research/reports/exports",
		strings.NewReader(`{"format":"csv","criteria":{"plot_ids":[1]}}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage_key"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/turf-research/reports/exports",
		strings.NewReader(`{"format":"docx"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	user := testUser()
	asUser := func(req *http.Request) *http.Request {
		return req.WithContext(auth.SetUser(req.Context(), user))
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest("GET", "/api/turf-research/reports/exports/"+key, nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Date,Time", rec.Body.String())
	assert.Equal(t, `attachment; filename="treatment-report-2024-06-05.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, user, reports.viewer)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, asUser(httptest.NewRequest("GET", "/api/turf-research/reports/exports/reports/missing.csv", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/turf-research/reports/exports/"+key, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
