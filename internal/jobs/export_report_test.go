package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/storage"
	"github.com/DukeRupert/turfplot/internal/worker"
)

type stubReports struct {
	service.ReportService
	data     *domain.ReportData
	err      error
	criteria domain.ReportCriteria
}

func (s *stubReports) Data(ctx context.Context, criteria domain.ReportCriteria) (*domain.ReportData, error) {
	s.criteria = criteria
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, discardLogger())
	require.NoError(t, err)
	return s
}

func payload(t *testing.T, p worker.ExportReportPayload) []byte {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return b
}

func sampleData() *domain.ReportData {
	return &domain.ReportData{
		Title: "Treatment Report",
		Treatments: []domain.Treatment{{
			ID: 1, PlotIDs: []int64{2}, PlotNames: []string{"Block A"},
			TreatmentType: domain.TreatmentTypeWater, Date: "2024-06-03",
			Details: domain.Details{Water: &domain.WaterDetails{AmountInches: 0.5}},
		}},
		GeneratedAt: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestExportReportHandler_Type(t *testing.T) {
	h := NewExportReportHandler(&stubReports{}, newStore(t), discardLogger())
	assert.Equal(t, worker.JobTypeExportReport, h.Type())
}

func TestExportReportHandler_StoresReport(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reports := &stubReports{data: sampleData()}
	h := NewExportReportHandler(reports, store, discardLogger())

	key := storage.ReportKey(uuid.New(), uuid.New(), "treatment-report-2024-06-05.csv", time.Now())
	criteria := domain.ReportCriteria{PlotIDs: []int64{2}, DateFrom: "2024-06-01"}

	err := h.Handle(ctx, payload(t, worker.ExportReportPayload{
		Format:     domain.ReportFormatCSV,
		Criteria:   criteria,
		Title:      "Spring Trials",
		StorageKey: key,
	}))
	require.NoError(t, err)
	assert.Equal(t, criteria, reports.criteria)

	rc, info, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"Block A"`)
	assert.Equal(t, int64(len(body)), info.Size)
	assert.Equal(t, "Spring Trials", reports.data.Title)
}

func TestExportReportHandler_RetryOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	h := NewExportReportHandler(&stubReports{data: sampleData()}, store, discardLogger())

	p := payload(t, worker.ExportReportPayload{
		Format:     domain.ReportFormatCSV,
		StorageKey: storage.ReportKey(uuid.New(), uuid.New(), "treatment-report-2024-06-05.csv", time.Now()),
	})
	require.NoError(t, h.Handle(ctx, p))
	require.NoError(t, h.Handle(ctx, p))
}

func TestExportReportHandler_PermanentFailures(t *testing.T) {
	validKey := storage.ReportKey(uuid.New(), uuid.New(), "treatment-report-2024-06-05.csv", time.Now())

	tests := []struct {
		name    string
		payload []byte
		reports *stubReports
	}{
		{
			name:    "malformed json",
			payload: []byte(`{"format":`),
			reports: &stubReports{},
		},
		{
			name:    "unknown format",
			payload: payload(t, worker.ExportReportPayload{Format: "docx", StorageKey: validKey}),
			reports: &stubReports{},
		},
		{
			name:    "key outside reports",
			payload: payload(t, worker.ExportReportPayload{Format: domain.ReportFormatCSV, StorageKey: "../x.csv"}),
			reports: &stubReports{},
		},
		{
			name:    "invalid criteria",
			payload: payload(t, worker.ExportReportPayload{Format: domain.ReportFormatCSV, StorageKey: validKey}),
			reports: &stubReports{err: domain.NewValidationError("ReportService.Data", "date_from", "bad")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExportReportHandler(tt.reports, newStore(t), discardLogger())
			err := h.Handle(context.Background(), tt.payload)
			require.Error(t, err)
			assert.True(t, worker.IsPermanent(err))
		})
	}
}

func TestExportReportHandler_TransientFailure(t *testing.T) {
	h := NewExportReportHandler(&stubReports{err: errors.New("connection reset")}, newStore(t), discardLogger())

	err := h.Handle(context.Background(), payload(t, worker.ExportReportPayload{
		Format:     domain.ReportFormatPDF,
		StorageKey: storage.ReportKey(uuid.New(), uuid.New(), "treatment-report-2024-06-05.pdf", time.Now()),
	}))
	require.Error(t, err)
	assert.False(t, worker.IsPermanent(err))
}
