package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/turf-research/plots", "/api/turf-research/plots"},
		{"/api/turf-research/plots/42", "/api/turf-research/plots/{id}"},
		{"/api/turf-research/plots/42/hierarchy", "/api/turf-research/plots/{id}/hierarchy"},
		{"/api/turf-research/treatments/7/", "/api/turf-research/treatments/{id}/"},
		{"/api/turf-research/reports/exports/reports/2024/abc.csv", "/api/turf-research/reports/exports/{key}"},
		{"/api/turf-research/reports/treatments.csv", "/api/turf-research/reports/treatments.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMiddleware_CapturesStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/turf-research/plots/1", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddleware_CountsRequests(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/turf-research/plots/{id}/subplots", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/turf-research/plots/9/subplots", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/turf-research/plots/10/subplots", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMiddleware_SkipsScrapes(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Zero(t, testutil.ToFloat64(counter))
}
