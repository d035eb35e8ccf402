package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequestLoggingMiddleware_LogsRequest(t *testing.T) {
	logger, buf := bufferLogger()
	h := NewRequestLoggingMiddleware(logger).Handler(statusHandler(http.StatusCreated))

	req := httptest.NewRequest(http.MethodPost, "/api/turf-research/plots", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := buf.String()
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, out, "method=POST")
	assert.Contains(t, out, "path=/api/turf-research/plots")
	assert.Contains(t, out, "status=201")
	assert.Contains(t, out, "ip=192.0.2.1")
	assert.Contains(t, out, "duration_ms=")
	assert.NotContains(t, out, "user_id=")
}

func TestRequestLoggingMiddleware_LogsUserID(t *testing.T) {
	logger, buf := bufferLogger()
	h := NewRequestLoggingMiddleware(logger).Handler(statusHandler(http.StatusOK))

	user := &domain.User{ID: uuid.New()}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(auth.SetUser(req.Context(), user))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "user_id="+user.ID.String())
}

func TestRequestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
		agent  bool
	}{
		{http.StatusOK, "level=INFO", false},
		{http.StatusNotFound, "level=INFO", true},
		{http.StatusInternalServerError, "level=WARN", false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logger, buf := bufferLogger()
			h := NewRequestLoggingMiddleware(logger).Handler(statusHandler(tt.status))

			req := httptest.NewRequest(http.MethodGet, "/api/turf-research/plots/1", nil)
			req.Header.Set("User-Agent", "field-tablet/2.1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Contains(t, buf.String(), tt.level)
			if tt.agent {
				assert.Contains(t, buf.String(), "field-tablet/2.1")
			} else {
				assert.NotContains(t, buf.String(), "field-tablet/2.1")
			}
		})
	}
}

func TestRequestLoggingMiddleware_Skips(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		logger, buf := bufferLogger()
		h := NewRequestLoggingMiddleware(logger).Handler(statusHandler(http.StatusOK))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, buf.String(), path)
	}

	logger, buf := bufferLogger()
	h := NewRequestLoggingMiddleware(logger).Handler(statusHandler(http.StatusOK))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthy-turf", nil))
	assert.NotEmpty(t, buf.String())
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{"no query", "/a", "", "/a"},
		{"plain params", "/a", "plots=1,2&date_from=2024-04-01", "/a?plots=1,2&date_from=2024-04-01"},
		{"token", "/a", "token=abc&plots=1", "/a?token=[REDACTED]&plots=1"},
		{"case insensitive", "/a", "Password=x", "/a?Password=[REDACTED]"},
		{"session", "/a", "session=s", "/a?session=[REDACTED]"},
		{"drops bare keys", "/a", "flag", "/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizePath(tt.path, tt.rawQuery))
		})
	}
}
