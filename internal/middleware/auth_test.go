package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockUserService resolves session tokens; every other method panics
// through the embedded nil interface.
type mockUserService struct {
	service.UserService
	sessions map[string]*domain.User
}

func (m *mockUserService) GetBySessionToken(_ context.Context, token string) (*domain.User, error) {
	if u, ok := m.sessions[token]; ok {
		return u, nil
	}
	return nil, domain.Unauthorized("UserService.GetBySessionToken", "Invalid session")
}

func (m *mockUserService) SessionDuration() time.Duration { return 7 * 24 * time.Hour }

func newTestAuthMiddleware() (*AuthMiddleware, *domain.User) {
	user := &domain.User{ID: uuid.New(), Email: "agronomist@example.com"}
	svc := &mockUserService{sessions: map[string]*domain.User{"valid-token": user}}
	return NewAuthMiddleware(svc, testLogger(), false), user
}

// captureUser records the user the inner handler sees.
func captureUser(got **domain.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = auth.GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithUser_ValidSession(t *testing.T) {
	m, user := newTestAuthMiddleware()

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()

	m.WithUser(captureUser(&got)).ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestWithUser_NoCookie(t *testing.T) {
	m, _ := newTestAuthMiddleware()

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()

	m.WithUser(captureUser(&got)).ServeHTTP(rec, req)

	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithUser_InvalidSessionClearsCookie(t *testing.T) {
	m, _ := newTestAuthMiddleware()

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "expired"})
	rec := httptest.NewRecorder()

	m.WithUser(captureUser(&got)).ServeHTTP(rec, req)

	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestRequireUser(t *testing.T) {
	m, user := newTestAuthMiddleware()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/turf-research/plots", nil)
		rec := httptest.NewRecorder()

		m.RequireUser(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		assert.Contains(t, rec.Body.String(), domain.EUNAUTHORIZED)
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/turf-research/plots", nil)
		req = req.WithContext(auth.SetUser(req.Context(), user))
		rec := httptest.NewRecorder()

		m.RequireUser(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestWithUserThenRequireUser(t *testing.T) {
	m, _ := newTestAuthMiddleware()
	h := Stack(m.WithUser, m.RequireUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/turf-research/plots", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/turf-research/plots", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("outer"), mark("middle"), mark("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner", "handler"}, order)
}
