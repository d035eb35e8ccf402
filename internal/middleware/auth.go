// Package middleware contains the HTTP middleware wrapped around the
// turf research API. Every middleware has the func(http.Handler) http.Handler
// shape and composes with Stack.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/handler"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/session"
)

// AuthMiddleware resolves the session cookie to a user.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthMiddleware creates a new AuthMiddleware. isSecure sets the Secure
// flag when an invalid session cookie is cleared.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithUser loads the user for the session cookie, if any, into the request
// context. It never rejects a request; a stale cookie is cleared and the
// request continues anonymously.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), cookie.Value)
		if err != nil {
			m.logger.Debug("session rejected", "path", r.URL.Path, "error", err)
			session.ClearCookie(w, m.isSecure)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser answers 401 unless WithUser placed a user in the context.
// It must run after WithUser.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stack composes middleware so the first argument is outermost.
//
//	stack := Stack(logging.Handler, authMw.WithUser)
//	mux.Handle("GET /", stack(h))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ handler.Middleware = (&AuthMiddleware{}).WithUser
	_ handler.Middleware = (&AuthMiddleware{}).RequireUser
)
