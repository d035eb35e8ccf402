package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/turfplot/internal/auth"
	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/email"
	"github.com/DukeRupert/turfplot/internal/service"
	"github.com/DukeRupert/turfplot/internal/session"
)

// AuthHandler handles registration, login and session management.
//
// Routes handled (under /api/auth):
// - POST register
// - POST login
// - POST logout
// - GET  config
// - GET  me
// - PUT  me
// - POST change-password
// - POST verify-email
// - POST resend-verification
// - POST password-reset
// - POST password-reset/confirm
// - GET  users           (staff)
// - GET  users/{id}      (staff)
// - PUT  users/{id}      (staff)
type AuthHandler struct {
	userService service.UserService
	notifier    email.Notifier
	logger      *slog.Logger
	isSecure    bool // Secure flag on the session cookie
	limits      AuthLimits
}

// AuthLimits throttles the credential endpoints. Nil fields leave a route
// unthrottled.
type AuthLimits struct {
	Login          Middleware
	Register       Middleware
	ChangePassword Middleware
	// AccountTokens covers verification and password reset.
	AccountTokens Middleware
}

// NewAuthHandler creates a new AuthHandler. Account tokens go to the log
// until WithNotifier sets another delivery.
func NewAuthHandler(userService service.UserService, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		notifier:    email.NewLogNotifier(logger),
		logger:      logger,
		isSecure:    isSecure,
	}
}

// WithLimits sets the throttles applied by RegisterRoutes.
func (h *AuthHandler) WithLimits(limits AuthLimits) *AuthHandler {
	h.limits = limits
	return h
}

// WithNotifier sets how verification and reset tokens reach the user.
func (h *AuthHandler) WithNotifier(n email.Notifier) *AuthHandler {
	h.notifier = n
	return h
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	IsStaff       bool      `json:"is_staff"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		IsStaff:       u.IsStaff,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified(),
		CreatedAt:     u.CreatedAt,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// updateProfileRequest is the body of PUT /api/auth/me. Omitted fields are
// left unchanged.
type updateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// updateUserRequest is the staff body of PUT /api/auth/users/{id}.
type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	IsStaff   *bool   `json:"is_staff"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Register creates an account and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.sendVerification(r, user)
	h.logger.Info("user registered", "user_id", user.ID)

	if h.userService.EmailVerificationRequired() {
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":                  newUserResponse(user),
			"verification_required": true,
		})
		return
	}

	result, err := h.userService.Login(r.Context(), user.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	session.SetCookie(w, result.Token, h.userService.SessionDuration(), h.isSecure)

	writeJSON(w, http.StatusCreated, map[string]any{"user": newUserResponse(result.User)})
}

// sendVerification issues a verification token for a new account. Failures
// are logged; the account stays usable and the user can ask again.
func (h *AuthHandler) sendVerification(r *http.Request, user *domain.User) {
	result, err := h.userService.CreateEmailVerificationToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to create verification token", "user_id", user.ID, "error", err)
		return
	}
	if err := h.notifier.SendVerificationEmail(r.Context(), result.Email, user.DisplayName(), result.Token, result.ExpiresAt); err != nil {
		h.logger.Error("failed to send verification email", "user_id", user.ID, "error", err)
	}
}

// Login authenticates credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	session.SetCookie(w, result.Token, h.userService.SessionDuration(), h.isSecure)

	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(result.User)})
}

// Logout invalidates the current session. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}
	session.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

// ChangePassword replaces the password. Every session of the user is
// revoked, so the client has to sign in again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// Config tells clients how to sign in.
func (h *AuthHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_method":                 "password",
		"allow_registration":          true,
		"email_verification_required": h.userService.EmailVerificationRequired(),
	})
}

// UpdateMe edits the signed-in user's name and email.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.Update(r.Context(), user, domain.UserUpdateParams{
		UserID:    user.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(updated)})
}

// =============================================================================
// Email Verification and Password Reset
// =============================================================================

// VerifyEmail consumes a verification token.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), req.Token); err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			err = domain.Invalid("AuthHandler.VerifyEmail", "Invalid or expired verification link")
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verified": true})
}

// ResendVerification issues a new verification token. The answer is the
// same whether or not the address belongs to an unverified account.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.ResendVerificationEmail(r.Context(), req.Email)
	switch {
	case err == nil:
		if err := h.notifier.SendVerificationEmail(r.Context(), result.Email, "", result.Token, result.ExpiresAt); err != nil {
			h.logger.Error("failed to send verification email", "user_id", result.UserID, "error", err)
		}
	case domain.ErrorCode(err) == domain.ENOTFOUND, domain.ErrorCode(err) == domain.ECONFLICT:
		h.logger.Debug("verification resend skipped", "error", err)
	default:
		h.logger.Error("verification resend failed", "error", err)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "If an unverified account exists for that address, a verification link has been sent.",
	})
}

// RequestPasswordReset issues a reset token. The answer never reveals
// whether the address is registered.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.CreatePasswordResetToken(r.Context(), req.Email)
	switch {
	case err == nil:
		if err := h.notifier.SendPasswordResetEmail(r.Context(), result.Email, "", result.Token, result.ExpiresAt); err != nil {
			h.logger.Error("failed to send password reset email", "user_id", result.UserID, "error", err)
		}
	case domain.ErrorCode(err) == domain.ENOTFOUND:
		h.logger.Debug("password reset requested for unknown account")
	default:
		h.logger.Error("password reset request failed", "error", err)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "If an account exists for that address, a password reset link has been sent.",
	})
}

// ConfirmPasswordReset sets a new password from a reset token. Every
// session of the account ends.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err := h.userService.ResetPassword(r.Context(), domain.ResetPasswordParams{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			err = domain.Invalid("AuthHandler.ConfirmPasswordReset", "Invalid or expired reset link")
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// User Management (staff)
// =============================================================================

// ListUsers returns every account.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// GetUser returns one account.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

// UpdateUser edits any account, including its active and staff flags.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUser(r.Context())
	if actor == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	id, err := pathUserID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.Update(r.Context(), actor, domain.UserUpdateParams{
		UserID:    id,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
		IsStaff:   req.IsStaff,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(updated)})
}

// requireStaff answers 403 unless the signed-in user is staff. It runs
// inside requireUser.
func (h *AuthHandler) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			UnauthorizedResponse(w, r, h.logger)
			return
		}
		if !user.IsStaff {
			ErrorResponse(w, r, h.logger, domain.Forbidden("AuthHandler.requireStaff", "Staff access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathUserID parses the {id} path value as a user UUID.
func pathUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.pathUserID", "Invalid user id")
	}
	return id, nil
}

// RegisterRoutes registers the auth routes. requireUser guards the routes
// that need a signed-in user.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser Middleware) {
	staff := func(fn http.HandlerFunc) http.Handler {
		return requireUser(h.requireStaff(fn))
	}

	mux.Handle("POST /api/auth/register", limit(h.limits.Register, http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", limit(h.limits.Login, http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/config", h.Config)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Me)))
	mux.Handle("PUT /api/auth/me", requireUser(http.HandlerFunc(h.UpdateMe)))
	mux.Handle("POST /api/auth/change-password",
		requireUser(limit(h.limits.ChangePassword, http.HandlerFunc(h.ChangePassword))))

	mux.Handle("POST /api/auth/verify-email", limit(h.limits.AccountTokens, http.HandlerFunc(h.VerifyEmail)))
	mux.Handle("POST /api/auth/resend-verification", limit(h.limits.AccountTokens, http.HandlerFunc(h.ResendVerification)))
	mux.Handle("POST /api/auth/password-reset", limit(h.limits.AccountTokens, http.HandlerFunc(h.RequestPasswordReset)))
	mux.Handle("POST /api/auth/password-reset/confirm", limit(h.limits.AccountTokens, http.HandlerFunc(h.ConfirmPasswordReset)))

	mux.Handle("GET /api/auth/users", staff(h.ListUsers))
	mux.Handle("GET /api/auth/users/{id}", staff(h.GetUser))
	mux.Handle("PUT /api/auth/users/{id}", staff(h.UpdateUser))
}

func limit(mw Middleware, h http.Handler) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}
