// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, the plot cache,
// object storage and the pure hierarchy/report packages. They are
// responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/repository"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// This should NOT be configurable at runtime.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// The token is hex-encoded to 64 characters for transmission.
	SessionTokenBytes = 32

	// DefaultSessionDuration is how long a session remains valid when the
	// configuration does not say otherwise.
	DefaultSessionDuration = 7 * 24 * time.Hour

	// MinSessionDuration and MaxSessionDuration bound the configured duration.
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway.
	MaxPasswordLength = 72
)

// commonPasswords are rejected even when they satisfy the other rules.
var commonPasswords = map[string]struct{}{
	"password1": {}, "password12": {}, "password123": {},
	"qwerty123": {}, "qwerty12": {}, "letmein1": {},
	"welcome1": {}, "welcome123": {}, "admin123": {},
	"abc12345": {}, "iloveyou1": {}, "monkey123": {},
	"dragon123": {}, "sunshine1": {}, "football1": {},
	"baseball1": {}, "trustno1": {}, "passw0rd": {},
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user-related operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session and returns its user.
	// Returns domain.EUNAUTHORIZED if token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// List returns every account ordered by email.
	List(ctx context.Context) ([]domain.User, error)

	// Update applies a partial update on behalf of actor. Non-staff actors
	// may only edit their own name and email.
	// Returns domain.EFORBIDDEN when actor lacks the rights.
	// Returns domain.ECONFLICT if the new email is taken.
	Update(ctx context.Context, actor *domain.User, params domain.UserUpdateParams) (*domain.User, error)

	// ChangePassword verifies the current password, stores the new one and
	// invalidates every session of the user.
	ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error

	// CreateEmailVerificationToken replaces any pending verification token
	// of the user with a new one.
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error)

	// VerifyEmail consumes a verification token.
	// Returns domain.ENOTFOUND if the token is unknown or expired.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerificationEmail issues a new token for an unverified address.
	// Returns domain.ECONFLICT if the address is already verified.
	ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error)

	// CreatePasswordResetToken issues a reset token for an active account.
	// Returns domain.ENOTFOUND for unknown emails; callers must not reveal it.
	CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error)

	// ResetPassword consumes a reset token, stores the new password and
	// invalidates every session of the user.
	ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error

	// DeleteExpiredSessions removes all expired sessions from the database.
	DeleteExpiredSessions(ctx context.Context) error

	// DeleteExpiredTokens removes expired verification and reset tokens.
	DeleteExpiredTokens(ctx context.Context) error

	// SessionDuration returns the configured session lifetime.
	SessionDuration() time.Duration

	// EmailVerificationRequired reports whether unverified accounts are
	// refused at login.
	EmailVerificationRequired() bool
}

// UserStore is the subset of repository.Queries the user service runs on.
type UserStore interface {
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	ListUsers(ctx context.Context) ([]repository.User, error)
	UpdateUser(ctx context.Context, arg repository.UpdateUserParams) (repository.User, error)
	UpdateUserPassword(ctx context.Context, arg repository.UpdateUserPasswordParams) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error

	CreateSession(ctx context.Context, arg repository.CreateSessionParams) (repository.Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (repository.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) error

	CreateEmailVerificationToken(ctx context.Context, arg repository.CreateEmailVerificationTokenParams) (repository.EmailVerificationToken, error)
	GetEmailVerificationTokenByHash(ctx context.Context, tokenHash string) (repository.EmailVerificationToken, error)
	DeleteUserEmailVerificationTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredEmailVerificationTokens(ctx context.Context) error

	CreatePasswordResetToken(ctx context.Context, arg repository.CreatePasswordResetTokenParams) (repository.PasswordResetToken, error)
	GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (repository.PasswordResetToken, error)
	MarkPasswordResetTokenUsed(ctx context.Context, tokenHash string) (int64, error)
	DeleteUserPasswordResetTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredPasswordResetTokens(ctx context.Context) error
}

// UserServiceConfig holds the tunable user service settings.
type UserServiceConfig struct {
	SessionDuration time.Duration
	// RequireEmailVerification refuses logins until the address is confirmed.
	RequireEmailVerification bool
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries         UserStore
	logger          *slog.Logger
	sessionDuration time.Duration
	requireVerified bool
}

// NewUserService creates a new UserService instance.
func NewUserService(queries UserStore, logger *slog.Logger, cfg UserServiceConfig) UserService {
	return &userService{
		queries:         queries,
		logger:          logger,
		sessionDuration: normalizeSessionDuration(cfg.SessionDuration),
		requireVerified: cfg.RequireEmailVerification,
	}
}

func (s *userService) SessionDuration() time.Duration {
	return s.sessionDuration
}

func (s *userService) EmailVerificationRequired() bool {
	return s.requireVerified
}

// normalizeSessionDuration applies the default to zero and clamps the rest
// into [MinSessionDuration, MaxSessionDuration].
func normalizeSessionDuration(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionDuration
	case d < MinSessionDuration:
		return MinSessionDuration
	case d > MaxSessionDuration:
		return MaxSessionDuration
	}
	return d
}

// =============================================================================
// Register Implementation
// =============================================================================

// Register creates a new user account with the provided parameters.
//
// Email uniqueness is checked before hashing; on a duplicate the password is
// hashed anyway so both paths take the same time.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.FirstName = strings.TrimSpace(params.FirstName)
	params.LastName = strings.TrimSpace(params.LastName)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	repoUser, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// =============================================================================
// Session Implementation
// =============================================================================

// Login authenticates a user and creates a new session. Only the SHA-256 hash
// of the session token is stored; the raw token is returned once.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Compare against a dummy hash so unknown emails take as long as wrong passwords.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}
	// Checked after the password so account state is not disclosed to guessers.
	if !repoUser.IsActive {
		return nil, domain.Forbidden(op, "This account has been deactivated")
	}
	if s.requireVerified && !repoUser.EmailVerifiedAt.Valid {
		return nil, domain.Forbidden(op, "Please verify your email address before signing in")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    repoUser.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: time.Now().Add(s.sessionDuration),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)
	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout invalidates a session. Unknown or malformed tokens are not an error.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}

	if err := s.queries.DeleteSession(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}

	s.logger.Debug("session invalidated")
	return nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// GetBySessionToken retrieves a user by their session token. Expired
// sessions are filtered by the query.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	session, err := s.queries.GetSessionByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	repoUser, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	if !repoUser.IsActive {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Account Management Implementation
// =============================================================================

// List returns every account without password hashes.
func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	const op = "UserService.List"

	rows, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list users")
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		u := repoUserToDomain(row)
		u.PasswordHash = ""
		users = append(users, *u)
	}
	return users, nil
}

// Update applies params to the target account.
//
// Staff may edit anyone, including the access flags, but cannot deactivate
// or demote themselves. Deactivation signs the account out everywhere.
func (s *userService) Update(ctx context.Context, actor *domain.User, params domain.UserUpdateParams) (*domain.User, error) {
	const op = "UserService.Update"

	if actor == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	self := actor.ID == params.UserID
	if !self && !actor.IsStaff {
		return nil, domain.Forbidden(op, "You can only edit your own account")
	}
	if (params.IsActive != nil || params.IsStaff != nil) && !actor.IsStaff {
		return nil, domain.Forbidden(op, "Only staff can change account access")
	}

	verr := &domain.ValidationError{Op: op}
	if self && params.IsActive != nil && !*params.IsActive {
		verr.Add("is_active", "You cannot deactivate your own account")
	}
	if self && params.IsStaff != nil && !*params.IsStaff {
		verr.Add("is_staff", "You cannot remove your own staff access")
	}

	current, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", params.UserID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	update := repository.UpdateUserParams{
		ID:        current.ID,
		Email:     current.Email,
		FirstName: current.FirstName,
		LastName:  current.LastName,
		IsActive:  current.IsActive,
		IsStaff:   current.IsStaff,
	}
	if params.Email != nil {
		update.Email = strings.ToLower(strings.TrimSpace(*params.Email))
		if err := validateEmail(update.Email); err != nil {
			verr.Add("email", domain.ErrorMessage(err))
		}
	}
	if params.FirstName != nil {
		update.FirstName = strings.TrimSpace(*params.FirstName)
	}
	if params.LastName != nil {
		update.LastName = strings.TrimSpace(*params.LastName)
	}
	if params.IsActive != nil {
		update.IsActive = *params.IsActive
	}
	if params.IsStaff != nil {
		update.IsStaff = *params.IsStaff
	}
	if err := verr.ErrOrNil(); err != nil {
		return nil, err
	}

	repoUser, err := s.queries.UpdateUser(ctx, update)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", params.UserID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update user")
	}

	if current.IsActive && !repoUser.IsActive {
		if err := s.queries.DeleteUserSessions(ctx, repoUser.ID); err != nil {
			s.logger.Warn("failed to delete sessions of deactivated user", "user_id", repoUser.ID, "error", err)
		}
	}

	s.logger.Info("user updated",
		"user_id", repoUser.ID,
		"actor_id", actor.ID,
		"is_active", repoUser.IsActive,
		"is_staff", repoUser.IsStaff,
	)

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Password Implementation
// =============================================================================

// ChangePassword changes a user's password and signs out every session.
func (s *userService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	const op = "UserService.ChangePassword"

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}

	repoUser, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.CurrentPassword)); err != nil {
		return domain.Unauthorized(op, "Current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           params.UserID,
		PasswordHash: string(newHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.DeleteUserSessions(ctx, params.UserID); err != nil {
		// Password was changed; stale sessions expire on their own.
		s.logger.Warn("failed to delete user sessions after password change", "user_id", params.UserID, "error", err)
	}

	s.logger.Info("user password changed", "user_id", params.UserID)
	return nil
}

// DeleteExpiredSessions removes all expired sessions.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "UserService.DeleteExpiredSessions"

	if err := s.queries.DeleteExpiredSessions(ctx); err != nil {
		return domain.Internal(err, op, "Failed to delete expired sessions")
	}

	s.logger.Info("expired sessions cleaned up")
	return nil
}

// DeleteExpiredTokens removes expired verification and reset tokens.
func (s *userService) DeleteExpiredTokens(ctx context.Context) error {
	const op = "UserService.DeleteExpiredTokens"

	if err := s.queries.DeleteExpiredEmailVerificationTokens(ctx); err != nil {
		return domain.Internal(err, op, "Failed to delete expired verification tokens")
	}
	if err := s.queries.DeleteExpiredPasswordResetTokens(ctx); err != nil {
		return domain.Internal(err, op, "Failed to delete expired reset tokens")
	}

	s.logger.Info("expired account tokens cleaned up")
	return nil
}

// =============================================================================
// Email Verification Implementation
// =============================================================================

// CreateEmailVerificationToken issues a verification token. The user keeps
// at most one pending token.
func (s *userService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error) {
	const op = "UserService.CreateEmailVerificationToken"

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := s.queries.DeleteUserEmailVerificationTokens(ctx, userID); err != nil {
		return nil, domain.Internal(err, op, "Failed to delete existing tokens")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}
	expiresAt := time.Now().Add(domain.EmailVerificationTokenDuration)

	_, err = s.queries.CreateEmailVerificationToken(ctx, repository.CreateEmailVerificationTokenParams{
		UserID:    userID,
		TokenHash: hashSessionToken(rawToken),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create verification token")
	}

	s.logger.Info("email verification token created", "user_id", userID)
	return &domain.EmailVerificationResult{
		Token:     rawToken,
		Email:     repoUser.Email,
		ExpiresAt: expiresAt,
		UserID:    userID,
	}, nil
}

// VerifyEmail marks the token's user as verified and discards the token.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	const op = "UserService.VerifyEmail"

	if len(token) != SessionTokenBytes*2 {
		return domain.NotFound(op, "verification token", "")
	}

	vt, err := s.queries.GetEmailVerificationTokenByHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "verification token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve verification token")
	}

	repoUser, err := s.queries.GetUserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "verification token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}
	if repoUser.EmailVerifiedAt.Valid {
		return domain.Conflict(op, "Email is already verified")
	}

	if err := s.queries.MarkEmailVerified(ctx, repoUser.ID); err != nil {
		return domain.Internal(err, op, "Failed to mark email as verified")
	}

	if err := s.queries.DeleteUserEmailVerificationTokens(ctx, repoUser.ID); err != nil {
		// Verification already succeeded; the token expires on its own.
		s.logger.Warn("failed to delete verification token after use", "user_id", repoUser.ID, "error", err)
	}

	s.logger.Info("email verified", "user_id", repoUser.ID, "email", repoUser.Email)
	return nil
}

// ResendVerificationEmail issues a fresh token for an unverified address.
func (s *userService) ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error) {
	const op = "UserService.ResendVerificationEmail"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	if repoUser.EmailVerifiedAt.Valid {
		return nil, domain.Conflict(op, "Email is already verified")
	}

	return s.CreateEmailVerificationToken(ctx, repoUser.ID)
}

// =============================================================================
// Password Reset Implementation
// =============================================================================

// CreatePasswordResetToken issues a one-hour reset token. Deactivated
// accounts are reported as unknown.
func (s *userService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	const op = "UserService.CreatePasswordResetToken"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	if !repoUser.IsActive {
		return nil, domain.NotFound(op, "user", email)
	}

	if err := s.queries.DeleteUserPasswordResetTokens(ctx, repoUser.ID); err != nil {
		return nil, domain.Internal(err, op, "Failed to delete existing tokens")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}
	expiresAt := time.Now().Add(domain.PasswordResetTokenDuration)

	_, err = s.queries.CreatePasswordResetToken(ctx, repository.CreatePasswordResetTokenParams{
		UserID:    repoUser.ID,
		TokenHash: hashSessionToken(rawToken),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create password reset token")
	}

	s.logger.Info("password reset token created", "user_id", repoUser.ID)
	return &domain.PasswordResetResult{
		Token:     rawToken,
		Email:     repoUser.Email,
		ExpiresAt: expiresAt,
		UserID:    repoUser.ID,
	}, nil
}

// ResetPassword consumes the token before writing the password, so a token
// can change the password at most once.
func (s *userService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	const op = "UserService.ResetPassword"

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, domain.ErrorMessage(err))
	}
	if len(params.Token) != SessionTokenBytes*2 {
		return domain.NotFound(op, "reset token", "")
	}

	tokenHash := hashSessionToken(params.Token)
	rt, err := s.queries.GetPasswordResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "reset token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve reset token")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	used, err := s.queries.MarkPasswordResetTokenUsed(ctx, tokenHash)
	if err != nil {
		return domain.Internal(err, op, "Failed to consume reset token")
	}
	if used == 0 {
		return domain.NotFound(op, "reset token", "")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           rt.UserID,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.DeleteUserSessions(ctx, rt.UserID); err != nil {
		s.logger.Warn("failed to delete user sessions after password reset", "user_id", rt.UserID, "error", err)
	}

	s.logger.Info("password reset completed", "user_id", rt.UserID)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken returns 32 random bytes hex-encoded.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken returns the hex SHA-256 of a session token. Tokens are
// high-entropy, so a fast hash is sufficient.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:              u.ID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		IsStaff:         u.IsStaff,
		IsActive:        u.IsActive,
		EmailVerifiedAt: domain.NullTimeValue(u.EmailVerifiedAt),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// validateEmail performs a basic format check: one @, a dotted domain, no
// consecutive dots, at most 254 characters.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	at := strings.IndexByte(email, '@')
	if at < 0 || strings.Count(email, "@") != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	if at == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}
	if at == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}
	if !strings.Contains(email[at+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}
	return nil
}

// validatePassword enforces length, at least one letter and one number, and
// rejects well-known passwords.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}
	if !hasLetter {
		return domain.Invalid("", "Password must contain at least one letter")
	}
	if !hasNumber {
		return domain.Invalid("", "Password must contain at least one number")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return domain.Invalid("", "Password is too common; choose another")
	}
	return nil
}
