// Package email delivers account tokens to users.
//
// Outbound mail is not configured for this service, so the only Notifier
// writes the token to the structured log where an operator can relay it.
package email

import (
	"context"
	"log/slog"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Notifier hands a one-time account token to its owner.
type Notifier interface {
	// SendVerificationEmail delivers an email verification token.
	SendVerificationEmail(ctx context.Context, to, name, token string, expiresAt time.Time) error

	// SendPasswordResetEmail delivers a password reset token.
	SendPasswordResetEmail(ctx context.Context, to, name, token string, expiresAt time.Time) error
}

// =============================================================================
// Log Notifier
// =============================================================================

// LogNotifier writes tokens to the logger instead of mailing them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, to, name, token string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "email verification token issued",
		"to", to,
		"name", name,
		"token", token,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

func (n *LogNotifier) SendPasswordResetEmail(ctx context.Context, to, name, token string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "password reset token issued",
		"to", to,
		"name", name,
		"token", token,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}
