// Package domain contains core business types and interfaces.
//
// This file defines the one-time tokens behind email verification and
// password reset. Only the SHA-256 hash of a token is stored; the raw value
// is handed to the notifier once.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// EmailVerificationTokenDuration is how long a verification token stays valid.
	EmailVerificationTokenDuration = 24 * time.Hour

	// PasswordResetTokenDuration is how long a reset token stays valid.
	PasswordResetTokenDuration = 1 * time.Hour
)

// EmailVerificationResult is a freshly issued verification token.
type EmailVerificationResult struct {
	Token     string // Raw token, never stored
	Email     string
	ExpiresAt time.Time
	UserID    uuid.UUID
}

// PasswordResetResult is a freshly issued reset token.
type PasswordResetResult struct {
	Token     string // Raw token, never stored
	Email     string
	ExpiresAt time.Time
	UserID    uuid.UUID
}

// ResetPasswordParams contains parameters for completing a password reset.
type ResetPasswordParams struct {
	Token       string
	NewPassword string
}
