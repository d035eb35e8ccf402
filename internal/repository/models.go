package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID              uuid.UUID    `json:"id"`
	Email           string       `json:"email"`
	PasswordHash    string       `json:"password_hash"`
	FirstName       string       `json:"first_name"`
	LastName        string       `json:"last_name"`
	IsStaff         bool         `json:"is_staff"`
	IsActive        bool         `json:"is_active"`
	EmailVerifiedAt sql.NullTime `json:"email_verified_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type EmailVerificationToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type PasswordResetToken struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	TokenHash string       `json:"token_hash"`
	ExpiresAt time.Time    `json:"expires_at"`
	UsedAt    sql.NullTime `json:"used_at"`
	CreatedAt time.Time    `json:"created_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type GrassType struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

type Plot struct {
	ID                 int64                 `json:"id"`
	Name               string                `json:"name"`
	ParentPlotID       sql.NullInt64         `json:"parent_plot_id"`
	Location           string                `json:"location"`
	SizeSqft           sql.NullFloat64       `json:"size_sqft"`
	GrassType          string                `json:"grass_type"`
	Notes              string                `json:"notes"`
	PolygonCoordinates pqtype.NullRawMessage `json:"polygon_coordinates"`
	CenterLat          sql.NullFloat64       `json:"center_lat"`
	CenterLng          sql.NullFloat64       `json:"center_lng"`
	CreatedBy          uuid.NullUUID         `json:"created_by"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	JobType      string          `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Priority     int32           `json:"priority"`
	Attempts     int32           `json:"attempts"`
	MaxAttempts  int32           `json:"max_attempts"`
	ErrorMessage sql.NullString  `json:"error_message"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	StartedAt    sql.NullTime    `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	CreatedAt    time.Time       `json:"created_at"`
}
