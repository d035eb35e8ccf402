package worker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/turfplot/internal/repository"
)

// Queue is the job store the worker polls.
type Queue interface {
	// Dequeue claims the next due job and marks it running. It returns
	// sql.ErrNoRows when nothing is due.
	Dequeue(ctx context.Context) (repository.Job, error)

	// Complete marks a job done.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail records a failure. Permanent failures are not retried; others
	// are rescheduled with backoff until max attempts.
	Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error

	// RecoverStale resets jobs stuck in running for longer than threshold.
	RecoverStale(ctx context.Context, threshold time.Duration) (int64, error)
}

// PostgresQueue is a Queue over the jobs table using SKIP LOCKED dequeues.
type PostgresQueue struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewPostgresQueue creates a Queue backed by the jobs table.
func NewPostgresQueue(db *sql.DB, queries *repository.Queries) *PostgresQueue {
	return &PostgresQueue{db: db, queries: queries}
}

func (q *PostgresQueue) Dequeue(ctx context.Context) (repository.Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Job{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := q.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		return repository.Job{}, err
	}
	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return repository.Job{}, fmt.Errorf("mark job started: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return repository.Job{}, fmt.Errorf("commit dequeue: %w", err)
	}
	return job, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, id uuid.UUID) error {
	return q.queries.UpdateJobCompleted(ctx, id)
}

func (q *PostgresQueue) Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error {
	return q.queries.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{
		ID:           id,
		ErrorMessage: sql.NullString{String: message, Valid: message != ""},
		Permanent:    permanent,
	})
}

func (q *PostgresQueue) RecoverStale(ctx context.Context, threshold time.Duration) (int64, error) {
	return q.queries.RecoverStaleJobs(ctx, threshold.Seconds())
}
