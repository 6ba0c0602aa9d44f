// Package postgres provides the PostgreSQL implementation of the queue storage.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hirewell/interview-reminders/internal/queue"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage implements queue.Storage using PostgreSQL.
//
// Enqueue-time deduplication relies on a partial unique index over the
// dedup key for pending jobs; claim exclusivity relies on
// FOR UPDATE SKIP LOCKED.
type Storage struct {
	db *pgxpool.Pool
}

// NewStorage creates a new PostgreSQL queue storage.
func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// Insert adds a job in waiting state. Returns false if a pending job with
// the same key already exists.
func (s *Storage) Insert(ctx context.Context, job *queue.Job) (bool, error) {
	query := `
		INSERT INTO reminder_jobs (id, dedup_key, interview_id, recipient_role, status, attempts, max_attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedup_key) WHERE status IN ('waiting', 'active', 'delayed') DO NOTHING
	`
	result, err := s.db.Exec(ctx, query,
		job.ID,
		job.Key,
		job.InterviewID,
		job.Role,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.NextAttemptAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Claim atomically selects one eligible job, moves it to active and
// increments its attempt counter.
func (s *Storage) Claim(ctx context.Context, workerID uuid.UUID) (*queue.Job, error) {
	query := `
		UPDATE reminder_jobs
		SET status = 'active', attempts = attempts + 1, claimed_by = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM reminder_jobs
			WHERE status = 'waiting'
			   OR (status = 'delayed' AND next_attempt_at <= NOW())
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, dedup_key, interview_id, recipient_role, status, attempts, max_attempts, next_attempt_at,
		          COALESCE(reason, ''), COALESCE(last_error, ''), created_at, updated_at, finished_at
	`
	var job queue.Job
	err := s.db.QueryRow(ctx, query, workerID).Scan(
		&job.ID,
		&job.Key,
		&job.InterviewID,
		&job.Role,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.NextAttemptAt,
		&job.Reason,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNoJob
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return &job, nil
}

// MarkCompleted finishes a job successfully with a reason code.
func (s *Storage) MarkCompleted(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE reminder_jobs
		SET status = 'completed', reason = $2, updated_at = NOW(), finished_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

// MarkFailed finishes a job terminally.
func (s *Storage) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE reminder_jobs
		SET status = 'failed', last_error = $2, updated_at = NOW(), finished_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.Exec(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

// MarkForRetry returns a job to the delayed state until nextAttemptAt.
func (s *Storage) MarkForRetry(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	query := `
		UPDATE reminder_jobs
		SET status = 'delayed', last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.Exec(ctx, query, id, lastError, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("mark for retry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return queue.ErrJobNotFound
	}
	return nil
}

// Stats returns per-state job counts.
func (s *Storage) Stats(ctx context.Context) (*queue.Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'delayed'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM reminder_jobs
	`
	var stats queue.Stats
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.Waiting,
		&stats.Active,
		&stats.Delayed,
		&stats.Completed,
		&stats.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &stats, nil
}

// PruneFinished removes the oldest finished jobs beyond the retention caps.
func (s *Storage) PruneFinished(ctx context.Context, keepCompleted, keepFailed int) (int64, error) {
	query := `
		DELETE FROM reminder_jobs
		WHERE id IN (
			SELECT id FROM reminder_jobs
			WHERE status = 'completed'
			ORDER BY finished_at DESC
			OFFSET $1
		)
		OR id IN (
			SELECT id FROM reminder_jobs
			WHERE status = 'failed'
			ORDER BY finished_at DESC
			OFFSET $2
		)
	`
	result, err := s.db.Exec(ctx, query, keepCompleted, keepFailed)
	if err != nil {
		return 0, fmt.Errorf("prune finished jobs: %w", err)
	}
	return result.RowsAffected(), nil
}
