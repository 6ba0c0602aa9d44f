// Package postgres provides the PostgreSQL implementation of the interview store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hirewell/interview-reminders/internal/domain"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const interviewColumns = `
	id, candidate_name, candidate_email, candidate_timezone, candidate_locale,
	interviewer_name, interviewer_email, interviewer_timezone, interviewer_locale,
	scheduled_at, duration_minutes, modality, location, status, reminder_sent,
	created_at, updated_at
`

// Store implements interviews.Store using PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new PostgreSQL interview store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindNeedingReminder returns scheduled interviews inside the window that
// have not been reminded yet.
func (s *Store) FindNeedingReminder(ctx context.Context, from, to time.Time) ([]domain.Interview, error) {
	query := `
		SELECT ` + interviewColumns + `
		FROM interviews
		WHERE status = 'scheduled'
		  AND reminder_sent = false
		  AND scheduled_at >= $1
		  AND scheduled_at <= $2
		ORDER BY scheduled_at
	`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("find interviews in window: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Interview, 0)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		list = append(list, *iv)
	}

	return list, nil
}

// GetByID returns the interview or interviews.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1`

	row := s.db.QueryRow(ctx, query, id)
	iv, err := scanInterview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, interviews.ErrNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

// MarkReminderSent sets the reminder-sent flag for an interview.
func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	query := `UPDATE interviews SET reminder_sent = true, updated_at = NOW() WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return interviews.ErrNotFound
	}
	return nil
}

func scanInterview(row pgx.Row) (*domain.Interview, error) {
	var iv domain.Interview
	var durationMinutes int
	err := row.Scan(
		&iv.ID,
		&iv.CandidateName,
		&iv.CandidateEmail,
		&iv.CandidateTimezone,
		&iv.CandidateLocale,
		&iv.InterviewerName,
		&iv.InterviewerEmail,
		&iv.InterviewerTimezone,
		&iv.InterviewerLocale,
		&iv.ScheduledAt,
		&durationMinutes,
		&iv.Modality,
		&iv.Location,
		&iv.Status,
		&iv.ReminderSent,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iv.Duration = time.Duration(durationMinutes) * time.Minute
	return &iv, nil
}
