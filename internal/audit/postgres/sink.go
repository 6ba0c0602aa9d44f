// Package postgres provides the PostgreSQL implementation of the audit sink.
package postgres

import (
	"context"
	"fmt"

	"github.com/hirewell/interview-reminders/internal/audit"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink implements audit.Sink using PostgreSQL.
type Sink struct {
	db *pgxpool.Pool
}

// NewSink creates a new PostgreSQL audit sink.
func NewSink(db *pgxpool.Pool) *Sink {
	return &Sink{db: db}
}

// Append inserts one audit record.
func (s *Sink) Append(ctx context.Context, record audit.Record) error {
	query := `
		INSERT INTO reminder_audit (interview_id, recipient_role, recipient, subject, dispatched_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query,
		record.InterviewID,
		record.Role,
		record.Recipient,
		record.Subject,
		record.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
