// Package audit records every dispatched reminder for operational review.
package audit

import (
	"context"
	"time"

	"github.com/hirewell/interview-reminders/internal/domain"
)

// Record captures one dispatched reminder.
type Record struct {
	InterviewID  string
	Role         domain.RecipientRole
	Recipient    string
	Subject      string
	DispatchedAt time.Time
}

// Sink appends audit records. Append failures must not undo a dispatch
// that already happened; callers log and continue.
type Sink interface {
	Append(ctx context.Context, record Record) error
}
