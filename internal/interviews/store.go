// Package interviews provides read access to scheduled interviews and the
// single write this pipeline performs: flipping the reminder-sent flag.
package interviews

import (
	"context"
	"errors"
	"time"

	"github.com/hirewell/interview-reminders/internal/domain"
)

// ErrNotFound is returned when an interview id does not exist.
var ErrNotFound = errors.New("interview not found")

// Store defines the interface to the interview records owned by the
// scheduling module.
type Store interface {
	// FindNeedingReminder returns interviews with status scheduled,
	// reminder not yet sent, and a start time inside [from, to].
	FindNeedingReminder(ctx context.Context, from, to time.Time) ([]domain.Interview, error)

	// GetByID returns the interview or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Interview, error)

	// MarkReminderSent sets the reminder-sent flag. The update is a
	// single-field idempotent write.
	MarkReminderSent(ctx context.Context, id string) error
}
