// Package monitoring exposes queue state and the manual reminder escape hatch.
package monitoring

import (
	"context"
	"fmt"

	"github.com/hirewell/interview-reminders/internal/domain"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/hirewell/interview-reminders/internal/queue"
	"github.com/hirewell/interview-reminders/internal/reminders"
)

// Service provides the monitoring facade over the queue.
type Service struct {
	queue *queue.Queue
	store interviews.Store
}

// NewService creates a monitoring service.
func NewService(q *queue.Queue, store interviews.Store) *Service {
	return &Service{
		queue: q,
		store: store,
	}
}

// GetStats returns per-state job counts without mutating queue state.
func (s *Service) GetStats(ctx context.Context) (*queue.Stats, error) {
	return s.queue.Stats(ctx)
}

// TriggerManualReminder enqueues one nonce-keyed job per recipient role,
// bypassing the scheduler and its reminder-sent guard. The worker still
// suppresses delivery for cancelled interviews, but an already-reminded
// interview is reminded again: a manual override always notifies.
func (s *Service) TriggerManualReminder(ctx context.Context, interviewID string) error {
	if _, err := s.store.GetByID(ctx, interviewID); err != nil {
		return fmt.Errorf("trigger manual reminder: %w", err)
	}

	for _, role := range domain.RecipientRoles() {
		key := reminders.ManualJobKey(interviewID, role)
		if _, err := s.queue.Enqueue(ctx, key, interviewID, role); err != nil {
			return fmt.Errorf("enqueue manual reminder for %s/%s: %w", interviewID, role, err)
		}
	}
	return nil
}
