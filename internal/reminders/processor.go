package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirewell/interview-reminders/internal/audit"
	"github.com/hirewell/interview-reminders/internal/domain"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/hirewell/interview-reminders/internal/queue"
)

// Completion reasons for business no-ops. These are not failures: the job
// finishes successfully and dashboards can tell "nothing to do" apart from
// "something broke".
const (
	ReasonNotFound    = "not_found"
	ReasonCancelled   = "cancelled"
	ReasonAlreadySent = "already_sent"
)

// Sender dispatches a rendered reminder to a single recipient address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Processor is the queue handler: it converts a claimed job into a
// delivered notification.
//
// The queue's enqueue-time dedup only prevents concurrent duplicate
// enqueues; the guards here make redundant jobs (overlapping windows,
// manual triggers) harmless at delivery time.
type Processor struct {
	store           interviews.Store
	renderer        *Renderer
	sender          Sender
	audit           audit.Sink
	dispatchTimeout time.Duration
}

// NewProcessor creates a reminder processor.
func NewProcessor(store interviews.Store, renderer *Renderer, sender Sender, sink audit.Sink, dispatchTimeout time.Duration) *Processor {
	return &Processor{
		store:           store,
		renderer:        renderer,
		sender:          sender,
		audit:           sink,
		dispatchTimeout: dispatchTimeout,
	}
}

// Process handles one claimed job. It re-fetches the interview, applies the
// idempotency guards, and otherwise renders, dispatches, flags and audits.
//
// Delivery is at-least-once: if setting the reminder-sent flag fails after a
// successful dispatch, the job still completes (retrying would re-send
// through a non-idempotent transport) and the unflagged interview may yield
// one more reminder at a future tick.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (string, error) {
	iv, err := p.store.GetByID(ctx, job.InterviewID)
	if err != nil {
		if errors.Is(err, interviews.ErrNotFound) {
			return ReasonNotFound, nil
		}
		return "", fmt.Errorf("get interview %s: %w", job.InterviewID, err)
	}

	if iv.Status == domain.InterviewStatusCancelled {
		return ReasonCancelled, nil
	}

	// Manual jobs bypass this guard so a manual resend always notifies.
	if iv.ReminderSent && !IsManualKey(job.Key) {
		return ReasonAlreadySent, nil
	}

	recipient, err := iv.Recipient(job.Role)
	if err != nil {
		return "", queue.NewNonRetryableError(err)
	}

	subject, body, err := p.renderer.Render(job.Role, iv)
	if err != nil {
		return "", queue.NewNonRetryableError(fmt.Errorf("render reminder: %w", err))
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
	defer cancel()

	if err := p.sender.Send(sendCtx, recipient.Email, subject, body); err != nil {
		return "", fmt.Errorf("dispatch reminder: %w", err)
	}

	dispatchedAt := time.Now()

	if err := p.store.MarkReminderSent(ctx, iv.ID); err != nil {
		slog.Warn("reminder dispatched but flag update failed, accepting possible future duplicate",
			"interview_id", iv.ID,
			"role", job.Role,
			"error", err,
		)
	}

	record := audit.Record{
		InterviewID:  iv.ID,
		Role:         job.Role,
		Recipient:    recipient.Email,
		Subject:      subject,
		DispatchedAt: dispatchedAt,
	}
	if err := p.audit.Append(ctx, record); err != nil {
		slog.Error("failed to append audit record", "interview_id", iv.ID, "error", err)
	}

	return "", nil
}
