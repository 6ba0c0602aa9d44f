package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewell/interview-reminders/internal/audit"
	"github.com/hirewell/interview-reminders/internal/domain"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/hirewell/interview-reminders/internal/queue"
)

type stubStore struct {
	interview  *domain.Interview
	getErr     error
	markErr    error
	markedSent []string
}

func (s *stubStore) FindNeedingReminder(ctx context.Context, from, to time.Time) ([]domain.Interview, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.interview, nil
}

func (s *stubStore) MarkReminderSent(ctx context.Context, id string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.markedSent = append(s.markedSent, id)
	return nil
}

type stubSender struct {
	err  error
	sent []string
}

func (s *stubSender) Send(ctx context.Context, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

type stubSink struct {
	err     error
	records []audit.Record
}

func (s *stubSink) Append(ctx context.Context, record audit.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func newTestProcessor(t *testing.T, store *stubStore, sender *stubSender, sink *stubSink) *Processor {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	return NewProcessor(store, renderer, sender, sink, 30*time.Second)
}

func candidateJob(interviewID string) *queue.Job {
	return &queue.Job{
		ID:          uuid.New(),
		Key:         JobKey(interviewID, domain.RoleCandidate),
		InterviewID: interviewID,
		Role:        domain.RoleCandidate,
		Attempts:    1,
		MaxAttempts: 3,
	}
}

func TestProcessor_DeliversAndFlags(t *testing.T) {
	iv := testInterview()
	store := &stubStore{interview: iv}
	sender := &stubSender{}
	sink := &stubSink{}
	p := newTestProcessor(t, store, sender, sink)

	reason, err := p.Process(context.Background(), candidateJob(iv.ID))
	require.NoError(t, err)
	assert.Empty(t, reason)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0])
	assert.Equal(t, []string{iv.ID}, store.markedSent)

	require.Len(t, sink.records, 1)
	assert.Equal(t, iv.ID, sink.records[0].InterviewID)
	assert.Equal(t, domain.RoleCandidate, sink.records[0].Role)
	assert.Equal(t, "ada@example.com", sink.records[0].Recipient)
}

func TestProcessor_MissingInterviewIsNoOp(t *testing.T) {
	store := &stubStore{getErr: interviews.ErrNotFound}
	sender := &stubSender{}
	p := newTestProcessor(t, store, sender, &stubSink{})

	reason, err := p.Process(context.Background(), candidateJob(uuid.NewString()))
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, reason)
	assert.Empty(t, sender.sent)
}

func TestProcessor_CancelledInterviewIsNoOp(t *testing.T) {
	iv := testInterview()
	iv.Status = domain.InterviewStatusCancelled
	sender := &stubSender{}
	p := newTestProcessor(t, &stubStore{interview: iv}, sender, &stubSink{})

	reason, err := p.Process(context.Background(), candidateJob(iv.ID))
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason)
	assert.Empty(t, sender.sent)
}

func TestProcessor_AlreadySentIsNoOp(t *testing.T) {
	iv := testInterview()
	iv.ReminderSent = true
	sender := &stubSender{}
	p := newTestProcessor(t, &stubStore{interview: iv}, sender, &stubSink{})

	reason, err := p.Process(context.Background(), candidateJob(iv.ID))
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadySent, reason)
	assert.Empty(t, sender.sent)
}

func TestProcessor_ManualJobBypassesAlreadySentGuard(t *testing.T) {
	iv := testInterview()
	iv.ReminderSent = true
	sender := &stubSender{}
	p := newTestProcessor(t, &stubStore{interview: iv}, sender, &stubSink{})

	job := candidateJob(iv.ID)
	job.Key = ManualJobKey(iv.ID, domain.RoleCandidate)

	reason, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.Len(t, sender.sent, 1)
}

func TestProcessor_ManualJobStillRespectsCancellation(t *testing.T) {
	iv := testInterview()
	iv.Status = domain.InterviewStatusCancelled
	sender := &stubSender{}
	p := newTestProcessor(t, &stubStore{interview: iv}, sender, &stubSink{})

	job := candidateJob(iv.ID)
	job.Key = ManualJobKey(iv.ID, domain.RoleCandidate)

	reason, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, reason)
	assert.Empty(t, sender.sent)
}

func TestProcessor_StoreErrorIsRetryable(t *testing.T) {
	store := &stubStore{getErr: errors.New("db gone")}
	p := newTestProcessor(t, store, &stubSender{}, &stubSink{})

	_, err := p.Process(context.Background(), candidateJob(uuid.NewString()))
	assert.Error(t, err)
}

func TestProcessor_SendErrorPropagatesWithoutFlagging(t *testing.T) {
	iv := testInterview()
	store := &stubStore{interview: iv}
	sender := &stubSender{err: queue.NewRetryableError(errors.New("smtp 451"))}
	sink := &stubSink{}
	p := newTestProcessor(t, store, sender, sink)

	_, err := p.Process(context.Background(), candidateJob(iv.ID))
	assert.Error(t, err)
	assert.Empty(t, store.markedSent)
	assert.Empty(t, sink.records)
}

func TestProcessor_FlagUpdateFailureStillCompletes(t *testing.T) {
	iv := testInterview()
	store := &stubStore{interview: iv, markErr: errors.New("db gone")}
	sender := &stubSender{}
	sink := &stubSink{}
	p := newTestProcessor(t, store, sender, sink)

	// The reminder was dispatched; retrying the job would send a duplicate
	// immediately, so the job completes and the audit trail is still written.
	reason, err := p.Process(context.Background(), candidateJob(iv.ID))
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.Len(t, sender.sent, 1)
	assert.Len(t, sink.records, 1)
}

func TestProcessor_AuditFailureDoesNotFailJob(t *testing.T) {
	iv := testInterview()
	store := &stubStore{interview: iv}
	p := newTestProcessor(t, store, &stubSender{}, &stubSink{err: errors.New("db gone")})

	reason, err := p.Process(context.Background(), candidateJob(iv.ID))
	require.NoError(t, err)
	assert.Empty(t, reason)
	assert.Equal(t, []string{iv.ID}, store.markedSent)
}

func TestProcessor_UnknownRoleIsNonRetryable(t *testing.T) {
	iv := testInterview()
	p := newTestProcessor(t, &stubStore{interview: iv}, &stubSender{}, &stubSink{})

	job := candidateJob(iv.ID)
	job.Role = domain.RecipientRole("hr")

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)

	var re *queue.RetryableError
	require.ErrorAs(t, err, &re)
	assert.False(t, re.IsRetryable())
}
