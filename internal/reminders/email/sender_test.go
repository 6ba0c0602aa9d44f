package email

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNewSender_Validation(t *testing.T) {
	_, err := NewSender(Config{Enabled: true})
	assert.Error(t, err)

	_, err = NewSender(Config{Enabled: true, SMTPHost: "smtp.example.com"})
	assert.Error(t, err)

	s, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "reminders@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 587, s.config.SMTPPort)
}

func TestSender_DisabledSkipsDelivery(t *testing.T) {
	s, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	// No SMTP host configured; a dial attempt would fail loudly
	err = s.Send(context.Background(), "ada@example.com", "subject", "body")
	assert.NoError(t, err)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "network timeout", err: timeoutError{}, want: true},
		{name: "connection refused", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: true},
		{name: "smtp 421 service not available", err: errors.New("421 service not available"), want: true},
		{name: "smtp 450 mailbox unavailable", err: errors.New("450 mailbox unavailable"), want: true},
		{name: "smtp 451 local error", err: errors.New("451 local error in processing"), want: true},
		{name: "smtp 452 insufficient storage", err: errors.New("452 insufficient system storage"), want: true},
		{name: "smtp 552 mailbox full", err: errors.New("552 mailbox full"), want: true},
		{name: "smtp 550 permanent rejection", err: errors.New("550 no such user"), want: false},
		{name: "smtp 553 bad mailbox name", err: errors.New("553 invalid address"), want: false},
		{name: "generic error", err: errors.New("something else"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestBuildMessage(t *testing.T) {
	s, err := NewSender(Config{FromAddress: "Hirewell Reminders <reminders@example.com>"})
	require.NoError(t, err)

	msg := string(s.buildMessage("ada@example.com", "Interview reminder", "See you tomorrow."))

	assert.Contains(t, msg, "From: Hirewell Reminders <reminders@example.com>\r\n")
	assert.Contains(t, msg, "To: ada@example.com\r\n")
	assert.Contains(t, msg, "Subject: Interview reminder\r\n")
	assert.Contains(t, msg, "\r\n\r\nSee you tomorrow.")
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "reminders@example.com", extractEmail("Hirewell Reminders <reminders@example.com>"))
	assert.Equal(t, "reminders@example.com", extractEmail("reminders@example.com"))
	assert.Equal(t, "broken <", extractEmail("broken <"))
}
