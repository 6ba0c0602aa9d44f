package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientRole_Valid(t *testing.T) {
	assert.True(t, RoleCandidate.Valid())
	assert.True(t, RoleInterviewer.Valid())
	assert.False(t, RecipientRole("hr").Valid())
	assert.False(t, RecipientRole("").Valid())
}

func TestInterview_Recipient(t *testing.T) {
	iv := &Interview{
		CandidateName:       "Ada Lovelace",
		CandidateEmail:      "ada@example.com",
		CandidateTimezone:   "Europe/Berlin",
		CandidateLocale:     "de",
		InterviewerName:     "Grace Hopper",
		InterviewerEmail:    "grace@example.com",
		InterviewerTimezone: "America/New_York",
		InterviewerLocale:   "en",
	}

	candidate, err := iv.Recipient(RoleCandidate)
	require.NoError(t, err)
	assert.Equal(t, Recipient{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Timezone: "Europe/Berlin",
		Locale:   "de",
	}, candidate)

	interviewer, err := iv.Recipient(RoleInterviewer)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", interviewer.Email)
	assert.Equal(t, "America/New_York", interviewer.Timezone)

	_, err = iv.Recipient(RecipientRole("hr"))
	assert.Error(t, err)
}
