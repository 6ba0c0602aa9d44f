// Package domain contains the core entities shared across the reminder pipeline.
package domain

import (
	"fmt"
	"time"
)

// InterviewStatus represents the lifecycle status of an interview.
type InterviewStatus string

// Interview statuses.
const (
	InterviewStatusScheduled InterviewStatus = "scheduled"
	InterviewStatusCancelled InterviewStatus = "cancelled"
	InterviewStatusCompleted InterviewStatus = "completed"
	InterviewStatusNoShow    InterviewStatus = "no_show"
)

// Modality represents how the interview is conducted.
type Modality string

// Interview modalities.
const (
	ModalityOnsite Modality = "onsite"
	ModalityVideo  Modality = "video"
	ModalityPhone  Modality = "phone"
)

// RecipientRole identifies which participant a reminder is addressed to.
// The set is closed: every role must be handled explicitly by the renderer.
type RecipientRole string

// Recipient roles.
const (
	RoleCandidate   RecipientRole = "candidate"
	RoleInterviewer RecipientRole = "interviewer"
)

// RecipientRoles lists all roles that receive a reminder per interview.
func RecipientRoles() []RecipientRole {
	return []RecipientRole{RoleCandidate, RoleInterviewer}
}

// Valid reports whether the role is a known recipient role.
func (r RecipientRole) Valid() bool {
	switch r {
	case RoleCandidate, RoleInterviewer:
		return true
	}
	return false
}

// Recipient is the delivery target resolved from an interview for a role.
type Recipient struct {
	Name     string
	Email    string
	Timezone string
	Locale   string
}

// Interview represents a scheduled interview that may need a reminder.
// The record is owned by the scheduling module; this pipeline only reads it
// and flips ReminderSent.
type Interview struct {
	ID                  string
	CandidateName       string
	CandidateEmail      string
	CandidateTimezone   string
	CandidateLocale     string
	InterviewerName     string
	InterviewerEmail    string
	InterviewerTimezone string
	InterviewerLocale   string
	ScheduledAt         time.Time
	Duration            time.Duration
	Modality            Modality
	Location            string
	Status              InterviewStatus
	ReminderSent        bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Recipient resolves the delivery target for the given role.
func (i *Interview) Recipient(role RecipientRole) (Recipient, error) {
	switch role {
	case RoleCandidate:
		return Recipient{
			Name:     i.CandidateName,
			Email:    i.CandidateEmail,
			Timezone: i.CandidateTimezone,
			Locale:   i.CandidateLocale,
		}, nil
	case RoleInterviewer:
		return Recipient{
			Name:     i.InterviewerName,
			Email:    i.InterviewerEmail,
			Timezone: i.InterviewerTimezone,
			Locale:   i.InterviewerLocale,
		}, nil
	}
	return Recipient{}, fmt.Errorf("unknown recipient role: %q", role)
}
