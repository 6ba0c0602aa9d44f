// Package reminders converts queued jobs into delivered interview reminders.
package reminders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hirewell/interview-reminders/internal/domain"
)

// JobKey derives the deterministic deduplication key for a scheduler-originated
// job. Two scheduler ticks producing the same (interview, role) pair collide
// on this key, which is what makes overlapping ticks harmless.
func JobKey(interviewID string, role domain.RecipientRole) string {
	return fmt.Sprintf("reminder:%s:%s", interviewID, role)
}

const manualMarker = ":manual:"

// ManualJobKey derives a unique key for a manually triggered job. The nonce
// suffix guarantees manual sends are never deduplicated against each other
// or against scheduler-originated jobs.
func ManualJobKey(interviewID string, role domain.RecipientRole) string {
	return fmt.Sprintf("reminder:%s:%s%s%s", interviewID, role, manualMarker, uuid.NewString())
}

// IsManualKey reports whether the key belongs to a manually triggered job.
func IsManualKey(key string) bool {
	return strings.Contains(key, manualMarker)
}
