package models

import "time"

// ReminderKind identifies which of the two reminders a row represents.
type ReminderKind string

const (
	ReminderTwentyFourHour ReminderKind = "24h"
	ReminderOneHour        ReminderKind = "1h"
)

// Label returns the human-readable lead time used in notification copy.
func (k ReminderKind) Label() string {
	if k == ReminderOneHour {
		return "1 hour"
	}
	return "24 hours"
}

// Offset returns how long before the visit the reminder fires.
func (k ReminderKind) Offset() time.Duration {
	if k == ReminderOneHour {
		return time.Hour
	}
	return 24 * time.Hour
}

// Reminder is a persisted deferred notification tied to a booking's start
// time. JobID links to the delayed task enqueued with the reminder queue so
// it can be removed on cancel/reschedule. Sent flips exactly once; the
// handler checks it before acting so duplicate deliveries are no-ops.
type Reminder struct {
	ID           string       `bson:"id" json:"id"`
	BookingID    string       `bson:"booking_id" json:"bookingId"`
	Kind         ReminderKind `bson:"kind" json:"kind"`
	ScheduledFor time.Time    `bson:"scheduled_for" json:"scheduledFor"`
	Sent         bool         `bson:"sent" json:"sent"`
	JobID        string       `bson:"job_id,omitempty" json:"jobId,omitempty"`
	CreatedAt    time.Time    `bson:"created_at" json:"createdAt"`
}

// ReminderPayload is the deferred task payload.
type ReminderPayload struct {
	BookingID  string `json:"bookingId"`
	ReminderID string `json:"reminderId"`
}
