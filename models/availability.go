package models

import "time"

// AvailabilityWindow is a recurring weekly interval during which a
// practitioner is nominally bookable. Times are zero-padded "HH:MM" strings
// in the practitioner's working timezone (UTC throughout the engine).
type AvailabilityWindow struct {
	ID             string    `bson:"id" json:"id"`
	PractitionerID string    `bson:"practitioner_id" json:"practitionerId"`
	DayOfWeek      int       `bson:"day_of_week" json:"dayOfWeek"` // 0=Sunday .. 6=Saturday
	StartTime      string    `bson:"start_time" json:"startTime"`  // "HH:MM"
	EndTime        string    `bson:"end_time" json:"endTime"`      // "HH:MM"
	Active         bool      `bson:"active" json:"active"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// Blackout is a one-off exclusion overriding windows for a specific date.
// When StartTime and EndTime are both empty the whole day is excluded.
type Blackout struct {
	ID             string    `bson:"id" json:"id"`
	PractitionerID string    `bson:"practitioner_id" json:"practitionerId"`
	Date           string    `bson:"date" json:"date"`                           // "YYYY-MM-DD"
	StartTime      string    `bson:"start_time,omitempty" json:"startTime,omitempty"` // "HH:MM"
	EndTime        string    `bson:"end_time,omitempty" json:"endTime,omitempty"`     // "HH:MM"
	Reason         string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// FullDay reports whether the blackout excludes the entire date.
func (b *Blackout) FullDay() bool {
	return b.StartTime == "" && b.EndTime == ""
}

// Defaults applied when a practitioner has not saved scheduling settings.
const (
	DefaultSlotDurationMinutes = 60
	DefaultBufferMinutes       = 0
)

// SchedulingSettings holds per-practitioner slot configuration.
type SchedulingSettings struct {
	PractitionerID      string    `bson:"practitioner_id" json:"practitionerId"`
	SlotDurationMinutes int       `bson:"slot_duration_minutes" json:"slotDurationMinutes"`
	BufferMinutes       int       `bson:"buffer_minutes" json:"bufferMinutes"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updatedAt"`
}

// DefaultSchedulingSettings returns the settings used when none are stored.
func DefaultSchedulingSettings(practitionerID string) *SchedulingSettings {
	return &SchedulingSettings{
		PractitionerID:      practitionerID,
		SlotDurationMinutes: DefaultSlotDurationMinutes,
		BufferMinutes:       DefaultBufferMinutes,
	}
}
