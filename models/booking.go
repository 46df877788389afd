package models

import "time"

// BookingStatus is the lifecycle state of a visit booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "Pending"
	StatusConfirmed  BookingStatus = "Confirmed"
	StatusEnRoute    BookingStatus = "EnRoute"
	StatusInProgress BookingStatus = "InProgress"
	StatusCompleted  BookingStatus = "Completed"
	StatusCancelled  BookingStatus = "Cancelled"
)

// statusTransitions enumerates every legal next status. Completed and
// Cancelled are terminal and have no entries.
var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusEnRoute, StatusInProgress, StatusCancelled},
	StatusEnRoute:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether the status should block a slot. Completed and
// Cancelled bookings never block availability.
func (s BookingStatus) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusEnRoute, StatusInProgress:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking represents a patient's visit booking with a practitioner. Bookings
// are never deleted, only transitioned to a terminal status.
type Booking struct {
	ID                 string        `bson:"id" json:"id"`
	PatientID          string        `bson:"patient_id" json:"patientId"`
	PractitionerID     string        `bson:"practitioner_id" json:"practitionerId"`
	ServiceType        string        `bson:"service_type" json:"serviceType"`
	Status             BookingStatus `bson:"status" json:"status"`
	ScheduledAt        time.Time     `bson:"scheduled_at" json:"scheduledAt"`
	ScheduledEndTime   time.Time     `bson:"scheduled_end_time" json:"scheduledEndTime"`
	Address            string        `bson:"address,omitempty" json:"address,omitempty"`
	Lat                *float64      `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng                *float64      `bson:"lng,omitempty" json:"lng,omitempty"`
	Notes              string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt          time.Time     `bson:"created_at" json:"createdAt"`
	StartedAt          *time.Time    `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	CompletedAt        *time.Time    `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CancelledAt        *time.Time    `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy        string        `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`
	CancellationReason string        `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	RescheduledFrom    *time.Time    `bson:"rescheduled_from,omitempty" json:"rescheduledFrom,omitempty"`
	RescheduledAt      *time.Time    `bson:"rescheduled_at,omitempty" json:"rescheduledAt,omitempty"`
	RescheduledBy      string        `bson:"rescheduled_by,omitempty" json:"rescheduledBy,omitempty"`
}

// EndTime returns the booking's end instant, falling back to the given
// duration when no end was snapshotted at creation time.
func (b *Booking) EndTime(fallbackMinutes int) time.Time {
	if !b.ScheduledEndTime.IsZero() {
		return b.ScheduledEndTime
	}
	return b.ScheduledAt.Add(time.Duration(fallbackMinutes) * time.Minute)
}
