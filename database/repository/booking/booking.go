package bookingRepo

import (
	"context"
	"time"

	"medvisit/models"
)

// BookingRepository persists bookings. CreateWithConflictCheck must perform
// the overlap check and the insert atomically; two concurrent creates for
// overlapping instants on the same practitioner must not both succeed.
type BookingRepository interface {
	// CreateWithConflictCheck inserts the booking inside a transaction that
	// re-verifies no active booking overlaps [ScheduledAt, ScheduledEndTime).
	// Returns a conflict error when the window is already taken.
	CreateWithConflictCheck(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	// UpdateScheduleWithConflictCheck moves a booking to a new window with the
	// same atomic overlap guarantee as CreateWithConflictCheck.
	UpdateScheduleWithConflictCheck(ctx context.Context, booking *models.Booking) error
	// FindActiveOverlapping returns active-status bookings for the
	// practitioner intersecting [start, end), excluding excludeID if non-empty.
	FindActiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]models.Booking, error)
	// FindActiveBetween returns active-status bookings whose scheduled window
	// intersects [from, to) for slot-grid generation.
	FindActiveBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error)
}
