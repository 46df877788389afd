package reminderRepo

import (
	"context"

	"medvisit/models"
)

// ReminderRepository persists reminder rows and their deferred-job handles.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	ListUnsentByBooking(ctx context.Context, bookingID string) ([]models.Reminder, error)
	// MarkSent atomically flips sent from false to true and reports whether
	// this call won the flip. A false return means another delivery already
	// claimed the reminder.
	MarkSent(ctx context.Context, id string) (bool, error)
	DeleteUnsentByBooking(ctx context.Context, bookingID string) error
}
