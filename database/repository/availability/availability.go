package availabilityRepo

import (
	"context"
	"time"

	"medvisit/models"
)

// AvailabilityRepository holds a practitioner's recurring windows, one-off
// blackouts and scheduling settings.
type AvailabilityRepository interface {
	CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error
	UpdateWindow(ctx context.Context, window *models.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, practitionerID, windowID string) error
	ListWindows(ctx context.Context, practitionerID string) ([]models.AvailabilityWindow, error)
	// ListWindowsForDay returns active windows only.
	ListWindowsForDay(ctx context.Context, practitionerID string, day time.Weekday) ([]models.AvailabilityWindow, error)
	// ReplaceWindows swaps a practitioner's whole weekly template in one call.
	ReplaceWindows(ctx context.Context, practitionerID string, windows []models.AvailabilityWindow) error

	CreateBlackout(ctx context.Context, blackout *models.Blackout) error
	DeleteBlackout(ctx context.Context, practitionerID, blackoutID string) error
	ListBlackouts(ctx context.Context, practitionerID string) ([]models.Blackout, error)
	// ListBlackoutsBetween returns blackouts with fromDate <= date <= toDate.
	ListBlackoutsBetween(ctx context.Context, practitionerID, fromDate, toDate string) ([]models.Blackout, error)

	// GetSettings returns stored settings, or the defaults when absent.
	GetSettings(ctx context.Context, practitionerID string) (*models.SchedulingSettings, error)
	UpsertSettings(ctx context.Context, settings *models.SchedulingSettings) error
}
