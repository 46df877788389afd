package booking

import (
	"context"
	"time"

	"medvisit/models"
)

// CreateInput is the payload for a new visit booking request.
type CreateInput struct {
	PatientID      string
	PractitionerID string
	ServiceType    string
	ScheduledAt    time.Time
	Address        string
	Lat            *float64
	Lng            *float64
	Notes          string
}

// Service owns the booking lifecycle: creation, the status state machine
// with its ownership rules, and rescheduling. All mutations flow through
// here; nothing else writes booking status.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Booking, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// Practitioner-only transitions.
	Accept(ctx context.Context, id, actorID string) (*models.Booking, error)
	Reject(ctx context.Context, id, actorID, reason string) (*models.Booking, error)
	MarkEnRoute(ctx context.Context, id, actorID string) (*models.Booking, error)
	StartVisit(ctx context.Context, id, actorID string) (*models.Booking, error)
	Complete(ctx context.Context, id, actorID string) (*models.Booking, error)

	// Either party.
	Cancel(ctx context.Context, id, actorID, reason string) (*models.Booking, error)
	Reschedule(ctx context.Context, id, actorID string, newStart time.Time) (*models.Booking, error)
}
