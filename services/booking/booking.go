package booking

import (
	"context"
	"fmt"
	"time"

	"medvisit/apperrors"
	availabilityRepo "medvisit/database/repository/availability"
	bookingRepo "medvisit/database/repository/booking"
	"medvisit/models"
	"medvisit/services/messaging"
	"medvisit/services/notification"
	"medvisit/services/profile"
	"medvisit/services/reminder"
	"medvisit/services/scheduling"
	"medvisit/services/tracking"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRejectionReason = "Rejected by practitioner"

// fallbackConflictWindow is used only when no slot validator is wired: any
// booking for the same practitioner within this distance of the requested
// instant counts as a conflict. Strictly weaker than the validator; a
// degraded mode, not an equivalent path.
const fallbackConflictWindow = time.Hour

// DefaultBookingService is the production state machine. Validator, Threads,
// Reminders, Tracker and Notifier are optional collaborators: when one is
// nil its side effect is skipped and the primary transition still applies.
type DefaultBookingService struct {
	Repo         bookingRepo.BookingRepository
	Availability availabilityRepo.AvailabilityRepository
	Directory    profile.Directory
	Validator    scheduling.SlotEngine
	Threads      messaging.ThreadService
	Reminders    reminder.Scheduler
	Tracker      tracking.VisitTracker
	Notifier     notification.Service
	Logger       *zap.Logger
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *DefaultBookingService) Create(ctx context.Context, input CreateInput) (*models.Booking, error) {
	now := s.now()
	scheduledAt := input.ScheduledAt.UTC()

	if input.PatientID == "" || input.PractitionerID == "" {
		return nil, apperrors.Validation("patientId and practitionerId are required")
	}
	if input.PatientID == input.PractitionerID {
		return nil, apperrors.Validation("patient and practitioner must be different parties")
	}
	if !scheduledAt.After(now) {
		return nil, apperrors.Validation("scheduledAt must be in the future")
	}

	prof, err := s.Directory.GetPractitionerProfile(ctx, input.PractitionerID)
	if err != nil {
		return nil, err
	}
	if !prof.Verified {
		return nil, apperrors.Validation("practitioner is not verified")
	}
	if !prof.Available {
		return nil, apperrors.Validation("practitioner is not currently accepting bookings")
	}

	if s.Validator != nil {
		if err := s.Validator.ValidateInstant(ctx, input.PractitionerID, scheduledAt); err != nil {
			return nil, err
		}
	} else {
		// Degraded mode: a coarse ±1h scan instead of full window/blackout
		// validation.
		overlapping, err := s.Repo.FindActiveOverlapping(ctx, input.PractitionerID,
			scheduledAt.Add(-fallbackConflictWindow), scheduledAt.Add(fallbackConflictWindow), "")
		if err != nil {
			return nil, err
		}
		if len(overlapping) > 0 {
			return nil, apperrors.Conflict(apperrors.ReasonOverlap, "practitioner already has a booking near this time")
		}
	}

	// Snapshot the practitioner's slot duration; later setting changes must
	// not retroactively alter this booking's window.
	settings, err := s.Availability.GetSettings(ctx, input.PractitionerID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:               uuid.New().String(),
		PatientID:        input.PatientID,
		PractitionerID:   input.PractitionerID,
		ServiceType:      input.ServiceType,
		Status:           models.StatusPending,
		ScheduledAt:      scheduledAt,
		ScheduledEndTime: scheduledAt.Add(time.Duration(settings.SlotDurationMinutes) * time.Minute),
		Address:          input.Address,
		Lat:              input.Lat,
		Lng:              input.Lng,
		Notes:            input.Notes,
		CreatedAt:        now,
	}

	if err := s.Repo.CreateWithConflictCheck(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", booking.ID),
		zap.String("practitionerId", booking.PractitionerID),
		zap.Time("scheduledAt", booking.ScheduledAt))

	s.notify(ctx, booking.PractitionerID, profile.RolePractitioner, "booking_requested",
		"New visit request",
		fmt.Sprintf("You have a new visit request for %s.", booking.ScheduledAt.Format(time.RFC1123)), booking)

	return booking, nil
}

func (s *DefaultBookingService) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultBookingService) Accept(ctx context.Context, id, actorID string) (*models.Booking, error) {
	booking, err := s.practitionerTransition(ctx, id, actorID, models.StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}

	// Side effects are best-effort: the confirmation stands even when the
	// thread or reminders cannot be set up.
	if s.Threads != nil {
		if _, err := s.Threads.CreateThread(ctx, booking.ID, booking.PatientID, booking.PractitionerID); err != nil {
			s.Logger.Error("failed to create messaging thread",
				zap.String("bookingId", booking.ID), zap.Error(err))
		}
	}
	if s.Reminders != nil {
		if err := s.Reminders.CreateForBooking(ctx, booking); err != nil {
			s.Logger.Error("failed to schedule reminders",
				zap.String("bookingId", booking.ID), zap.Error(err))
		}
	}
	s.notify(ctx, booking.PatientID, profile.RolePatient, "booking_accepted",
		"Visit confirmed",
		fmt.Sprintf("Your visit on %s has been confirmed.", booking.ScheduledAt.Format(time.RFC1123)), booking)

	return booking, nil
}

func (s *DefaultBookingService) Reject(ctx context.Context, id, actorID, reason string) (*models.Booking, error) {
	if reason == "" {
		reason = defaultRejectionReason
	}
	booking, err := s.practitionerTransition(ctx, id, actorID, models.StatusCancelled, func(b *models.Booking) {
		now := s.now()
		b.CancelledAt = &now
		b.CancelledBy = profile.RolePractitioner
		b.CancellationReason = reason
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, booking.PatientID, profile.RolePatient, "booking_rejected",
		"Visit request declined", reason, booking)
	return booking, nil
}

func (s *DefaultBookingService) MarkEnRoute(ctx context.Context, id, actorID string) (*models.Booking, error) {
	booking, err := s.practitionerTransition(ctx, id, actorID, models.StatusEnRoute, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, booking.PatientID, profile.RolePatient, "practitioner_en_route",
		"Practitioner on the way", "Your practitioner is en route to your address.", booking)
	return booking, nil
}

func (s *DefaultBookingService) StartVisit(ctx context.Context, id, actorID string) (*models.Booking, error) {
	booking, err := s.practitionerTransition(ctx, id, actorID, models.StatusInProgress, func(b *models.Booking) {
		now := s.now()
		b.StartedAt = &now
	})
	if err != nil {
		return nil, err
	}

	if s.Tracker != nil {
		if err := s.Tracker.StartTracking(ctx, booking.ID, booking.PractitionerID); err != nil {
			s.Logger.Error("failed to start visit tracking",
				zap.String("bookingId", booking.ID), zap.Error(err))
		}
	}
	return booking, nil
}

func (s *DefaultBookingService) Complete(ctx context.Context, id, actorID string) (*models.Booking, error) {
	booking, err := s.practitionerTransition(ctx, id, actorID, models.StatusCompleted, func(b *models.Booking) {
		now := s.now()
		b.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, booking.PatientID, profile.RolePatient, "visit_completed",
		"Visit completed", "Your visit has been completed.", booking)
	return booking, nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, id, actorID, reason string) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actorRole, err := partyRole(booking, actorID)
	if err != nil {
		return nil, err
	}

	// Once the practitioner has committed, a cancellation must say why.
	switch booking.Status {
	case models.StatusConfirmed, models.StatusEnRoute, models.StatusInProgress:
		if reason == "" {
			return nil, apperrors.Validation("a cancellation reason is required once the visit is confirmed")
		}
	}

	if !booking.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, apperrors.Transition(string(booking.Status), string(models.StatusCancelled))
	}

	now := s.now()
	booking.Status = models.StatusCancelled
	booking.CancelledAt = &now
	booking.CancelledBy = actorRole
	booking.CancellationReason = reason

	if err := s.Repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("booking cancelled",
		zap.String("bookingId", booking.ID),
		zap.String("cancelledBy", actorRole))

	if s.Reminders != nil {
		if err := s.Reminders.CancelForBooking(ctx, booking.ID); err != nil {
			s.Logger.Error("failed to cancel reminders",
				zap.String("bookingId", booking.ID), zap.Error(err))
		}
	}

	// Tell the other party.
	if actorRole == profile.RolePatient {
		s.notify(ctx, booking.PractitionerID, profile.RolePractitioner, "booking_cancelled",
			"Visit cancelled", "The patient cancelled the visit.", booking)
	} else {
		s.notify(ctx, booking.PatientID, profile.RolePatient, "booking_cancelled",
			"Visit cancelled", "The practitioner cancelled the visit.", booking)
	}

	return booking, nil
}

// Reschedule moves a Pending or Confirmed booking to a new validated
// instant. Reminders are left untouched: they keep firing against the
// original time until a caller explicitly refreshes them via the reminder
// scheduler.
func (s *DefaultBookingService) Reschedule(ctx context.Context, id, actorID string, newStart time.Time) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actorRole, err := partyRole(booking, actorID)
	if err != nil {
		return nil, err
	}

	if booking.Status != models.StatusPending && booking.Status != models.StatusConfirmed {
		transErr := apperrors.Transition(string(booking.Status), "Reschedule")
		transErr.Message = fmt.Sprintf("booking cannot be rescheduled while %s", booking.Status)
		return nil, transErr
	}

	newStart = newStart.UTC()
	if !newStart.After(s.now()) {
		return nil, apperrors.Validation("scheduledAt must be in the future")
	}

	// The booking keeps its snapshotted duration across the move; validate
	// that interval, not the practitioner's current slot length, and exclude
	// the booking itself so a small shift cannot collide with its own slot.
	duration := booking.ScheduledEndTime.Sub(booking.ScheduledAt)
	if duration <= 0 {
		duration = time.Duration(models.DefaultSlotDurationMinutes) * time.Minute
	}

	if s.Validator != nil {
		if err := s.Validator.ValidateInstantExcluding(ctx, booking.PractitionerID, newStart, int(duration/time.Minute), booking.ID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	previous := booking.ScheduledAt
	booking.RescheduledFrom = &previous
	booking.RescheduledAt = &now
	booking.RescheduledBy = actorRole
	booking.ScheduledAt = newStart
	booking.ScheduledEndTime = newStart.Add(duration)

	if err := s.Repo.UpdateScheduleWithConflictCheck(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("booking rescheduled",
		zap.String("bookingId", booking.ID),
		zap.Time("from", previous),
		zap.Time("to", newStart),
		zap.String("by", actorRole))

	return booking, nil
}

// practitionerTransition loads the booking, checks that the actor is its
// practitioner, applies the status change plus any extra mutation, and
// persists.
func (s *DefaultBookingService) practitionerTransition(ctx context.Context, id, actorID string, next models.BookingStatus, mutate func(*models.Booking)) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.PractitionerID != actorID {
		return nil, apperrors.Ownership(profile.RolePractitioner, "only the booked practitioner may perform this action")
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, apperrors.Transition(string(booking.Status), string(next))
	}

	booking.Status = next
	if mutate != nil {
		mutate(booking)
	}

	if err := s.Repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("booking transitioned",
		zap.String("bookingId", booking.ID),
		zap.String("status", string(next)))
	return booking, nil
}

// partyRole identifies which side of the booking the actor is on.
func partyRole(booking *models.Booking, actorID string) (string, error) {
	switch actorID {
	case booking.PatientID:
		return profile.RolePatient, nil
	case booking.PractitionerID:
		return profile.RolePractitioner, nil
	default:
		return "", apperrors.Ownership("patient or practitioner", "only a party to the booking may perform this action")
	}
}

// notify pushes to one party and only logs on failure; availability is never
// blocked by a notification outage.
func (s *DefaultBookingService) notify(ctx context.Context, userID, role, notificationType, title, body string, booking *models.Booking) {
	if s.Notifier == nil {
		return
	}
	data := map[string]string{"bookingId": booking.ID}
	if err := s.Notifier.Send(ctx, userID, role, notificationType, title, body, data); err != nil {
		s.Logger.Error("failed to send booking notification",
			zap.String("bookingId", booking.ID),
			zap.String("type", notificationType),
			zap.Error(err))
	}
}
