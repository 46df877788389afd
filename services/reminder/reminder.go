package reminder

import (
	"context"
	"fmt"
	"time"

	"medvisit/apperrors"
	bookingRepo "medvisit/database/repository/booking"
	reminderRepo "medvisit/database/repository/reminder"
	"medvisit/models"
	"medvisit/services/notification"
	"medvisit/services/profile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler creates, retracts and fires the two deferred reminders tied to a
// booking's start time.
type Scheduler interface {
	// CreateForBooking persists and enqueues the 24-hour and 1-hour
	// reminders. An instant already in the past is skipped, not an error.
	CreateForBooking(ctx context.Context, booking *models.Booking) error
	// CancelForBooking removes pending jobs best-effort and deletes the
	// unsent reminder rows.
	CancelForBooking(ctx context.Context, bookingID string) error
	// RefreshForBooking cancels and recreates reminders against the
	// booking's current scheduled time. Reschedule does not call this
	// implicitly; it is the explicit recreation step.
	RefreshForBooking(ctx context.Context, bookingID string) error
	// HandleDue fires one reminder: idempotent, notifies both parties, and
	// treats per-party delivery failures independently.
	HandleDue(ctx context.Context, payload models.ReminderPayload) error
}

// DefaultScheduler is the production implementation.
type DefaultScheduler struct {
	Repo     reminderRepo.ReminderRepository
	Bookings bookingRepo.BookingRepository
	Queue    JobQueue
	Notifier notification.Service
	Logger   *zap.Logger
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *DefaultScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

var reminderKinds = []models.ReminderKind{
	models.ReminderTwentyFourHour,
	models.ReminderOneHour,
}

func (s *DefaultScheduler) CreateForBooking(ctx context.Context, booking *models.Booking) error {
	now := s.now()

	for _, kind := range reminderKinds {
		fireAt := booking.ScheduledAt.Add(-kind.Offset())
		if !fireAt.After(now) {
			// Booking accepted inside the reminder's lead time; nothing to
			// schedule for this kind.
			s.Logger.Debug("skipping reminder already in the past",
				zap.String("bookingId", booking.ID),
				zap.String("kind", string(kind)))
			continue
		}

		reminder := &models.Reminder{
			ID:           uuid.New().String(),
			BookingID:    booking.ID,
			Kind:         kind,
			ScheduledFor: fireAt,
			CreatedAt:    now,
		}

		payload := models.ReminderPayload{BookingID: booking.ID, ReminderID: reminder.ID}
		jobID, err := s.Queue.Schedule(ctx, payload, fireAt)
		if err != nil {
			return apperrors.Dependency("reminder scheduling", err)
		}
		reminder.JobID = jobID

		if err := s.Repo.Create(ctx, reminder); err != nil {
			// The job is already queued; try to retract it so it cannot fire
			// against a row that was never written.
			if rmErr := s.Queue.Remove(ctx, jobID); rmErr != nil {
				s.Logger.Warn("failed to retract orphaned reminder job",
					zap.String("jobId", jobID), zap.Error(rmErr))
			}
			return err
		}

		s.Logger.Info("reminder scheduled",
			zap.String("bookingId", booking.ID),
			zap.String("kind", string(kind)),
			zap.Time("fireAt", fireAt))
	}
	return nil
}

func (s *DefaultScheduler) CancelForBooking(ctx context.Context, bookingID string) error {
	reminders, err := s.Repo.ListUnsentByBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	for _, r := range reminders {
		if r.JobID == "" {
			continue
		}
		// Best-effort: a job that already fired or expired is not fatal; the
		// idempotent handler is the real correctness guarantee.
		if err := s.Queue.Remove(ctx, r.JobID); err != nil {
			s.Logger.Warn("could not remove reminder job",
				zap.String("bookingId", bookingID),
				zap.String("jobId", r.JobID),
				zap.Error(err))
		}
	}

	return s.Repo.DeleteUnsentByBooking(ctx, bookingID)
}

func (s *DefaultScheduler) RefreshForBooking(ctx context.Context, bookingID string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != models.StatusConfirmed {
		return apperrors.Validation(fmt.Sprintf("reminders can only be refreshed for confirmed bookings, booking is %s", booking.Status))
	}
	if err := s.CancelForBooking(ctx, bookingID); err != nil {
		return err
	}
	return s.CreateForBooking(ctx, booking)
}

func (s *DefaultScheduler) HandleDue(ctx context.Context, payload models.ReminderPayload) error {
	reminder, err := s.Repo.GetByID(ctx, payload.ReminderID)
	if err != nil {
		// The row was deleted by a cancel/reschedule after the job was
		// queued; the reminder is moot.
		s.Logger.Info("reminder row gone, dropping job",
			zap.String("reminderId", payload.ReminderID))
		return nil
	}
	if reminder.Sent {
		return nil
	}

	// Claim the reminder before acting; a duplicate delivery loses the flip
	// and becomes a no-op.
	claimed, err := s.Repo.MarkSent(ctx, reminder.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	booking, err := s.Bookings.GetByID(ctx, reminder.BookingID)
	if err != nil {
		s.Logger.Warn("booking missing for due reminder",
			zap.String("bookingId", reminder.BookingID))
		return nil
	}
	if !booking.Status.Active() {
		return nil
	}

	label := reminder.Kind.Label()
	when := booking.ScheduledAt.Format(time.RFC1123)
	data := map[string]string{
		"bookingId":   booking.ID,
		"reminderId":  reminder.ID,
		"scheduledAt": booking.ScheduledAt.Format(time.RFC3339),
	}

	// Each party's delivery failure is logged on its own; one side failing
	// must not block the other.
	if err := s.Notifier.Send(ctx, booking.PatientID, profile.RolePatient, "visit_reminder",
		"Upcoming visit",
		fmt.Sprintf("Your visit starts in %s (%s).", label, when), data); err != nil {
		s.Logger.Error("failed to deliver patient reminder",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}
	if err := s.Notifier.Send(ctx, booking.PractitionerID, profile.RolePractitioner, "visit_reminder",
		"Upcoming visit",
		fmt.Sprintf("Your next visit starts in %s (%s).", label, when), data); err != nil {
		s.Logger.Error("failed to deliver practitioner reminder",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}

	return nil
}
