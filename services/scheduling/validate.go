package scheduling

import (
	"context"
	"time"

	"medvisit/apperrors"
)

// ValidateInstant runs the booking-time checks for a new booking: the slot
// duration comes from the practitioner's current settings and every active
// booking counts as a potential conflict.
func (e *DefaultSlotEngine) ValidateInstant(ctx context.Context, practitionerID string, startAt time.Time) error {
	return e.validate(ctx, practitionerID, startAt, 0, "")
}

// ValidateInstantExcluding is the reschedule variant: the interval length is
// the booking's own duration, not the current settings, and the booking being
// moved is excluded from the overlap scan so it cannot conflict with itself.
func (e *DefaultSlotEngine) ValidateInstantExcluding(ctx context.Context, practitionerID string, startAt time.Time, durationMinutes int, excludeBookingID string) error {
	return e.validate(ctx, practitionerID, startAt, durationMinutes, excludeBookingID)
}

// validate short-circuits on the first failure, in order: the instant plus
// duration must fit inside an active window for that weekday, the date must
// not be fully blacked out, no partial blackout may overlap, and no active
// booking (other than the excluded one) may overlap. A non-positive duration
// falls back to the practitioner's settings.
func (e *DefaultSlotEngine) validate(ctx context.Context, practitionerID string, startAt time.Time, durationMinutes int, excludeBookingID string) error {
	startAt = startAt.UTC()

	if durationMinutes <= 0 {
		settings, err := e.Availability.GetSettings(ctx, practitionerID)
		if err != nil {
			return err
		}
		durationMinutes = settings.SlotDurationMinutes
	}

	startMin := MinutesOfDay(startAt)
	endMin := startMin + durationMinutes

	windows, err := e.Availability.ListWindowsForDay(ctx, practitionerID, startAt.Weekday())
	if err != nil {
		return err
	}
	inWindow := false
	for _, w := range windows {
		wStart, err1 := ParseClock(w.StartTime)
		wEnd, err2 := ParseClock(w.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if startMin >= wStart && endMin <= wEnd {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return apperrors.Conflict(apperrors.ReasonOutsideWindow, "requested time is outside the practitioner's availability window")
	}

	dateStr := startAt.Format(DateLayout)
	blackouts, err := e.Availability.ListBlackoutsBetween(ctx, practitionerID, dateStr, dateStr)
	if err != nil {
		return err
	}
	if hasFullDayBlackout(blackouts) {
		return apperrors.Conflict(apperrors.ReasonBlackedOut, "practitioner is unavailable on this date")
	}
	if intersectsBlackout(startMin, endMin, blackouts) {
		return apperrors.Conflict(apperrors.ReasonBlackedOut, "requested time falls in a blocked period")
	}

	endAt := startAt.Add(time.Duration(durationMinutes) * time.Minute)
	overlapping, err := e.Bookings.FindActiveOverlapping(ctx, practitionerID, startAt, endAt, excludeBookingID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return apperrors.Conflict(apperrors.ReasonOverlap, "requested time overlaps an existing booking")
	}

	return nil
}
