package scheduling

import (
	"context"
	"time"

	availabilityRepo "medvisit/database/repository/availability"
	bookingRepo "medvisit/database/repository/booking"
	"medvisit/apperrors"
	"medvisit/models"

	"go.uber.org/zap"
)

// SlotEngine computes a practitioner's bookable slots and validates single
// proposed instants against the same three data sources: recurring windows,
// blackouts and existing active bookings.
type SlotEngine interface {
	// GenerateSlots produces a day-by-day slot grid for the inclusive date
	// range, each slot marked available or not.
	GenerateSlots(ctx context.Context, practitionerID, startDate, endDate string) ([]models.DaySchedule, error)
	// ValidateInstant decides pass/fail for one proposed start instant
	// without generating the full grid. Failures carry a conflict sub-reason.
	ValidateInstant(ctx context.Context, practitionerID string, startAt time.Time) error
	// ValidateInstantExcluding additionally takes the interval's duration and
	// a booking id to leave out of the overlap scan, for moves where the
	// booking must not conflict with its own current slot.
	ValidateInstantExcluding(ctx context.Context, practitionerID string, startAt time.Time, durationMinutes int, excludeBookingID string) error
}

// DefaultSlotEngine is the production implementation.
type DefaultSlotEngine struct {
	Availability availabilityRepo.AvailabilityRepository
	Bookings     bookingRepo.BookingRepository
	Logger       *zap.Logger
}

// maxRangeDays caps a single grid request.
const maxRangeDays = 62

func (e *DefaultSlotEngine) GenerateSlots(ctx context.Context, practitionerID, startDate, endDate string) ([]models.DaySchedule, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if end.Before(start) {
		return nil, apperrors.Validation("endDate must not be before startDate")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, apperrors.Validation("date range too large")
	}

	settings, err := e.Availability.GetSettings(ctx, practitionerID)
	if err != nil {
		return nil, err
	}

	blackouts, err := e.Availability.ListBlackoutsBetween(ctx, practitionerID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	blackoutsByDate := make(map[string][]models.Blackout)
	for _, b := range blackouts {
		blackoutsByDate[b.Date] = append(blackoutsByDate[b.Date], b)
	}

	bookings, err := e.Bookings.FindActiveBetween(ctx, practitionerID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	var schedule []models.DaySchedule
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format(DateLayout)
		dayBlackouts := blackoutsByDate[dateStr]

		entry := models.DaySchedule{Date: dateStr, Slots: []models.Slot{}}

		// A full-day blackout dominates: the day gets no slots at all,
		// regardless of window configuration.
		if hasFullDayBlackout(dayBlackouts) {
			schedule = append(schedule, entry)
			continue
		}

		windows, err := e.Availability.ListWindowsForDay(ctx, practitionerID, day.Weekday())
		if err != nil {
			return nil, err
		}

		for _, window := range windows {
			slots, err := e.buildWindowSlots(day, window, settings, dayBlackouts, bookings)
			if err != nil {
				e.Logger.Warn("skipping malformed availability window",
					zap.String("windowId", window.ID), zap.Error(err))
				continue
			}
			entry.Slots = append(entry.Slots, slots...)
		}
		schedule = append(schedule, entry)
	}

	return schedule, nil
}

// buildWindowSlots walks one window from its start in steps of
// duration+buffer, stopping once a slot would cross the window end. Slots
// never straddle a window boundary; a gap between windows produces no
// bridging slot.
func (e *DefaultSlotEngine) buildWindowSlots(
	day time.Time,
	window models.AvailabilityWindow,
	settings *models.SchedulingSettings,
	blackouts []models.Blackout,
	bookings []models.Booking,
) ([]models.Slot, error) {
	windowStart, err := ParseClock(window.StartTime)
	if err != nil {
		return nil, err
	}
	windowEnd, err := ParseClock(window.EndTime)
	if err != nil {
		return nil, err
	}

	duration := settings.SlotDurationMinutes
	step := duration + settings.BufferMinutes

	var slots []models.Slot
	for slotStart := windowStart; slotStart+duration <= windowEnd; slotStart += step {
		slotEnd := slotStart + duration
		available := e.slotAvailable(day, slotStart, slotEnd, duration, blackouts, bookings)
		slots = append(slots, models.Slot{
			StartTime: FormatClock(slotStart),
			EndTime:   FormatClock(slotEnd),
			Available: available,
		})
	}
	return slots, nil
}

func (e *DefaultSlotEngine) slotAvailable(day time.Time, slotStart, slotEnd, duration int, blackouts []models.Blackout, bookings []models.Booking) bool {
	if intersectsBlackout(slotStart, slotEnd, blackouts) {
		return false
	}

	absStart := AtMinutes(day, slotStart)
	absEnd := AtMinutes(day, slotEnd)
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		bookingEnd := b.EndTime(duration)
		if absStart.Before(bookingEnd) && absEnd.After(b.ScheduledAt) {
			return false
		}
	}
	return true
}

// intersectsBlackout checks the slot against partial blackout intervals.
// Full-day blackouts are handled before any slot is generated.
func intersectsBlackout(slotStart, slotEnd int, blackouts []models.Blackout) bool {
	for _, b := range blackouts {
		if b.FullDay() {
			continue
		}
		bStart, err1 := ParseClock(b.StartTime)
		bEnd, err2 := ParseClock(b.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if Overlaps(slotStart, slotEnd, bStart, bEnd) {
			return true
		}
	}
	return false
}

func hasFullDayBlackout(blackouts []models.Blackout) bool {
	for _, b := range blackouts {
		if b.FullDay() {
			return true
		}
	}
	return false
}
