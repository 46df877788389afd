package scheduling

import (
	"context"
	"time"

	"medvisit/apperrors"
	availabilityRepo "medvisit/database/repository/availability"
	"medvisit/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService manages a practitioner's recurring windows, blackout
// periods and scheduling settings.
type AvailabilityService interface {
	CreateWindow(ctx context.Context, window *models.AvailabilityWindow) (*models.AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, window *models.AvailabilityWindow) (*models.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, practitionerID, windowID string) error
	ListWindows(ctx context.Context, practitionerID string) ([]models.AvailabilityWindow, error)
	ReplaceWindows(ctx context.Context, practitionerID string, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error)

	CreateBlackout(ctx context.Context, blackout *models.Blackout) (*models.Blackout, error)
	DeleteBlackout(ctx context.Context, practitionerID, blackoutID string) error
	ListBlackouts(ctx context.Context, practitionerID string) ([]models.Blackout, error)

	GetSettings(ctx context.Context, practitionerID string) (*models.SchedulingSettings, error)
	UpdateSettings(ctx context.Context, settings *models.SchedulingSettings) (*models.SchedulingSettings, error)
}

// DefaultAvailabilityService is the production implementation.
type DefaultAvailabilityService struct {
	Repo   availabilityRepo.AvailabilityRepository
	Logger *zap.Logger
}

func validateWindow(window *models.AvailabilityWindow) error {
	if window.PractitionerID == "" {
		return apperrors.Validation("practitionerId is required")
	}
	if window.DayOfWeek < 0 || window.DayOfWeek > 6 {
		return apperrors.Validation("dayOfWeek must be between 0 (Sunday) and 6 (Saturday)")
	}
	start, err := ParseClock(window.StartTime)
	if err != nil {
		return apperrors.Validation(err.Error())
	}
	end, err := ParseClock(window.EndTime)
	if err != nil {
		return apperrors.Validation(err.Error())
	}
	if end <= start {
		return apperrors.Validation("endTime must be after startTime")
	}
	return nil
}

func (s *DefaultAvailabilityService) CreateWindow(ctx context.Context, window *models.AvailabilityWindow) (*models.AvailabilityWindow, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	window.ID = uuid.New().String()
	window.CreatedAt = time.Now().UTC()
	if err := s.Repo.CreateWindow(ctx, window); err != nil {
		return nil, err
	}
	s.Logger.Info("availability window created",
		zap.String("practitionerId", window.PractitionerID),
		zap.Int("dayOfWeek", window.DayOfWeek),
		zap.String("start", window.StartTime),
		zap.String("end", window.EndTime))
	return window, nil
}

func (s *DefaultAvailabilityService) UpdateWindow(ctx context.Context, window *models.AvailabilityWindow) (*models.AvailabilityWindow, error) {
	if window.ID == "" {
		return nil, apperrors.Validation("window id is required")
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateWindow(ctx, window); err != nil {
		return nil, err
	}
	return window, nil
}

func (s *DefaultAvailabilityService) DeleteWindow(ctx context.Context, practitionerID, windowID string) error {
	if windowID == "" {
		return apperrors.Validation("window id is required")
	}
	return s.Repo.DeleteWindow(ctx, practitionerID, windowID)
}

func (s *DefaultAvailabilityService) ListWindows(ctx context.Context, practitionerID string) ([]models.AvailabilityWindow, error) {
	return s.Repo.ListWindows(ctx, practitionerID)
}

// ReplaceWindows validates and swaps the whole weekly template at once.
func (s *DefaultAvailabilityService) ReplaceWindows(ctx context.Context, practitionerID string, windows []models.AvailabilityWindow) ([]models.AvailabilityWindow, error) {
	now := time.Now().UTC()
	for i := range windows {
		windows[i].PractitionerID = practitionerID
		if err := validateWindow(&windows[i]); err != nil {
			return nil, err
		}
		windows[i].ID = uuid.New().String()
		windows[i].CreatedAt = now
	}
	if err := s.Repo.ReplaceWindows(ctx, practitionerID, windows); err != nil {
		return nil, err
	}
	s.Logger.Info("availability windows replaced",
		zap.String("practitionerId", practitionerID),
		zap.Int("count", len(windows)))
	return windows, nil
}

func (s *DefaultAvailabilityService) CreateBlackout(ctx context.Context, blackout *models.Blackout) (*models.Blackout, error) {
	if blackout.PractitionerID == "" {
		return nil, apperrors.Validation("practitionerId is required")
	}
	if _, err := ParseDate(blackout.Date); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	// Either both bounds are present (partial) or neither is (full day).
	hasStart := blackout.StartTime != ""
	hasEnd := blackout.EndTime != ""
	if hasStart != hasEnd {
		return nil, apperrors.Validation("startTime and endTime must be provided together")
	}
	if hasStart {
		start, err := ParseClock(blackout.StartTime)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		end, err := ParseClock(blackout.EndTime)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		if end <= start {
			return nil, apperrors.Validation("endTime must be after startTime")
		}
	}

	blackout.ID = uuid.New().String()
	blackout.CreatedAt = time.Now().UTC()
	if err := s.Repo.CreateBlackout(ctx, blackout); err != nil {
		return nil, err
	}
	s.Logger.Info("blackout created",
		zap.String("practitionerId", blackout.PractitionerID),
		zap.String("date", blackout.Date),
		zap.Bool("fullDay", blackout.FullDay()))
	return blackout, nil
}

func (s *DefaultAvailabilityService) DeleteBlackout(ctx context.Context, practitionerID, blackoutID string) error {
	if blackoutID == "" {
		return apperrors.Validation("blackout id is required")
	}
	return s.Repo.DeleteBlackout(ctx, practitionerID, blackoutID)
}

func (s *DefaultAvailabilityService) ListBlackouts(ctx context.Context, practitionerID string) ([]models.Blackout, error) {
	return s.Repo.ListBlackouts(ctx, practitionerID)
}

func (s *DefaultAvailabilityService) GetSettings(ctx context.Context, practitionerID string) (*models.SchedulingSettings, error) {
	return s.Repo.GetSettings(ctx, practitionerID)
}

func (s *DefaultAvailabilityService) UpdateSettings(ctx context.Context, settings *models.SchedulingSettings) (*models.SchedulingSettings, error) {
	if settings.SlotDurationMinutes < 5 || settings.SlotDurationMinutes > 480 {
		return nil, apperrors.Validation("slotDurationMinutes must be between 5 and 480")
	}
	if settings.BufferMinutes < 0 || settings.BufferMinutes > 120 {
		return nil, apperrors.Validation("bufferMinutes must be between 0 and 120")
	}
	settings.UpdatedAt = time.Now().UTC()
	if err := s.Repo.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
