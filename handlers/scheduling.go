package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"medvisit/middleware"
	"medvisit/models"
	"medvisit/services/booking"
	"medvisit/services/reminder"
	"medvisit/services/scheduling"
	"medvisit/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// slotCacheTTL keeps slot grids hot for repeated browsing without serving
// stale availability for long.
const slotCacheTTL = 30 * time.Second

// SchedulingHandler exposes the slot grid, reschedule, reminder refresh and
// the practitioner's availability management endpoints.
type SchedulingHandler struct {
	Engine       scheduling.SlotEngine
	Availability scheduling.AvailabilityService
	Bookings     booking.Service
	Reminders    reminder.Scheduler
	Cache        *redis.Client
	Logger       *zap.Logger
}

func NewSchedulingHandler(
	engine scheduling.SlotEngine,
	availability scheduling.AvailabilityService,
	bookings booking.Service,
	reminders reminder.Scheduler,
	cache *redis.Client,
	logger *zap.Logger,
) *SchedulingHandler {
	return &SchedulingHandler{
		Engine:       engine,
		Availability: availability,
		Bookings:     bookings,
		Reminders:    reminders,
		Cache:        cache,
		Logger:       logger,
	}
}

// GetSlotsHandler handles GET /api/scheduling/practitioners/:id/slots.
func (h *SchedulingHandler) GetSlotsHandler(c *gin.Context) {
	practitionerID := c.Param("id")
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	if startDate == "" || endDate == "" {
		utils.JSONError(c, http.StatusBadRequest, "startDate and endDate are required", "")
		return
	}

	ctx := c.Request.Context()
	cacheKey := fmt.Sprintf("slots:%s:%s:%s", practitionerID, startDate, endDate)
	if h.Cache != nil {
		if cached, err := h.Cache.Get(ctx, cacheKey).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	schedule, err := h.Engine.GenerateSlots(ctx, practitionerID, startDate, endDate)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"practitionerId": practitionerID, "days": schedule})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, cacheKey, body, slotCacheTTL).Err(); err != nil {
			h.Logger.Warn("failed to cache slot grid", zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "application/json", body)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Reason      string    `json:"reason"`
}

// RescheduleBookingHandler handles PATCH /api/scheduling/bookings/:id/reschedule.
// Reminders keep their original firing times; callers refresh them
// explicitly via the reminders/refresh endpoint.
func (h *SchedulingHandler) RescheduleBookingHandler(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := h.Bookings.Reschedule(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID), req.ScheduledAt)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if req.Reason != "" {
		h.Logger.Info("booking rescheduled with reason",
			zap.String("bookingId", b.ID), zap.String("reason", req.Reason))
	}
	c.JSON(http.StatusOK, b)
}

// RefreshRemindersHandler handles POST /api/scheduling/bookings/:id/reminders/refresh.
func (h *SchedulingHandler) RefreshRemindersHandler(c *gin.Context) {
	if err := h.Reminders.RefreshForBooking(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reminders refreshed"})
}

type windowRequest struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	Active    *bool  `json:"active"`
}

func (r windowRequest) toModel(practitionerID string) models.AvailabilityWindow {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.AvailabilityWindow{
		PractitionerID: practitionerID,
		DayOfWeek:      r.DayOfWeek,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Active:         active,
	}
}

// ListWindowsHandler handles GET /api/scheduling/availability.
func (h *SchedulingHandler) ListWindowsHandler(c *gin.Context) {
	windows, err := h.Availability.ListWindows(c.Request.Context(), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

// CreateWindowHandler handles POST /api/scheduling/availability.
func (h *SchedulingHandler) CreateWindowHandler(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	window := req.toModel(c.GetString(middleware.CtxActorID))
	created, err := h.Availability.CreateWindow(c.Request.Context(), &window)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateWindowHandler handles PUT /api/scheduling/availability/:id.
func (h *SchedulingHandler) UpdateWindowHandler(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	window := req.toModel(c.GetString(middleware.CtxActorID))
	window.ID = c.Param("id")
	updated, err := h.Availability.UpdateWindow(c.Request.Context(), &window)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteWindowHandler handles DELETE /api/scheduling/availability/:id.
func (h *SchedulingHandler) DeleteWindowHandler(c *gin.Context) {
	if err := h.Availability.DeleteWindow(c.Request.Context(), c.GetString(middleware.CtxActorID), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type bulkWindowsRequest struct {
	Windows []windowRequest `json:"windows" binding:"required"`
}

// ReplaceWindowsHandler handles POST /api/scheduling/availability/bulk.
func (h *SchedulingHandler) ReplaceWindowsHandler(c *gin.Context) {
	var req bulkWindowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	practitionerID := c.GetString(middleware.CtxActorID)
	windows := make([]models.AvailabilityWindow, len(req.Windows))
	for i, w := range req.Windows {
		windows[i] = w.toModel(practitionerID)
	}
	replaced, err := h.Availability.ReplaceWindows(c.Request.Context(), practitionerID, windows)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"windows": replaced})
}

type blackoutRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason"`
}

// ListBlackoutsHandler handles GET /api/scheduling/blackouts.
func (h *SchedulingHandler) ListBlackoutsHandler(c *gin.Context) {
	blackouts, err := h.Availability.ListBlackouts(c.Request.Context(), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blackouts": blackouts})
}

// CreateBlackoutHandler handles POST /api/scheduling/blackouts.
func (h *SchedulingHandler) CreateBlackoutHandler(c *gin.Context) {
	var req blackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	blackout := models.Blackout{
		PractitionerID: c.GetString(middleware.CtxActorID),
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Reason:         req.Reason,
	}
	created, err := h.Availability.CreateBlackout(c.Request.Context(), &blackout)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteBlackoutHandler handles DELETE /api/scheduling/blackouts/:id.
func (h *SchedulingHandler) DeleteBlackoutHandler(c *gin.Context) {
	if err := h.Availability.DeleteBlackout(c.Request.Context(), c.GetString(middleware.CtxActorID), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetSettingsHandler handles GET /api/scheduling/settings.
func (h *SchedulingHandler) GetSettingsHandler(c *gin.Context) {
	settings, err := h.Availability.GetSettings(c.Request.Context(), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type settingsRequest struct {
	SlotDurationMinutes int `json:"slotDurationMinutes" binding:"required"`
	BufferMinutes       int `json:"bufferMinutes"`
}

// UpdateSettingsHandler handles PATCH /api/scheduling/settings.
func (h *SchedulingHandler) UpdateSettingsHandler(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	settings := &models.SchedulingSettings{
		PractitionerID:      c.GetString(middleware.CtxActorID),
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferMinutes:       req.BufferMinutes,
	}
	updated, err := h.Availability.UpdateSettings(c.Request.Context(), settings)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
