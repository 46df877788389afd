package handlers

import (
	"net/http"
	"time"

	"medvisit/middleware"
	"medvisit/services/booking"
	"medvisit/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	Svc    booking.Service
	Logger *zap.Logger
}

func NewBookingHandler(svc booking.Service, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, Logger: logger}
}

type createBookingRequest struct {
	PractitionerID string    `json:"practitionerId" binding:"required"`
	ServiceType    string    `json:"serviceType" binding:"required"`
	ScheduledAt    time.Time `json:"scheduledAt" binding:"required"`
	Address        string    `json:"address"`
	Lat            *float64  `json:"lat"`
	Lng            *float64  `json:"lng"`
	Notes          string    `json:"notes"`
}

// CreateBookingHandler handles POST /api/bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	input := booking.CreateInput{
		PatientID:      c.GetString(middleware.CtxActorID),
		PractitionerID: req.PractitionerID,
		ServiceType:    req.ServiceType,
		ScheduledAt:    req.ScheduledAt,
		Address:        req.Address,
		Lat:            req.Lat,
		Lng:            req.Lng,
		Notes:          req.Notes,
	}

	created, err := h.Svc.Create(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetBookingHandler handles GET /api/bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// AcceptBookingHandler handles PATCH /api/bookings/:id/accept.
func (h *BookingHandler) AcceptBookingHandler(c *gin.Context) {
	b, err := h.Svc.Accept(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// RejectBookingHandler handles PATCH /api/bookings/:id/reject.
func (h *BookingHandler) RejectBookingHandler(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req) // body optional

	b, err := h.Svc.Reject(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// EnRouteBookingHandler handles PATCH /api/bookings/:id/en-route.
func (h *BookingHandler) EnRouteBookingHandler(c *gin.Context) {
	b, err := h.Svc.MarkEnRoute(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// StartVisitHandler handles PATCH /api/bookings/:id/start.
func (h *BookingHandler) StartVisitHandler(c *gin.Context) {
	b, err := h.Svc.StartVisit(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteBookingHandler handles PATCH /api/bookings/:id/complete.
func (h *BookingHandler) CompleteBookingHandler(c *gin.Context) {
	b, err := h.Svc.Complete(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler handles PATCH /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req) // reason optional while Pending

	b, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxActorID), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
