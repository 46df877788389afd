package routes

import (
	"net/http"
	"time"

	"medvisit/handlers"
	"medvisit/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm MedVisit"})
	})
}

// RegisterBookingRoutes sets up the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuth())
		bookingGroup.POST("", bh.CreateBookingHandler)
		bookingGroup.GET("/:id", bh.GetBookingHandler)
		bookingGroup.PATCH("/:id/accept", bh.AcceptBookingHandler)
		bookingGroup.PATCH("/:id/reject", bh.RejectBookingHandler)
		bookingGroup.PATCH("/:id/en-route", bh.EnRouteBookingHandler)
		bookingGroup.PATCH("/:id/start", bh.StartVisitHandler)
		bookingGroup.PATCH("/:id/complete", bh.CompleteBookingHandler)
		bookingGroup.PATCH("/:id/cancel", bh.CancelBookingHandler)
	}
}

// RegisterSchedulingRoutes sets up the slot grid, reschedule, reminder and
// availability management endpoints.
func RegisterSchedulingRoutes(r *gin.Engine, sh *handlers.SchedulingHandler) {
	schedulingGroup := r.Group("/api/scheduling")
	{
		schedulingGroup.Use(middleware.JWTAuth())
		schedulingGroup.GET("/practitioners/:id/slots", sh.GetSlotsHandler)
		schedulingGroup.PATCH("/bookings/:id/reschedule", sh.RescheduleBookingHandler)
		schedulingGroup.POST("/bookings/:id/reminders/refresh", sh.RefreshRemindersHandler)

		// Schedule management is the practitioner's own surface.
		manage := schedulingGroup.Group("")
		manage.Use(middleware.RequirePractitioner())
		manage.GET("/availability", sh.ListWindowsHandler)
		manage.POST("/availability", sh.CreateWindowHandler)
		manage.POST("/availability/bulk", sh.ReplaceWindowsHandler)
		manage.PUT("/availability/:id", sh.UpdateWindowHandler)
		manage.DELETE("/availability/:id", sh.DeleteWindowHandler)
		manage.GET("/blackouts", sh.ListBlackoutsHandler)
		manage.POST("/blackouts", sh.CreateBlackoutHandler)
		manage.DELETE("/blackouts/:id", sh.DeleteBlackoutHandler)
		manage.GET("/settings", sh.GetSettingsHandler)
		manage.PATCH("/settings", sh.UpdateSettingsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, bh *handlers.BookingHandler, sh *handlers.SchedulingHandler) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, bh)
	RegisterSchedulingRoutes(r, sh)
}
