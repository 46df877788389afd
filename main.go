// File: medvisit/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medvisit/config"
	"medvisit/cron"
	"medvisit/database"
	availabilityRepo "medvisit/database/repository/availability"
	bookingRepo "medvisit/database/repository/booking"
	reminderRepo "medvisit/database/repository/reminder"
	"medvisit/handlers"
	"medvisit/middleware"
	"medvisit/routes"
	"medvisit/services/booking"
	"medvisit/services/messaging"
	"medvisit/services/notification"
	"medvisit/services/profile"
	"medvisit/services/reminder"
	"medvisit/services/scheduling"
	"medvisit/services/tracking"
	"medvisit/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	bkRepo := bookingRepo.NewMongoBookingRepo()
	remRepo := reminderRepo.NewMongoReminderRepo()

	// services.
	directory := profile.NewMongoDirectory()
	notifier := &notification.FCMService{
		Directory: directory,
		Logger:    logger,
	}

	queue := reminder.NewAsynqQueue(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	})
	reminderScheduler := &reminder.DefaultScheduler{
		Repo:     remRepo,
		Bookings: bkRepo,
		Queue:    queue,
		Notifier: notifier,
		Logger:   logger,
	}

	slotEngine := &scheduling.DefaultSlotEngine{
		Availability: availRepo,
		Bookings:     bkRepo,
		Logger:       logger,
	}
	availabilityService := &scheduling.DefaultAvailabilityService{
		Repo:   availRepo,
		Logger: logger,
	}

	bookingService := &booking.DefaultBookingService{
		Repo:         bkRepo,
		Availability: availRepo,
		Directory:    directory,
		Validator:    slotEngine,
		Threads:      messaging.NewMongoThreadService(),
		Reminders:    reminderScheduler,
		Tracker:      tracking.NewMongoVisitTracker(),
		Notifier:     notifier,
		Logger:       logger,
	}

	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	schedulingHandler := handlers.NewSchedulingHandler(
		slotEngine,
		availabilityService,
		bookingService,
		reminderScheduler,
		utils.GetCacheClient(),
		logger,
	)

	// Register routes.
	routes.RegisterRoutes(router, bookingHandler, schedulingHandler)

	// Start the reminder worker alongside the HTTP server.
	cron.InitReminderWorker(reminderScheduler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
