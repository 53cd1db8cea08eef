package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"raffled/config"
	"raffled/database"
	"raffled/events"
	"raffled/handlers"
	"raffled/repository"
	"raffled/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting raffled...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus and its audit subscribers
	eventBus := events.NewBus()
	events.RegisterAuditLogger(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Info("Initializing services...")
	selector := service.NewWinnerSelector(uowFactory, time.Now().UnixNano())
	lotteryService := service.NewLotteryService(uowFactory, selector)
	ticketService := service.NewTicketService(uowFactory, cfg)
	log.Info("Services initialized successfully")

	// Start the reservation sweeper
	sweeper := service.NewReservationSweeper(uowFactory, cfg.SweepInterval)
	sweeper.Start(ctx)

	// Initialize HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHTTPHandler(lotteryService, ticketService).RegisterRoutes(router)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Infof("Serving in %s mode", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		db.Close()
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
