package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr string

	// Database configuration
	DatabaseURL string

	// Reservation settings
	ReservationTTL      time.Duration // how long a reserved number is held before expiry
	SweepInterval       time.Duration // how often expired reservations are purged
	MaxReservationBatch int           // max numbers per reserve call

	// Ticket settings
	MaxTicketsPerUser int // max pending+paid tickets a user may hold per lottery

	// Environment
	Environment string // "development", "test" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Defaults
		ReservationTTL:      300 * time.Second,
		SweepInterval:       time.Minute,
		MaxReservationBatch: 5,
		MaxTicketsPerUser:   10,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}

	// Override defaults if environment variables are set
	if ttl := os.Getenv("RESERVATION_TTL_SECONDS"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil && parsed > 0 {
			config.ReservationTTL = time.Duration(parsed) * time.Second
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SweepInterval = time.Duration(parsed) * time.Second
		}
	}
	if batch := os.Getenv("MAX_RESERVATION_BATCH"); batch != "" {
		if parsed, err := strconv.Atoi(batch); err == nil && parsed > 0 {
			config.MaxReservationBatch = parsed
		}
	}
	if perUser := os.Getenv("MAX_TICKETS_PER_USER"); perUser != "" {
		if parsed, err := strconv.Atoi(perUser); err == nil && parsed > 0 {
			config.MaxTicketsPerUser = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
