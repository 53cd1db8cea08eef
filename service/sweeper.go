package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ReservationSweeper periodically purges expired reservations so abandoned
// holds do not keep numbers off the market between sale requests
type ReservationSweeper struct {
	uowFactory UnitOfWorkFactory
	interval   time.Duration
}

// NewReservationSweeper creates a sweeper that runs once per interval
func NewReservationSweeper(uowFactory UnitOfWorkFactory, interval time.Duration) *ReservationSweeper {
	return &ReservationSweeper{
		uowFactory: uowFactory,
		interval:   interval,
	}
}

// Start runs the sweep loop until the context is cancelled
func (s *ReservationSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.WithField("interval", s.interval).Info("Reservation sweeper started")

		for {
			select {
			case <-ctx.Done():
				log.Info("Reservation sweeper stopped")
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					log.WithError(err).Error("Reservation sweep failed")
				}
			}
		}
	}()
}

// Sweep performs one purge pass
func (s *ReservationSweeper) Sweep(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	purged, err := uow.ReservationRepository().DeleteExpiredBefore(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to purge expired reservations: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if purged > 0 {
		log.WithField("purged", purged).Debug("Purged expired reservations")
	}

	return nil
}
