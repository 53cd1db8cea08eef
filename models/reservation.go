package models

import (
	"time"

	"github.com/google/uuid"
)

// Reservation represents a short-lived pre-payment hold on a ticket number.
// Reservations carry no payment obligation; expiry is a normal outcome.
type Reservation struct {
	ID           int64     `db:"id"`
	LotteryID    int64     `db:"lottery_id"`
	TicketNumber int       `db:"ticket_number"`
	UserID       int64     `db:"user_id"`
	HoldToken    uuid.UUID `db:"hold_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// IsExpired checks if the hold has lapsed at the given instant
func (r *Reservation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
