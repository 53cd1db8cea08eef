package models

import (
	"time"
)

// PaymentStatus represents the payment lifecycle of a ticket
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Ticket represents a claim on one number within a lottery
type Ticket struct {
	ID            int64         `db:"id"`
	LotteryID     int64         `db:"lottery_id"`
	TicketNumber  int           `db:"ticket_number"`
	UserID        int64         `db:"user_id"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	PaymentAmount int64         `db:"payment_amount"`
	IsWinner      bool          `db:"is_winner"`
	PurchaseDate  time.Time     `db:"purchase_date"`
}

// IsTerminal checks if the ticket no longer occupies its number
func (t *Ticket) IsTerminal() bool {
	return t.PaymentStatus == PaymentStatusRefunded
}

// IsPaid checks if the ticket has been paid for
func (t *Ticket) IsPaid() bool {
	return t.PaymentStatus == PaymentStatusPaid
}

// PurchaseResult represents the outcome of a purchase operation
type PurchaseResult struct {
	Tickets         []*Ticket
	AmountDue       int64
	PaymentRequired bool
}

// Numbers returns the ticket numbers covered by the purchase
func (r *PurchaseResult) Numbers() []int {
	numbers := make([]int, 0, len(r.Tickets))
	for _, t := range r.Tickets {
		numbers = append(numbers, t.TicketNumber)
	}
	return numbers
}
