package models

import (
	"time"
)

// SelectionMethod represents how winners are chosen at lottery close
type SelectionMethod string

const (
	SelectionMethodRandom SelectionMethod = "random"
	SelectionMethodManual SelectionMethod = "manual"
)

// Winner represents a declared, payment-confirmed winning ticket.
// Winner rows are append-only.
type Winner struct {
	ID           int64     `db:"id"`
	LotteryID    int64     `db:"lottery_id"`
	TicketID     int64     `db:"ticket_id"`
	UserID       int64     `db:"user_id"`
	TicketNumber int       `db:"ticket_number"`
	DeclaredAt   time.Time `db:"declared_at"`
}

// WinnerSet represents the outcome of a winner selection
type WinnerSet struct {
	LotteryID int64
	Method    SelectionMethod
	Winners   []*Winner
}

// Numbers returns the winning ticket numbers
func (ws *WinnerSet) Numbers() []int {
	numbers := make([]int, 0, len(ws.Winners))
	for _, w := range ws.Winners {
		numbers = append(numbers, w.TicketNumber)
	}
	return numbers
}
