package models

import (
	"time"
)

// LotteryStatus represents the persisted lifecycle state of a lottery
type LotteryStatus string

const (
	LotteryStatusDraft     LotteryStatus = "draft"
	LotteryStatusActive    LotteryStatus = "active"
	LotteryStatusClosed    LotteryStatus = "closed"
	LotteryStatusFinished  LotteryStatus = "finished"
	LotteryStatusCancelled LotteryStatus = "cancelled"
)

// DisplayStatus is a read-side label derived from the persisted status and
// the sale window. It is never stored.
type DisplayStatus string

const (
	DisplayStatusDraft     DisplayStatus = "draft"
	DisplayStatusPending   DisplayStatus = "pending" // active but sales not yet open
	DisplayStatusRunning   DisplayStatus = "running" // active and inside the sale window
	DisplayStatusOverdue   DisplayStatus = "overdue" // active but past end_date, awaiting finish
	DisplayStatusFinished  DisplayStatus = "finished"
	DisplayStatusCancelled DisplayStatus = "cancelled"
)

// CancelReasonInsufficientParticipants marks a lottery that was cancelled
// because it did not reach min_tickets paid tickets by finish time.
const CancelReasonInsufficientParticipants = "insufficient_participants"

// Lottery represents a single raffle with a ticket number range, price
// policy and winner count
type Lottery struct {
	ID               int64         `db:"id"`
	Title            string        `db:"title"`
	Description      string        `db:"description"`
	ImageURL         string        `db:"image_url"`
	IsFree           bool          `db:"is_free"`
	TicketPrice      int64         `db:"ticket_price"`
	MinTickets       int           `db:"min_tickets"`
	MaxTickets       int           `db:"max_tickets"`
	NumWinners       int           `db:"num_winners"`
	StartDate        time.Time     `db:"start_date"`
	EndDate          time.Time     `db:"end_date"`
	Status           LotteryStatus `db:"status"`
	PrizeDescription string        `db:"prize_description"`
	Terms            string        `db:"terms"`
	CreatorID        int64         `db:"creator_id"`
	CancelReason     *string       `db:"cancel_reason"`
	WinnerSelectedAt *time.Time    `db:"winner_selected_at"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// IsDraft checks if the lottery has not been activated yet
func (l *Lottery) IsDraft() bool {
	return l.Status == LotteryStatusDraft
}

// IsActive checks if the lottery is in the active state
func (l *Lottery) IsActive() bool {
	return l.Status == LotteryStatusActive
}

// IsTerminal checks if the lottery has reached a terminal state
func (l *Lottery) IsTerminal() bool {
	return l.Status == LotteryStatusFinished || l.Status == LotteryStatusCancelled
}

// InSaleWindow checks if ticket sales are open at the given instant.
// Only active lotteries sell tickets.
func (l *Lottery) InSaleWindow(now time.Time) bool {
	if !l.IsActive() {
		return false
	}
	return !now.Before(l.StartDate) && !now.After(l.EndDate)
}

// SaleEnded checks if the sale window has closed
func (l *Lottery) SaleEnded(now time.Time) bool {
	return now.After(l.EndDate)
}

// CanActivate checks if a draft can transition to active at the given
// instant. A lottery whose start date has already passed cannot be
// activated retroactively.
func (l *Lottery) CanActivate(now time.Time) bool {
	return l.IsDraft() && l.StartDate.After(now)
}

// ValidNumber checks if a ticket number falls inside the lottery's range
func (l *Lottery) ValidNumber(n int) bool {
	return n >= 1 && n <= l.MaxTickets
}

// DisplayStatus derives the read-side status label from the persisted
// status and the sale window
func (l *Lottery) DisplayStatus(now time.Time) DisplayStatus {
	switch l.Status {
	case LotteryStatusDraft:
		return DisplayStatusDraft
	case LotteryStatusFinished:
		return DisplayStatusFinished
	case LotteryStatusCancelled:
		return DisplayStatusCancelled
	case LotteryStatusActive:
		if now.Before(l.StartDate) {
			return DisplayStatusPending
		}
		if now.After(l.EndDate) {
			return DisplayStatusOverdue
		}
		return DisplayStatusRunning
	}
	return DisplayStatus(l.Status)
}

// RestrictedFields lists the fields that become immutable once the lottery
// is active and has at least one paid ticket
func RestrictedFields() []string {
	return []string{"is_free", "ticket_price", "min_tickets", "max_tickets", "num_winners"}
}

// EditableFields lists the fields that remain editable on a sold active lottery
func EditableFields() []string {
	return []string{"title", "description", "image_url", "start_date", "end_date", "prize_description", "terms"}
}

// LotteryFilter narrows lottery listings
type LotteryFilter struct {
	Status        *LotteryStatus
	IsFree        *bool
	ParticipantID *int64
	Limit         int
	Offset        int
}
