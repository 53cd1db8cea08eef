package models

// LotteryStats aggregates read-side numbers for a single lottery.
// All fields are derived queries; there are no separate invariants here.
type LotteryStats struct {
	LotteryID          int64
	TicketsSold        int // pending + paid
	PaidTickets        int
	UniqueParticipants int
	Revenue            int64   // sum of paid amounts
	ParticipationRate  float64 // tickets sold / max_tickets
}

// UserLotteryHistory combines a user's tickets with their wins
type UserLotteryHistory struct {
	UserID  int64
	Tickets []*Ticket
	Wins    []*Winner
}
