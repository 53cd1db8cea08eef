package service

import (
	"context"
	"time"

	"raffled/events"
	"raffled/models"
)

// RoleAdministrator is the role name the authentication layer assigns to
// site administrators
const RoleAdministrator = "administrator"

// Actor is the verified identity an operation runs as. It is produced by the
// external authentication layer and passed in by the HTTP shell.
type Actor struct {
	UserID int64
	Role   string
}

// IsAdmin checks if the actor carries the administrator role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdministrator
}

// LotteryRepository defines the interface for lottery data access
type LotteryRepository interface {
	// Create inserts a new lottery and fills in its generated fields
	Create(ctx context.Context, lottery *models.Lottery) error

	// GetByID retrieves a lottery by its ID, nil if absent
	GetByID(ctx context.Context, id int64) (*models.Lottery, error)

	// Update persists all mutable fields of a lottery
	Update(ctx context.Context, lottery *models.Lottery) error

	// MarkFinished flips an active lottery to finished, recording the
	// selection time. Reports false when the lottery was no longer active,
	// which settles the race between concurrent finish attempts.
	MarkFinished(ctx context.Context, id int64, at time.Time) (bool, error)

	// Delete removes a lottery; tickets, reservations and winners cascade
	Delete(ctx context.Context, id int64) error

	// List returns lotteries matching the filter, newest first
	List(ctx context.Context, filter models.LotteryFilter) ([]*models.Lottery, error)
}

// TicketRepository defines the interface for the ticket ledger
type TicketRepository interface {
	// CreateBatch inserts one ticket row per number as a single statement.
	// Returns ErrTicketNumberTaken when the partial unique index on
	// non-terminal rows rejects a number.
	CreateBatch(ctx context.Context, tickets []*models.Ticket) error

	// GetNumbersInUse returns which of the given numbers currently have a
	// non-terminal (pending/paid) row in the lottery
	GetNumbersInUse(ctx context.Context, lotteryID int64, numbers []int) ([]int, error)

	// CountNonTerminalByUser returns a user's pending+paid ticket count for a lottery
	CountNonTerminalByUser(ctx context.Context, lotteryID, userID int64) (int, error)

	// CountPaid returns the paid ticket count for a lottery
	CountPaid(ctx context.Context, lotteryID int64) (int, error)

	// GetPaid returns all paid tickets of a lottery ordered by ticket number
	GetPaid(ctx context.Context, lotteryID int64) ([]*models.Ticket, error)

	// GetPaidByNumbers returns the paid tickets matching the given numbers
	GetPaidByNumbers(ctx context.Context, lotteryID int64, numbers []int) ([]*models.Ticket, error)

	// GetByUser returns a user's tickets for one lottery
	GetByUser(ctx context.Context, lotteryID, userID int64) ([]*models.Ticket, error)

	// GetAllByUser returns every ticket a user holds across lotteries
	GetAllByUser(ctx context.Context, userID int64) ([]*models.Ticket, error)

	// GetByLottery returns all tickets of a lottery
	GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Ticket, error)

	// MarkPaid transitions a user's pending tickets for the given numbers to
	// paid, returning how many rows changed
	MarkPaid(ctx context.Context, lotteryID int64, numbers []int, userID int64) (int, error)

	// RefundPaid transitions every paid ticket of a lottery to refunded,
	// returning the refunded count
	RefundPaid(ctx context.Context, lotteryID int64) (int, error)

	// MarkWinners flags the given tickets as winners
	MarkWinners(ctx context.Context, ticketIDs []int64) error

	// GetLotteryStats aggregates sold/paid counts, distinct participants and
	// paid revenue for a lottery in one query
	GetLotteryStats(ctx context.Context, lotteryID int64) (*models.LotteryStats, error)
}

// ReservationRepository defines the interface for short-lived number holds
type ReservationRepository interface {
	// CreateBatch inserts one reservation per number.
	// Returns ErrTicketNumberTaken on a uniqueness conflict.
	CreateBatch(ctx context.Context, reservations []*models.Reservation) error

	// GetConflicting returns which of the given numbers are held by a live
	// reservation belonging to a different user
	GetConflicting(ctx context.Context, lotteryID int64, numbers []int, excludeUserID int64, now time.Time) ([]int, error)

	// DeleteExpired purges expired reservations for one lottery
	DeleteExpired(ctx context.Context, lotteryID int64, now time.Time) (int64, error)

	// DeleteExpiredBefore purges expired reservations across all lotteries;
	// used by the periodic sweeper
	DeleteExpiredBefore(ctx context.Context, now time.Time) (int64, error)

	// DeleteByUserNumbers removes a user's reservations for the given
	// numbers, typically once a purchase supersedes them
	DeleteByUserNumbers(ctx context.Context, lotteryID, userID int64, numbers []int) error

	// DeleteByLottery removes all reservations of a lottery
	DeleteByLottery(ctx context.Context, lotteryID int64) (int64, error)
}

// WinnerRepository defines the interface for the append-only winner record
type WinnerRepository interface {
	// CreateBatch appends one winner row per selected ticket
	CreateBatch(ctx context.Context, winners []*models.Winner) error

	// GetByLottery returns the declared winners of a lottery
	GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Winner, error)

	// CountByLottery returns the number of declared winners
	CountByLottery(ctx context.Context, lotteryID int64) (int, error)

	// GetByUser returns all wins of a user across lotteries
	GetByUser(ctx context.Context, userID int64) ([]*models.Winner, error)
}

// EventPublisher defines the interface for publishing events within a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents a transactional boundary for business operations
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	LotteryRepository() LotteryRepository
	TicketRepository() TicketRepository
	ReservationRepository() ReservationRepository
	WinnerRepository() WinnerRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// CreateLotteryParams carries validated input for lottery creation
type CreateLotteryParams struct {
	Title            string
	Description      string
	ImageURL         string
	IsFree           bool
	TicketPrice      int64
	MinTickets       int
	MaxTickets       int
	NumWinners       int
	StartDate        time.Time
	EndDate          time.Time
	PrizeDescription string
	Terms            string
}

// UpdateLotteryParams carries partial updates; nil fields are untouched
type UpdateLotteryParams struct {
	Title            *string
	Description      *string
	ImageURL         *string
	IsFree           *bool
	TicketPrice      *int64
	MinTickets       *int
	MaxTickets       *int
	NumWinners       *int
	StartDate        *time.Time
	EndDate          *time.Time
	PrizeDescription *string
	Terms            *string
}

// FinishParams controls how a lottery is closed out
type FinishParams struct {
	// Force bypasses the end-date check; administrator only. Insufficient
	// participation still degrades a forced finish to cancellation.
	Force         bool
	Method        models.SelectionMethod
	ManualNumbers []int
}

// FinishOutcome distinguishes the two declared outcomes of finish
type FinishOutcome string

const (
	FinishOutcomeWinnersSelected           FinishOutcome = "winners_selected"
	FinishOutcomeInsufficientParticipation FinishOutcome = "insufficient_participation"
)

// FinishResult reports what finishing a lottery actually did
type FinishResult struct {
	Lottery         *models.Lottery
	Outcome         FinishOutcome
	Winners         *models.WinnerSet // nil when the lottery was auto-cancelled
	RefundedTickets int               // only set on the cancellation outcome
}

// CancelResult reports the refund fan-out of a cancellation
type CancelResult struct {
	Lottery             *models.Lottery
	RefundedTickets     int
	RemovedReservations int64
}

// DeleteResult surfaces the warning payload of a hard delete
type DeleteResult struct {
	PaidTickets int
}

// LotteryService defines lifecycle and read-side operations for lotteries
type LotteryService interface {
	// Create creates a new lottery in draft state; administrator only
	Create(ctx context.Context, actor Actor, params CreateLotteryParams) (*models.Lottery, error)

	// Update edits lottery fields subject to the restricted-field rule
	Update(ctx context.Context, actor Actor, lotteryID int64, params UpdateLotteryParams) (*models.Lottery, error)

	// Activate transitions draft to active
	Activate(ctx context.Context, actor Actor, lotteryID int64) (*models.Lottery, error)

	// Finish closes a lottery: selects winners, or degrades to cancellation
	// when paid tickets fall short of min_tickets
	Finish(ctx context.Context, actor Actor, lotteryID int64, params FinishParams) (*FinishResult, error)

	// Cancel cancels an active lottery, refunding paid tickets and removing
	// outstanding reservations
	Cancel(ctx context.Context, actor Actor, lotteryID int64) (*CancelResult, error)

	// Delete removes a lottery and everything hanging off it
	Delete(ctx context.Context, actor Actor, lotteryID int64) (*DeleteResult, error)

	// Get returns one lottery
	Get(ctx context.Context, lotteryID int64) (*models.Lottery, error)

	// List returns lotteries matching a filter
	List(ctx context.Context, filter models.LotteryFilter) ([]*models.Lottery, error)

	// Winners returns the declared winners of a lottery
	Winners(ctx context.Context, lotteryID int64) ([]*models.Winner, error)

	// Stats aggregates read-side numbers for a lottery
	Stats(ctx context.Context, lotteryID int64) (*models.LotteryStats, error)

	// UserHistory returns a user's tickets and wins across lotteries
	UserHistory(ctx context.Context, userID int64) (*models.UserLotteryHistory, error)
}

// TicketService defines reservation and purchase operations
type TicketService interface {
	// Reserve places short-lived holds on the given numbers
	Reserve(ctx context.Context, lotteryID int64, numbers []int, userID int64) ([]*models.Reservation, error)

	// Purchase records tickets for the given numbers, all or nothing
	Purchase(ctx context.Context, lotteryID int64, numbers []int, userID int64) (*models.PurchaseResult, error)

	// ConfirmPayment marks a user's pending tickets paid once the external
	// payment collector reports success; returns how many tickets changed
	ConfirmPayment(ctx context.Context, lotteryID int64, numbers []int, userID int64) (int, error)

	// MyTickets returns the calling user's tickets for a lottery
	MyTickets(ctx context.Context, lotteryID, userID int64) ([]*models.Ticket, error)

	// SoldTickets returns every non-refunded ticket of a lottery
	SoldTickets(ctx context.Context, lotteryID int64) ([]*models.Ticket, error)
}

// WinnerSelector produces winners for a finished, sufficiently subscribed lottery
type WinnerSelector interface {
	// SelectWinners draws or validates winners, marks the winning tickets,
	// records winner rows and marks the lottery finished, atomically.
	// Invocable once per lottery.
	SelectWinners(ctx context.Context, lotteryID int64, method models.SelectionMethod, manualNumbers []int, selectorID int64) (*models.WinnerSet, error)
}
