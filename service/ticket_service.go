package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffled/config"
	"raffled/events"
	"raffled/models"

	"github.com/google/uuid"
)

type ticketService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewTicketService creates a new ticket service
func NewTicketService(uowFactory UnitOfWorkFactory, cfg *config.Config) TicketService {
	return &ticketService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// validateNumbers checks shape only: non-empty, within the batch limit,
// no duplicates, every number inside the lottery's range
func validateNumbers(lottery *models.Lottery, numbers []int, maxBatch int) error {
	if len(numbers) == 0 {
		return &ValidationError{Field: "numbers", Reason: "must not be empty"}
	}
	if maxBatch > 0 && len(numbers) > maxBatch {
		return &ValidationError{Field: "numbers", Reason: fmt.Sprintf("at most %d numbers per request", maxBatch)}
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return &ValidationError{Field: "numbers", Reason: fmt.Sprintf("duplicate number %d", n)}
		}
		seen[n] = true
		if !lottery.ValidNumber(n) {
			return &ValidationError{Field: "numbers", Reason: fmt.Sprintf("number %d is outside 1..%d", n, lottery.MaxTickets)}
		}
	}
	return nil
}

// loadSaleWindow fetches the lottery and verifies it is accepting sales
func loadSaleWindow(ctx context.Context, uow UnitOfWork, lotteryID int64, now time.Time) (*models.Lottery, error) {
	lottery, err := uow.LotteryRepository().GetByID(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery == nil {
		return nil, ErrLotteryNotFound
	}
	if !lottery.InSaleWindow(now) {
		reason := ""
		if lottery.IsActive() {
			if now.Before(lottery.StartDate) {
				reason = "sale has not started"
			} else {
				reason = "sale has ended"
			}
		}
		return nil, &InvalidStateTransitionError{
			Operation: "sell",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
			Reason:    reason,
		}
	}
	return lottery, nil
}

// unavailableNumbers merges ledger and reservation conflicts for the numbers
func unavailableNumbers(ctx context.Context, uow UnitOfWork, lotteryID int64, numbers []int, userID int64, now time.Time) ([]int, error) {
	inUse, err := uow.TicketRepository().GetNumbersInUse(ctx, lotteryID, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to check numbers in use: %w", err)
	}
	held, err := uow.ReservationRepository().GetConflicting(ctx, lotteryID, numbers, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check reservations: %w", err)
	}

	taken := make(map[int]bool, len(inUse)+len(held))
	for _, n := range inUse {
		taken[n] = true
	}
	for _, n := range held {
		taken[n] = true
	}

	var conflicts []int
	for _, n := range numbers {
		if taken[n] {
			conflicts = append(conflicts, n)
		}
	}
	return conflicts, nil
}

// Reserve places short-lived holds on the given numbers
func (s *ticketService) Reserve(ctx context.Context, lotteryID int64, numbers []int, userID int64) ([]*models.Reservation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now()
	lottery, err := loadSaleWindow(ctx, uow, lotteryID, now)
	if err != nil {
		return nil, err
	}

	if err := validateNumbers(lottery, numbers, s.cfg.MaxReservationBatch); err != nil {
		return nil, err
	}

	if _, err := uow.ReservationRepository().DeleteExpired(ctx, lotteryID, now); err != nil {
		return nil, fmt.Errorf("failed to purge expired reservations: %w", err)
	}

	conflicts, err := unavailableNumbers(ctx, uow, lotteryID, numbers, userID, now)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &NumbersUnavailableError{Numbers: conflicts}
	}

	// Re-reserving numbers the user already holds refreshes the TTL
	if err := uow.ReservationRepository().DeleteByUserNumbers(ctx, lotteryID, userID, numbers); err != nil {
		return nil, fmt.Errorf("failed to refresh reservations: %w", err)
	}

	expiresAt := now.Add(s.cfg.ReservationTTL)
	reservations := make([]*models.Reservation, 0, len(numbers))
	for _, n := range numbers {
		reservations = append(reservations, &models.Reservation{
			LotteryID:    lotteryID,
			TicketNumber: n,
			UserID:       userID,
			HoldToken:    uuid.New(),
			ExpiresAt:    expiresAt,
		})
	}

	if err := uow.ReservationRepository().CreateBatch(ctx, reservations); err != nil {
		if errors.Is(err, ErrTicketNumberTaken) {
			return nil, &NumbersUnavailableError{Numbers: numbers}
		}
		return nil, fmt.Errorf("failed to create reservations: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return reservations, nil
}

// Purchase records tickets for the given numbers, all or nothing
func (s *ticketService) Purchase(ctx context.Context, lotteryID int64, numbers []int, userID int64) (*models.PurchaseResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now()
	lottery, err := loadSaleWindow(ctx, uow, lotteryID, now)
	if err != nil {
		return nil, err
	}

	if err := validateNumbers(lottery, numbers, 0); err != nil {
		return nil, err
	}

	if _, err := uow.ReservationRepository().DeleteExpired(ctx, lotteryID, now); err != nil {
		return nil, fmt.Errorf("failed to purge expired reservations: %w", err)
	}

	conflicts, err := unavailableNumbers(ctx, uow, lotteryID, numbers, userID, now)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &NumbersUnavailableError{Numbers: conflicts}
	}

	if s.cfg.MaxTicketsPerUser > 0 {
		owned, err := uow.TicketRepository().CountNonTerminalByUser(ctx, lotteryID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count user tickets: %w", err)
		}
		if owned+len(numbers) > s.cfg.MaxTicketsPerUser {
			return nil, &ValidationError{
				Field:  "numbers",
				Reason: fmt.Sprintf("would exceed the per-user limit of %d tickets", s.cfg.MaxTicketsPerUser),
			}
		}
	}

	status := models.PaymentStatusPending
	amountPer := lottery.TicketPrice
	if lottery.IsFree {
		status = models.PaymentStatusPaid
		amountPer = 0
	}

	tickets := make([]*models.Ticket, 0, len(numbers))
	for _, n := range numbers {
		tickets = append(tickets, &models.Ticket{
			LotteryID:     lotteryID,
			UserID:        userID,
			TicketNumber:  n,
			PaymentAmount: amountPer,
			PaymentStatus: status,
		})
	}

	// The partial unique index is the backstop for purchases racing past the
	// conflict read above; translate its rejection back into the exact
	// unavailable-numbers answer a fresh check would give
	if err := uow.TicketRepository().CreateBatch(ctx, tickets); err != nil {
		if errors.Is(err, ErrTicketNumberTaken) {
			uow.Rollback()
			return nil, s.unavailableAfterRace(ctx, lotteryID, numbers, userID)
		}
		return nil, fmt.Errorf("failed to create tickets: %w", err)
	}

	// Holds are consumed by the purchase
	if err := uow.ReservationRepository().DeleteByUserNumbers(ctx, lotteryID, userID, numbers); err != nil {
		return nil, fmt.Errorf("failed to consume reservations: %w", err)
	}

	amountDue := int64(0)
	if !lottery.IsFree {
		amountDue = lottery.TicketPrice * int64(len(numbers))
	}

	uow.EventBus().Publish(events.TicketsPurchasedEvent{
		LotteryID:       lotteryID,
		UserID:          userID,
		Numbers:         numbers,
		AmountDue:       amountDue,
		PaymentRequired: !lottery.IsFree,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.PurchaseResult{
		Tickets:         tickets,
		AmountDue:       amountDue,
		PaymentRequired: !lottery.IsFree,
	}, nil
}

// unavailableAfterRace re-reads conflicts in a fresh transaction after the
// unique index rejected an insert, so the caller learns which numbers to drop
func (s *ticketService) unavailableAfterRace(ctx context.Context, lotteryID int64, numbers []int, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return &NumbersUnavailableError{Numbers: numbers}
	}
	defer uow.Rollback()

	conflicts, err := unavailableNumbers(ctx, uow, lotteryID, numbers, userID, time.Now())
	if err != nil || len(conflicts) == 0 {
		return &NumbersUnavailableError{Numbers: numbers}
	}
	return &NumbersUnavailableError{Numbers: conflicts}
}

// ConfirmPayment marks a user's pending tickets paid
func (s *ticketService) ConfirmPayment(ctx context.Context, lotteryID int64, numbers []int, userID int64) (int, error) {
	if len(numbers) == 0 {
		return 0, &ValidationError{Field: "numbers", Reason: "must not be empty"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := uow.LotteryRepository().GetByID(ctx, lotteryID)
	if err != nil {
		return 0, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery == nil {
		return 0, ErrLotteryNotFound
	}
	if lottery.IsTerminal() {
		return 0, &InvalidStateTransitionError{
			Operation: "confirm_payment",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
		}
	}

	updated, err := uow.TicketRepository().MarkPaid(ctx, lotteryID, numbers, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark tickets paid: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// MyTickets returns the calling user's tickets for a lottery
func (s *ticketService) MyTickets(ctx context.Context, lotteryID, userID int64) ([]*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().GetByUser(ctx, lotteryID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	return tickets, nil
}

// SoldTickets returns every non-refunded ticket of a lottery
func (s *ticketService) SoldTickets(ctx context.Context, lotteryID int64) ([]*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lottery, err := uow.LotteryRepository().GetByID(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery == nil {
		return nil, ErrLotteryNotFound
	}

	tickets, err := uow.TicketRepository().GetByLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	sold := make([]*models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.PaymentStatus != models.PaymentStatusRefunded {
			sold = append(sold, t)
		}
	}

	return sold, nil
}
