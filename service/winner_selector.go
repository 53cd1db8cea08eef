package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"raffled/events"
	"raffled/models"
)

type winnerSelector struct {
	uowFactory UnitOfWorkFactory

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWinnerSelector creates a winner selector whose random draws derive from
// the given seed. Production wiring seeds from the clock; tests pass a fixed
// seed to make draws reproducible.
func NewWinnerSelector(uowFactory UnitOfWorkFactory, seed int64) WinnerSelector {
	return &winnerSelector{
		uowFactory: uowFactory,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// SelectWinners draws or validates winners, marks the winning tickets,
// records winner rows and marks the lottery finished, atomically
func (s *winnerSelector) SelectWinners(ctx context.Context, lotteryID int64, method models.SelectionMethod, manualNumbers []int, selectorID int64) (*models.WinnerSet, error) {
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

	if !lottery.IsActive() {
		return nil, &InvalidStateTransitionError{
			Operation: "select_winners",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
		}
	}

	existing, err := uow.WinnerRepository().CountByLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count winners: %w", err)
	}
	if existing > 0 {
		return nil, ErrWinnersAlreadySelected
	}

	var winning []*models.Ticket
	switch method {
	case models.SelectionMethodManual:
		winning, err = pickManual(ctx, uow, lottery, manualNumbers)
	case models.SelectionMethodRandom:
		winning, err = s.drawRandom(ctx, uow, lottery)
	default:
		err = &ValidationError{Field: "method", Reason: "must be random or manual"}
	}
	if err != nil {
		return nil, err
	}

	ticketIDs := make([]int64, 0, len(winning))
	for _, t := range winning {
		ticketIDs = append(ticketIDs, t.ID)
	}
	if err := uow.TicketRepository().MarkWinners(ctx, ticketIDs); err != nil {
		return nil, fmt.Errorf("failed to mark winning tickets: %w", err)
	}

	winners := make([]*models.Winner, 0, len(winning))
	for _, t := range winning {
		winners = append(winners, &models.Winner{
			LotteryID:    lotteryID,
			TicketID:     t.ID,
			UserID:       t.UserID,
			TicketNumber: t.TicketNumber,
		})
	}
	if err := uow.WinnerRepository().CreateBatch(ctx, winners); err != nil {
		return nil, fmt.Errorf("failed to record winners: %w", err)
	}

	// The active-only transition is the tie-breaker between concurrent
	// finish attempts: the loser matches zero rows and its winner rows
	// are discarded with the rollback.
	finished, err := uow.LotteryRepository().MarkFinished(ctx, lotteryID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark lottery finished: %w", err)
	}
	if !finished {
		return nil, ErrWinnersAlreadySelected
	}

	set := &models.WinnerSet{
		LotteryID: lotteryID,
		Method:    method,
		Winners:   winners,
	}

	winnerUserIDs := make([]int64, 0, len(winners))
	for _, w := range winners {
		winnerUserIDs = append(winnerUserIDs, w.UserID)
	}
	uow.EventBus().Publish(events.LotteryFinishedEvent{
		LotteryID:      lotteryID,
		WinnerNumbers:  set.Numbers(),
		WinnerUserIDs:  winnerUserIDs,
		Method:         string(method),
		SelectedByUser: selectorID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return set, nil
}

// pickManual resolves operator-chosen numbers against the paid tickets
func pickManual(ctx context.Context, uow UnitOfWork, lottery *models.Lottery, numbers []int) ([]*models.Ticket, error) {
	if len(numbers) == 0 {
		return nil, &InvalidWinnerSelectionError{Reason: "manual selection requires at least one number"}
	}
	if len(numbers) > lottery.NumWinners {
		return nil, &InvalidWinnerSelectionError{
			Reason:  fmt.Sprintf("at most %d winners allowed", lottery.NumWinners),
			Numbers: numbers,
		}
	}

	seen := make(map[int]bool, len(numbers))
	var dups []int
	for _, n := range numbers {
		if seen[n] {
			dups = append(dups, n)
		}
		seen[n] = true
	}
	if len(dups) > 0 {
		return nil, &InvalidWinnerSelectionError{Reason: "duplicate numbers", Numbers: dups}
	}

	paid, err := uow.TicketRepository().GetPaidByNumbers(ctx, lottery.ID, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to get paid tickets by number: %w", err)
	}
	byNumber := make(map[int]*models.Ticket, len(paid))
	for _, t := range paid {
		byNumber[t.TicketNumber] = t
	}

	winning := make([]*models.Ticket, 0, len(numbers))
	var missing []int
	for _, n := range numbers {
		t, ok := byNumber[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		winning = append(winning, t)
	}
	if len(missing) > 0 {
		return nil, &InvalidWinnerSelectionError{
			Reason:  "numbers do not belong to paid tickets",
			Numbers: missing,
		}
	}

	return winning, nil
}

// drawRandom shuffles the paid tickets and takes the configured winner count
func (s *winnerSelector) drawRandom(ctx context.Context, uow UnitOfWork, lottery *models.Lottery) ([]*models.Ticket, error) {
	paid, err := uow.TicketRepository().GetPaid(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get paid tickets: %w", err)
	}
	if len(paid) == 0 {
		return nil, &InvalidWinnerSelectionError{Reason: "no paid tickets to draw from"}
	}

	pool := make([]*models.Ticket, len(paid))
	copy(pool, paid)

	s.mu.Lock()
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	s.mu.Unlock()

	count := lottery.NumWinners
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count], nil
}
