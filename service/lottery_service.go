package service

import (
	"context"
	"fmt"
	"time"

	"raffled/events"
	"raffled/models"

	log "github.com/sirupsen/logrus"
)

type lotteryService struct {
	uowFactory UnitOfWorkFactory
	selector   WinnerSelector
}

// NewLotteryService creates a new lottery service
func NewLotteryService(uowFactory UnitOfWorkFactory, selector WinnerSelector) LotteryService {
	return &lotteryService{
		uowFactory: uowFactory,
		selector:   selector,
	}
}

// validateLotteryFields checks the cross-field invariants of a lottery
func validateLotteryFields(l *models.Lottery) error {
	if l.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if l.IsFree && l.TicketPrice != 0 {
		return &ValidationError{Field: "ticket_price", Reason: "must be 0 for a free lottery"}
	}
	if !l.IsFree && l.TicketPrice <= 0 {
		return &ValidationError{Field: "ticket_price", Reason: "must be positive for a paid lottery"}
	}
	if l.MinTickets <= 0 {
		return &ValidationError{Field: "min_tickets", Reason: "must be positive"}
	}
	if l.MinTickets > l.MaxTickets {
		return &ValidationError{Field: "min_tickets", Reason: "must not exceed max_tickets"}
	}
	if l.NumWinners <= 0 {
		return &ValidationError{Field: "num_winners", Reason: "must be positive"}
	}
	if l.NumWinners > l.MaxTickets {
		return &ValidationError{Field: "num_winners", Reason: "must not exceed max_tickets"}
	}
	if !l.StartDate.Before(l.EndDate) {
		return &ValidationError{Field: "start_date", Reason: "must be before end_date"}
	}
	return nil
}

// Create creates a new lottery in draft state
func (s *lotteryService) Create(ctx context.Context, actor Actor, params CreateLotteryParams) (*models.Lottery, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	lottery := &models.Lottery{
		Title:            params.Title,
		Description:      params.Description,
		ImageURL:         params.ImageURL,
		IsFree:           params.IsFree,
		TicketPrice:      params.TicketPrice,
		MinTickets:       params.MinTickets,
		MaxTickets:       params.MaxTickets,
		NumWinners:       params.NumWinners,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		Status:           models.LotteryStatusDraft,
		PrizeDescription: params.PrizeDescription,
		Terms:            params.Terms,
		CreatorID:        actor.UserID,
	}

	if err := validateLotteryFields(lottery); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.LotteryRepository().Create(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to create lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return lottery, nil
}

// restrictedEdits returns the restricted fields the update would touch,
// ignoring no-op assignments
func restrictedEdits(l *models.Lottery, params UpdateLotteryParams) []string {
	var touched []string
	if params.IsFree != nil && *params.IsFree != l.IsFree {
		touched = append(touched, "is_free")
	}
	if params.TicketPrice != nil && *params.TicketPrice != l.TicketPrice {
		touched = append(touched, "ticket_price")
	}
	if params.MinTickets != nil && *params.MinTickets != l.MinTickets {
		touched = append(touched, "min_tickets")
	}
	if params.MaxTickets != nil && *params.MaxTickets != l.MaxTickets {
		touched = append(touched, "max_tickets")
	}
	if params.NumWinners != nil && *params.NumWinners != l.NumWinners {
		touched = append(touched, "num_winners")
	}
	return touched
}

func applyLotteryUpdate(l *models.Lottery, params UpdateLotteryParams) {
	if params.Title != nil {
		l.Title = *params.Title
	}
	if params.Description != nil {
		l.Description = *params.Description
	}
	if params.ImageURL != nil {
		l.ImageURL = *params.ImageURL
	}
	if params.IsFree != nil {
		l.IsFree = *params.IsFree
	}
	if params.TicketPrice != nil {
		l.TicketPrice = *params.TicketPrice
	}
	if params.MinTickets != nil {
		l.MinTickets = *params.MinTickets
	}
	if params.MaxTickets != nil {
		l.MaxTickets = *params.MaxTickets
	}
	if params.NumWinners != nil {
		l.NumWinners = *params.NumWinners
	}
	if params.StartDate != nil {
		l.StartDate = *params.StartDate
	}
	if params.EndDate != nil {
		l.EndDate = *params.EndDate
	}
	if params.PrizeDescription != nil {
		l.PrizeDescription = *params.PrizeDescription
	}
	if params.Terms != nil {
		l.Terms = *params.Terms
	}
}

// Update edits lottery fields subject to the restricted-field rule
func (s *lotteryService) Update(ctx context.Context, actor Actor, lotteryID int64, params UpdateLotteryParams) (*models.Lottery, error) {
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

	if lottery.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if lottery.Status == models.LotteryStatusFinished {
		return nil, &InvalidStateTransitionError{
			Operation: "update",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
			Reason:    "a finished lottery cannot be edited",
		}
	}

	// Price, ticket-count and winner-count fields freeze once the lottery is
	// active with at least one paid ticket
	if lottery.IsActive() {
		if touched := restrictedEdits(lottery, params); len(touched) > 0 {
			paid, err := uow.TicketRepository().CountPaid(ctx, lotteryID)
			if err != nil {
				return nil, fmt.Errorf("failed to count paid tickets: %w", err)
			}
			if paid > 0 {
				return nil, &RestrictedFieldError{
					Fields:  touched,
					Allowed: models.EditableFields(),
				}
			}
		}
	}

	applyLotteryUpdate(lottery, params)

	if err := validateLotteryFields(lottery); err != nil {
		return nil, err
	}

	if err := uow.LotteryRepository().Update(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return lottery, nil
}

// Activate transitions a draft lottery to active
func (s *lotteryService) Activate(ctx context.Context, actor Actor, lotteryID int64) (*models.Lottery, error) {
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

	if lottery.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	now := time.Now()
	if !lottery.CanActivate(now) {
		reason := ""
		if lottery.IsDraft() {
			reason = "start_date must be in the future"
		}
		return nil, &InvalidStateTransitionError{
			Operation: "activate",
			Current:   lottery.Status,
			Required:  models.LotteryStatusDraft,
			Reason:    reason,
		}
	}

	lottery.Status = models.LotteryStatusActive
	if err := uow.LotteryRepository().Update(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return lottery, nil
}

// cancel refunds paid tickets, removes reservations and marks the lottery
// cancelled, all inside the given unit of work
func (s *lotteryService) cancel(ctx context.Context, uow UnitOfWork, lottery *models.Lottery, reason string) (*CancelResult, error) {
	refunded, err := uow.TicketRepository().RefundPaid(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refund tickets: %w", err)
	}

	removed, err := uow.ReservationRepository().DeleteByLottery(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove reservations: %w", err)
	}

	lottery.Status = models.LotteryStatusCancelled
	if reason != "" {
		lottery.CancelReason = &reason
	}
	if err := uow.LotteryRepository().Update(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to update lottery: %w", err)
	}

	uow.EventBus().Publish(events.LotteryCancelledEvent{
		LotteryID:       lottery.ID,
		Reason:          reason,
		RefundedTickets: refunded,
	})

	return &CancelResult{
		Lottery:             lottery,
		RefundedTickets:     refunded,
		RemovedReservations: removed,
	}, nil
}

// Cancel cancels an active lottery with refund fan-out
func (s *lotteryService) Cancel(ctx context.Context, actor Actor, lotteryID int64) (*CancelResult, error) {
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

	if lottery.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if !lottery.IsActive() {
		return nil, &InvalidStateTransitionError{
			Operation: "cancel",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
		}
	}

	result, err := s.cancel(ctx, uow, lottery, "")
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// Finish closes a lottery. When the paid ticket count falls short of
// min_tickets the finish degrades to cancellation with zero winners; this
// overrides a forced finish.
func (s *lotteryService) Finish(ctx context.Context, actor Actor, lotteryID int64, params FinishParams) (*FinishResult, error) {
	if params.Force && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	method := params.Method
	if method == "" {
		method = models.SelectionMethodRandom
	}
	if method != models.SelectionMethodRandom && method != models.SelectionMethodManual {
		return nil, &ValidationError{Field: "method", Reason: "must be random or manual"}
	}

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

	if lottery.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	if !lottery.IsActive() {
		return nil, &InvalidStateTransitionError{
			Operation: "finish",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
		}
	}

	now := time.Now()
	if !params.Force && !lottery.SaleEnded(now) {
		return nil, &InvalidStateTransitionError{
			Operation: "finish",
			Current:   lottery.Status,
			Required:  models.LotteryStatusActive,
			Reason:    "end_date has not passed",
		}
	}

	paid, err := uow.TicketRepository().CountPaid(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid tickets: %w", err)
	}

	if paid < lottery.MinTickets {
		cancelResult, err := s.cancel(ctx, uow, lottery, models.CancelReasonInsufficientParticipants)
		if err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &FinishResult{
			Lottery:         cancelResult.Lottery,
			Outcome:         FinishOutcomeInsufficientParticipation,
			RefundedTickets: cancelResult.RefundedTickets,
		}, nil
	}

	// Enough participation: release the pre-check transaction and hand over
	// to the winner selector, which re-validates and finishes atomically
	if err := uow.Rollback(); err != nil {
		return nil, fmt.Errorf("failed to release transaction: %w", err)
	}

	winners, err := s.selector.SelectWinners(ctx, lotteryID, method, params.ManualNumbers, actor.UserID)
	if err != nil {
		return nil, err
	}

	finished, err := s.Get(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	return &FinishResult{
		Lottery: finished,
		Outcome: FinishOutcomeWinnersSelected,
		Winners: winners,
	}, nil
}

// Delete removes a lottery and everything hanging off it
func (s *lotteryService) Delete(ctx context.Context, actor Actor, lotteryID int64) (*DeleteResult, error) {
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

	if lottery.CreatorID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	paid, err := uow.TicketRepository().CountPaid(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to count paid tickets: %w", err)
	}

	if err := uow.LotteryRepository().Delete(ctx, lotteryID); err != nil {
		return nil, fmt.Errorf("failed to delete lottery: %w", err)
	}

	uow.EventBus().Publish(events.LotteryDeletedEvent{
		LotteryID:   lotteryID,
		DeletedBy:   actor.UserID,
		PaidTickets: paid,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if paid > 0 {
		log.WithFields(log.Fields{
			"lotteryID":   lotteryID,
			"deletedBy":   actor.UserID,
			"paidTickets": paid,
		}).Warn("Deleted lottery that had paid tickets")
	}

	return &DeleteResult{PaidTickets: paid}, nil
}

// Get returns one lottery
func (s *lotteryService) Get(ctx context.Context, lotteryID int64) (*models.Lottery, error) {
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

	return lottery, nil
}

// List returns lotteries matching a filter
func (s *lotteryService) List(ctx context.Context, filter models.LotteryFilter) ([]*models.Lottery, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lotteries, err := uow.LotteryRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list lotteries: %w", err)
	}

	return lotteries, nil
}

// Winners returns the declared winners of a lottery
func (s *lotteryService) Winners(ctx context.Context, lotteryID int64) ([]*models.Winner, error) {
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

	winners, err := uow.WinnerRepository().GetByLottery(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}

	return winners, nil
}

// Stats aggregates read-side numbers for a lottery
func (s *lotteryService) Stats(ctx context.Context, lotteryID int64) (*models.LotteryStats, error) {
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

	stats, err := uow.TicketRepository().GetLotteryStats(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery stats: %w", err)
	}

	if lottery.MaxTickets > 0 {
		stats.ParticipationRate = float64(stats.TicketsSold) / float64(lottery.MaxTickets)
	}

	return stats, nil
}

// UserHistory returns a user's tickets and wins across lotteries
func (s *lotteryService) UserHistory(ctx context.Context, userID int64) (*models.UserLotteryHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().GetAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user tickets: %w", err)
	}

	wins, err := uow.WinnerRepository().GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user wins: %w", err)
	}

	return &models.UserLotteryHistory{
		UserID:  userID,
		Tickets: tickets,
		Wins:    wins,
	}, nil
}
