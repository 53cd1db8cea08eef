package service

import (
	"context"
	"testing"
	"time"

	"raffled/config"
	"raffled/events"
	"raffled/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		ReservationTTL:      300 * time.Second,
		MaxReservationBatch: 5,
		MaxTicketsPerUser:   10,
		Environment:         "test",
	}
}

func TestTicketService_Reserve(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{7, 8}).Return([]int{}, nil)
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{7, 8}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil)
	m.reservationRepo.On("DeleteByUserNumbers", ctx, int64(10), int64(5), []int{7, 8}).Return(nil)
	m.reservationRepo.On("CreateBatch", ctx, mock.MatchedBy(func(rs []*models.Reservation) bool {
		return len(rs) == 2 &&
			rs[0].TicketNumber == 7 &&
			rs[1].TicketNumber == 8 &&
			rs[0].UserID == 5 &&
			rs[0].ExpiresAt.After(time.Now())
	})).Return(nil)

	reservations, err := service.Reserve(ctx, 10, []int{7, 8}, 5)

	assert.NoError(t, err)
	assert.Len(t, reservations, 2)
	assert.NotEqual(t, reservations[0].HoldToken, reservations[1].HoldToken)
	m.assertExpectations(t)
}

func TestTicketService_Reserve_BatchLimit(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.Reserve(ctx, 10, []int{1, 2, 3, 4, 5, 6}, 5)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "numbers", validationErr.Field)
	m.reservationRepo.AssertNotCalled(t, "CreateBatch")
}

func TestTicketService_Reserve_Conflicts(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(1), nil)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{7, 8, 9}).Return([]int{7}, nil)
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{7, 8, 9}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{9}, nil)

	_, err := service.Reserve(ctx, 10, []int{7, 8, 9}, 5)

	var unavailableErr *NumbersUnavailableError
	assert.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, []int{7, 9}, unavailableErr.Numbers)
	m.reservationRepo.AssertNotCalled(t, "CreateBatch")
}

func TestTicketService_Reserve_SaleNotStarted(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	lottery.StartDate = time.Now().Add(time.Hour)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.Reserve(ctx, 10, []int{1}, 5)

	var transitionErr *InvalidStateTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestTicketService_Reserve_NumberOutOfRange(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.Reserve(ctx, 10, []int{101}, 5)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestTicketService_Purchase_Paid(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{3, 4}).Return([]int{}, nil)
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{3, 4}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil)
	m.ticketRepo.On("CountNonTerminalByUser", ctx, int64(10), int64(5)).Return(0, nil)
	m.ticketRepo.On("CreateBatch", ctx, mock.MatchedBy(func(ts []*models.Ticket) bool {
		return len(ts) == 2 &&
			ts[0].PaymentStatus == models.PaymentStatusPending &&
			ts[0].PaymentAmount == 500
	})).Return(nil)
	m.reservationRepo.On("DeleteByUserNumbers", ctx, int64(10), int64(5), []int{3, 4}).Return(nil)
	m.eventBus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		purchased, ok := e.(events.TicketsPurchasedEvent)
		return ok && purchased.AmountDue == 1000 && purchased.PaymentRequired
	}))

	result, err := service.Purchase(ctx, 10, []int{3, 4}, 5)

	assert.NoError(t, err)
	assert.Equal(t, int64(1000), result.AmountDue)
	assert.True(t, result.PaymentRequired)
	assert.Equal(t, []int{3, 4}, result.Numbers())
	m.assertExpectations(t)
}

func TestTicketService_Purchase_Free(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	lottery.IsFree = true
	lottery.TicketPrice = 0
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{3}).Return([]int{}, nil)
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{3}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil)
	m.ticketRepo.On("CountNonTerminalByUser", ctx, int64(10), int64(5)).Return(0, nil)
	m.ticketRepo.On("CreateBatch", ctx, mock.MatchedBy(func(ts []*models.Ticket) bool {
		return len(ts) == 1 && ts[0].PaymentStatus == models.PaymentStatusPaid && ts[0].PaymentAmount == 0
	})).Return(nil)
	m.reservationRepo.On("DeleteByUserNumbers", ctx, int64(10), int64(5), []int{3}).Return(nil)
	m.eventBus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		purchased, ok := e.(events.TicketsPurchasedEvent)
		return ok && purchased.AmountDue == 0 && !purchased.PaymentRequired
	}))

	result, err := service.Purchase(ctx, 10, []int{3}, 5)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.AmountDue)
	assert.False(t, result.PaymentRequired)
	m.assertExpectations(t)
}

func TestTicketService_Purchase_PerUserLimit(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{3, 4}).Return([]int{}, nil)
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{3, 4}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil)
	m.ticketRepo.On("CountNonTerminalByUser", ctx, int64(10), int64(5)).Return(9, nil)

	_, err := service.Purchase(ctx, 10, []int{3, 4}, 5)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	m.ticketRepo.AssertNotCalled(t, "CreateBatch")
}

func TestTicketService_Purchase_RaceLost(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.reservationRepo.On("DeleteExpired", ctx, int64(10), mock.AnythingOfType("time.Time")).Return(int64(0), nil)
	// First conflict read sees nothing, the insert loses the race, the
	// re-read names the number the concurrent purchase grabbed
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{3}).Return([]int{}, nil).Once()
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{3}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil).Once()
	m.ticketRepo.On("CountNonTerminalByUser", ctx, int64(10), int64(5)).Return(0, nil)
	m.ticketRepo.On("CreateBatch", ctx, mock.Anything).Return(ErrTicketNumberTaken)
	m.ticketRepo.On("GetNumbersInUse", ctx, int64(10), []int{3}).Return([]int{3}, nil).Once()
	m.reservationRepo.On("GetConflicting", ctx, int64(10), []int{3}, int64(5), mock.AnythingOfType("time.Time")).Return([]int{}, nil).Once()

	_, err := service.Purchase(ctx, 10, []int{3}, 5)

	var unavailableErr *NumbersUnavailableError
	assert.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, []int{3}, unavailableErr.Numbers)
	m.eventBus.AssertNotCalled(t, "Publish")
}

func TestTicketService_Purchase_DuplicateNumbers(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.Purchase(ctx, 10, []int{3, 3}, 5)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestTicketService_Purchase_SaleEnded(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	lottery.EndDate = time.Now().Add(-time.Minute)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.Purchase(ctx, 10, []int{3}, 5)

	var transitionErr *InvalidStateTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestTicketService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.ticketRepo.On("MarkPaid", ctx, int64(10), []int{3, 4}, int64(5)).Return(2, nil)

	updated, err := service.ConfirmPayment(ctx, 10, []int{3, 4}, 5)

	assert.NoError(t, err)
	assert.Equal(t, 2, updated)
	m.assertExpectations(t)
}

func TestTicketService_ConfirmPayment_TerminalLottery(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	lottery.Status = models.LotteryStatusCancelled
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)

	_, err := service.ConfirmPayment(ctx, 10, []int{3}, 5)

	var transitionErr *InvalidStateTransitionError
	assert.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "confirm_payment", transitionErr.Operation)
	m.ticketRepo.AssertNotCalled(t, "MarkPaid")
}

func TestTicketService_SoldTickets_ExcludesRefunded(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewTicketService(m.factory, testConfig())

	lottery := activeLottery(10)
	m.lotteryRepo.On("GetByID", ctx, int64(10)).Return(lottery, nil)
	m.ticketRepo.On("GetByLottery", ctx, int64(10)).Return([]*models.Ticket{
		{ID: 1, TicketNumber: 1, PaymentStatus: models.PaymentStatusPaid},
		{ID: 2, TicketNumber: 2, PaymentStatus: models.PaymentStatusRefunded},
		{ID: 3, TicketNumber: 3, PaymentStatus: models.PaymentStatusPending},
	}, nil)

	tickets, err := service.SoldTickets(ctx, 10)

	assert.NoError(t, err)
	assert.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.NotEqual(t, models.PaymentStatusRefunded, ticket.PaymentStatus)
	}
	m.assertExpectations(t)
}
