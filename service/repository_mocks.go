package service

import (
	"context"
	"time"

	"raffled/events"
	"raffled/models"

	"github.com/stretchr/testify/mock"
)

// MockLotteryRepository is a mock implementation of LotteryRepository
type MockLotteryRepository struct {
	mock.Mock
}

func (m *MockLotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) GetByID(ctx context.Context, id int64) (*models.Lottery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lottery), args.Error(1)
}

func (m *MockLotteryRepository) Update(ctx context.Context, lottery *models.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) MarkFinished(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLotteryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLotteryRepository) List(ctx context.Context, filter models.LotteryFilter) ([]*models.Lottery, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lottery), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) GetNumbersInUse(ctx context.Context, lotteryID int64, numbers []int) ([]int, error) {
	args := m.Called(ctx, lotteryID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockTicketRepository) CountNonTerminalByUser(ctx context.Context, lotteryID, userID int64) (int, error) {
	args := m.Called(ctx, lotteryID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) CountPaid(ctx context.Context, lotteryID int64) (int, error) {
	args := m.Called(ctx, lotteryID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) GetPaid(ctx context.Context, lotteryID int64) ([]*models.Ticket, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetPaidByNumbers(ctx context.Context, lotteryID int64, numbers []int) ([]*models.Ticket, error) {
	args := m.Called(ctx, lotteryID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByUser(ctx context.Context, lotteryID, userID int64) ([]*models.Ticket, error) {
	args := m.Called(ctx, lotteryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetAllByUser(ctx context.Context, userID int64) ([]*models.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Ticket, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkPaid(ctx context.Context, lotteryID int64, numbers []int, userID int64) (int, error) {
	args := m.Called(ctx, lotteryID, numbers, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) RefundPaid(ctx context.Context, lotteryID int64) (int, error) {
	args := m.Called(ctx, lotteryID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) MarkWinners(ctx context.Context, ticketIDs []int64) error {
	args := m.Called(ctx, ticketIDs)
	return args.Error(0)
}

func (m *MockTicketRepository) GetLotteryStats(ctx context.Context, lotteryID int64) (*models.LotteryStats, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LotteryStats), args.Error(1)
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) CreateBatch(ctx context.Context, reservations []*models.Reservation) error {
	args := m.Called(ctx, reservations)
	return args.Error(0)
}

func (m *MockReservationRepository) GetConflicting(ctx context.Context, lotteryID int64, numbers []int, excludeUserID int64, now time.Time) ([]int, error) {
	args := m.Called(ctx, lotteryID, numbers, excludeUserID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockReservationRepository) DeleteExpired(ctx context.Context, lotteryID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, lotteryID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReservationRepository) DeleteByUserNumbers(ctx context.Context, lotteryID, userID int64, numbers []int) error {
	args := m.Called(ctx, lotteryID, userID, numbers)
	return args.Error(0)
}

func (m *MockReservationRepository) DeleteByLottery(ctx context.Context, lotteryID int64) (int64, error) {
	args := m.Called(ctx, lotteryID)
	return args.Get(0).(int64), args.Error(1)
}

// MockWinnerRepository is a mock implementation of WinnerRepository
type MockWinnerRepository struct {
	mock.Mock
}

func (m *MockWinnerRepository) CreateBatch(ctx context.Context, winners []*models.Winner) error {
	args := m.Called(ctx, winners)
	return args.Error(0)
}

func (m *MockWinnerRepository) GetByLottery(ctx context.Context, lotteryID int64) ([]*models.Winner, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Winner), args.Error(1)
}

func (m *MockWinnerRepository) CountByLottery(ctx context.Context, lotteryID int64) (int, error) {
	args := m.Called(ctx, lotteryID)
	return args.Int(0), args.Error(1)
}

func (m *MockWinnerRepository) GetByUser(ctx context.Context, userID int64) ([]*models.Winner, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Winner), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock

	lotteryRepo     LotteryRepository
	ticketRepo      TicketRepository
	reservationRepo ReservationRepository
	winnerRepo      WinnerRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repository mocks returned by the accessors
func (m *MockUnitOfWork) SetRepositories(
	lotteryRepo LotteryRepository,
	ticketRepo TicketRepository,
	reservationRepo ReservationRepository,
	winnerRepo WinnerRepository,
	eventBus EventPublisher,
) {
	m.lotteryRepo = lotteryRepo
	m.ticketRepo = ticketRepo
	m.reservationRepo = reservationRepo
	m.winnerRepo = winnerRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) LotteryRepository() LotteryRepository {
	return m.lotteryRepo
}

func (m *MockUnitOfWork) TicketRepository() TicketRepository {
	return m.ticketRepo
}

func (m *MockUnitOfWork) ReservationRepository() ReservationRepository {
	return m.reservationRepo
}

func (m *MockUnitOfWork) WinnerRepository() WinnerRepository {
	return m.winnerRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
