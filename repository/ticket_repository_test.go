package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"raffled/models"
	"raffled/repository/testutil"
	"raffled/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository_CreateBatch_UniqueNumbers(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	err := ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestTicket(lottery.ID, 100, 7),
		testutil.CreateTestTicket(lottery.ID, 100, 8),
	})
	require.NoError(t, err)

	// Same number again from another user hits the partial unique index
	err = ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestTicket(lottery.ID, 200, 7),
	})
	assert.ErrorIs(t, err, service.ErrTicketNumberTaken)

	// A refunded ticket frees its number
	refunded, err := ticketRepo.RefundPaid(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refunded) // tickets are still pending

	_, err = ticketRepo.MarkPaid(ctx, lottery.ID, []int{7}, 100)
	require.NoError(t, err)
	refunded, err = ticketRepo.RefundPaid(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refunded)

	err = ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestTicket(lottery.ID, 200, 7),
	})
	assert.NoError(t, err)
}

func TestTicketRepository_ConcurrentPurchase_OneWins(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ticketRepo.CreateBatch(ctx, []*models.Ticket{
				testutil.CreateTestTicket(lottery.ID, int64(100+i), 42),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, service.ErrTicketNumberTaken), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	inUse, err := ticketRepo.GetNumbersInUse(ctx, lottery.ID, []int{42})
	require.NoError(t, err)
	assert.Equal(t, []int{42}, inUse)
}

func TestTicketRepository_GetNumbersInUse(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	require.NoError(t, ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestTicket(lottery.ID, 100, 1),
		testutil.CreateTestPaidTicket(lottery.ID, 100, 2),
	}))

	inUse, err := ticketRepo.GetNumbersInUse(ctx, lottery.ID, []int{1, 2, 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, inUse)
}

func TestTicketRepository_GetLotteryStats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	require.NoError(t, ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestPaidTicket(lottery.ID, 100, 1),
		testutil.CreateTestPaidTicket(lottery.ID, 100, 2),
		testutil.CreateTestPaidTicket(lottery.ID, 200, 3),
		testutil.CreateTestTicket(lottery.ID, 300, 4),
	}))

	stats, err := ticketRepo.GetLotteryStats(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TicketsSold)
	assert.Equal(t, 3, stats.PaidTickets)
	assert.Equal(t, 3, stats.UniqueParticipants)
	assert.Equal(t, int64(1500), stats.Revenue)
}

func TestTicketRepository_MarkWinners(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	tickets := []*models.Ticket{
		testutil.CreateTestPaidTicket(lottery.ID, 100, 1),
		testutil.CreateTestPaidTicket(lottery.ID, 200, 2),
	}
	require.NoError(t, ticketRepo.CreateBatch(ctx, tickets))

	require.NoError(t, ticketRepo.MarkWinners(ctx, []int64{tickets[0].ID}))

	paid, err := ticketRepo.GetPaid(ctx, lottery.ID)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	assert.True(t, paid[0].IsWinner)
	assert.False(t, paid[1].IsWinner)
}
