package repository

import (
	"context"
	"testing"
	"time"

	"raffled/models"
	"raffled/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotteryRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLotteryRepository(testDB.DB)

	lottery := testutil.CreateTestDraftLottery(1)
	require.NoError(t, repo.Create(ctx, lottery))
	assert.True(t, lottery.ID > 0)
	assert.False(t, lottery.CreatedAt.IsZero())

	fetched, err := repo.GetByID(ctx, lottery.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, lottery.Title, fetched.Title)
	assert.Equal(t, models.LotteryStatusDraft, fetched.Status)

	missing, err := repo.GetByID(ctx, 999999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLotteryRepository_Update(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLotteryRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, repo.Create(ctx, lottery))

	lottery.Title = "Renamed"
	reason := models.CancelReasonInsufficientParticipants
	lottery.Status = models.LotteryStatusCancelled
	lottery.CancelReason = &reason
	require.NoError(t, repo.Update(ctx, lottery))

	fetched, err := repo.GetByID(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Title)
	assert.Equal(t, models.LotteryStatusCancelled, fetched.Status)
	require.NotNil(t, fetched.CancelReason)
	assert.Equal(t, reason, *fetched.CancelReason)
}

func TestLotteryRepository_MarkFinished(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := NewLotteryRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, repo.Create(ctx, lottery))

	at := time.Now().UTC().Truncate(time.Millisecond)
	ok, err := repo.MarkFinished(ctx, lottery.ID, at)
	require.NoError(t, err)
	assert.True(t, ok)

	fetched, err := repo.GetByID(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusFinished, fetched.Status)
	require.NotNil(t, fetched.WinnerSelectedAt)
	assert.WithinDuration(t, at, *fetched.WinnerSelectedAt, time.Second)

	// second attempt on the same lottery finds it no longer active
	ok, err = repo.MarkFinished(ctx, lottery.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	draft := testutil.CreateTestDraftLottery(1)
	require.NoError(t, repo.Create(ctx, draft))
	ok, err = repo.MarkFinished(ctx, draft.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLotteryRepository_Delete_Cascades(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)
	reservationRepo := NewReservationRepository(testDB.DB)
	winnerRepo := NewWinnerRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	tickets := []*models.Ticket{testutil.CreateTestPaidTicket(lottery.ID, 100, 1)}
	require.NoError(t, ticketRepo.CreateBatch(ctx, tickets))
	require.NoError(t, reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 200, 2),
	}))
	require.NoError(t, winnerRepo.CreateBatch(ctx, []*models.Winner{
		{LotteryID: lottery.ID, TicketID: tickets[0].ID, UserID: 100, TicketNumber: 1},
	}))

	require.NoError(t, lotteryRepo.Delete(ctx, lottery.ID))

	fetched, err := lotteryRepo.GetByID(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)

	remaining, err := ticketRepo.GetByLottery(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	winners, err := winnerRepo.GetByLottery(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Empty(t, winners)
}

func TestLotteryRepository_List_Filters(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)

	active := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, active))

	draft := testutil.CreateTestDraftLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, draft))

	free := testutil.CreateTestLottery(1)
	free.IsFree = true
	free.TicketPrice = 0
	require.NoError(t, lotteryRepo.Create(ctx, free))

	require.NoError(t, ticketRepo.CreateBatch(ctx, []*models.Ticket{
		testutil.CreateTestPaidTicket(active.ID, 700, 1),
	}))

	statusActive := models.LotteryStatusActive
	byStatus, err := lotteryRepo.List(ctx, models.LotteryFilter{Status: &statusActive})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	isFree := true
	byFree, err := lotteryRepo.List(ctx, models.LotteryFilter{IsFree: &isFree})
	require.NoError(t, err)
	require.Len(t, byFree, 1)
	assert.Equal(t, free.ID, byFree[0].ID)

	participant := int64(700)
	byParticipant, err := lotteryRepo.List(ctx, models.LotteryFilter{ParticipantID: &participant})
	require.NoError(t, err)
	require.Len(t, byParticipant, 1)
	assert.Equal(t, active.ID, byParticipant[0].ID)

	limited, err := lotteryRepo.List(ctx, models.LotteryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestWinnerRepository_Roundtrip(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	ticketRepo := NewTicketRepository(testDB.DB)
	winnerRepo := NewWinnerRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	tickets := []*models.Ticket{
		testutil.CreateTestPaidTicket(lottery.ID, 100, 3),
		testutil.CreateTestPaidTicket(lottery.ID, 200, 1),
	}
	require.NoError(t, ticketRepo.CreateBatch(ctx, tickets))

	require.NoError(t, winnerRepo.CreateBatch(ctx, []*models.Winner{
		{LotteryID: lottery.ID, TicketID: tickets[0].ID, UserID: 100, TicketNumber: 3},
		{LotteryID: lottery.ID, TicketID: tickets[1].ID, UserID: 200, TicketNumber: 1},
	}))

	count, err := winnerRepo.CountByLottery(ctx, lottery.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	winners, err := winnerRepo.GetByLottery(ctx, lottery.ID)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	// Ordered by ticket number
	assert.Equal(t, 1, winners[0].TicketNumber)
	assert.Equal(t, 3, winners[1].TicketNumber)

	byUser, err := winnerRepo.GetByUser(ctx, 100)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, lottery.ID, byUser[0].LotteryID)
}
