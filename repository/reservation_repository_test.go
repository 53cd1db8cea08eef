package repository

import (
	"context"
	"testing"
	"time"

	"raffled/models"
	"raffled/repository/testutil"
	"raffled/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationRepository_CreateBatch_Conflict(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	reservationRepo := NewReservationRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	require.NoError(t, reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 100, 5),
	}))

	err := reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 200, 5),
	})
	assert.ErrorIs(t, err, service.ErrTicketNumberTaken)
}

func TestReservationRepository_GetConflicting(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	reservationRepo := NewReservationRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	now := time.Now()
	require.NoError(t, reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 100, 1),
		testutil.CreateTestReservation(lottery.ID, 200, 2),
		testutil.CreateTestExpiredReservation(lottery.ID, 300, 3),
	}))

	// From user 100's point of view: their own hold on 1 does not conflict,
	// user 200's live hold on 2 does, and the expired hold on 3 does not
	conflicts, err := reservationRepo.GetConflicting(ctx, lottery.ID, []int{1, 2, 3}, 100, now)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, conflicts)
}

func TestReservationRepository_DeleteExpired(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	reservationRepo := NewReservationRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	require.NoError(t, reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 100, 1),
		testutil.CreateTestExpiredReservation(lottery.ID, 200, 2),
		testutil.CreateTestExpiredReservation(lottery.ID, 300, 3),
	}))

	purged, err := reservationRepo.DeleteExpired(ctx, lottery.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	// The expired numbers are reservable again
	err = reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 400, 2),
	})
	assert.NoError(t, err)
}

func TestReservationRepository_DeleteByUserNumbers(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	lotteryRepo := NewLotteryRepository(testDB.DB)
	reservationRepo := NewReservationRepository(testDB.DB)

	lottery := testutil.CreateTestLottery(1)
	require.NoError(t, lotteryRepo.Create(ctx, lottery))

	require.NoError(t, reservationRepo.CreateBatch(ctx, []*models.Reservation{
		testutil.CreateTestReservation(lottery.ID, 100, 1),
		testutil.CreateTestReservation(lottery.ID, 100, 2),
		testutil.CreateTestReservation(lottery.ID, 200, 3),
	}))

	require.NoError(t, reservationRepo.DeleteByUserNumbers(ctx, lottery.ID, 100, []int{1, 2}))

	// Only user 200's hold remains
	conflicts, err := reservationRepo.GetConflicting(ctx, lottery.ID, []int{1, 2, 3}, 999, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, conflicts)
}
