package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReservationSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	sweeper := NewReservationSweeper(m.factory, time.Minute)

	m.reservationRepo.On("DeleteExpiredBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	err := sweeper.Sweep(ctx)

	assert.NoError(t, err)
	m.reservationRepo.AssertExpectations(t)
	m.uow.AssertCalled(t, "Commit")
}

func TestReservationSweeper_Sweep_Error(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	sweeper := NewReservationSweeper(m.factory, time.Minute)

	m.reservationRepo.On("DeleteExpiredBefore", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("connection reset"))

	err := sweeper.Sweep(ctx)

	assert.Error(t, err)
	m.uow.AssertNotCalled(t, "Commit")
}
