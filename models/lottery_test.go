package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLottery_DisplayStatus(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    LotteryStatus
		startDate time.Time
		endDate   time.Time
		expected  DisplayStatus
	}{
		{"draft stays draft", LotteryStatusDraft, now.Add(time.Hour), now.Add(48 * time.Hour), DisplayStatusDraft},
		{"active before start", LotteryStatusActive, now.Add(time.Hour), now.Add(48 * time.Hour), DisplayStatusPending},
		{"active inside window", LotteryStatusActive, now.Add(-time.Hour), now.Add(time.Hour), DisplayStatusRunning},
		{"active past end", LotteryStatusActive, now.Add(-48 * time.Hour), now.Add(-time.Hour), DisplayStatusOverdue},
		{"finished", LotteryStatusFinished, now.Add(-48 * time.Hour), now.Add(-time.Hour), DisplayStatusFinished},
		{"cancelled", LotteryStatusCancelled, now.Add(-48 * time.Hour), now.Add(-time.Hour), DisplayStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Lottery{
				Status:    tt.status,
				StartDate: tt.startDate,
				EndDate:   tt.endDate,
			}
			assert.Equal(t, tt.expected, l.DisplayStatus(now))
		})
	}
}

func TestLottery_CanActivate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	draft := &Lottery{Status: LotteryStatusDraft, StartDate: now.Add(time.Hour)}
	assert.True(t, draft.CanActivate(now))

	started := &Lottery{Status: LotteryStatusDraft, StartDate: now.Add(-time.Minute)}
	assert.False(t, started.CanActivate(now))

	active := &Lottery{Status: LotteryStatusActive, StartDate: now.Add(time.Hour)}
	assert.False(t, active.CanActivate(now))
}

func TestLottery_InSaleWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	l := &Lottery{
		Status:    LotteryStatusActive,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}
	assert.True(t, l.InSaleWindow(now))
	assert.False(t, l.InSaleWindow(now.Add(-2*time.Hour)))
	assert.False(t, l.InSaleWindow(now.Add(2*time.Hour)))

	l.Status = LotteryStatusDraft
	assert.False(t, l.InSaleWindow(now))
}

func TestLottery_ValidNumber(t *testing.T) {
	l := &Lottery{MaxTickets: 50}

	assert.True(t, l.ValidNumber(1))
	assert.True(t, l.ValidNumber(50))
	assert.False(t, l.ValidNumber(0))
	assert.False(t, l.ValidNumber(51))
	assert.False(t, l.ValidNumber(-3))
}

func TestReservation_IsExpired(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	live := &Reservation{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, live.IsExpired(now))

	expired := &Reservation{ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, expired.IsExpired(now))
}
