package testutil

import (
	"time"

	"raffled/models"

	"github.com/google/uuid"
)

// CreateTestLottery creates an active lottery whose sale window is open
func CreateTestLottery(creatorID int64) *models.Lottery {
	now := time.Now()
	return &models.Lottery{
		Title:       "Test raffle",
		IsFree:      false,
		TicketPrice: 500,
		MinTickets:  2,
		MaxTickets:  100,
		NumWinners:  3,
		StartDate:   now.Add(-time.Hour),
		EndDate:     now.Add(24 * time.Hour),
		Status:      models.LotteryStatusActive,
		CreatorID:   creatorID,
	}
}

// CreateTestDraftLottery creates a draft lottery starting in the future
func CreateTestDraftLottery(creatorID int64) *models.Lottery {
	lottery := CreateTestLottery(creatorID)
	lottery.Status = models.LotteryStatusDraft
	lottery.StartDate = time.Now().Add(time.Hour)
	return lottery
}

// CreateTestTicket creates a pending ticket for the given number
func CreateTestTicket(lotteryID, userID int64, number int) *models.Ticket {
	return &models.Ticket{
		LotteryID:     lotteryID,
		UserID:        userID,
		TicketNumber:  number,
		PaymentStatus: models.PaymentStatusPending,
		PaymentAmount: 500,
	}
}

// CreateTestPaidTicket creates a paid ticket for the given number
func CreateTestPaidTicket(lotteryID, userID int64, number int) *models.Ticket {
	ticket := CreateTestTicket(lotteryID, userID, number)
	ticket.PaymentStatus = models.PaymentStatusPaid
	return ticket
}

// CreateTestReservation creates a reservation expiring in the future
func CreateTestReservation(lotteryID, userID int64, number int) *models.Reservation {
	return &models.Reservation{
		LotteryID:    lotteryID,
		TicketNumber: number,
		UserID:       userID,
		HoldToken:    uuid.New(),
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
}

// CreateTestExpiredReservation creates a reservation that has already lapsed
func CreateTestExpiredReservation(lotteryID, userID int64, number int) *models.Reservation {
	r := CreateTestReservation(lotteryID, userID, number)
	r.ExpiresAt = time.Now().Add(-time.Minute)
	return r
}
