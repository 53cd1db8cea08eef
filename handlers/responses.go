package handlers

import (
	"errors"
	"net/http"
	"time"

	"raffled/models"
	"raffled/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps the service error taxonomy onto HTTP status codes.
// Validation problems are 400, state and availability conflicts are 409,
// anything unrecognized is a logged 500.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var restrictedErr *service.RestrictedFieldError
	var selectionErr *service.InvalidWinnerSelectionError
	var transitionErr *service.InvalidStateTransitionError
	var unavailableErr *service.NumbersUnavailableError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &restrictedErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             restrictedErr.Error(),
			"restricted_fields": restrictedErr.Fields,
			"editable_fields":   restrictedErr.Allowed,
		})
	case errors.As(err, &selectionErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": selectionErr.Error(), "numbers": selectionErr.Numbers})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
	case errors.As(err, &unavailableErr):
		c.JSON(http.StatusConflict, gin.H{"error": unavailableErr.Error(), "unavailable_numbers": unavailableErr.Numbers})
	case errors.Is(err, service.ErrWinnersAlreadySelected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLotteryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// lotteryResponse is the wire shape of a lottery; status carries the derived
// display label rather than the persisted state
type lotteryResponse struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	IsFree           bool       `json:"is_free"`
	TicketPrice      int64      `json:"ticket_price"`
	MinTickets       int        `json:"min_tickets"`
	MaxTickets       int        `json:"max_tickets"`
	NumWinners       int        `json:"num_winners"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	Status           string     `json:"status"`
	PrizeDescription string     `json:"prize_description,omitempty"`
	Terms            string     `json:"terms,omitempty"`
	CreatorID        int64      `json:"creator_id"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	WinnerSelectedAt *time.Time `json:"winner_selected_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toLotteryResponse(l *models.Lottery, now time.Time) lotteryResponse {
	return lotteryResponse{
		ID:               l.ID,
		Title:            l.Title,
		Description:      l.Description,
		ImageURL:         l.ImageURL,
		IsFree:           l.IsFree,
		TicketPrice:      l.TicketPrice,
		MinTickets:       l.MinTickets,
		MaxTickets:       l.MaxTickets,
		NumWinners:       l.NumWinners,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
		Status:           string(l.DisplayStatus(now)),
		PrizeDescription: l.PrizeDescription,
		Terms:            l.Terms,
		CreatorID:        l.CreatorID,
		CancelReason:     l.CancelReason,
		WinnerSelectedAt: l.WinnerSelectedAt,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func toLotteryResponses(lotteries []*models.Lottery, now time.Time) []lotteryResponse {
	out := make([]lotteryResponse, 0, len(lotteries))
	for _, l := range lotteries {
		out = append(out, toLotteryResponse(l, now))
	}
	return out
}

type ticketResponse struct {
	ID            int64     `json:"id"`
	LotteryID     int64     `json:"lottery_id"`
	TicketNumber  int       `json:"ticket_number"`
	UserID        int64     `json:"user_id"`
	PaymentStatus string    `json:"payment_status"`
	PaymentAmount int64     `json:"payment_amount"`
	IsWinner      bool      `json:"is_winner"`
	PurchaseDate  time.Time `json:"purchase_date"`
}

func toTicketResponses(tickets []*models.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketResponse{
			ID:            t.ID,
			LotteryID:     t.LotteryID,
			TicketNumber:  t.TicketNumber,
			UserID:        t.UserID,
			PaymentStatus: string(t.PaymentStatus),
			PaymentAmount: t.PaymentAmount,
			IsWinner:      t.IsWinner,
			PurchaseDate:  t.PurchaseDate,
		})
	}
	return out
}

type winnerResponse struct {
	ID           int64     `json:"id"`
	LotteryID    int64     `json:"lottery_id"`
	TicketID     int64     `json:"ticket_id"`
	UserID       int64     `json:"user_id"`
	TicketNumber int       `json:"ticket_number"`
	DeclaredAt   time.Time `json:"declared_at"`
}

func toWinnerResponses(winners []*models.Winner) []winnerResponse {
	out := make([]winnerResponse, 0, len(winners))
	for _, w := range winners {
		out = append(out, winnerResponse{
			ID:           w.ID,
			LotteryID:    w.LotteryID,
			TicketID:     w.TicketID,
			UserID:       w.UserID,
			TicketNumber: w.TicketNumber,
			DeclaredAt:   w.DeclaredAt,
		})
	}
	return out
}
