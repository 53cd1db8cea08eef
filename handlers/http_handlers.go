package handlers

import (
	"net/http"
	"strconv"
	"time"

	"raffled/models"
	"raffled/service"

	"github.com/gin-gonic/gin"
)

// HTTPHandler holds the dependencies for the HTTP handlers
type HTTPHandler struct {
	lotteries service.LotteryService
	tickets   service.TicketService
}

// NewHTTPHandler creates a new HTTPHandler
func NewHTTPHandler(lotteries service.LotteryService, tickets service.TicketService) *HTTPHandler {
	return &HTTPHandler{
		lotteries: lotteries,
		tickets:   tickets,
	}
}

// RegisterRoutes registers all the application routes
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.Use(RequireActor())

	api.GET("/lotteries", h.ListLotteries)
	api.POST("/lotteries", h.CreateLottery)
	api.GET("/lotteries/:id", h.GetLottery)
	api.PATCH("/lotteries/:id", h.UpdateLottery)
	api.DELETE("/lotteries/:id", h.DeleteLottery)
	api.POST("/lotteries/:id/activate", h.ActivateLottery)
	api.POST("/lotteries/:id/finish", h.FinishLottery)
	api.POST("/lotteries/:id/cancel", h.CancelLottery)
	api.GET("/lotteries/:id/winners", h.GetWinners)
	api.GET("/lotteries/:id/stats", h.GetStats)
	api.GET("/lotteries/:id/tickets", h.GetSoldTickets)
	api.GET("/lotteries/:id/tickets/mine", h.GetMyTickets)
	api.POST("/lotteries/:id/reserve", h.ReserveNumbers)
	api.POST("/lotteries/:id/buy", h.BuyTickets)
	api.POST("/lotteries/:id/confirm-payment", h.ConfirmPayment)
	api.GET("/users/me/history", h.GetMyHistory)
}

func lotteryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lottery id"})
		return 0, false
	}
	return id, true
}

type createLotteryRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	ImageURL         string    `json:"image_url"`
	IsFree           bool      `json:"is_free"`
	TicketPrice      int64     `json:"ticket_price"`
	MinTickets       int       `json:"min_tickets" binding:"required"`
	MaxTickets       int       `json:"max_tickets" binding:"required"`
	NumWinners       int       `json:"num_winners" binding:"required"`
	StartDate        time.Time `json:"start_date" binding:"required"`
	EndDate          time.Time `json:"end_date" binding:"required"`
	PrizeDescription string    `json:"prize_description"`
	Terms            string    `json:"terms"`
}

// CreateLottery handles lottery creation; administrator only
func (h *HTTPHandler) CreateLottery(c *gin.Context) {
	var req createLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lottery, err := h.lotteries.Create(c.Request.Context(), getActor(c), service.CreateLotteryParams{
		Title:            req.Title,
		Description:      req.Description,
		ImageURL:         req.ImageURL,
		IsFree:           req.IsFree,
		TicketPrice:      req.TicketPrice,
		MinTickets:       req.MinTickets,
		MaxTickets:       req.MaxTickets,
		NumWinners:       req.NumWinners,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		PrizeDescription: req.PrizeDescription,
		Terms:            req.Terms,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toLotteryResponse(lottery, time.Now()))
}

type updateLotteryRequest struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	ImageURL         *string    `json:"image_url"`
	IsFree           *bool      `json:"is_free"`
	TicketPrice      *int64     `json:"ticket_price"`
	MinTickets       *int       `json:"min_tickets"`
	MaxTickets       *int       `json:"max_tickets"`
	NumWinners       *int       `json:"num_winners"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	PrizeDescription *string    `json:"prize_description"`
	Terms            *string    `json:"terms"`
}

// UpdateLottery handles partial lottery edits
func (h *HTTPHandler) UpdateLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	var req updateLotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lottery, err := h.lotteries.Update(c.Request.Context(), getActor(c), id, service.UpdateLotteryParams{
		Title:            req.Title,
		Description:      req.Description,
		ImageURL:         req.ImageURL,
		IsFree:           req.IsFree,
		TicketPrice:      req.TicketPrice,
		MinTickets:       req.MinTickets,
		MaxTickets:       req.MaxTickets,
		NumWinners:       req.NumWinners,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		PrizeDescription: req.PrizeDescription,
		Terms:            req.Terms,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLotteryResponse(lottery, time.Now()))
}

// GetLottery returns one lottery
func (h *HTTPHandler) GetLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	lottery, err := h.lotteries.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLotteryResponse(lottery, time.Now()))
}

// ListLotteries returns lotteries matching the query filters
func (h *HTTPHandler) ListLotteries(c *gin.Context) {
	var filter models.LotteryFilter

	if raw := c.Query("status"); raw != "" {
		status := models.LotteryStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("is_free"); raw != "" {
		isFree := raw == "true"
		filter.IsFree = &isFree
	}
	if raw := c.Query("participant_id"); raw != "" {
		participantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant_id"})
			return
		}
		filter.ParticipantID = &participantID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		filter.Offset = offset
	}

	lotteries, err := h.lotteries.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lotteries": toLotteryResponses(lotteries, time.Now())})
}

// ActivateLottery transitions a draft lottery to active
func (h *HTTPHandler) ActivateLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	lottery, err := h.lotteries.Activate(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLotteryResponse(lottery, time.Now()))
}

type finishLotteryRequest struct {
	Force         bool   `json:"force"`
	Method        string `json:"method"`
	ManualNumbers []int  `json:"manual_numbers"`
}

// FinishLottery closes a lottery, selecting winners or cancelling it when
// participation fell short
func (h *HTTPHandler) FinishLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	// The request body is optional; an empty body means a plain random finish
	var req finishLotteryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.lotteries.Finish(c.Request.Context(), getActor(c), id, service.FinishParams{
		Force:         req.Force,
		Method:        models.SelectionMethod(req.Method),
		ManualNumbers: req.ManualNumbers,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"outcome": string(result.Outcome),
		"lottery": toLotteryResponse(result.Lottery, time.Now()),
	}
	if result.Winners != nil {
		resp["winners"] = toWinnerResponses(result.Winners.Winners)
		resp["method"] = string(result.Winners.Method)
	} else {
		resp["refunded_tickets"] = result.RefundedTickets
	}

	c.JSON(http.StatusOK, resp)
}

// CancelLottery cancels an active lottery with refunds
func (h *HTTPHandler) CancelLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	result, err := h.lotteries.Cancel(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lottery":              toLotteryResponse(result.Lottery, time.Now()),
		"refunded_tickets":     result.RefundedTickets,
		"removed_reservations": result.RemovedReservations,
	})
}

// DeleteLottery removes a lottery entirely
func (h *HTTPHandler) DeleteLottery(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	result, err := h.lotteries.Delete(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "paid_tickets": result.PaidTickets})
}

// GetWinners returns the declared winners
func (h *HTTPHandler) GetWinners(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	winners, err := h.lotteries.Winners(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"winners": toWinnerResponses(winners)})
}

// GetStats returns the sales aggregates of a lottery
func (h *HTTPHandler) GetStats(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	stats, err := h.lotteries.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lottery_id":          stats.LotteryID,
		"tickets_sold":        stats.TicketsSold,
		"paid_tickets":        stats.PaidTickets,
		"unique_participants": stats.UniqueParticipants,
		"revenue":             stats.Revenue,
		"participation_rate":  stats.ParticipationRate,
	})
}

type numbersRequest struct {
	Numbers []int `json:"numbers" binding:"required"`
}

// ReserveNumbers places short-lived holds on ticket numbers
func (h *HTTPHandler) ReserveNumbers(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	var req numbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservations, err := h.tickets.Reserve(c.Request.Context(), id, req.Numbers, getActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, gin.H{
			"ticket_number": r.TicketNumber,
			"hold_token":    r.HoldToken.String(),
			"expires_at":    r.ExpiresAt,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"reservations": out})
}

// BuyTickets purchases ticket numbers, all or nothing
func (h *HTTPHandler) BuyTickets(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	var req numbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tickets.Purchase(c.Request.Context(), id, req.Numbers, getActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"tickets":          toTicketResponses(result.Tickets),
		"amount_due":       result.AmountDue,
		"payment_required": result.PaymentRequired,
	})
}

// ConfirmPayment marks pending tickets paid after the payment collector
// reports success
func (h *HTTPHandler) ConfirmPayment(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	var req numbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.tickets.ConfirmPayment(c.Request.Context(), id, req.Numbers, getActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"confirmed": updated})
}

// GetMyTickets returns the calling user's tickets for a lottery
func (h *HTTPHandler) GetMyTickets(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	tickets, err := h.tickets.MyTickets(c.Request.Context(), id, getActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": toTicketResponses(tickets)})
}

// GetSoldTickets returns every non-refunded ticket of a lottery
func (h *HTTPHandler) GetSoldTickets(c *gin.Context) {
	id, ok := lotteryID(c)
	if !ok {
		return
	}

	tickets, err := h.tickets.SoldTickets(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": toTicketResponses(tickets)})
}

// GetMyHistory returns the calling user's tickets and wins across lotteries
func (h *HTTPHandler) GetMyHistory(c *gin.Context) {
	history, err := h.lotteries.UserHistory(c.Request.Context(), getActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": history.UserID,
		"tickets": toTicketResponses(history.Tickets),
		"wins":    toWinnerResponses(history.Wins),
	})
}
