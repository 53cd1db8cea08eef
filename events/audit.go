package events

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// RegisterAuditLogger subscribes handlers that write every lifecycle event
// to the structured log, so each purchase, draw, cancellation and deletion
// leaves an audit trail.
func RegisterAuditLogger(bus *Bus) {
	bus.Subscribe(EventTypeTicketsPurchased, func(ctx context.Context, event Event) {
		e, ok := event.(TicketsPurchasedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"lotteryID":       e.LotteryID,
			"userID":          e.UserID,
			"numbers":         e.Numbers,
			"amountDue":       e.AmountDue,
			"paymentRequired": e.PaymentRequired,
		}).Info("Tickets purchased")
	})

	bus.Subscribe(EventTypeLotteryFinished, func(ctx context.Context, event Event) {
		e, ok := event.(LotteryFinishedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"lotteryID":      e.LotteryID,
			"winnerNumbers":  e.WinnerNumbers,
			"winnerUserIDs":  e.WinnerUserIDs,
			"method":         e.Method,
			"selectedByUser": e.SelectedByUser,
		}).Info("Lottery finished")
	})

	bus.Subscribe(EventTypeLotteryCancelled, func(ctx context.Context, event Event) {
		e, ok := event.(LotteryCancelledEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"lotteryID":       e.LotteryID,
			"reason":          e.Reason,
			"refundedTickets": e.RefundedTickets,
		}).Info("Lottery cancelled")
	})

	bus.Subscribe(EventTypeLotteryDeleted, func(ctx context.Context, event Event) {
		e, ok := event.(LotteryDeletedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"lotteryID":   e.LotteryID,
			"deletedBy":   e.DeletedBy,
			"paidTickets": e.PaidTickets,
		}).Info("Lottery deleted")
	})
}
