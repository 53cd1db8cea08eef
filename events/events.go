package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTicketsPurchased EventType = "tickets_purchased"
	EventTypeLotteryFinished  EventType = "lottery_finished"
	EventTypeLotteryCancelled EventType = "lottery_cancelled"
	EventTypeLotteryDeleted   EventType = "lottery_deleted"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TicketsPurchasedEvent represents tickets recorded for a user
type TicketsPurchasedEvent struct {
	LotteryID       int64
	UserID          int64
	Numbers         []int
	AmountDue       int64
	PaymentRequired bool
}

func (e TicketsPurchasedEvent) Type() EventType {
	return EventTypeTicketsPurchased
}

// LotteryFinishedEvent represents a lottery that finished with winners
type LotteryFinishedEvent struct {
	LotteryID      int64
	WinnerNumbers  []int
	WinnerUserIDs  []int64
	Method         string
	SelectedByUser int64
}

func (e LotteryFinishedEvent) Type() EventType {
	return EventTypeLotteryFinished
}

// LotteryCancelledEvent represents a cancelled lottery and its refund fan-out
type LotteryCancelledEvent struct {
	LotteryID       int64
	Reason          string
	RefundedTickets int
}

func (e LotteryCancelledEvent) Type() EventType {
	return EventTypeLotteryCancelled
}

// LotteryDeletedEvent represents a hard deletion, recorded for audit
type LotteryDeletedEvent struct {
	LotteryID   int64
	DeletedBy   int64
	PaidTickets int
}

func (e LotteryDeletedEvent) Type() EventType {
	return EventTypeLotteryDeleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus over the real bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Use background context for event emission so handlers outlive the
	// request that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
