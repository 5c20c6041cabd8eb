// Package events defines the notifications the marketplace emits and the
// sink they are delivered to. Emission is fire-and-forget: the operations
// never wait on or read back from a sink, but they do emit synchronously so
// that events from one invocation are ordered before its return.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is a marketplace notification.
type Event interface {
	Kind() string
}

// ItemListed is emitted when a new item is listed.
type ItemListed struct {
	ItemID     uuid.UUID `json:"item_id"`
	Name       string    `json:"name"`
	BasePrice  uint64    `json:"base_price"`
	ExpiresAt  uint64    `json:"expires_at"`
	ProviderID int64     `json:"provider_id"`
}

func (ItemListed) Kind() string { return "item_listed" }

// ItemPurchased is emitted when a purchase completes, carrying the price
// actually charged.
type ItemPurchased struct {
	ItemID  uuid.UUID `json:"item_id"`
	BuyerID int64     `json:"buyer_id"`
	Price   uint64    `json:"price"`
}

func (ItemPurchased) Kind() string { return "item_purchased" }

// Sink receives emitted events. Implementations must not fail the emitting
// operation; by the time an event is emitted the operation has committed.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "marketplace event", "kind", event.Kind(), "event", event)
}

// Recorder collects emitted events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything emitted so far, in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
