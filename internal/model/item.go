package model

import (
	"time"

	"github.com/google/uuid"
)

// Item represents one listed unit of perishable inventory together with the
// proceeds it has accrued. Listed items are visible to every user; only the
// holder of the matching ProviderCap can claim the balance.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageMime   string    `json:"image_mime,omitempty"`
	ProviderID  int64     `json:"provider_id"`
	BasePrice   uint64    `json:"base_price"`
	ExpiresAt   uint64    `json:"expires_at"`
	Active      bool      `json:"active"`
	Balance     uint64    `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProviderCap authorizes claiming an item's accrued balance. Its ID is
// returned exactly once, when the item is listed; whoever presents it may
// claim. It is bound to a single item and destroyed together with it.
type ProviderCap struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
