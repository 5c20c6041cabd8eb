package model

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's balance of the marketplace asset. Listing proceeds
// are claimed into it and purchases are paid out of it.
type Wallet struct {
	UserID  int64  `json:"user_id"`
	Balance uint64 `json:"balance"`
}

// Purchase records a completed sale: which item, who bought it, and the
// price charged at that moment. The record outlives the item (claiming
// destroys the item row), so the item name is stored alongside the ID.
type Purchase struct {
	ID          int64     `json:"id"`
	ItemID      uuid.UUID `json:"item_id"`
	ItemName    string    `json:"item_name"`
	BuyerID     int64     `json:"buyer_id"`
	Price       uint64    `json:"price"`
	PurchasedAt time.Time `json:"purchased_at"`

	// Joined field (not always populated).
	BuyerName string `json:"buyer_name,omitempty"`
}
