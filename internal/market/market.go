// Package market implements the marketplace core: listing perishable items,
// pricing them against their expiration, purchasing at the effective price,
// and claiming accrued proceeds with a provider capability.
//
// Each operation runs in a single transaction, so a failed invocation leaves
// no observable effect, and SQLite's writer serialization keeps operations
// on the same item from interleaving.
package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/events"
	"github.com/erazemk/trznica/internal/model"
)

// ListItem creates a new listing and its provider capability. The item is
// visible to everyone from this point on; the capability is returned only
// here and is the sole authorization for claiming proceeds. There are no
// preconditions on basePrice or expiresAt: a zero price or an expiration in
// the past are accepted as listed.
func ListItem(ctx context.Context, db *sql.DB, sink events.Sink, providerID int64, name, description string, basePrice, expiresAt uint64) (*model.Item, *model.ProviderCap, error) {
	itemID := uuid.New()
	capID := uuid.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, name, description, provider_id, base_price, expires_at, active, balance)
		 VALUES (?, ?, ?, ?, ?, ?, 1, 0)`,
		itemID.String(), name, description, providerID, int64(basePrice), int64(expiresAt),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO provider_caps (id, item_id) VALUES (?, ?)`,
		capID.String(), itemID.String(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating provider capability: %w", err)
	}

	item, err := getItemTx(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}

	capability := &model.ProviderCap{ID: capID, ItemID: itemID}
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM provider_caps WHERE id = ?`, capID.String(),
	).Scan(&capability.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("reading provider capability: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing listing: %w", err)
	}

	sink.Emit(ctx, events.ItemListed{
		ItemID:     item.ID,
		Name:       item.Name,
		BasePrice:  item.BasePrice,
		ExpiresAt:  item.ExpiresAt,
		ProviderID: item.ProviderID,
	})

	return item, capability, nil
}

// PurchaseItem charges the effective price at now against the buyer's
// wallet and accrues it on the item. The buyer offers payment units; the
// price is carved out of the offer and the change is returned to the
// wallet, so wallet + item balance is conserved exactly. Returns the change.
//
// Deliberately not idempotent: every successful call charges again, which
// is how multiple buyers accumulate proceeds on a shared listing.
func PurchaseItem(ctx context.Context, db *sql.DB, sink events.Sink, itemID uuid.UUID, buyerID int64, payment, now uint64) (uint64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItemTx(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}
	if !item.Active {
		return 0, ErrItemNotAvailable
	}

	price, err := Price(item.BasePrice, item.ExpiresAt, now)
	if err != nil {
		return 0, err
	}

	// Withdraw the offer from the buyer's wallet.
	wallet, err := getWalletTx(ctx, tx, buyerID)
	if err != nil {
		return 0, err
	}
	wallet, offer, err := wallet.Split(payment)
	if err != nil {
		return 0, fmt.Errorf("withdrawing payment: %w", err)
	}

	// Carve the price out of the offer; the rest is change.
	change, paid, err := offer.Split(price)
	if err != nil {
		return 0, ErrInsufficientPayment
	}

	balance, err := MergeFunds(NewFunds(item.Balance), paid)
	if err != nil {
		return 0, fmt.Errorf("accruing proceeds: %w", err)
	}
	wallet, err = MergeFunds(wallet, change)
	if err != nil {
		return 0, fmt.Errorf("returning change: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET balance = ? WHERE id = ?`,
		int64(balance.Value()), itemID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("updating item balance: %w", err)
	}

	if err := setWalletTx(ctx, tx, buyerID, wallet); err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchases (item_id, item_name, buyer_id, price) VALUES (?, ?, ?, ?)`,
		itemID.String(), item.Name, buyerID, int64(price),
	)
	if err != nil {
		return 0, fmt.Errorf("recording purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purchase: %w", err)
	}

	sink.Emit(ctx, events.ItemPurchased{
		ItemID:  itemID,
		BuyerID: buyerID,
		Price:   price,
	})

	return change.Value(), nil
}

// ClaimEarnings redeems an item's accrued balance into the claimant's
// wallet. The presented capability must be bound to the item; possession is
// the only authorization check. Item and capability are destroyed together
// in the same transaction, so a claim can succeed at most once and the
// pairing is never observable half-destroyed. Returns the proceeds.
func ClaimEarnings(ctx context.Context, db *sql.DB, sink events.Sink, itemID, capID uuid.UUID, claimantID int64) (uint64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var boundItemID string
	err = tx.QueryRowContext(ctx,
		`SELECT item_id FROM provider_caps WHERE id = ?`, capID.String(),
	).Scan(&boundItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidCap
	}
	if err != nil {
		return 0, fmt.Errorf("looking up provider capability: %w", err)
	}
	if boundItemID != itemID.String() {
		return 0, ErrCapMismatch
	}

	item, err := getItemTx(ctx, tx, itemID)
	if err != nil {
		return 0, err
	}

	proceeds := NewFunds(item.Balance)

	wallet, err := getWalletTx(ctx, tx, claimantID)
	if err != nil {
		return 0, err
	}
	wallet, err = MergeFunds(wallet, proceeds)
	if err != nil {
		return 0, fmt.Errorf("crediting proceeds: %w", err)
	}
	if err := setWalletTx(ctx, tx, claimantID, wallet); err != nil {
		return 0, err
	}

	// Destroy the capability before the item it references.
	if _, err := tx.ExecContext(ctx, `DELETE FROM provider_caps WHERE id = ?`, capID.String()); err != nil {
		return 0, fmt.Errorf("destroying provider capability: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID.String()); err != nil {
		return 0, fmt.Errorf("destroying item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing claim: %w", err)
	}

	return proceeds.Value(), nil
}

// getItemTx loads an item inside a transaction.
func getItemTx(ctx context.Context, tx *sql.Tx, itemID uuid.UUID) (*model.Item, error) {
	item := &model.Item{ID: itemID}
	var description, imageMime sql.NullString
	var basePrice, expiresAt, balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT name, description, image_mime, provider_id, base_price, expires_at, active, balance, created_at
		 FROM items WHERE id = ?`, itemID.String(),
	).Scan(&item.Name, &description, &imageMime, &item.ProviderID,
		&basePrice, &expiresAt, &item.Active, &balance, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	item.BasePrice = uint64(basePrice)
	item.ExpiresAt = uint64(expiresAt)
	item.Balance = uint64(balance)
	return item, nil
}

// getWalletTx loads a user's wallet balance inside a transaction. A missing
// row is an empty wallet.
func getWalletTx(ctx context.Context, tx *sql.Tx, userID int64) (Funds, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ?`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ZeroFunds(), nil
	}
	if err != nil {
		return Funds{}, fmt.Errorf("getting wallet: %w", err)
	}
	return NewFunds(uint64(balance)), nil
}

// setWalletTx writes a user's wallet balance inside a transaction.
func setWalletTx(ctx context.Context, tx *sql.Tx, userID int64, wallet Funds) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET balance = excluded.balance`,
		userID, int64(wallet.Value()),
	)
	if err != nil {
		return fmt.Errorf("updating wallet: %w", err)
	}
	return nil
}
