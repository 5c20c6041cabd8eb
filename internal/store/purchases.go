package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/model"
)

// ListPurchases returns purchase records, optionally filtered by item or
// buyer. Records survive the item they reference, so they carry the item
// name from the time of sale.
func ListPurchases(ctx context.Context, db *sql.DB, itemID uuid.UUID, buyerID int64) ([]model.Purchase, error) {
	query := `SELECT p.id, p.item_id, p.item_name, p.buyer_id, p.price, p.purchased_at,
	                 u.username AS buyer_name
	          FROM purchases p
	          JOIN users u ON u.id = p.buyer_id
	          WHERE 1=1`
	var args []any

	if itemID != uuid.Nil {
		query += ` AND p.item_id = ?`
		args = append(args, itemID.String())
	}
	if buyerID > 0 {
		query += ` AND p.buyer_id = ?`
		args = append(args, buyerID)
	}

	query += ` ORDER BY p.purchased_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var rawItemID string
		var price int64
		if err := rows.Scan(&p.ID, &rawItemID, &p.ItemName, &p.BuyerID, &price, &p.PurchasedAt, &p.BuyerName); err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		p.ItemID, err = uuid.Parse(rawItemID)
		if err != nil {
			return nil, fmt.Errorf("parsing purchase item id %q: %w", rawItemID, err)
		}
		p.Price = uint64(price)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// GetItemHistory returns the purchase history for one item.
func GetItemHistory(ctx context.Context, db *sql.DB, itemID uuid.UUID) ([]model.Purchase, error) {
	return ListPurchases(ctx, db, itemID, 0)
}
