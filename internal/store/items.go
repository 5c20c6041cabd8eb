package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/model"
)

const itemColumns = `id, name, description, image_mime, provider_id, base_price, expires_at, active, balance, created_at`

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id uuid.UUID) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id.String(),
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all listed items, optionally only those from one provider.
func ListItems(ctx context.Context, db *sql.DB, providerID int64) ([]model.Item, error) {
	var rows *sql.Rows
	var err error

	if providerID > 0 {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE provider_id = ? ORDER BY created_at DESC`,
			providerID,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id uuid.UUID, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ? WHERE id = ?`,
		image, mime, id.String(),
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id uuid.UUID) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id.String(),
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var id string
	var description, imageMime sql.NullString
	var basePrice, expiresAt, balance int64
	err := s.Scan(&id, &item.Name, &description, &imageMime, &item.ProviderID,
		&basePrice, &expiresAt, &item.Active, &balance, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing item id %q: %w", id, err)
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	item.BasePrice = uint64(basePrice)
	item.ExpiresAt = uint64(expiresAt)
	item.Balance = uint64(balance)
	return item, nil
}
