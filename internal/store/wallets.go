package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/trznica/internal/model"
)

// GetWallet returns a user's wallet. A missing row is an empty wallet.
func GetWallet(ctx context.Context, db *sql.DB, userID int64) (*model.Wallet, error) {
	w := &model.Wallet{UserID: userID}
	var balance int64
	err := db.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ?`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting wallet: %w", err)
	}
	w.Balance = uint64(balance)
	return w, nil
}

// CreditWallet adds amount to a user's wallet. This is how value enters the
// marketplace; moving value between wallets is the market operations' job.
func CreditWallet(ctx context.Context, db *sql.DB, userID int64, amount uint64) (*model.Wallet, error) {
	if amount == 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET balance = balance + excluded.balance`,
		userID, int64(amount),
	)
	if err != nil {
		return nil, fmt.Errorf("crediting wallet: %w", err)
	}

	return GetWallet(ctx, db, userID)
}
