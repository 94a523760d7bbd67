// Package sqlite provides the SQLite-backed cart repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/karigari/order-engine/internal/cart"
	"github.com/karigari/order-engine/internal/pkg/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_items (
    user_id    TEXT    NOT NULL,
    product_id TEXT    NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    updated_at TEXT    NOT NULL,
    PRIMARY KEY (user_id, product_id)
);
`

type Repository struct {
	db *sql.DB
}

// New applies the cart schema and returns the repository.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply cart schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Items(ctx context.Context, userID string) ([]cart.Item, error) {
	const q = `
		SELECT product_id, quantity
		FROM   cart_items
		WHERE  user_id = ?
		ORDER  BY updated_at, product_id`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load cart of %q: %w", userID, err)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan cart line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) Upsert(ctx context.Context, userID string, item cart.Item) error {
	// Per-line upsert rather than whole-cart replace, so concurrent writes
	// to different lines of the same cart cannot lose each other.
	const q = `
		INSERT INTO cart_items (user_id, product_id, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, q, userID, item.ProductID, item.Quantity,
		sqlitedb.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("sqlite: upsert cart line %q/%q: %w", userID, item.ProductID, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, productID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`,
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete cart line %q/%q: %w", userID, productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: clear cart of %q: %w", userID, err)
	}
	return nil
}
