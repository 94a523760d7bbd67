// Package sqlite provides the SQLite-backed catalog repository.
//
// The conditional decrement is a single UPDATE with the stock check in its
// WHERE clause, so two concurrent reservations against the same product
// serialise in the store and can never drive stock negative.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/karigari/order-engine/internal/catalog"
	"github.com/karigari/order-engine/internal/pkg/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id           TEXT PRIMARY KEY,
    name         TEXT    NOT NULL,
    description  TEXT    NOT NULL DEFAULT '',
    price        INTEGER NOT NULL CHECK (price >= 0),
    stock        INTEGER NOT NULL CHECK (stock >= 0),
    sales_count  INTEGER NOT NULL DEFAULT 0,
    images       TEXT    NOT NULL DEFAULT '[]',
    artisan_id   TEXT    NOT NULL DEFAULT '',
    is_active    INTEGER NOT NULL DEFAULT 1,
    created_at   TEXT    NOT NULL
);

-- One row per live reservation. Release consumes the row, so a reservation
-- can be credited back at most once regardless of how often release runs.
CREATE TABLE IF NOT EXISTS stock_reservations (
    order_number TEXT    NOT NULL,
    product_id   TEXT    NOT NULL REFERENCES products(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    created_at   TEXT    NOT NULL,
    PRIMARY KEY (order_number, product_id)
);
`

type Repository struct {
	db *sql.DB
}

// New applies the catalog schema and returns the repository.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply catalog schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Insert stores a product row. Product CRUD belongs to the catalog service;
// this exists for seeding and tests.
func (r *Repository) Insert(ctx context.Context, p *catalog.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("sqlite: encode images of %q: %w", p.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products
			(id, name, description, price, stock, sales_count, images,
			 artisan_id, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.SalesCount,
		string(images), p.ArtisanID, boolToInt(p.IsActive),
		sqlitedb.FormatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert product %q: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	const q = `
		SELECT id, name, description, price, stock, sales_count, images,
		       artisan_id, is_active, created_at
		FROM   products
		WHERE  id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, catalog.ErrProductUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find product %q: %w", id, err)
	}
	return p, nil
}

func (r *Repository) FindActiveByIDs(ctx context.Context, ids []string) ([]*catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := `
		SELECT id, name, description, price, stock, sales_count, images,
		       artisan_id, is_active, created_at
		FROM   products
		WHERE  is_active = 1 AND id IN (?` + repeat(",?", len(ids)-1) + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find active products: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ConditionalDecrement(ctx context.Context, productID string, qty int, orderNumber string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin reserve: %w", err)
	}
	defer tx.Rollback()

	// The stock >= qty predicate is the whole point: check and decrement in
	// one statement, no read-then-write window.
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET    stock = stock - ?, sales_count = sales_count + ?
		WHERE  id = ? AND is_active = 1 AND stock >= ?`,
		qty, qty, productID, qty)
	if err != nil {
		return false, fmt.Errorf("sqlite: decrement stock of %q: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_reservations (order_number, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?)`,
		orderNumber, productID, qty, sqlitedb.FormatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("sqlite: record reservation %s/%s: %w", orderNumber, productID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit reserve: %w", err)
	}
	return true, nil
}

func (r *Repository) ReleaseReservation(ctx context.Context, orderNumber, productID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin release: %w", err)
	}
	defer tx.Rollback()

	var qty int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM stock_reservations
		WHERE  order_number = ? AND product_id = ?`,
		orderNumber, productID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: read reservation %s/%s: %w", orderNumber, productID, err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM stock_reservations
		WHERE  order_number = ? AND product_id = ?`,
		orderNumber, productID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: consume reservation %s/%s: %w", orderNumber, productID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET    stock = stock + ?, sales_count = sales_count - ?
		WHERE  id = ?`,
		qty, qty, productID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: restore stock of %q: %w", productID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit release: %w", err)
	}
	return qty, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	var p catalog.Product
	var images, createdAt string
	var active int

	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.SalesCount, &images, &p.ArtisanID, &active, &createdAt)
	if err != nil {
		return nil, err
	}

	p.IsActive = active != 0
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images of %q: %w", p.ID, err)
	}
	p.CreatedAt, err = sqlitedb.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
