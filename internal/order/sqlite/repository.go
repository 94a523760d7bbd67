// Package sqlite provides the SQLite-backed order repository.
//
// ApplyStatus puts the state-machine guard into the UPDATE's WHERE clause,
// so the guard check and the status write are one atomic statement: of two
// concurrent transitions on the same order, exactly one sees rows affected.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/karigari/order-engine/internal/order"
	"github.com/karigari/order-engine/internal/pkg/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id                  TEXT PRIMARY KEY,
    order_number        TEXT    NOT NULL UNIQUE,
    user_id             TEXT    NOT NULL,
    subtotal            INTEGER NOT NULL CHECK (subtotal >= 0),
    shipping_cost       INTEGER NOT NULL CHECK (shipping_cost >= 0),
    tax                 INTEGER NOT NULL CHECK (tax >= 0),
    discount            INTEGER NOT NULL DEFAULT 0 CHECK (discount >= 0),
    total               INTEGER NOT NULL CHECK (total >= 0),
    shipping_address    TEXT    NOT NULL,
    payment_method      TEXT    NOT NULL,
    payment_status      TEXT    NOT NULL,
    payment_id          TEXT    NOT NULL DEFAULT '',
    status              TEXT    NOT NULL,
    tracking_number     TEXT    NOT NULL DEFAULT '',
    notes               TEXT    NOT NULL DEFAULT '',
    is_gift             INTEGER NOT NULL DEFAULT 0,
    gift_message        TEXT    NOT NULL DEFAULT '',
    delivered_at        TEXT,
    cancelled_at        TEXT,
    cancellation_reason TEXT    NOT NULL DEFAULT '',
    created_at          TEXT    NOT NULL,
    updated_at          TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at);

CREATE TABLE IF NOT EXISTS order_items (
    order_id   TEXT    NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    product_id TEXT    NOT NULL,
    name       TEXT    NOT NULL,
    price      INTEGER NOT NULL CHECK (price >= 0),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    artisan_id TEXT    NOT NULL DEFAULT '',
    image      TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS order_status_history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    status     TEXT NOT NULL,
    note       TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
`

type Repository struct {
	db *sql.DB
}

// New applies the order schema and returns the repository.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply order schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Insert(ctx context.Context, o *order.Order) error {
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("sqlite: encode address of %s: %w", o.OrderNumber, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin insert order: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
			(id, order_number, user_id, subtotal, shipping_cost, tax, discount,
			 total, shipping_address, payment_method, payment_status, payment_id,
			 status, tracking_number, notes, is_gift, gift_message,
			 delivered_at, cancelled_at, cancellation_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.Subtotal, o.ShippingCost, o.Tax,
		o.Discount, o.Total, string(address), string(o.PaymentMethod),
		string(o.PaymentStatus), o.PaymentID, string(o.Status), o.TrackingNumber,
		o.Notes, boolToInt(o.IsGift), o.GiftMessage,
		nullableTime(o.DeliveredAt), nullableTime(o.CancelledAt),
		o.CancellationReason, sqlitedb.FormatTime(o.CreatedAt),
		sqlitedb.FormatTime(o.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "orders.order_number") {
			return order.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("sqlite: insert order %s: %w", o.OrderNumber, err)
	}

	for i, it := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items
				(order_id, position, product_id, name, price, quantity, artisan_id, image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.ArtisanID, it.Image)
		if err != nil {
			return fmt.Errorf("sqlite: insert item %d of %s: %w", i, o.OrderNumber, err)
		}
	}

	for _, h := range o.StatusHistory {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_status_history (order_id, status, note, created_at)
			VALUES (?, ?, ?, ?)`,
			o.ID, string(h.Status), h.Note, sqlitedb.FormatTime(h.Timestamp))
		if err != nil {
			return fmt.Errorf("sqlite: insert history of %s: %w", o.OrderNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit insert order %s: %w", o.OrderNumber, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	// Children go via ON DELETE CASCADE (foreign_keys pragma is on).
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %q: %w", id, err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order %q: %w", id, err)
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) List(ctx context.Context, q order.ListQuery) ([]*order.Order, int, error) {
	where, args := "", []any{}
	if q.UserID != "" {
		where = ` WHERE user_id = ?`
		args = append(args, q.UserID)
	}

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: count orders: %w", err)
	}

	// Sort columns are whitelisted; user input never reaches the SQL text.
	col := "created_at"
	if q.SortBy == "total" {
		col = "total"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	query := fmt.Sprintf(`%s%s ORDER BY %s %s, id LIMIT ? OFFSET ?`, selectOrder, where, col, dir)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, o := range out {
		if err := r.loadChildren(ctx, o); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *Repository) ApplyStatus(ctx context.Context, orderID string, upd order.StatusUpdate) (bool, error) {
	if len(upd.AllowedFrom) == 0 {
		return false, fmt.Errorf("sqlite: status update without guard")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin status update: %w", err)
	}
	defer tx.Rollback()

	now := sqlitedb.FormatTime(time.Now())

	guard := make([]string, len(upd.AllowedFrom))
	args := []any{
		string(upd.To), now,
		upd.TrackingNumber, upd.TrackingNumber,
		nullableTime(upd.DeliveredAt),
		nullableTime(upd.CancelledAt),
		upd.CancellationReason, upd.CancellationReason,
		string(upd.PaymentStatus), string(upd.PaymentStatus),
		orderID,
	}
	for i, s := range upd.AllowedFrom {
		guard[i] = "?"
		args = append(args, string(s))
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			status              = ?,
			updated_at          = ?,
			tracking_number     = CASE WHEN ? != '' THEN ? ELSE tracking_number END,
			delivered_at        = COALESCE(?, delivered_at),
			cancelled_at        = COALESCE(?, cancelled_at),
			cancellation_reason = CASE WHEN ? != '' THEN ? ELSE cancellation_reason END,
			payment_status      = CASE WHEN ? != '' THEN ? ELSE payment_status END
		WHERE id = ? AND status IN (`+strings.Join(guard, ",")+`)`,
		args...)
	if err != nil {
		return false, fmt.Errorf("sqlite: update status of %q: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Guard rejected, or no such order. Tell them apart.
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, orderID).Scan(&one)
		if err == sql.ErrNoRows {
			return false, order.ErrNotFound
		}
		if err != nil {
			return false, fmt.Errorf("sqlite: check order %q: %w", orderID, err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, note, created_at)
		VALUES (?, ?, ?, ?)`,
		orderID, string(upd.To), upd.Note, now)
	if err != nil {
		return false, fmt.Errorf("sqlite: append history of %q: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit status update of %q: %w", orderID, err)
	}
	return true, nil
}

const selectOrder = `
	SELECT id, order_number, user_id, subtotal, shipping_cost, tax, discount,
	       total, shipping_address, payment_method, payment_status, payment_id,
	       status, tracking_number, notes, is_gift, gift_message,
	       delivered_at, cancelled_at, cancellation_reason, created_at, updated_at
	FROM   orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var address, createdAt, updatedAt string
	var deliveredAt, cancelledAt sql.NullString
	var isGift int

	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal,
		&o.ShippingCost, &o.Tax, &o.Discount, &o.Total, &address,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentID, &o.Status,
		&o.TrackingNumber, &o.Notes, &isGift, &o.GiftMessage,
		&deliveredAt, &cancelledAt, &o.CancellationReason,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	o.IsGift = isGift != 0
	if err := json.Unmarshal([]byte(address), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode address of %s: %w", o.OrderNumber, err)
	}
	if o.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	if o.DeliveredAt, err = parseNullTime(deliveredAt); err != nil {
		return nil, err
	}
	if o.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) loadChildren(ctx context.Context, o *order.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity, artisan_id, image
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load items of %s: %w", o.OrderNumber, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity,
			&it.ArtisanID, &it.Image); err != nil {
			return fmt.Errorf("sqlite: scan item of %s: %w", o.OrderNumber, err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	hrows, err := r.db.QueryContext(ctx, `
		SELECT status, note, created_at
		FROM   order_status_history
		WHERE  order_id = ?
		ORDER  BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load history of %s: %w", o.OrderNumber, err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var h order.HistoryEntry
		var ts string
		if err := hrows.Scan(&h.Status, &h.Note, &ts); err != nil {
			return fmt.Errorf("sqlite: scan history of %s: %w", o.OrderNumber, err)
		}
		if h.Timestamp, err = sqlitedb.ParseTime(ts); err != nil {
			return err
		}
		o.StatusHistory = append(o.StatusHistory, h)
	}
	return hrows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return sqlitedb.FormatTime(*t)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := sqlitedb.ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
