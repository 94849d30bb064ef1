package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"gromail/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  lastError TEXT NOT NULL DEFAULT '',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS orders (
  order_number TEXT PRIMARY KEY,
  delivery_date TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  total TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_delivery_date ON orders(delivery_date);

CREATE TABLE IF NOT EXISTS delivered_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_number TEXT NOT NULL,
  item_name TEXT NOT NULL,
  substitution INTEGER NOT NULL DEFAULT 0,
  substituting_item TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  FOREIGN KEY(order_number) REFERENCES orders(order_number)
);
CREATE INDEX IF NOT EXISTS idx_delivered_order ON delivered_items(order_number);

CREATE TABLE IF NOT EXISTS unavailable_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_number TEXT NOT NULL,
  item_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  FOREIGN KEY(order_number) REFERENCES orders(order_number)
);
CREATE INDEX IF NOT EXISTS idx_unavailable_order ON unavailable_items(order_number);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, lastError, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.Error, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, lastError, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.Error, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, lastError = '', updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// MarkEmailFailed records a fatal parse failure against one email so the
// batch can continue with the next file.
func (d *DB) MarkEmailFailed(emailID int, reason string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = 'failed', lastError = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, reason, emailID)
	return err
}

// ReplaceOrder writes one order and its item rows in a single transaction,
// clearing any rows from an earlier run of the same order first so
// reprocessing an email never duplicates items.
func (d *DB) ReplaceOrder(records internal.OrderRecords) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	number := records.Order.OrderNumber
	if _, err := tx.Exec(`DELETE FROM delivered_items WHERE order_number = ?`, number); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM unavailable_items WHERE order_number = ?`, number); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM orders WHERE order_number = ?`, number); err != nil {
		return err
	}

	if _, err := tx.Exec(`
INSERT INTO orders (order_number, delivery_date, subtotal, total)
VALUES (?, ?, ?, ?)
`, number, records.Order.DeliveryDate.Format("2006-01-02"), records.Order.Subtotal.String(), records.Order.Total.String()); err != nil {
		return err
	}

	delivered, err := tx.Prepare(`
INSERT INTO delivered_items (order_number, item_name, substitution, substituting_item, price, quantity, unit_price)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer delivered.Close()
	for _, item := range records.Delivered {
		if _, err := delivered.Exec(
			item.OrderNumber, item.ItemName, boolToInt(item.Substitution), item.SubstitutingItem,
			item.Price.String(), item.Quantity, item.UnitPrice.String(),
		); err != nil {
			return err
		}
	}

	unavailable, err := tx.Prepare(`
INSERT INTO unavailable_items (order_number, item_name, quantity)
VALUES (?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer unavailable.Close()
	for _, item := range records.Unavailable {
		if _, err := unavailable.Exec(item.OrderNumber, item.ItemName, item.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetOrderRecords(orderNumber string) (*internal.OrderRecords, error) {
	var out internal.OrderRecords
	var deliveryDate, subtotal, total string
	err := d.conn.QueryRow(`
SELECT order_number, delivery_date, subtotal, total FROM orders WHERE order_number = ?
`, orderNumber).Scan(&out.Order.OrderNumber, &deliveryDate, &subtotal, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Order.DeliveryDate, err = parseStoredDate(deliveryDate); err != nil {
		return nil, err
	}
	if out.Order.Subtotal, err = parseStoredDecimal("subtotal", subtotal); err != nil {
		return nil, err
	}
	if out.Order.Total, err = parseStoredDecimal("total", total); err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(`
SELECT order_number, item_name, substitution, substituting_item, price, quantity, unit_price
FROM delivered_items WHERE order_number = ? ORDER BY id ASC
`, orderNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item internal.DeliveredItem
		var substitution int
		var price, unit string
		if err := rows.Scan(&item.OrderNumber, &item.ItemName, &substitution, &item.SubstitutingItem, &price, &item.Quantity, &unit); err != nil {
			return nil, err
		}
		item.Substitution = substitution != 0
		if item.Price, err = parseStoredDecimal("price", price); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = parseStoredDecimal("unit_price", unit); err != nil {
			return nil, err
		}
		out.Delivered = append(out.Delivered, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unavailRows, err := d.conn.Query(`
SELECT order_number, item_name, quantity
FROM unavailable_items WHERE order_number = ? ORDER BY id ASC
`, orderNumber)
	if err != nil {
		return nil, err
	}
	defer unavailRows.Close()
	for unavailRows.Next() {
		var item internal.UnavailableItem
		if err := unavailRows.Scan(&item.OrderNumber, &item.ItemName, &item.Quantity); err != nil {
			return nil, err
		}
		out.Unavailable = append(out.Unavailable, item)
	}
	return &out, unavailRows.Err()
}

func (d *DB) ListOrderNumbers() ([]string, error) {
	rows, err := d.conn.Query(`SELECT order_number FROM orders ORDER BY delivery_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		out = append(out, number)
	}
	return out, rows.Err()
}

// MonthlySpend sums order totals by delivery month.
func (d *DB) MonthlySpend() ([]internal.MonthlySpendRow, error) {
	rows, err := d.conn.Query(`
SELECT strftime('%Y-%m', delivery_date) AS month, ROUND(SUM(CAST(total AS REAL)), 2)
FROM orders GROUP BY month ORDER BY month ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MonthlySpendRow
	for rows.Next() {
		var row internal.MonthlySpendRow
		if err := rows.Scan(&row.Month, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeliveryCounts reports, per delivery, how many items were delivered as
// ordered, substituted, or unavailable.
func (d *DB) DeliveryCounts() ([]internal.DeliveryCountsRow, error) {
	rows, err := d.conn.Query(`
SELECT o.delivery_date,
  (SELECT COUNT(*) FROM delivered_items di WHERE di.order_number = o.order_number AND di.substitution = 0),
  (SELECT COUNT(*) FROM delivered_items di WHERE di.order_number = o.order_number AND di.substitution = 1),
  (SELECT COUNT(*) FROM unavailable_items ui WHERE ui.order_number = o.order_number)
FROM orders o
ORDER BY o.delivery_date ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DeliveryCountsRow
	for rows.Next() {
		var row internal.DeliveryCountsRow
		if err := rows.Scan(&row.DeliveryDate, &row.Ordered, &row.Substituted, &row.Unavailable); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func parseStoredDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored delivery_date %q: %w", value, err)
	}
	return parsed, nil
}

func parseStoredDecimal(field, value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stored %s %q: %w", field, value, err)
	}
	return parsed, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
