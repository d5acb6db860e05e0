package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

const orderColumns = `id, local_id, order_id, status, total_items, total_units, notes, exported_at,
	ordered_at, received_at, applied_at, declined_at, seq, created_at, updated_at`

// InsertOrder writes a new order together with its lines.
func (t *Tx) InsertOrder(ctx context.Context, accountID string, o model.Order) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO orders
		(id, account_id, local_id, order_id, status, total_items, total_units, notes, exported_at,
		 ordered_at, received_at, applied_at, declined_at, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, accountID, o.LocalID, o.OrderID, string(o.Status), o.TotalItems, o.TotalUnits,
		nullString(o.Notes), formatTime(o.ExportedAt), formatTimePtr(o.OrderedAt),
		formatTimePtr(o.ReceivedAt), formatTimePtr(o.AppliedAt), formatTimePtr(o.DeclinedAt),
		seq, formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	if err := insertLines(ctx, t.tx, o.ID, o.Items); err != nil {
		return 0, err
	}
	return seq, nil
}

// UpdateOrder overwrites every mutable column of a live order. When
// replaceLines is set the stored lines are replaced by o.Items.
func (t *Tx) UpdateOrder(ctx context.Context, accountID string, o model.Order, replaceLines bool) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET order_id = ?, status = ?, total_items = ?, total_units = ?, notes = ?, exported_at = ?,
		    ordered_at = ?, received_at = ?, applied_at = ?, declined_at = ?, seq = ?, updated_at = ?
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`,
		o.OrderID, string(o.Status), o.TotalItems, o.TotalUnits, nullString(o.Notes),
		formatTime(o.ExportedAt), formatTimePtr(o.OrderedAt), formatTimePtr(o.ReceivedAt),
		formatTimePtr(o.AppliedAt), formatTimePtr(o.DeclinedAt), seq, formatTime(o.UpdatedAt),
		accountID, o.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update order: %w", err)
	}
	if err := requireOneRow(res); err != nil {
		return 0, err
	}
	if replaceLines {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, o.ID); err != nil {
			return 0, fmt.Errorf("update order: clear lines: %w", err)
		}
		if err := insertLines(ctx, t.tx, o.ID, o.Items); err != nil {
			return 0, err
		}
	}
	return seq, nil
}

// GetOrder returns a live order with its lines.
func (t *Tx) GetOrder(ctx context.Context, accountID, id string) (model.Order, error) {
	return getOrder(ctx, t.tx, accountID, id)
}

// GetOrder returns a live order with its lines outside a transaction.
func (s *Store) GetOrder(ctx context.Context, accountID, id string) (model.Order, error) {
	return getOrder(ctx, s.db, accountID, id)
}

// OrderIDExists reports whether any order row, in any account and live or
// not, already uses orderID.
func (t *Tx) OrderIDExists(ctx context.Context, orderID string) (bool, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE order_id = ?`, orderID).Scan(&n); err != nil {
		return false, fmt.Errorf("order id exists: %w", err)
	}
	return n > 0, nil
}

func getOrder(ctx context.Context, q querier, accountID, id string) (model.Order, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, accountID, id)
	o, _, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	if o.Items, err = loadLines(ctx, q, o.ID); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func insertLines(ctx context.Context, q querier, orderID string, lines []model.OrderLine) error {
	for i, l := range lines {
		_, err := q.ExecContext(ctx, `
			INSERT INTO order_lines
			(order_id, position, item_id, name, brand, unit, quantity, current_stock, minimum_stock,
			 image_uri, supplier_name, purchase_link)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			orderID, i, l.ItemID, l.Name, nullString(l.Brand), l.Unit, l.Quantity, l.CurrentStock,
			l.MinimumStock, nullString(l.ImageURI), nullString(l.SupplierName), nullString(l.PurchaseLink),
		)
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}
	return nil
}

func loadLines(ctx context.Context, q querier, orderID string) ([]model.OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT item_id, name, brand, unit, quantity, current_stock, minimum_stock,
		       image_uri, supplier_name, purchase_link
		FROM order_lines
		WHERE order_id = ?
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := []model.OrderLine{}
	for rows.Next() {
		var (
			l                            model.OrderLine
			brand, image, supplier, link sql.NullString
		)
		if err := rows.Scan(&l.ItemID, &l.Name, &brand, &l.Unit, &l.Quantity, &l.CurrentStock,
			&l.MinimumStock, &image, &supplier, &link); err != nil {
			return nil, fmt.Errorf("load order lines: scan: %w", err)
		}
		l.Brand = stringPtr(brand)
		l.ImageURI = stringPtr(image)
		l.SupplierName = stringPtr(supplier)
		l.PurchaseLink = stringPtr(link)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanOrder(row rowScanner) (model.Order, int64, error) {
	var (
		o                                model.Order
		status, exported                 string
		notes                            sql.NullString
		ordered, received, applied, decl sql.NullString
		seq                              int64
		created, updated                 string
	)
	err := row.Scan(
		&o.ID, &o.LocalID, &o.OrderID, &status, &o.TotalItems, &o.TotalUnits, &notes, &exported,
		&ordered, &received, &applied, &decl, &seq, &created, &updated,
	)
	if err != nil {
		return model.Order{}, 0, err
	}
	o.Status = model.OrderStatus(status)
	o.Notes = stringPtr(notes)
	if o.ExportedAt, err = parseTime(exported); err != nil {
		return model.Order{}, 0, err
	}
	if o.OrderedAt, err = parseTimePtr(ordered); err != nil {
		return model.Order{}, 0, err
	}
	if o.ReceivedAt, err = parseTimePtr(received); err != nil {
		return model.Order{}, 0, err
	}
	if o.AppliedAt, err = parseTimePtr(applied); err != nil {
		return model.Order{}, 0, err
	}
	if o.DeclinedAt, err = parseTimePtr(decl); err != nil {
		return model.Order{}, 0, err
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return model.Order{}, 0, err
	}
	if o.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Order{}, 0, err
	}
	return o, seq, nil
}
