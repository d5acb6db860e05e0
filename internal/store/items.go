package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

const itemColumns = `id, local_id, group_id, name, description, quantity, unit, minimum_stock,
	expiry_date, brand, notes, supplier_name, supplier_contact, purchase_link, image_uri,
	is_active, is_critical, seq, created_at, updated_at`

// InsertItem writes a new item and returns the seq it was stamped with.
func (t *Tx) InsertItem(ctx context.Context, accountID string, it model.Item) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO items
		(id, account_id, local_id, group_id, name, description, quantity, unit, minimum_stock,
		 expiry_date, brand, notes, supplier_name, supplier_contact, purchase_link, image_uri,
		 is_active, is_critical, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID, accountID, it.LocalID, nullString(it.GroupID), it.Name, nullString(it.Description),
		it.Quantity, it.Unit, it.MinimumStock, nullString(it.ExpiryDate), nullString(it.Brand),
		nullString(it.Notes), nullString(it.SupplierName), nullString(it.SupplierContact),
		nullString(it.PurchaseLink), nullString(it.ImageURI), it.IsActive, it.IsCritical,
		seq, formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return seq, nil
}

// UpdateItem overwrites every mutable column of a live item.
func (t *Tx) UpdateItem(ctx context.Context, accountID string, it model.Item) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET group_id = ?, name = ?, description = ?, quantity = ?, unit = ?, minimum_stock = ?,
		    expiry_date = ?, brand = ?, notes = ?, supplier_name = ?, supplier_contact = ?,
		    purchase_link = ?, image_uri = ?, is_active = ?, is_critical = ?, seq = ?, updated_at = ?
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`,
		nullString(it.GroupID), it.Name, nullString(it.Description), it.Quantity, it.Unit,
		it.MinimumStock, nullString(it.ExpiryDate), nullString(it.Brand), nullString(it.Notes),
		nullString(it.SupplierName), nullString(it.SupplierContact), nullString(it.PurchaseLink),
		nullString(it.ImageURI), it.IsActive, it.IsCritical, seq, formatTime(it.UpdatedAt),
		accountID, it.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update item: %w", err)
	}
	if err := requireOneRow(res); err != nil {
		return 0, err
	}
	return seq, nil
}

// GetItem returns a live item by server id.
func (t *Tx) GetItem(ctx context.Context, accountID, id string) (model.Item, error) {
	return getItem(ctx, t.tx, accountID, id)
}

// GetItem returns a live item by server id outside a transaction.
func (s *Store) GetItem(ctx context.Context, accountID, id string) (model.Item, error) {
	return getItem(ctx, s.db, accountID, id)
}

func getItem(ctx context.Context, q querier, accountID, id string) (model.Item, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, accountID, id)
	it, _, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// AddItemQuantity increments a live item's quantity by delta.
func (t *Tx) AddItemQuantity(ctx context.Context, accountID, id string, delta int, at time.Time) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE items SET quantity = quantity + ?, seq = ?, updated_at = ?
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, delta, seq, formatTime(at), accountID, id)
	if err != nil {
		return 0, fmt.Errorf("add item quantity: %w", err)
	}
	if err := requireOneRow(res); err != nil {
		return 0, err
	}
	return seq, nil
}

func scanItem(row rowScanner) (model.Item, int64, error) {
	var (
		it                                  model.Item
		groupID, desc, expiry, brand, notes sql.NullString
		supplier, contact, link, image      sql.NullString
		seq                                 int64
		created, updated                    string
	)
	err := row.Scan(
		&it.ID, &it.LocalID, &groupID, &it.Name, &desc, &it.Quantity, &it.Unit, &it.MinimumStock,
		&expiry, &brand, &notes, &supplier, &contact, &link, &image,
		&it.IsActive, &it.IsCritical, &seq, &created, &updated,
	)
	if err != nil {
		return model.Item{}, 0, err
	}
	it.GroupID = stringPtr(groupID)
	it.Description = stringPtr(desc)
	it.ExpiryDate = stringPtr(expiry)
	it.Brand = stringPtr(brand)
	it.Notes = stringPtr(notes)
	it.SupplierName = stringPtr(supplier)
	it.SupplierContact = stringPtr(contact)
	it.PurchaseLink = stringPtr(link)
	it.ImageURI = stringPtr(image)
	if it.CreatedAt, err = parseTime(created); err != nil {
		return model.Item{}, 0, err
	}
	if it.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Item{}, 0, err
	}
	return it, seq, nil
}
