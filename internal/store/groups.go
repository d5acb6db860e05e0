package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

const groupColumns = `id, local_id, name, description, display_order, is_default, seq, created_at, updated_at`

// InsertGroup writes a new group and returns the seq it was stamped with.
func (t *Tx) InsertGroup(ctx context.Context, accountID string, g model.Group) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO item_groups
		(id, account_id, local_id, name, description, display_order, is_default, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID, accountID, g.LocalID, g.Name, nullString(g.Description),
		g.DisplayOrder, g.IsDefault, seq, formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert group: %w", err)
	}
	return seq, nil
}

// UpdateGroup overwrites every mutable column of a live group.
func (t *Tx) UpdateGroup(ctx context.Context, accountID string, g model.Group) (int64, error) {
	seq, err := t.NextSeq(ctx)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE item_groups
		SET name = ?, description = ?, display_order = ?, is_default = ?, seq = ?, updated_at = ?
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`,
		g.Name, nullString(g.Description), g.DisplayOrder, g.IsDefault, seq, formatTime(g.UpdatedAt),
		accountID, g.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update group: %w", err)
	}
	if err := requireOneRow(res); err != nil {
		return 0, err
	}
	return seq, nil
}

// GetGroup returns a live group by server id.
func (t *Tx) GetGroup(ctx context.Context, accountID, id string) (model.Group, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+groupColumns+` FROM item_groups
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, accountID, id)
	g, _, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Group{}, ErrNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// DetachItems clears group_id on every live item of a group, stamping each
// with a new seq so clients see the change.
func (t *Tx) DetachItems(ctx context.Context, accountID, groupID string, at time.Time) (int, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id FROM items
		WHERE account_id = ? AND group_id = ? AND deleted_at IS NULL
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, accountID, groupID)
	if err != nil {
		return 0, fmt.Errorf("detach items: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("detach items: scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("detach items: %w", err)
	}

	for _, id := range ids {
		seq, err := t.NextSeq(ctx)
		if err != nil {
			return 0, err
		}
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE items SET group_id = NULL, seq = ?, updated_at = ? WHERE id = ?
		`, seq, formatTime(at), id); err != nil {
			return 0, fmt.Errorf("detach items: %w", err)
		}
	}
	return len(ids), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (model.Group, int64, error) {
	var (
		g                model.Group
		desc             sql.NullString
		seq              int64
		created, updated string
	)
	if err := row.Scan(&g.ID, &g.LocalID, &g.Name, &desc, &g.DisplayOrder, &g.IsDefault, &seq, &created, &updated); err != nil {
		return model.Group{}, 0, err
	}
	g.Description = stringPtr(desc)
	var err error
	if g.CreatedAt, err = parseTime(created); err != nil {
		return model.Group{}, 0, err
	}
	if g.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Group{}, 0, err
	}
	return g, seq, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
