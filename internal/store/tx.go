package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// Tx is a write transaction. Every mutation stamps the row with a seq
// allocated from the same transaction.
type Tx struct {
	tx *sql.Tx
}

// NextSeq allocates the next change sequence.
func (t *Tx) NextSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx,
		"UPDATE sync_clock SET seq = seq + 1 WHERE id = 1 RETURNING seq",
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// Mapping is the result of a local-id lookup.
type Mapping struct {
	EntityID string
	Deleted  bool
}

// LookupLocalID resolves a client identifier to the server identifier of
// the entity created with it. Live rows win over tombstoned ones; among
// tombstoned rows the most recently written wins. ok is false when no row
// was ever created with localID.
func (t *Tx) LookupLocalID(ctx context.Context, accountID string, class model.EntityClass, localID string) (m Mapping, ok bool, err error) {
	table, err := tableFor(class)
	if err != nil {
		return Mapping{}, false, err
	}
	var deletedAt sql.NullString
	err = t.tx.QueryRowContext(ctx, `
		SELECT id, deleted_at FROM `+table+`
		WHERE account_id = ? AND local_id = ?
		ORDER BY deleted_at IS NOT NULL, seq DESC
		LIMIT 1
	`, accountID, localID).Scan(&m.EntityID, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("lookup local id: %w", err)
	}
	m.Deleted = deletedAt.Valid
	return m, true, nil
}

// LiveLocalIDs returns localId -> entityId for every live row of class.
func (t *Tx) LiveLocalIDs(ctx context.Context, accountID string, class model.EntityClass) (map[string]string, error) {
	table, err := tableFor(class)
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT local_id, id FROM `+table+`
		WHERE account_id = ? AND deleted_at IS NULL
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("live local ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var localID, id string
		if err := rows.Scan(&localID, &id); err != nil {
			return nil, fmt.Errorf("live local ids: scan: %w", err)
		}
		out[localID] = id
	}
	return out, rows.Err()
}

// SoftDelete marks a live entity deleted and writes its tombstone.
// Returns the tombstone, or ErrNotFound when no live row matched.
func (t *Tx) SoftDelete(ctx context.Context, accountID string, class model.EntityClass, entityID string, at time.Time) (Tombstone, error) {
	table, err := tableFor(class)
	if err != nil {
		return Tombstone{}, err
	}

	var localID string
	err = t.tx.QueryRowContext(ctx, `
		SELECT local_id FROM `+table+`
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, accountID, entityID).Scan(&localID)
	if errors.Is(err, sql.ErrNoRows) {
		return Tombstone{}, ErrNotFound
	}
	if err != nil {
		return Tombstone{}, fmt.Errorf("soft delete %s: %w", class, err)
	}

	seq, err := t.NextSeq(ctx)
	if err != nil {
		return Tombstone{}, err
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE `+table+` SET deleted_at = ?, updated_at = ?, seq = ?
		WHERE account_id = ? AND id = ?
	`, formatTime(at), formatTime(at), seq, accountID, entityID); err != nil {
		return Tombstone{}, fmt.Errorf("soft delete %s: %w", class, err)
	}

	ts := Tombstone{
		ID:          ulid.Make().String(),
		AccountID:   accountID,
		EntityClass: class,
		EntityID:    entityID,
		LocalID:     localID,
		Seq:         seq,
		DeletedAt:   at.UTC(),
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO tombstones (id, account_id, entity_class, entity_id, local_id, seq, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ts.ID, ts.AccountID, string(ts.EntityClass), ts.EntityID, ts.LocalID, ts.Seq, formatTime(ts.DeletedAt)); err != nil {
		return Tombstone{}, fmt.Errorf("write tombstone: %w", err)
	}
	return ts, nil
}

// AppendAudit writes an audit entry in the current transaction. An empty
// ID is filled with a fresh ULID.
func (t *Tx) AppendAudit(ctx context.Context, e AuditEntry) error {
	return appendAudit(ctx, t.tx, e)
}

func tableFor(class model.EntityClass) (string, error) {
	switch class {
	case model.ClassGroup:
		return "item_groups", nil
	case model.ClassItem:
		return "items", nil
	case model.ClassOrder:
		return "orders", nil
	}
	return "", fmt.Errorf("unknown entity class %q", class)
}

// IsLive reports whether a live row of class with the given id exists for
// the account.
func (t *Tx) IsLive(ctx context.Context, accountID string, class model.EntityClass, id string) (bool, error) {
	table, err := tableFor(class)
	if err != nil {
		return false, err
	}
	var n int
	err = t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM `+table+`
		WHERE account_id = ? AND id = ? AND deleted_at IS NULL
	`, accountID, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is live: %w", err)
	}
	return n > 0, nil
}
